// Package scan finds tags and anchor links in decoded HTML text by plain
// substring search. It never builds a tree: the content of a tag ends at
// the first matching close tag, so nested tags of the same name cut the
// outer content short. Tag.MaybeNested flags results where that may have
// happened.
package scan

import (
	"iter"
	"strings"
)

// Tag is one occurrence of a named tag in a source text.
type Tag struct {
	Name string
	// Attrs maps attribute names to their values. A nil value means the
	// attribute was present without "=", as with boolean attributes.
	Attrs map[string]*string
	// Content is nil for self-closing tags and for tags whose close tag
	// was not found.
	Content *string
	// Start is the offset of "<"; End is the offset just past the close
	// tag, or past the opening tag's ">" when there is no content.
	Start, End int
	// MaybeNested is set when Content contains another opener of the same
	// name, meaning the real element probably extends further.
	MaybeNested bool
}

// Attr returns the attribute value. ok is false when the attribute is
// missing or has no value.
func (t Tag) Attr(name string) (string, bool) {
	v, present := t.Attrs[name]
	if !present || v == nil {
		return "", false
	}
	return *v, true
}

// HasAttr reports whether the attribute is present, with or without a value.
func (t Tag) HasAttr(name string) bool {
	_, ok := t.Attrs[name]
	return ok
}

// FindTag finds the first "<"+name at or after start. The match is
// literal, so FindTag(src, "a", 0) also stops at "<abbr".
func FindTag(source, name string, start int) (Tag, bool) {
	if name == "" || start < 0 || start > len(source) {
		return Tag{}, false
	}
	opener := "<" + name
	i := strings.Index(source[start:], opener)
	if i < 0 {
		return Tag{}, false
	}
	tagStart := start + i
	attrStart := tagStart + len(opener)
	j := strings.IndexByte(source[attrStart:], '>')
	if j < 0 {
		return Tag{}, false
	}
	gt := attrStart + j

	tag := Tag{
		Name:  name,
		Attrs: parseAttrs(source[attrStart:gt]),
		Start: tagStart,
		End:   gt + 1,
	}
	if gt > 0 && source[gt-1] == '/' {
		return tag, true
	}

	closer := "</" + name + ">"
	k := strings.Index(source[gt+1:], closer)
	if k < 0 {
		return tag, true
	}
	content := source[gt+1 : gt+1+k]
	tag.Content = &content
	tag.End = gt + 1 + k + len(closer)
	tag.MaybeNested = strings.Contains(content, opener)
	return tag, true
}

// Tags yields every occurrence of name in source, resuming each search
// after the previous tag's opener so that nested occurrences are visited.
func Tags(source, name string) iter.Seq[Tag] {
	return func(yield func(Tag) bool) {
		pos := 0
		for {
			tag, ok := FindTag(source, name, pos)
			if !ok {
				return
			}
			if !yield(tag) {
				return
			}
			pos = tag.Start + 1
		}
	}
}

// parseAttrs reads name, name=value, name="value" and name='value'
// entries from an attribute region. An unterminated quote ends parsing.
func parseAttrs(region string) map[string]*string {
	s := strings.TrimSpace(region)
	attrs := make(map[string]*string)
	pos := 0
	for pos < len(s) {
		d := strings.IndexAny(s[pos:], " =")
		if d < 0 {
			// Trailing bare name, except the self-closing slash.
			if name := s[pos:]; name != "/" {
				attrs[name] = nil
			}
			break
		}
		d += pos
		name := s[pos:d]

		if s[d] == ' ' {
			if name != "" {
				attrs[name] = nil
			}
			pos = d + 1
			continue
		}

		valStart := d + 1
		if valStart < len(s) && (s[valStart] == '"' || s[valStart] == '\'') {
			q := s[valStart]
			end := strings.IndexByte(s[valStart+1:], q)
			if end < 0 {
				break
			}
			v := s[valStart+1 : valStart+1+end]
			if name != "" {
				attrs[name] = &v
			}
			pos = valStart + 1 + end + 1
			continue
		}

		end := strings.IndexByte(s[valStart:], ' ')
		var v string
		if end < 0 {
			v = s[valStart:]
			pos = len(s)
		} else {
			v = s[valStart : valStart+end]
			pos = valStart + end + 1
		}
		if name != "" {
			attrs[name] = &v
		}
	}
	return attrs
}

// Link is one anchor found by FindNextLink.
type Link struct {
	Text string
	URL  string
	// Start is the offset of "<a "; End is just past "</a>".
	Start, End int
}

// FindNextLink finds the next anchor at or after start that carries a
// double-quoted href inside its opening tag and has a closing "</a>".
// Anchors that do not qualify are skipped.
func FindNextLink(source string, start int) (Link, bool) {
	if start < 0 || start > len(source) {
		return Link{}, false
	}
	pos := start
	for {
		i := strings.Index(source[pos:], "<a ")
		if i < 0 {
			return Link{}, false
		}
		aStart := pos + i
		pos = aStart + len("<a ")
		if l, ok := parseLink(source, aStart); ok {
			return l, true
		}
	}
}

func parseLink(source string, aStart int) (Link, bool) {
	rest := source[aStart:]
	// The href marker must sit inside the opening tag; its value may
	// itself contain '>'.
	first := strings.IndexByte(rest, '>')
	if first < 0 {
		return Link{}, false
	}
	const hrefMarker = `href="`
	h := strings.Index(rest[:first], hrefMarker)
	if h < 0 {
		return Link{}, false
	}
	urlStart := h + len(hrefMarker)
	q := strings.IndexByte(rest[urlStart:], '"')
	if q < 0 {
		return Link{}, false
	}
	href := rest[urlStart : urlStart+q]
	gt := strings.IndexByte(rest[urlStart+q:], '>')
	if gt < 0 {
		return Link{}, false
	}
	textStart := urlStart + q + gt + 1
	c := strings.Index(rest[textStart:], "</a>")
	if c < 0 {
		return Link{}, false
	}
	return Link{
		Text:  strings.TrimSpace(rest[textStart : textStart+c]),
		URL:   href,
		Start: aStart,
		End:   aStart + textStart + c + len("</a>"),
	}, true
}

// Links yields every link in source in order. Each call to the returned
// sequence starts over from the beginning.
func Links(source string) iter.Seq[Link] {
	return func(yield func(Link) bool) {
		pos := 0
		for {
			l, ok := FindNextLink(source, pos)
			if !ok || !yield(l) {
				return
			}
			pos = l.End
		}
	}
}

// ContentBetween returns the trimmed text between the first open marker at
// or after start and the next close marker, plus the offset just past the
// close marker.
func ContentBetween(source, open, close string, start int) (string, int, bool) {
	if open == "" || close == "" || start < 0 || start > len(source) {
		return "", 0, false
	}
	i := strings.Index(source[start:], open)
	if i < 0 {
		return "", 0, false
	}
	from := start + i + len(open)
	j := strings.Index(source[from:], close)
	if j < 0 {
		return "", 0, false
	}
	return strings.TrimSpace(source[from : from+j]), from + j + len(close), true
}
