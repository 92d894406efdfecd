// Epub output: one chapter per fetched page, built with go-epub.
package main

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	epub "github.com/go-shiori/go-epub"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const epubCSS = `body { margin: 1em; line-height: 1.5; }
img { max-width: 100%; height: auto; }
pre, code { font-size: 0.85em; }
.source { font-size: 0.85em; color: #666; margin-bottom: 1.5em; }
.source a { color: #666; }
.toc { list-style-type: none; padding-left: 0; }
.toc li { margin-bottom: 1em; }`

// droppedElements never make sense inside an e-reader chapter.
var droppedElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true,
	atom.Iframe: true, atom.Form: true, atom.Object: true, atom.Embed: true,
}

var voidElements = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true,
	atom.Hr: true, atom.Img: true, atom.Input: true, atom.Link: true,
	atom.Meta: true, atom.Source: true, atom.Wbr: true,
}

func keepAttr(key string) bool {
	switch key {
	case "id", "class", "title", "lang", "dir", "href", "src", "alt",
		"width", "height", "colspan", "rowspan", "cite", "datetime", "start":
		return true
	}
	return strings.HasPrefix(key, "aria-")
}

// toXHTML parses page HTML and renders its body as XHTML with scripts,
// unknown attributes and comments removed.
func toXHTML(text string) string {
	doc, err := html.Parse(strings.NewReader(bodyOf(text)))
	if err != nil {
		return html.EscapeString(text)
	}
	var buf bytes.Buffer
	var body *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return
		}
		for c := n.FirstChild; c != nil && body == nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	if body == nil {
		body = doc
	}
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		writeXHTML(&buf, c)
	}
	return buf.String()
}

func writeXHTML(buf *bytes.Buffer, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		buf.WriteString(html.EscapeString(n.Data))
	case html.ElementNode:
		if droppedElements[n.DataAtom] {
			return
		}
		buf.WriteByte('<')
		buf.WriteString(n.Data)
		for _, a := range n.Attr {
			if a.Namespace != "" || !keepAttr(a.Key) {
				continue
			}
			fmt.Fprintf(buf, ` %s="%s"`, a.Key, html.EscapeString(a.Val))
		}
		if voidElements[n.DataAtom] {
			buf.WriteString("/>")
			return
		}
		buf.WriteByte('>')
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeXHTML(buf, c)
		}
		buf.WriteString("</")
		buf.WriteString(n.Data)
		buf.WriteByte('>')
	}
}

func chapterTitle(d *document, i int) string {
	if d.Title != "" {
		return d.Title
	}
	return fmt.Sprintf("Page %d", i+1)
}

func chapterFile(i int) string {
	return fmt.Sprintf("page%03d.xhtml", i+1)
}

// contentsBody lists every chapter with a link to its section.
func contentsBody(docs []*document) string {
	var b strings.Builder
	b.WriteString("<h1>Contents</h1>\n<ol class=\"toc\">\n")
	for i, d := range docs {
		fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>\n", chapterFile(i), html.EscapeString(chapterTitle(d, i)))
	}
	b.WriteString("</ol>")
	return b.String()
}

// buildEpub writes docs to outputPath as an epub3: a contents page when
// there is more than one document, then one section per page.
func buildEpub(docs []*document, title string, outputPath string, log zerolog.Logger) error {
	if title == "" {
		title = "Untitled"
	}
	e, err := epub.NewEpub(title)
	if err != nil {
		return fmt.Errorf("creating epub: %w", err)
	}
	e.SetLang("en")
	e.SetAuthor("pagefetch")

	cssPath, err := e.AddCSS("data:text/css;base64,"+base64.StdEncoding.EncodeToString([]byte(epubCSS)), "styles.css")
	if err != nil {
		log.Warn().Err(err).Msg("could not add CSS")
		cssPath = ""
	}

	if len(docs) > 1 {
		if _, err := e.AddSection(contentsBody(docs), "Contents", "contents.xhtml", cssPath); err != nil {
			log.Warn().Err(err).Msg("could not add table of contents")
		}
	}

	for i, d := range docs {
		chTitle := chapterTitle(d, i)
		src := d.URL.String()
		body := fmt.Sprintf("<h1>%s</h1>\n<p class=\"source\"><a href=\"%s\">%s</a></p>\n%s",
			html.EscapeString(chTitle), html.EscapeString(src), html.EscapeString(shortURL(src)), toXHTML(d.Text))
		if _, err := e.AddSection(body, chTitle, chapterFile(i), cssPath); err != nil {
			return fmt.Errorf("adding section %q: %w", chTitle, err)
		}
	}

	if err := e.Write(outputPath); err != nil {
		return fmt.Errorf("writing epub: %w", err)
	}
	return nil
}
