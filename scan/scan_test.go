package scan

import (
	"testing"
)

func TestFindTag_SelfClosing(t *testing.T) {
	src := `<p>x</p><img src="a.png"/>`
	tag, ok := FindTag(src, "img", 0)
	if !ok {
		t.Fatal("img not found")
	}
	if v, ok := tag.Attr("src"); !ok || v != "a.png" {
		t.Errorf("src = %q, %v; want a.png", v, ok)
	}
	if tag.Content != nil {
		t.Errorf("content = %q, want none", *tag.Content)
	}
	if tag.HasAttr("/") {
		t.Error("self-closing slash parsed as an attribute")
	}
	if tag.Start != 8 || tag.End != len(src) {
		t.Errorf("span = [%d,%d), want [8,%d)", tag.Start, tag.End, len(src))
	}
}

func TestFindTag_Content(t *testing.T) {
	src := `<div class="x">hello</div>`
	tag, ok := FindTag(src, "div", 0)
	if !ok {
		t.Fatal("div not found")
	}
	if v, _ := tag.Attr("class"); v != "x" {
		t.Errorf("class = %q, want x", v)
	}
	if tag.Content == nil || *tag.Content != "hello" {
		t.Errorf("content = %v, want hello", tag.Content)
	}
	if tag.End != len(src) {
		t.Errorf("End = %d, want %d", tag.End, len(src))
	}
	if tag.MaybeNested {
		t.Error("MaybeNested set for a flat tag")
	}
}

func TestFindTag_Attributes(t *testing.T) {
	src := `<input type=checkbox checked name='agree' value="" data-x=1 disabled>`
	tag, ok := FindTag(src, "input", 0)
	if !ok {
		t.Fatal("input not found")
	}
	tests := []struct {
		name  string
		value string
		ok    bool
	}{
		{"type", "checkbox", true},
		{"name", "agree", true},
		{"value", "", true},
		{"data-x", "1", true},
		{"checked", "", false},
		{"disabled", "", false},
	}
	for _, tt := range tests {
		v, ok := tag.Attr(tt.name)
		if v != tt.value || ok != tt.ok {
			t.Errorf("Attr(%q) = %q, %v; want %q, %v", tt.name, v, ok, tt.value, tt.ok)
		}
		if !tag.HasAttr(tt.name) {
			t.Errorf("HasAttr(%q) = false", tt.name)
		}
	}
	if tag.Attrs["checked"] != nil {
		t.Error("boolean attribute should map to no value, not an empty string")
	}
	if len(tag.Attrs) != len(tests) {
		t.Errorf("got %d attributes, want %d: %v", len(tag.Attrs), len(tests), tag.Attrs)
	}
}

func TestFindTag_UnterminatedQuote(t *testing.T) {
	tag, ok := FindTag(`<a id=one title="broken>text</a>`, "a", 0)
	if !ok {
		t.Fatal("tag not found")
	}
	if v, _ := tag.Attr("id"); v != "one" {
		t.Errorf("id = %q, want one", v)
	}
	if tag.HasAttr("title") {
		t.Error("unterminated attribute should not be recorded")
	}
}

func TestFindTag_Nested(t *testing.T) {
	src := `<div>outer <div>inner</div> tail</div>`
	tag, ok := FindTag(src, "div", 0)
	if !ok {
		t.Fatal("div not found")
	}
	if tag.Content == nil || *tag.Content != "outer <div>inner" {
		t.Errorf("content = %v, want the text up to the first close tag", tag.Content)
	}
	if !tag.MaybeNested {
		t.Error("MaybeNested should be set")
	}
}

func TestFindTag_NoCloseTag(t *testing.T) {
	src := `<p class=a>para one<p>para two`
	tag, ok := FindTag(src, "p", 0)
	if !ok {
		t.Fatal("p not found")
	}
	if tag.Content != nil {
		t.Errorf("content = %q, want none", *tag.Content)
	}
	if tag.End != len(`<p class=a>`) {
		t.Errorf("End = %d", tag.End)
	}
}

func TestFindTag_NotFound(t *testing.T) {
	tests := []struct {
		src, name string
		start     int
	}{
		{"<p>hi</p>", "div", 0},
		{"<div never closed", "div", 0},
		{"<div>x</div>", "div", 1},
		{"<div>x</div>", "div", 99},
		{"<div>x</div>", "", 0},
	}
	for _, tt := range tests {
		if _, ok := FindTag(tt.src, tt.name, tt.start); ok {
			t.Errorf("FindTag(%q, %q, %d) found a tag", tt.src, tt.name, tt.start)
		}
	}
}

func TestTags(t *testing.T) {
	src := `<li>one</li><li>two</li><li class="last">three</li>`
	var got []string
	for tag := range Tags(src, "li") {
		got = append(got, *tag.Content)
	}
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tag %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFindNextLink(t *testing.T) {
	l, ok := FindNextLink(`<a href="http://x/">  Click  </a>`, 0)
	if !ok {
		t.Fatal("link not found")
	}
	if l.Text != "Click" || l.URL != "http://x/" {
		t.Errorf("got (%q, %q), want (Click, http://x/)", l.Text, l.URL)
	}
}

func TestFindNextLink_GreaterThanInHref(t *testing.T) {
	src := `<a href="/q?x>1">Go</a> tail`
	l, ok := FindNextLink(src, 0)
	if !ok {
		t.Fatal("link not found")
	}
	if l.Text != "Go" || l.URL != "/q?x>1" {
		t.Errorf("got (%q, %q), want (Go, /q?x>1)", l.Text, l.URL)
	}
	if src[l.Start:l.End] != `<a href="/q?x>1">Go</a>` {
		t.Errorf("span = %q", src[l.Start:l.End])
	}
}

func TestFindNextLink_SkipsUnsupported(t *testing.T) {
	src := `<a href='single.html'>one</a> <a name="top">two</a> <a href=bare>three</a> <a class="c" href="/ok">four</a>`
	l, ok := FindNextLink(src, 0)
	if !ok {
		t.Fatal("link not found")
	}
	if l.URL != "/ok" || l.Text != "four" {
		t.Errorf("got (%q, %q), want (four, /ok)", l.Text, l.URL)
	}
}

func TestFindNextLink_NotFound(t *testing.T) {
	for _, src := range []string{
		"no links here",
		`<abbr href="x">y</abbr>`,
		`<a href="/x">never closed`,
		"",
	} {
		if l, ok := FindNextLink(src, 0); ok {
			t.Errorf("FindNextLink(%q) = %+v, want not found", src, l)
		}
	}
}

func TestLinks(t *testing.T) {
	src := `<ul><li><a href="/1">One</a></li><li><a href="/2">
		Two
	</a></li><li><a href="/3"><b>Three</b></a></li></ul>`

	var got []Link
	for l := range Links(src) {
		got = append(got, l)
	}
	want := []struct{ text, url string }{
		{"One", "/1"},
		{"Two", "/2"},
		{"<b>Three</b>", "/3"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d links, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Text != w.text || got[i].URL != w.url {
			t.Errorf("link %d = (%q, %q), want (%q, %q)", i, got[i].Text, got[i].URL, w.text, w.url)
		}
	}

	// Restartable and stoppable.
	n := 0
	for range Links(src) {
		n++
		break
	}
	if n != 1 {
		t.Errorf("early break visited %d links", n)
	}
	n = 0
	for range Links(src) {
		n++
	}
	if n != 3 {
		t.Errorf("second pass visited %d links, want 3", n)
	}
}

func TestContentBetween(t *testing.T) {
	src := `<title>  Page Title </title><h1>One</h1><h1>Two</h1>`
	got, next, ok := ContentBetween(src, "<title>", "</title>", 0)
	if !ok || got != "Page Title" {
		t.Errorf("title = %q, %v", got, ok)
	}
	got, next, ok = ContentBetween(src, "<h1>", "</h1>", next)
	if !ok || got != "One" {
		t.Errorf("first h1 = %q, %v", got, ok)
	}
	got, _, ok = ContentBetween(src, "<h1>", "</h1>", next)
	if !ok || got != "Two" {
		t.Errorf("second h1 = %q, %v", got, ok)
	}
	if _, _, ok := ContentBetween(src, "<h2>", "</h2>", 0); ok {
		t.Error("missing marker reported as found")
	}
	if _, _, ok := ContentBetween("<b>open only", "<b>", "</b>", 0); ok {
		t.Error("missing close marker reported as found")
	}
}
