package main

import (
	"reflect"
	"strings"
	"testing"
)

func TestSelectText(t *testing.T) {
	page := `<html><body>
<article><h2>First</h2><p>a</p><h2 class="x">Second
  heading</h2></article>
<aside><h2>Sidebar</h2><h2> </h2></aside>
</body></html>`
	tests := []struct {
		expr string
		want []string
	}{
		{"article h2", []string{"First", "Second heading"}},
		{"h2.x", []string{"Second heading"}},
		{"h2", []string{"First", "Second heading", "Sidebar"}},
		{"table", nil},
	}
	for _, tt := range tests {
		got, err := selectText(page, tt.expr)
		if err != nil {
			t.Fatalf("%s: %v", tt.expr, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("selectText(%q) = %q, want %q", tt.expr, got, tt.want)
		}
	}
}

func TestSelectText_InvalidSelector(t *testing.T) {
	_, err := selectText("<p>x</p>", "p[")
	if err == nil || !strings.Contains(err.Error(), "invalid -select") {
		t.Errorf("err = %v", err)
	}
}

func TestRun_Select(t *testing.T) {
	srv := newSite(t, map[string]string{"/": `<ul><li class="item">one</li><li>skip</li><li class="item">two</li></ul>`})
	out, err := runCLI(t, "-select", "li.item", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if out != "one\ntwo\n" {
		t.Errorf("output = %q", out)
	}
}
