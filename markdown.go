// Markdown output: converts decoded page HTML to CommonMark.
package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/dom"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"golang.org/x/net/html"

	"github.com/adammathes/pagefetch/scan"
	"github.com/adammathes/pagefetch/weburl"
)

var (
	mdConverter     *converter.Converter
	mdConverterOnce sync.Once
)

// getMarkdownConverter returns the shared converter. Inline data URI
// images become alt-text placeholders.
func getMarkdownConverter() *converter.Converter {
	mdConverterOnce.Do(func() {
		mdConverter = converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		)
		mdConverter.Register.RendererFor("img", converter.TagTypeInline,
			func(ctx converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
				if !strings.HasPrefix(dom.GetAttributeOr(n, "src", ""), "data:") {
					return converter.RenderTryNext
				}
				if alt := strings.TrimSpace(dom.GetAttributeOr(n, "alt", "")); alt != "" {
					w.WriteString("[Image: " + alt + "]")
				}
				return converter.RenderSuccess
			},
			converter.PriorityEarly,
		)
	})
	return mdConverter
}

// bodyOf returns the content of the first <body> tag, or text itself when
// there is none.
func bodyOf(text string) string {
	if tag, ok := scan.FindTag(text, "body", 0); ok && tag.Content != nil {
		return *tag.Content
	}
	return text
}

// convertToMarkdown converts page HTML to Markdown. Relative links and
// images are made absolute against the page's origin.
func convertToMarkdown(text string, page weburl.URL) (string, error) {
	origin := page.Protocol + "://" + page.Authority()
	md, err := getMarkdownConverter().ConvertString(bodyOf(text), converter.WithDomain(origin))
	if err != nil {
		return "", fmt.Errorf("markdown conversion: %w", err)
	}
	return strings.TrimSpace(md), nil
}
