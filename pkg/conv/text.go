package conv

import (
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/inbucket/html2text"
)

// MarkdownToText renders md for a plain terminal. Input that fails to
// convert comes back unchanged.
func MarkdownToText(md string) string {
	p := parser.NewWithExtensions(extensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	rendered := markdown.Render(p.Parse([]byte(md)), renderer)

	text, err := html2text.FromString(string(rendered), html2text.Options{PrettyTables: true})
	if err != nil {
		return md
	}
	return strings.TrimSpace(text)
}
