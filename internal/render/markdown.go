// internal/render/markdown.go
package render

import (
	"bytes"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// MarkdownConverter turns Markdown into HTML. When math is enabled the
// superscript syntax is left alone so that '^' inside math survives.
type MarkdownConverter interface {
	Convert(source string, math bool) (string, error)
}

// Goldmark is the default MarkdownConverter. It keeps two configured
// instances, one per math setting.
type Goldmark struct {
	withMath    goldmark.Markdown
	withoutMath goldmark.Markdown
}

func NewGoldmark() *Goldmark {
	return &Goldmark{
		withMath:    newMarkdown(false),
		withoutMath: newMarkdown(true),
	}
}

func newMarkdown(superscript bool) goldmark.Markdown {
	extensions := []goldmark.Extender{
		extension.GFM,
		extension.Footnote,
		extension.DefinitionList,
		extension.Typographer,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
			highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
			highlighting.WithWrapperRenderer(codeBlockWrapper),
		),
	}
	if superscript {
		extensions = append(extensions, superscriptExtension{})
	}
	return goldmark.New(
		goldmark.WithExtensions(extensions...),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(
				util.Prioritized(newPageLinkTransformer(), 100),
			),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithUnsafe(),
		),
	)
}

// Convert renders source to HTML.
func (g *Goldmark) Convert(source string, math bool) (string, error) {
	md := g.withoutMath
	if math {
		md = g.withMath
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown with goldmark: %w", err)
	}
	return buf.String(), nil
}

// codeBlockWrapper tags highlighted fenced blocks with their language.
func codeBlockWrapper(w util.BufWriter, c highlighting.CodeBlockContext, entering bool) {
	lang, ok := c.Language()
	if !ok {
		return
	}
	if entering {
		_, _ = w.WriteString(`<div class="highlight" data-lang="`)
		_, _ = w.Write(util.EscapeHTML(lang))
		_, _ = w.WriteString(`">`)
		return
	}
	_, _ = w.WriteString("</div>")
}
