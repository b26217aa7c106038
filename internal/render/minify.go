// internal/render/minify.go
package render

import (
	"fmt"
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
)

// Minifier compacts rendered HTML.
type Minifier interface {
	Minify(html string) (string, error)
}

// HTMLMinifier minifies HTML together with inline CSS, JavaScript and SVG.
// Document, end tags and attribute quotes are kept so that output remains
// valid when pages are later concatenated into layouts.
type HTMLMinifier struct {
	m *minify.M
}

func NewHTMLMinifier() *HTMLMinifier {
	m := minify.New()
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	return &HTMLMinifier{m: m}
}

func (h *HTMLMinifier) Minify(src string) (string, error) {
	out, err := h.m.String("text/html", src)
	if err != nil {
		return "", fmt.Errorf("minify html: %w", err)
	}
	return out, nil
}
