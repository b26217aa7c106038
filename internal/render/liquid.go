// internal/render/liquid.go

// Package render adapts the external collaborators of the rendering pipeline:
// the Liquid template engine, the goldmark Markdown converter, the MathML
// converter, the HTML minifier and the HTML sanitizer.
package render

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/osteele/liquid"
	"golang.org/x/text/unicode/norm"
)

// TemplateEngine expands a template against a context.
type TemplateEngine interface {
	Render(source string, context map[string]any) (string, error)
}

// Liquid is a TemplateEngine backed by osteele/liquid. Parsed templates are
// cached by source text; it is safe for concurrent use.
type Liquid struct {
	engine   *liquid.Engine
	includes IncludeFunc
	mu       sync.RWMutex
	cache    map[string]*liquid.Template
}

// LiquidOption configures NewLiquid.
type LiquidOption func(*Liquid)

// WithIncludes makes `{% include name %}` render the partial returned by fn.
func WithIncludes(fn IncludeFunc) LiquidOption {
	return func(l *Liquid) { l.includes = fn }
}

// NewLiquid returns an engine with the standard filters plus the Jekyll-style
// extras Mokk sites rely on.
func NewLiquid(opts ...LiquidOption) *Liquid {
	l := &Liquid{cache: make(map[string]*liquid.Template)}
	for _, opt := range opts {
		opt(l)
	}
	e := liquid.NewEngine()
	l.engine = e
	e.RegisterTag("include", l.includeTag)
	e.RegisterFilter("date_in_tz", dateInTZ)
	e.RegisterFilter("slugify", Slugify)
	e.RegisterFilter("array_to_sentence_string", arrayToSentence)
	e.RegisterFilter("pluralize", pluralize)
	e.RegisterFilter("push", func(list []any, item any) []any { return append(append([]any{}, list...), item) })
	e.RegisterFilter("unshift", func(list []any, item any) []any { return append([]any{item}, list...) })
	e.RegisterFilter("pop", func(list []any) []any {
		if len(list) == 0 {
			return list
		}
		return list[:len(list)-1]
	})
	e.RegisterFilter("shift", func(list []any) []any {
		if len(list) == 0 {
			return list
		}
		return list[1:]
	})
	return l
}

// Render parses (or reuses) source and renders it with context.
func (l *Liquid) Render(source string, context map[string]any) (string, error) {
	tpl, err := l.parse(source)
	if err != nil {
		return "", err
	}
	out, serr := tpl.RenderString(liquid.Bindings(context))
	if serr != nil {
		return "", serr
	}
	return out, nil
}

func (l *Liquid) parse(source string) (*liquid.Template, error) {
	l.mu.RLock()
	tpl, ok := l.cache[source]
	l.mu.RUnlock()
	if ok {
		return tpl, nil
	}
	tpl, serr := l.engine.ParseString(source)
	if serr != nil {
		return nil, serr
	}
	l.mu.Lock()
	l.cache[source] = tpl
	l.mu.Unlock()
	return tpl, nil
}

// Slugify lowercases s, strips accents and joins words with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFD.String(s) {
		switch {
		case unicode.Is(unicode.Mn, r):
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(unicode.ToLower(r))
		default:
			dash = true
		}
	}
	return b.String()
}

func arrayToSentence(list []any) string {
	const conj = "and"
	words := make([]string, len(list))
	for i, v := range list {
		words[i] = fmt.Sprint(v)
	}
	switch len(words) {
	case 0:
		return ""
	case 1:
		return words[0]
	case 2:
		return words[0] + " " + conj + " " + words[1]
	}
	return strings.Join(words[:len(words)-1], ", ") + ", " + conj + " " + words[len(words)-1]
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
