// internal/render/math.go
package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/wyatt915/treeblood"
)

// MathConverter replaces TeX math spans in HTML with MathML.
type MathConverter interface {
	Convert(html string) (string, error)
}

// TeXConverter translates a single TeX expression to MathML.
type TeXConverter interface {
	Display(tex string) (string, error)
	Inline(tex string) (string, error)
}

type treebloodTeX struct{}

func (treebloodTeX) Display(tex string) (string, error) { return treeblood.DisplayStyle(tex, nil) }
func (treebloodTeX) Inline(tex string) (string, error) { return treeblood.InlineStyle(tex, nil) }

// Math finds $$display$$ and $inline$ spans outside code and pre elements and
// converts them with a TeXConverter.
type Math struct {
	tex TeXConverter
}

// NewMath returns a converter backed by treeblood.
func NewMath() *Math { return &Math{tex: treebloodTeX{}} }

// NewMathWith returns a converter backed by tex.
func NewMathWith(tex TeXConverter) *Math { return &Math{tex: tex} }

// Convert rewrites every math span in src. An inline span must not start or
// end with whitespace, so "$5 and $10" is left as text.
func (m *Math) Convert(src string) (string, error) {
	if !strings.Contains(src, "$") {
		return src, nil
	}
	var out strings.Builder
	out.Grow(len(src))
	verbatim := 0

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '<':
			end := strings.IndexByte(src[i:], '>')
			if end < 0 {
				out.WriteString(src[i:])
				return out.String(), nil
			}
			tag := src[i : i+end+1]
			i += end + 1
			if name := rawTextElement(tag); name != "" {
				// Script and style bodies are copied through up to their close tag.
				stop := indexFold(src[i:], "</"+name)
				if stop < 0 {
					stop = len(src) - i
				}
				out.WriteString(tag)
				out.WriteString(src[i : i+stop])
				i += stop
				continue
			}
			verbatim = max(0, verbatim+verbatimDelta(tag))
			out.WriteString(tag)
		case c == '$' && verbatim == 0:
			n, err := m.span(&out, src, i)
			if err != nil {
				return "", err
			}
			i += n
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String(), nil
}

// span converts the math span starting at src[i] and reports how many bytes
// it consumed. A lone '$' is written through.
func (m *Math) span(out *strings.Builder, src string, i int) (int, error) {
	if strings.HasPrefix(src[i:], "$$") {
		end := strings.Index(src[i+2:], "$$")
		if end < 0 {
			out.WriteString("$$")
			return 2, nil
		}
		tex := src[i+2 : i+2+end]
		mathml, err := m.tex.Display(html.UnescapeString(strings.TrimSpace(tex)))
		if err != nil {
			return 0, fmt.Errorf("display math %q: %w", tex, err)
		}
		out.WriteString(mathml)
		return end + 4, nil
	}

	end := strings.IndexByte(src[i+1:], '$')
	if end <= 0 {
		out.WriteByte('$')
		return 1, nil
	}
	tex := src[i+1 : i+1+end]
	if isSpace(tex[0]) || isSpace(tex[len(tex)-1]) || strings.ContainsAny(tex, "<\n") {
		out.WriteByte('$')
		return 1, nil
	}
	mathml, err := m.tex.Inline(html.UnescapeString(tex))
	if err != nil {
		return 0, fmt.Errorf("inline math %q: %w", tex, err)
	}
	out.WriteString(mathml)
	return end + 2, nil
}

// verbatimDelta reports +1 for an opening code or pre tag and -1 for the
// matching close.
func verbatimDelta(tag string) int {
	name := tagName(tag)
	if name != "code" && name != "pre" {
		return 0
	}
	if strings.HasPrefix(tag, "</") {
		return -1
	}
	return 1
}

// rawTextElement returns "script" or "style" when tag opens one of them.
func rawTextElement(tag string) string {
	if strings.HasPrefix(tag, "</") || strings.HasSuffix(tag, "/>") {
		return ""
	}
	switch name := tagName(tag); name {
	case "script", "style":
		return name
	}
	return ""
}

// indexFold is strings.Index with ASCII case folding.
func indexFold(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

func tagName(tag string) string {
	name := strings.ToLower(strings.TrimLeft(tag, "</"))
	if i := strings.IndexAny(name, " \t\n>/"); i >= 0 {
		name = name[:i]
	}
	return name
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
