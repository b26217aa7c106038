package snippet

import "strings"

// RenderFunc renders one invocation and returns its replacement text.
type RenderFunc func(inv *Invocation) (string, error)

// Scan walks text tracking '{'/'}' nesting and hands every outermost span
// that is an invocation to render. Identical invocation strings are rendered
// once and substituted everywhere. Spans that only contain an invocation
// further in are scanned again on their interior; all other spans, and an
// unbalanced trailing span, pass through unchanged.
func Scan(text string, render RenderFunc) (string, error) {
	if !strings.Contains(text, Marker) {
		return text, nil
	}
	s := &scanner{render: render, memo: make(map[string]string)}
	return s.scan(text)
}

type scanner struct {
	render RenderFunc
	memo   map[string]string
}

func (s *scanner) scan(text string) (string, error) {
	var out strings.Builder
	out.Grow(len(text))
	depth, start := 0, 0

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
			continue
		case '}':
			if depth == 0 {
				break
			}
			depth--
			if depth == 0 {
				replaced, err := s.span(text[start : i+1])
				if err != nil {
					return "", err
				}
				out.WriteString(replaced)
			}
			continue
		}
		if depth == 0 {
			out.WriteByte(text[i])
		}
	}
	if depth > 0 {
		out.WriteString(text[start:])
	}
	return out.String(), nil
}

func (s *scanner) span(span string) (string, error) {
	if !strings.Contains(span, Marker) {
		return span, nil
	}
	if !strings.HasPrefix(span, OpenDelim) {
		inner, err := s.scan(span[1 : len(span)-1])
		if err != nil {
			return "", err
		}
		return "{" + inner + "}", nil
	}
	if out, ok := s.memo[span]; ok {
		return out, nil
	}
	inv, err := Parse(span)
	if err != nil {
		return "", err
	}
	out, err := s.render(inv)
	if err != nil {
		return "", err
	}
	s.memo[span] = out
	return out, nil
}
