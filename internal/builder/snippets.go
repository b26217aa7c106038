// internal/builder/snippets.go
package builder

import (
	"fmt"
	"os"
	"path/filepath"

	cerrors "dokkoo/internal/errors"
	"dokkoo/internal/logfields"
	"dokkoo/internal/snippet"
)

// maxSnippetDepth bounds snippets that call snippets.
const maxSnippetDepth = 32

// SnippetPath is the site-relative path of the named snippet.
func SnippetPath(name string) string {
	return filepath.Join(SnippetsDir, filepath.FromSlash(name))
}

// resolveSnippets replaces every snippet call in text with the rendered
// snippet. depth is the nesting level of text itself.
func (s *Session) resolveSnippets(page *Page, text string, depth int) (string, error) {
	out, err := snippet.Scan(text, func(inv *snippet.Invocation) (string, error) {
		return s.callSnippet(page, inv, depth+1)
	})
	if err == nil {
		return out, nil
	}
	if _, ok := cerrors.AsClassified(err); ok {
		return "", err
	}
	b := cerrors.Wrap(err, cerrors.CategorySnippet, "malformed snippet call").File(pageLabel(page))
	if se, ok := err.(*snippet.SyntaxError); ok {
		b = b.With(cerrors.KeyCall, se.Call)
	}
	return "", b.Build()
}

func (s *Session) callSnippet(page *Page, inv *snippet.Invocation, depth int) (string, error) {
	if depth > maxSnippetDepth {
		return "", cerrors.New(cerrors.CategorySnippet, fmt.Sprintf("snippets nested deeper than %d", maxSnippetDepth)).
			File(pageLabel(page)).
			With(cerrors.KeyCall, inv.Raw).
			Build()
	}
	text, err := s.snippetSource(inv.Name, inv.Raw)
	if err != nil {
		return "", err
	}
	s.logger.Debug("Rendering snippet", logfields.Path(pageLabel(page)), logfields.Snippet(inv.Name))
	return s.renderSnippet(page, text, inv.Map(), depth)
}

// includeSource backs the template engine's `{% include name %}`: the same
// snippet files, rendered as Liquid partials.
func (s *Session) includeSource(name string) (string, error) {
	if err := snippet.ValidateName(name); err != nil {
		return "", cerrors.Wrap(err, cerrors.CategorySnippet, "invalid include").
			With(cerrors.KeyCall, "include "+name).
			Build()
	}
	return s.snippetSource(name, "include "+name)
}

// snippetSource reads a snippet file once per session. call names the
// invocation in errors.
func (s *Session) snippetSource(name, call string) (string, error) {
	s.mu.Lock()
	text, ok := s.snippets[name]
	s.mu.Unlock()
	if ok {
		return text, nil
	}

	path := SnippetPath(name)
	raw, err := os.ReadFile(s.abs(path))
	if err != nil {
		return "", cerrors.Wrap(err, cerrors.CategoryIO, "cannot read snippet").
			File(path).
			With(cerrors.KeyCall, call).
			Build()
	}

	s.mu.Lock()
	s.snippets[name] = string(raw)
	s.mu.Unlock()
	return string(raw), nil
}
