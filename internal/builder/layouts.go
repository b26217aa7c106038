// internal/builder/layouts.go
package builder

import (
	"strings"

	cerrors "dokkoo/internal/errors"
	"dokkoo/internal/meta"
)

// ResolveLayouts wraps sub (whose Content is already rendered) in layout and
// every layout above it. Each intermediate level is merged template-only, so
// the body's Markdown is applied exactly once.
func (s *Session) ResolveLayouts(sub, layout *Page) (string, error) {
	own, err := sub.LayoutName()
	if err != nil {
		return "", err
	}
	var chain []string
	visited := map[string]bool{}
	if own != "" {
		chain = append(chain, own)
		visited[own] = true
	}
	return s.resolveLayouts(sub, layout, visited, chain)
}

func (s *Session) resolveLayouts(sub, layout *Page, visited map[string]bool, chain []string) (string, error) {
	parentName, err := layout.LayoutName()
	if err != nil {
		return "", err
	}
	if parentName == "" {
		return s.RenderTemplate(sub, layout.Content)
	}

	chain = append(chain, parentName)
	if visited[parentName] {
		return "", cerrors.New(cerrors.CategoryLayoutCycle, "layouts form a cycle").
			File(pageLabel(sub)).
			With(cerrors.KeyChain, strings.Join(chain, " -> ")).
			Build()
	}
	visited[parentName] = true

	parent, err := s.LoadPage(LayoutPath(parentName))
	if err != nil {
		return "", err
	}
	content, err := s.RenderTemplate(sub, layout.Content)
	if err != nil {
		return "", err
	}

	merged := &Page{
		Data:      MergeData(sub.Data, layout.Data),
		Content:   content,
		Permalink: sub.Permalink,
		Date:      sub.Date,
		Directory: sub.Directory,
		Name:      sub.Name,
		URL:       sub.URL,
		Markdown:  layout.Markdown,
		Math:      layout.Math,
		Minify:    sub.Minify,
		Locale:    sub.Locale,
		Path:      sub.Path,
	}
	return s.resolveLayouts(merged, parent, visited, chain)
}

// MergeData is the union of sub and layout; on a shared key the layout's
// value wins.
func MergeData(sub, layout meta.Map) meta.Map {
	out := sub.Clone()
	if out == nil {
		out = meta.Map{}
	}
	for k, v := range layout {
		out[k] = v
	}
	return out
}
