// internal/builder/context.go
package builder

import (
	"os"
	"path/filepath"

	cerrors "dokkoo/internal/errors"
	"dokkoo/internal/frontmatter"
	"dokkoo/internal/meta"
)

// Context composes the bindings a template sees while rendering page: the
// global configuration, the page itself, the metadata of its layout and every
// collection built so far. args is bound as `snippet` when non-nil.
func (s *Session) Context(page *Page, args meta.Map) (map[string]any, error) {
	layout := map[string]any{}
	name, err := page.LayoutName()
	if err != nil {
		return nil, err
	}
	if name != "" {
		data, err := s.layoutMetadata(name)
		if err != nil {
			return nil, err
		}
		layout = data.Interface()
	}

	ctx := map[string]any{
		"global":      s.Global.Map(),
		"page":        page.Map(),
		"layout":      layout,
		"collections": s.Collections.view(),
	}
	if args != nil {
		ctx["snippet"] = args.Interface()
	}
	return ctx, nil
}

// LayoutPath is the site-relative path of the named layout.
func LayoutPath(name string) string {
	return filepath.Join(LayoutsDir, name+".mokkf")
}

// layoutMetadata reads only the metadata block of a layout. Results are
// cached for the session.
func (s *Session) layoutMetadata(name string) (meta.Map, error) {
	s.mu.Lock()
	data, ok := s.layoutMeta[name]
	s.mu.Unlock()
	if ok {
		return data, nil
	}

	path := LayoutPath(name)
	raw, err := os.ReadFile(s.abs(path))
	if err != nil {
		return nil, cerrors.IOError(err, path)
	}
	metaText, _ := frontmatter.Split(string(raw))
	data, err = frontmatter.Parse(metaText)
	if err != nil {
		return nil, cerrors.MetadataError(err, path, metaText)
	}

	s.mu.Lock()
	s.layoutMeta[name] = data
	s.mu.Unlock()
	return data, nil
}
