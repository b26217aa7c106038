// internal/builder/models.go
package builder

import (
	"sort"
	"sync"

	"dokkoo/internal/date"
	"dokkoo/internal/meta"
	"dokkoo/internal/util"
)

// Recognized metadata keys. Every other key is carried through untouched.
const (
	keyPermalink  = "permalink"
	keyDate       = "date"
	keyMarkdown   = "markdown"
	keyMath       = "math"
	keyEditML     = "editml"
	keyMinify     = "minify"
	keyLocale     = "locale"
	keyLayout     = "layout"
	keyCollection = "collection"
)

// Page is one Mokk file after metadata parsing. Content holds the body until
// the pipeline overwrites it with the rendered result. Once a page has been
// appended to a collection it is not mutated again.
type Page struct {
	Data      meta.Map
	Content   string
	Permalink string
	Date      date.Date
	Directory string
	Name      string
	// URL is the rendered permalink. It stays empty when Permalink is empty.
	URL      string
	Markdown bool
	Math     bool
	// EditML resolves editorial markup in the body before Markdown.
	EditML bool
	Minify bool
	Locale string
	// Path is the source file, kept for error context.
	Path string
}

// Map is the view of the page handed to the template engine.
func (p *Page) Map() map[string]any {
	return map[string]any{
		"data":      p.Data.Interface(),
		"content":   p.Content,
		"permalink": p.Permalink,
		"date":      p.Date.Map(),
		"directory": p.Directory,
		"name":      p.Name,
		"url":       p.URL,
		"base_href": util.ComputeBaseHref(p.URL),
		"markdown":  p.Markdown,
		"math":      p.Math,
		"editml":    p.EditML,
		"minify":    p.Minify,
		"locale":    p.Locale,
	}
}

// stringField returns the string value of key, or "" when it is absent.
func (p *Page) stringField(key string) (string, error) {
	v, ok := p.Data.Lookup(key)
	if !ok {
		return "", nil
	}
	s, err := v.AsString()
	if err != nil {
		return "", typeMismatch(err, p.Path, key, v)
	}
	return s, nil
}

// LayoutName is the page's `layout` key.
func (p *Page) LayoutName() (string, error) { return p.stringField(keyLayout) }

// CollectionName is the page's `collection` key.
func (p *Page) CollectionName() (string, error) { return p.stringField(keyCollection) }

// Collections maps a collection name to its pages in append order. It is
// append-only for the lifetime of a build run and safe for concurrent use.
type Collections struct {
	mu     sync.RWMutex
	pages  map[string][]*Page
	views  map[string][]any
	frozen bool
}

func NewCollections() *Collections {
	return &Collections{pages: make(map[string][]*Page), views: make(map[string][]any)}
}

// Append adds page to the named collection. Appends to a frozen table are
// ignored and reported as false.
func (c *Collections) Append(name string, page *Page) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		return false
	}
	c.pages[name] = append(c.pages[name], page)
	c.views[name] = append(c.views[name], page.Map())
	return true
}

// Freeze makes the table read-only.
func (c *Collections) Freeze() {
	c.mu.Lock()
	c.frozen = true
	c.mu.Unlock()
}

// Pages returns a copy of the named collection.
func (c *Collections) Pages(name string) []*Page {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Page(nil), c.pages[name]...)
}

// Names returns the collection names in sorted order.
func (c *Collections) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.pages))
	for name := range c.pages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a read-only copy of the table.
func (c *Collections) Snapshot() map[string][]*Page {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]*Page, len(c.pages))
	for name, pages := range c.pages {
		out[name] = append([]*Page(nil), pages...)
	}
	return out
}

// view is the template-facing form: name to a list of page views.
func (c *Collections) view() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.views))
	for name, views := range c.views {
		out[name] = append([]any(nil), views...)
	}
	return out
}
