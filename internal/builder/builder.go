// internal/builder/builder.go
package builder

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"dokkoo/internal/config"
	"dokkoo/internal/date"
	cerrors "dokkoo/internal/errors"
	"dokkoo/internal/frontmatter"
	"dokkoo/internal/meta"
	"dokkoo/internal/metrics"
	"dokkoo/internal/render"
)

// Site directories, relative to the site root.
const (
	LayoutsDir  = "layouts"
	SnippetsDir = "snippets"
	StaticDir   = "static"
)

// Options carries the collaborators of a Session. Nil fields get the
// defaults: Liquid, goldmark, treeblood, EditML, tdewolff minify, bluemonday,
// slog.Default and a no-op recorder.
type Options struct {
	Templates render.TemplateEngine
	Markdown  render.MarkdownConverter
	Math      render.MathConverter
	Editorial render.EditorialCleaner
	Minifier  render.Minifier
	Sanitizer render.Sanitizer
	Logger    *slog.Logger
	Recorder  metrics.Recorder
}

// Session is the state of one build run: the global configuration, the
// collections table and the caches shared by every page.
type Session struct {
	Root        string
	Global      config.Global
	Collections *Collections

	templates render.TemplateEngine
	markdown  render.MarkdownConverter
	math      render.MathConverter
	editorial render.EditorialCleaner
	minifier  render.Minifier
	sanitizer render.Sanitizer
	logger    *slog.Logger
	recorder  metrics.Recorder

	mu         sync.Mutex
	layoutMeta map[string]meta.Map
	snippets   map[string]string
}

// NewSession prepares a build run rooted at root.
func NewSession(root string, global config.Global, opts Options) *Session {
	if global.Data == nil {
		global.Data = meta.Map{}
	}
	s := &Session{
		Root:        root,
		Global:      global,
		Collections: NewCollections(),
		templates:   opts.Templates,
		markdown:    opts.Markdown,
		math:        opts.Math,
		editorial:   opts.Editorial,
		minifier:    opts.Minifier,
		sanitizer:   opts.Sanitizer,
		logger:      opts.Logger,
		recorder:    opts.Recorder,
		layoutMeta:  make(map[string]meta.Map),
		snippets:    make(map[string]string),
	}
	if s.templates == nil {
		s.templates = render.NewLiquid(render.WithIncludes(s.includeSource))
	}
	if s.markdown == nil {
		s.markdown = render.NewGoldmark()
	}
	if s.math == nil {
		s.math = render.NewMath()
	}
	if s.editorial == nil {
		s.editorial = render.NewEditML()
	}
	if s.minifier == nil {
		s.minifier = render.NewHTMLMinifier()
	}
	if s.sanitizer == nil {
		s.sanitizer = render.NewUGCSanitizer()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.recorder == nil {
		s.recorder = metrics.NoopRecorder{}
	}
	return s
}

// abs resolves a site-relative path against the session root.
func (s *Session) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.Root, path)
}

// LoadPage reads the Mokk file at path (relative to the site root) and
// builds its Page: recognized keys are read with their defaults, the date is
// derived in the page's locale and a non-empty permalink is rendered into URL.
func (s *Session) LoadPage(path string) (*Page, error) {
	raw, err := os.ReadFile(s.abs(path))
	if err != nil {
		return nil, cerrors.IOError(err, path)
	}
	if !utf8.Valid(raw) {
		return nil, cerrors.New(cerrors.CategoryIO, "content file is not valid UTF-8").File(path).Build()
	}

	metaText, body := frontmatter.Split(string(raw))
	data, err := frontmatter.Parse(metaText)
	if err != nil {
		return nil, cerrors.MetadataError(err, path, metaText)
	}

	page := &Page{
		Data:      data,
		Content:   body,
		Directory: filepath.ToSlash(filepath.Dir(path)),
		Name:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:      path,
	}
	if page.Permalink, err = page.stringField(keyPermalink); err != nil {
		return nil, err
	}
	if page.Markdown, err = boolField(page, keyMarkdown, true); err != nil {
		return nil, err
	}
	if page.Math, err = boolField(page, keyMath, true); err != nil {
		return nil, err
	}
	if page.EditML, err = boolField(page, keyEditML, false); err != nil {
		return nil, err
	}
	if page.Minify, err = boolField(page, keyMinify, s.Global.Minify); err != nil {
		return nil, err
	}
	if page.Locale, err = page.stringField(keyLocale); err != nil {
		return nil, err
	}
	if page.Locale == "" {
		page.Locale = s.Global.Locale
	}

	rawDate, err := page.stringField(keyDate)
	if err != nil {
		return nil, err
	}
	if page.Date, err = date.Derive(rawDate, page.Locale); err != nil {
		return nil, cerrors.Wrap(err, cerrors.CategoryTimestamp, "invalid date").
			File(path).Field(keyDate).Value(rawDate).Build()
	}

	if page.Permalink != "" {
		url, err := s.RenderTemplate(page, ExpandPermalink(page.Permalink))
		if err != nil {
			return nil, err
		}
		page.URL = url
	}
	return page, nil
}

func boolField(p *Page, key string, def bool) (bool, error) {
	v, ok := p.Data.Lookup(key)
	if !ok {
		return def, nil
	}
	b, err := v.AsBool()
	if err != nil {
		return false, typeMismatch(err, p.Path, key, v)
	}
	return b, nil
}

func typeMismatch(err error, path, key string, v meta.Value) error {
	return cerrors.TypeMismatchError(err, path, key, v.String())
}

// Permalink shorthands and the templates they expand to.
var permalinkShorthands = map[string]string{
	"date":     "/{{ page.data.collection }}/{{ page.date.year }}/{{ page.date.month }}/{{ page.date.day }}/{{ page.data.title }}.html",
	"pretty":   "/{{ page.data.collection }}/{{ page.date.year }}/{{ page.date.month }}/{{ page.date.day }}/{{ page.data.title }}/index.html",
	"ordinal":  "/{{ page.data.collection }}/{{ page.date.year }}/{{ page.date.y_day }}/{{ page.data.title }}.html",
	"weekdate": "/{{ page.data.collection }}/{{ page.date.year }}/W{{ page.date.week }}/{{ page.date.short_day }}/{{ page.data.title }}.html",
	"none":     "/{{ page.data.collection }}/{{ page.data.title }}.html",
}

// ExpandPermalink maps a shorthand to its template; anything else is
// returned verbatim.
func ExpandPermalink(p string) string {
	if tpl, ok := permalinkShorthands[p]; ok {
		return tpl
	}
	return p
}

// pageLabel names a page in error messages.
func pageLabel(p *Page) string {
	if p.Path != "" {
		return p.Path
	}
	return fmt.Sprintf("%s/%s", p.Directory, p.Name)
}
