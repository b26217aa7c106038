// internal/builder/pipeline.go
package builder

import (
	"time"

	cerrors "dokkoo/internal/errors"
	"dokkoo/internal/logfields"
	"dokkoo/internal/meta"
)

// Pipeline stage names, used for metrics.
const (
	StageTemplate  = "template"
	StageEditorial = "editml"
	StageMarkdown  = "markdown"
	StageSanitize  = "sanitize"
	StageMath      = "math"
	StageMinify    = "minify"
)

// RenderBody runs text through the full pipeline for page: template
// expansion, snippet resolution, then editorial markup, Markdown,
// sanitization, math and minification as the page and global flags ask.
func (s *Session) RenderBody(page *Page, text string) (string, error) {
	out, err := s.RenderTemplate(page, text)
	if err != nil {
		return "", err
	}

	if page.EditML {
		start := time.Now()
		if out, err = s.editorial.Clean(out); err != nil {
			return "", cerrors.Wrap(err, cerrors.CategoryMarkdown, "editorial markup failed").File(pageLabel(page)).Build()
		}
		s.recorder.ObserveStageDuration(StageEditorial, time.Since(start))
	}

	if page.Markdown {
		start := time.Now()
		if out, err = s.markdown.Convert(out, page.Math); err != nil {
			return "", cerrors.Wrap(err, cerrors.CategoryMarkdown, "markdown conversion failed").File(pageLabel(page)).Build()
		}
		s.recorder.ObserveStageDuration(StageMarkdown, time.Since(start))
	}

	if s.Global.Sanitize {
		start := time.Now()
		out = s.sanitizer.Sanitize(out)
		s.recorder.ObserveStageDuration(StageSanitize, time.Since(start))
	}

	if page.Math {
		start := time.Now()
		if out, err = s.math.Convert(out); err != nil {
			return "", cerrors.Wrap(err, cerrors.CategoryMath, "math conversion failed").File(pageLabel(page)).Build()
		}
		s.recorder.ObserveStageDuration(StageMath, time.Since(start))
	}

	if page.Minify {
		if out, err = s.minify(page, out); err != nil {
			return "", err
		}
	}
	return out, nil
}

// RenderTemplate expands text against page's context and resolves the
// snippet calls in the result. Nothing else is applied.
func (s *Session) RenderTemplate(page *Page, text string) (string, error) {
	return s.renderTemplate(page, text, nil, 0)
}

// renderSnippet renders a snippet's text for page with args bound as
// `snippet`.
func (s *Session) renderSnippet(page *Page, text string, args meta.Map, depth int) (string, error) {
	if args == nil {
		args = meta.Map{}
	}
	return s.renderTemplate(page, text, args, depth)
}

func (s *Session) renderTemplate(page *Page, text string, args meta.Map, depth int) (string, error) {
	start := time.Now()
	ctx, err := s.Context(page, args)
	if err != nil {
		return "", err
	}
	out, err := s.templates.Render(text, ctx)
	if err != nil {
		s.logger.Debug("Template rendering failed", logfields.Path(pageLabel(page)), logfields.Error(err))
		return "", cerrors.Wrap(err, cerrors.CategoryTemplate, "template rendering failed").
			File(pageLabel(page)).
			With("page", page.Directory+"/"+page.Name).
			Build()
	}
	s.recorder.ObserveStageDuration(StageTemplate, time.Since(start))
	return s.resolveSnippets(page, out, depth)
}

func (s *Session) minify(page *Page, html string) (string, error) {
	start := time.Now()
	out, err := s.minifier.Minify(html)
	if err != nil {
		return "", cerrors.Wrap(err, cerrors.CategoryMinify, "minification failed").File(pageLabel(page)).Build()
	}
	s.recorder.ObserveStageDuration(StageMinify, time.Since(start))
	return out, nil
}
