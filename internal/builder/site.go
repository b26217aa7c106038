// internal/builder/site.go
package builder

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	cerrors "dokkoo/internal/errors"
	"dokkoo/internal/logfields"
	"dokkoo/internal/metrics"
	"dokkoo/internal/render"
	"dokkoo/internal/util"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BuildOptions controls a site build.
type BuildOptions struct {
	// Output is the destination directory, relative to the site root unless
	// absolute.
	Output           string
	CleanDestination bool
	// Parallel selects the two-phase build: every page is loaded first, the
	// collections are filled in path order and frozen, then pages compile
	// concurrently against that snapshot.
	Parallel bool
	Jobs     int
}

// BuildResult summarises a finished build.
type BuildResult struct {
	BuildID  string
	Pages    int
	Written  int
	Duration time.Duration
}

// Compile renders page, wraps it in its layouts and records it in its
// collection. It returns the final output; page.Content keeps the rendered
// body without layouts, which is what collection readers see.
func (s *Session) Compile(page *Page) (string, error) {
	return s.compile(page, true)
}

func (s *Session) compile(page *Page, collect bool) (string, error) {
	start := time.Now()
	out, err := s.compilePage(page, collect)
	s.recorder.ObservePageDuration(time.Since(start))
	s.recorder.IncPageOutcome(metrics.OutcomeOf(err))
	return out, err
}

func (s *Session) compilePage(page *Page, collect bool) (string, error) {
	body, err := s.RenderBody(page, page.Content)
	if err != nil {
		return "", err
	}
	page.Content = body

	out := body
	layoutName, err := page.LayoutName()
	if err != nil {
		return "", err
	}
	if layoutName != "" {
		layout, err := s.LoadPage(LayoutPath(layoutName))
		if err != nil {
			return "", err
		}
		wrapped, err := s.ResolveLayouts(page, layout)
		if err != nil {
			return "", err
		}
		if out, err = s.RenderTemplate(page, wrapped); err != nil {
			return "", err
		}
		if page.Minify {
			if out, err = s.minify(page, out); err != nil {
				return "", err
			}
		}
	}

	if collect {
		if err := s.collect(page); err != nil {
			return "", err
		}
	}
	return out, nil
}

func (s *Session) collect(page *Page) error {
	name, err := page.CollectionName()
	if err != nil || name == "" {
		return err
	}
	if s.Collections.Append(name, page) {
		s.logger.Debug("Added page to collection", logfields.Path(page.Path), logfields.Collection(name))
	}
	return nil
}

// DiscoverPages lists the Mokk files below root in sorted order, relative
// to root. Layouts, snippets, static assets, the output directory and hidden
// directories are skipped.
func DiscoverPages(root, output string) ([]string, error) {
	skip := map[string]bool{LayoutsDir: true, SnippetsDir: true, StaticDir: true}
	outAbs, _ := filepath.Abs(output)

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if abs, _ := filepath.Abs(path); abs == outAbs || skip[filepath.ToSlash(rel)] || util.IsHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(d.Name()) != render.SourceExt || util.IsHidden(d.Name()) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, cerrors.IOError(err, root)
	}
	sort.Strings(paths)
	return paths, nil
}

// BuildSite compiles every page of the site and writes the ones with a URL
// below the output directory, then copies static assets. It stops at the
// first failing page.
func (s *Session) BuildSite(ctx context.Context, opts BuildOptions) (BuildResult, error) {
	start := time.Now()
	res := BuildResult{BuildID: uuid.NewString()}
	log := s.logger.With(logfields.BuildID(res.BuildID))

	output := opts.Output
	if output == "" {
		output = "public"
	}
	output = s.abs(output)

	err := s.buildSite(ctx, opts, output, &res, log)
	res.Duration = time.Since(start)
	s.recorder.ObserveBuildDuration(res.Duration)
	s.recorder.IncBuildOutcome(metrics.OutcomeOf(err))
	for _, name := range s.Collections.Names() {
		s.recorder.SetCollectionSize(name, len(s.Collections.Pages(name)))
	}
	if err != nil {
		log.Error("Build failed", logfields.Error(err), logfields.Category(string(cerrors.GetCategory(err))))
		return res, err
	}
	log.Info("Build finished",
		logfields.Pages(res.Pages),
		logfields.DurationMS(float64(res.Duration.Microseconds())/1000))
	return res, nil
}

func (s *Session) buildSite(ctx context.Context, opts BuildOptions, output string, res *BuildResult, log *slog.Logger) error {
	if opts.CleanDestination && output == s.abs(".") {
		return cerrors.New(cerrors.CategoryConfig, "refusing to clean the site root").File(output).Build()
	}
	if err := prepareOutput(output, opts.CleanDestination, log); err != nil {
		return err
	}

	paths, err := DiscoverPages(s.Root, output)
	if err != nil {
		return err
	}
	log.Info("Building site", logfields.Pages(len(paths)), logfields.Stage(buildMode(opts)))

	if opts.Parallel {
		res.Written, err = s.buildParallel(ctx, paths, output, opts.Jobs)
	} else {
		res.Written, err = s.buildSequential(ctx, paths, output)
	}
	if err != nil {
		return err
	}
	res.Pages = len(paths)

	staticStart := time.Now()
	if err := copyStaticAssets(s.abs(StaticDir), output); err != nil {
		return err
	}
	s.recorder.ObserveStageDuration("static", time.Since(staticStart))
	return nil
}

func buildMode(opts BuildOptions) string {
	if opts.Parallel {
		return "parallel"
	}
	return "sequential"
}

func (s *Session) buildSequential(ctx context.Context, paths []string, output string) (int, error) {
	written := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		page, err := s.LoadPage(path)
		if err != nil {
			return written, err
		}
		out, err := s.Compile(page)
		if err != nil {
			return written, err
		}
		ok, err := writePage(output, page, out)
		if err != nil {
			return written, err
		}
		if ok {
			written++
		}
	}
	return written, nil
}

func (s *Session) buildParallel(ctx context.Context, paths []string, output string, jobs int) (int, error) {
	if jobs <= 0 {
		jobs = 4
	}

	pages := make([]*Page, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			page, err := s.LoadPage(path)
			if err != nil {
				return err
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	for _, page := range pages {
		if err := s.collect(page); err != nil {
			return 0, err
		}
	}
	s.Collections.Freeze()

	wrote := make([]bool, len(pages))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, page := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Collection members are never mutated, so compile a copy.
			p := *page
			out, err := s.compile(&p, false)
			if err != nil {
				return err
			}
			wrote[i], err = writePage(output, &p, out)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	written := 0
	for _, ok := range wrote {
		if ok {
			written++
		}
	}
	return written, nil
}

func prepareOutput(output string, clean bool, log *slog.Logger) error {
	if err := os.MkdirAll(output, 0755); err != nil {
		return cerrors.Wrap(err, cerrors.CategoryIO, "cannot create output directory").File(output).Build()
	}
	if !clean {
		return nil
	}
	log.Info("Cleaning destination directory", logfields.Path(output))
	entries, err := os.ReadDir(output)
	if err != nil {
		return cerrors.IOError(err, output)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(output, entry.Name())); err != nil {
			return cerrors.Wrap(err, cerrors.CategoryIO, "cannot clean output directory").File(output).Build()
		}
	}
	return nil
}

// writePage writes out to the page's URL below output. Pages without a URL
// are not written.
func writePage(output string, page *Page, out string) (bool, error) {
	if page.URL == "" {
		return false, nil
	}
	dest, err := util.OutputPath(output, page.URL)
	if err != nil {
		return false, cerrors.Wrap(err, cerrors.CategoryIO, "invalid page url").
			File(page.Path).Value(page.URL).Build()
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return false, cerrors.Wrap(err, cerrors.CategoryIO, "cannot create output directory").File(dest).Build()
	}
	if err := os.WriteFile(dest, []byte(out), 0644); err != nil {
		return false, cerrors.Wrap(err, cerrors.CategoryIO, "cannot write page").File(dest).Build()
	}
	return true, nil
}

// copyStaticAssets copies every file from the static directory into the
// output directory, keeping relative paths. A missing static directory is
// not an error.
func copyStaticAssets(staticDir, outputDir string) error {
	if _, err := os.Stat(staticDir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	err := filepath.WalkDir(staticDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(staticDir, path)
		if err != nil {
			return err
		}
		return copyFile(path, filepath.Join(outputDir, rel))
	})
	if err != nil {
		return cerrors.Wrap(err, cerrors.CategoryIO, "cannot copy static assets").File(staticDir).Build()
	}
	return nil
}

func copyFile(srcPath, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return err
	}
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
