// cmd/dokkoo/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"dokkoo/internal/builder"
	"dokkoo/internal/config"
	cerrors "dokkoo/internal/errors"
	"dokkoo/internal/metrics"
	"dokkoo/internal/scaffold"
	"dokkoo/internal/server"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"
)

var version = "dev"

// CLI is the command tree and its global flags.
type CLI struct {
	Root    string           `short:"r" help:"Site root directory." default:"."`
	Verbose bool             `short:"v" help:"Enable debug logging."`
	Version kong.VersionFlag `name:"version" help:"Show version and exit."`

	Build BuildCmd `cmd:"" help:"Compile every page of the site into the output directory."`
	Serve ServeCmd `cmd:"" help:"Run a local dev server with auto-rebuild and live reload."`
	New   NewCmd   `cmd:"" help:"Create a new site or page."`
}

// AfterApply sets up logging once flags are parsed.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// BuildCmd implements 'dokkoo build'.
type BuildCmd struct {
	Output   string `short:"o" help:"Output directory, relative to the site root." default:"public"`
	Clean    bool   `help:"Empty the output directory before building."`
	Parallel bool   `short:"p" help:"Load every page first so collections are complete before any page compiles."`
	Jobs     int    `short:"j" help:"Pages compiled at once in parallel mode." default:"4"`
}

func (c *BuildCmd) Run(cli *CLI) error {
	fmt.Println("--- Building site ---")
	res, err := buildOnce(context.Background(), cli.Root, builder.BuildOptions{
		Output:           c.Output,
		CleanDestination: c.Clean,
		Parallel:         c.Parallel,
		Jobs:             c.Jobs,
	}, nil)
	if err != nil {
		return err
	}
	fmt.Printf("📄 Site: %d pages compiled, %d written in %s.\n", res.Pages, res.Written, res.Duration.Round(time.Millisecond))
	fmt.Println("✅ Build successful.")
	return nil
}

// ServeCmd implements 'dokkoo serve'.
type ServeCmd struct {
	Output   string `short:"o" help:"Output directory, relative to the site root." default:"public"`
	Port     int    `help:"Port for the local development server." default:"1313"`
	Parallel bool   `short:"p" help:"Build in parallel mode."`
	Jobs     int    `short:"j" help:"Pages compiled at once in parallel mode." default:"4"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)

	// Every rebuild gets a fresh session so collections start empty.
	build := func(ctx context.Context, clean bool) error {
		fmt.Println("--- Building site ---")
		res, err := buildOnce(ctx, cli.Root, builder.BuildOptions{
			Output:           c.Output,
			CleanDestination: clean,
			Parallel:         c.Parallel,
			Jobs:             c.Jobs,
		}, recorder)
		if err != nil {
			fmt.Fprintf(os.Stderr, "\n❌ Build failed:\n   %v\n\n", err)
			return err
		}
		fmt.Printf("📄 Site: %d pages written.\n", res.Written)
		return nil
	}

	return server.Run(ctx, server.Config{
		Root:     cli.Root,
		Output:   outputPath(cli.Root, c.Output),
		Port:     c.Port,
		Logger:   slog.Default(),
		Registry: reg,
	}, build)
}

// NewCmd groups the scaffolding commands.
type NewCmd struct {
	Site NewSiteCmd `cmd:"" help:"Create a new site scaffold."`
	Page NewPageCmd `cmd:"" help:"Create a new page from the site archetype."`
}

type NewSiteCmd struct {
	Dir string `arg:"" help:"Directory to create the site in."`
}

func (c *NewSiteCmd) Run() error {
	return scaffold.CreateNewSite(c.Dir, time.Now())
}

type NewPageCmd struct {
	Title      string `arg:"" help:"Title of the new page."`
	Collection string `short:"c" help:"Collection directory the page is created in." default:"blog"`
}

func (c *NewPageCmd) Run(cli *CLI) error {
	_, err := scaffold.CreatePage(cli.Root, c.Collection, c.Title, time.Now())
	return err
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("dokkoo"),
		kong.Description("dokkoo - a static site generator for Liquid, Markdown and layouts"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)
	if err := ctx.Run(&cli); err != nil {
		reportError(err)
		os.Exit(1)
	}
}

func buildOnce(ctx context.Context, root string, opts builder.BuildOptions, recorder metrics.Recorder) (builder.BuildResult, error) {
	global, err := config.LoadGlobal(filepath.Join(root, config.GlobalFile), time.Now())
	if err != nil {
		return builder.BuildResult{}, err
	}
	s := builder.NewSession(root, global, builder.Options{
		Logger:   slog.Default(),
		Recorder: recorder,
	})
	return s.BuildSite(ctx, opts)
}

func outputPath(root, output string) string {
	if filepath.IsAbs(output) {
		return output
	}
	return filepath.Join(root, output)
}

// reportError prints err for a human. A metadata error also shows the block
// that failed to parse.
func reportError(err error) {
	fmt.Fprintf(os.Stderr, "❌ Operation failed: %v\n", err)
	ce, ok := cerrors.AsClassified(err)
	if !ok {
		return
	}
	if raw, ok := ce.Context().GetString(cerrors.KeyRaw); ok && raw != "" {
		fmt.Fprintf(os.Stderr, "\n%s\n", raw)
	}
}
