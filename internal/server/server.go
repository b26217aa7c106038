// internal/server/server.go
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dokkoo/internal/logfields"
	"dokkoo/internal/metrics"
	"dokkoo/internal/util"

	"github.com/fsnotify/fsnotify"
	prom "github.com/prometheus/client_golang/prometheus"
)

// BuildFunc rebuilds the site. clean asks for the output directory to be
// emptied first.
type BuildFunc func(ctx context.Context, clean bool) error

// Config describes the dev server.
type Config struct {
	// Root is the site root that is watched for changes.
	Root string
	// Output is the built site that is served.
	Output string
	Port   int
	Logger *slog.Logger
	// Registry, when set, is exposed on /metrics.
	Registry *prom.Registry
}

const debounceDuration = 500 * time.Millisecond

// Run builds the site once, then serves the output with live reload and
// rebuilds whenever a file below the site root changes. It returns when ctx
// is cancelled or the listener fails.
func Run(ctx context.Context, cfg Config, build BuildFunc) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := build(ctx, true); err != nil {
		return fmt.Errorf("initial build failed: %w", err)
	}

	hub := newHub(logger)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create file watcher: %w", err)
	}
	defer watcher.Close()

	dirs, err := watchDirs(cfg.Root, cfg.Output)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", cfg.Root, err)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			logger.Warn("Could not watch directory", logfields.Path(dir), logfields.Error(err))
			continue
		}
		logger.Debug("Watching directory", logfields.Path(dir))
	}

	go watchForChanges(ctx, watcher, hub, build, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           newHandler(hub, cfg.Output, cfg.Registry),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("🌐 Serving site on http://localhost%s\n", addr)
	fmt.Println("Press Ctrl+C to stop")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newHandler(hub *Hub, output string, reg *prom.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, w, r)
	})
	if reg != nil {
		mux.Handle("/metrics", metrics.HTTPHandler(reg))
	}
	mux.Handle("/", liveReloadWrapper(http.FileServer(http.Dir(output))))
	return mux
}

// watchDirs lists root and every directory below it except the output
// directory and hidden ones. Directories are watched rather than files so
// that editors which save by swapping files are still noticed.
func watchDirs(root, output string) ([]string, error) {
	outAbs, _ := filepath.Abs(output)
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root {
			if abs, _ := filepath.Abs(path); abs == outAbs || util.IsHidden(d.Name()) {
				return filepath.SkipDir
			}
		}
		dirs = append(dirs, filepath.Clean(path))
		return nil
	})
	return dirs, err
}

func watchForChanges(ctx context.Context, watcher *fsnotify.Watcher, hub *Hub, build BuildFunc, logger *slog.Logger) {
	var lastBuildTime time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if time.Since(lastBuildTime) <= debounceDuration {
				continue
			}
			// Let the editor finish writing.
			time.Sleep(100 * time.Millisecond)

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !util.IsHidden(info.Name()) {
					_ = watcher.Add(event.Name)
				}
			}

			logger.Info("Change detected, rebuilding", logfields.Path(event.Name))
			if err := build(ctx, false); err != nil {
				logger.Error("Rebuild failed", logfields.Error(err))
			} else {
				logger.Info("Site rebuilt, triggering reload")
				hub.broadcastMessage([]byte("reload"))
			}
			lastBuildTime = time.Now()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func liveReloadWrapper(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		isHTML := strings.HasSuffix(r.URL.Path, ".html") || strings.HasSuffix(r.URL.Path, "/")
		if !isHTML {
			next.ServeHTTP(w, r)
			return
		}

		iw := newInterceptingWriter(w)
		next.ServeHTTP(iw, r)

		for key, values := range iw.Header() {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}

		bodyBytes := iw.body.Bytes()
		if iw.statusCode != http.StatusOK {
			w.WriteHeader(iw.statusCode)
			_, _ = w.Write(bodyBytes)
			return
		}

		injectedBody := injectReloadScript(bodyBytes)
		w.Header().Set("Content-Length", fmt.Sprint(len(injectedBody)))
		w.WriteHeader(iw.statusCode)
		_, _ = w.Write(injectedBody)
	})
}

// injectReloadScript places the script before </body>, or appends it when
// the page has no body element (layout-less pages often don't).
func injectReloadScript(body []byte) []byte {
	if bytes.Contains(body, []byte("</body>")) {
		return bytes.Replace(body, []byte("</body>"), []byte(liveReloadScript+"</body>"), 1)
	}
	return append(body, liveReloadScript...)
}

type interceptingWriter struct {
	http.ResponseWriter
	body       *bytes.Buffer
	statusCode int
	header     http.Header
}

func newInterceptingWriter(w http.ResponseWriter) *interceptingWriter {
	return &interceptingWriter{
		ResponseWriter: w,
		body:           new(bytes.Buffer),
		header:         make(http.Header),
		statusCode:     http.StatusOK,
	}
}

func (iw *interceptingWriter) Header() http.Header {
	return iw.header
}

func (iw *interceptingWriter) Write(b []byte) (int, error) {
	return iw.body.Write(b)
}

func (iw *interceptingWriter) WriteHeader(statusCode int) {
	iw.statusCode = statusCode
}

const liveReloadScript = `
<script>
  (function() {
    let socket = new WebSocket("ws://" + window.location.host + "/ws");
    socket.onmessage = function(event) {
      if (event.data === "reload") {
        window.location.reload();
      }
    };
    socket.onerror = function(error) {
      console.error("Live reload connection error. Please restart 'dokkoo serve'.");
    };
  })();
</script>
`
