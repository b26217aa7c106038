package logfields

import "log/slog"

// Canonical log field names shared by the build and the server.
const (
	KeyBuildID    = "build_id"
	KeyPath       = "path"
	KeyLayout     = "layout"
	KeySnippet    = "snippet"
	KeyCollection = "collection"
	KeyURL        = "url"
	KeyStage      = "stage"
	KeyPages      = "pages"
	KeyDurationMS = "duration_ms"
	KeyCategory   = "category"
	KeyError      = "error"
)

func BuildID(id string) slog.Attr { return slog.String(KeyBuildID, id) }
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }
func Layout(name string) slog.Attr { return slog.String(KeyLayout, name) }
func Snippet(name string) slog.Attr { return slog.String(KeySnippet, name) }
func Collection(name string) slog.Attr { return slog.String(KeyCollection, name) }
func URL(u string) slog.Attr { return slog.String(KeyURL, u) }
func Stage(name string) slog.Attr { return slog.String(KeyStage, name) }
func Pages(n int) slog.Attr { return slog.Int(KeyPages, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Category(c string) slog.Attr { return slog.String(KeyCategory, c) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
