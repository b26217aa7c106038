// internal/config/config.go
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"dokkoo/internal/date"
	cerrors "dokkoo/internal/errors"
	"dokkoo/internal/frontmatter"
	"dokkoo/internal/meta"

	"golang.org/x/text/language"
)

// GlobalFile is the name of the optional build configuration file at the site root.
const GlobalFile = "_global.yml"

// Global holds the process-wide build configuration. It is computed once per
// build run and read-only afterwards.
type Global struct {
	Locale   string
	Date     date.Date // stamped when the build starts
	Minify   bool
	Sanitize bool
	// Data carries every key of the configuration file so templates can read
	// site-specific settings through `global`.
	Data meta.Map
}

// LoadGlobal reads the configuration file at path. A missing file, or a
// missing key, falls back to the defaults: the system locale and minify off.
func LoadGlobal(path string, now time.Time) (Global, error) {
	cfg := Global{Data: meta.Map{}}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Global{}, cerrors.Wrap(err, cerrors.CategoryConfig, "could not read config file").File(path).Build()
	default:
		// The file uses the metadata syntax; it may or may not be fenced.
		text := string(raw)
		if strings.HasPrefix(strings.TrimSpace(text), frontmatter.Delimiter) {
			text, _ = frontmatter.Split(text)
		}
		data, err := frontmatter.Parse(text)
		if err != nil {
			return Global{}, cerrors.Wrap(err, cerrors.CategoryConfig, "could not parse config file").File(path).With(cerrors.KeyRaw, text).Build()
		}
		cfg.Data = data
	}

	if v, ok := cfg.Data.Lookup("locale"); ok {
		if cfg.Locale, err = v.AsString(); err != nil {
			return Global{}, configField(err, path, "locale", v)
		}
	}
	if cfg.Locale == "" {
		cfg.Locale = SystemLocale()
	}
	if v, ok := cfg.Data.Lookup("minify"); ok {
		if cfg.Minify, err = v.AsBool(); err != nil {
			return Global{}, configField(err, path, "minify", v)
		}
	}
	if v, ok := cfg.Data.Lookup("sanitize"); ok {
		if cfg.Sanitize, err = v.AsBool(); err != nil {
			return Global{}, configField(err, path, "sanitize", v)
		}
	}

	cfg.Date = date.FromTime(now, cfg.Locale)
	return cfg, nil
}

// Map returns the template view of the configuration: the raw file keys with
// the resolved values layered on top.
func (g Global) Map() map[string]any {
	out := g.Data.Interface()
	out["locale"] = g.Locale
	out["minify"] = g.Minify
	out["sanitize"] = g.Sanitize
	out["date"] = g.Date.Map()
	return out
}

// SystemLocale detects the locale from the environment, in POSIX precedence
// order, and returns it as "ll_RR". It falls back to date.DefaultLocale.
func SystemLocale() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if l, ok := CanonicalLocale(os.Getenv(key)); ok {
			return l
		}
	}
	return date.DefaultLocale
}

// CanonicalLocale converts identifiers such as "de_DE.UTF-8", "pt-br" or
// "fr" into "ll_RR" form. "C" and "POSIX" are not real locales and report false.
func CanonicalLocale(id string) (string, bool) {
	if i := strings.IndexAny(id, ".@"); i >= 0 {
		id = id[:i]
	}
	id = strings.TrimSpace(strings.ReplaceAll(id, "_", "-"))
	if id == "" || id == "C" || id == "POSIX" {
		return "", false
	}
	tag, err := language.Parse(id)
	if err != nil {
		return "", false
	}
	base, _ := tag.Base()
	region, _ := tag.Region()
	return base.String() + "_" + region.String(), true
}

func configField(err error, path, key string, v meta.Value) error {
	return cerrors.Wrap(err, cerrors.CategoryConfig, "wrong type for config key").
		File(path).Field(key).Value(v.Interface()).Build()
}
