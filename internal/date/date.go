// Package date derives the calendar fields exposed to templates from a page's
// timestamp.
package date

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

// DefaultLocale is used when a requested locale has no translation table.
const DefaultLocale = "en_US"

// Date is a page's date-time metadata. Either every field is derived from one
// timestamp or every field is empty.
type Date struct {
	Year       string `yaml:"year"`        // 2024
	ShortYear  string `yaml:"short_year"`  // 24
	Month      string `yaml:"month"`       // 01..12
	IMonth     string `yaml:"i_month"`     // 1..12
	ShortMonth string `yaml:"short_month"` // Jan
	LongMonth  string `yaml:"long_month"`  // January
	Day        string `yaml:"day"`         // 01..31
	IDay       string `yaml:"i_day"`       // 1..31
	YDay       string `yaml:"y_day"`       // 001..366
	WYear      string `yaml:"w_year"`      // ISO week-numbering year
	Week       string `yaml:"week"`        // ISO week 01..53
	WDay       string `yaml:"w_day"`       // 1 (Monday)..7 (Sunday)
	ShortDay   string `yaml:"short_day"`   // Fri
	LongDay    string `yaml:"long_day"`    // Friday
	Hour       string `yaml:"hour"`        // 00..23
	Minute     string `yaml:"minute"`      // 00..59
	Second     string `yaml:"second"`      // 00..59
	RFC3339    string `yaml:"rfc_3339"`
	RFC2822    string `yaml:"rfc_2822"`
}

// ParseError reports a timestamp that is not in RFC 3339 form.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid timestamp %q (want RFC 3339, e.g. 2006-01-02T15:04:05Z): %v", e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsZero reports whether d is the "no temporal metadata" state.
func (d Date) IsZero() bool { return d == Date{} }

// String returns the RFC 3339 form.
func (d Date) String() string { return d.RFC3339 }

// Derive parses raw and computes every field using locale for month and
// weekday names. An empty raw yields the zero Date.
func Derive(raw, locale string) (Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Date{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return Date{}, &ParseError{Value: raw, Err: err}
	}
	return FromTime(t, locale), nil
}

// FromTime computes every field from t in its own location.
func FromTime(t time.Time, locale string) Date {
	loc := resolveLocale(locale)
	wyear, week := t.ISOWeek()
	wday := int(t.Weekday())
	if wday == 0 {
		wday = 7
	}

	return Date{
		Year:       fmt.Sprintf("%04d", t.Year()),
		ShortYear:  fmt.Sprintf("%02d", t.Year()%100),
		Month:      fmt.Sprintf("%02d", int(t.Month())),
		IMonth:     strconv.Itoa(int(t.Month())),
		ShortMonth: monday.Format(t, "Jan", loc),
		LongMonth:  monday.Format(t, "January", loc),
		Day:        fmt.Sprintf("%02d", t.Day()),
		IDay:       strconv.Itoa(t.Day()),
		YDay:       fmt.Sprintf("%03d", t.YearDay()),
		WYear:      fmt.Sprintf("%04d", wyear),
		Week:       fmt.Sprintf("%02d", week),
		WDay:       strconv.Itoa(wday),
		ShortDay:   monday.Format(t, "Mon", loc),
		LongDay:    monday.Format(t, "Monday", loc),
		Hour:       fmt.Sprintf("%02d", t.Hour()),
		Minute:     fmt.Sprintf("%02d", t.Minute()),
		Second:     fmt.Sprintf("%02d", t.Second()),
		RFC3339:    t.Format(time.RFC3339),
		RFC2822:    t.Format(time.RFC1123Z),
	}
}

// Map returns the template view of d, keyed by the snake_case field names.
func (d Date) Map() map[string]any {
	return map[string]any{
		"year":        d.Year,
		"short_year":  d.ShortYear,
		"month":       d.Month,
		"i_month":     d.IMonth,
		"short_month": d.ShortMonth,
		"long_month":  d.LongMonth,
		"day":         d.Day,
		"i_day":       d.IDay,
		"y_day":       d.YDay,
		"w_year":      d.WYear,
		"week":        d.Week,
		"w_day":       d.WDay,
		"short_day":   d.ShortDay,
		"long_day":    d.LongDay,
		"hour":        d.Hour,
		"minute":      d.Minute,
		"second":      d.Second,
		"rfc_3339":    d.RFC3339,
		"rfc_2822":    d.RFC2822,
	}
}

// SupportedLocale reports whether names can be translated for locale.
func SupportedLocale(locale string) bool {
	want := monday.Locale(normalize(locale))
	for _, l := range monday.ListLocales() {
		if l == want {
			return true
		}
	}
	return false
}

func resolveLocale(locale string) monday.Locale {
	if SupportedLocale(locale) {
		return monday.Locale(normalize(locale))
	}
	return monday.Locale(DefaultLocale)
}

// normalize turns "en-US" or "en_US.UTF-8" into "en_US".
func normalize(locale string) string {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	return strings.ReplaceAll(locale, "-", "_")
}
