// internal/render/liquid_tags.go
package render

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/osteele/liquid"
	liquidrender "github.com/osteele/liquid/render"
	"github.com/osteele/tuesday"
)

// IncludeFunc returns the source of the named partial.
type IncludeFunc func(name string) (string, error)

// maxIncludeDepth bounds partials that include partials.
const maxIncludeDepth = 32

// includeDepthKey carries the include nesting level through the bindings.
const includeDepthKey = "__include_depth"

var unescapeQuotes = strings.NewReplacer(`\"`, `"`, `\'`, `'`, `\\`, `\`)

var includeParam = regexp.MustCompile(`([A-Za-z_][\w-]*)\s*=\s*("(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'|\S+)`)

// includeTag renders `{% include name key=value ... %}`. The partial sees the
// caller's bindings plus the parameters under `include`.
func (l *Liquid) includeTag(ctx liquidrender.Context) (string, error) {
	args := strings.TrimSpace(ctx.TagArgs())
	name, rest, _ := strings.Cut(args, " ")
	name = strings.Trim(name, `"'`)
	if name == "" {
		return "", fmt.Errorf("include: missing partial name")
	}
	if l.includes == nil {
		return "", fmt.Errorf("include %q: no partials are configured", name)
	}

	bindings := make(map[string]any, len(ctx.Bindings())+1)
	for k, v := range ctx.Bindings() {
		bindings[k] = v
	}
	depth, _ := bindings[includeDepthKey].(int)
	if depth >= maxIncludeDepth {
		return "", fmt.Errorf("include %q: partials nested deeper than %d", name, maxIncludeDepth)
	}
	bindings[includeDepthKey] = depth + 1

	params := map[string]any{}
	for _, m := range includeParam.FindAllStringSubmatch(rest, -1) {
		key, raw := m[1], m[2]
		if raw[0] == '"' || raw[0] == '\'' {
			params[key] = unescapeQuotes.Replace(raw[1 : len(raw)-1])
			continue
		}
		v, err := ctx.EvaluateString(raw)
		if err != nil {
			return "", fmt.Errorf("include %q: parameter %s: %w", name, key, err)
		}
		params[key] = v
	}
	bindings["include"] = params

	src, err := l.includes(name)
	if err != nil {
		return "", err
	}
	tpl, err := l.parse(src)
	if err != nil {
		return "", fmt.Errorf("include %q: %w", name, err)
	}
	out, serr := tpl.RenderString(liquid.Bindings(bindings))
	if serr != nil {
		return "", fmt.Errorf("include %q: %w", name, serr)
	}
	return out, nil
}

// Layouts accepted by date_in_tz for string input, tried in order.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
}

// dateInTZ formats value with the strftime format after moving it to tz, an
// offset such as "+0900" or "-05:00" or a zone name such as "Europe/Oslo".
func dateInTZ(value any, format, tz string) (string, error) {
	var t time.Time
	switch v := value.(type) {
	case time.Time:
		t = v
	case string:
		var err error
		if t, err = parseDate(v); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("date_in_tz: cannot use %T as a date", value)
	}
	loc, err := parseZone(tz)
	if err != nil {
		return "", err
	}
	return tuesday.Strftime(format, t.In(loc))
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "now" || s == "today" {
		return time.Now(), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("date_in_tz: cannot parse %q as a date", s)
}

func parseZone(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if len(tz) > 0 && (tz[0] == '+' || tz[0] == '-') {
		digits := strings.ReplaceAll(tz[1:], ":", "")
		if len(digits) == 4 {
			h, herr := strconv.Atoi(digits[:2])
			m, merr := strconv.Atoi(digits[2:])
			if herr == nil && merr == nil && h <= 23 && m <= 59 {
				offset := h*3600 + m*60
				if tz[0] == '-' {
					offset = -offset
				}
				return time.FixedZone(tz, offset), nil
			}
		}
		return nil, fmt.Errorf("date_in_tz: invalid offset %q", tz)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("date_in_tz: unknown time zone %q", tz)
	}
	return loc, nil
}
