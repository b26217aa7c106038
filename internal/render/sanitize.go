// internal/render/sanitize.go
package render

import "github.com/microcosm-cc/bluemonday"

// Sanitizer strips unsafe markup from rendered HTML.
type Sanitizer interface {
	Sanitize(html string) string
}

// UGCSanitizer applies bluemonday's user-generated-content policy, widened to
// keep the classes and ids that highlighting, heading anchors and footnotes
// emit.
type UGCSanitizer struct {
	policy *bluemonday.Policy
}

func NewUGCSanitizer() *UGCSanitizer {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").OnElements("div", "span", "pre", "code", "sup", "li", "a")
	p.AllowAttrs("data-lang").OnElements("div")
	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6", "li", "sup")
	return &UGCSanitizer{policy: p}
}

func (s *UGCSanitizer) Sanitize(html string) string {
	return s.policy.Sanitize(html)
}
