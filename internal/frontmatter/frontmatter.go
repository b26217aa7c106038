// Package frontmatter separates a Mokk file's metadata block from its body.
package frontmatter

import (
	"fmt"
	"strings"

	"dokkoo/internal/meta"

	"gopkg.in/yaml.v3"
)

// Delimiter is the line that opens and closes the metadata block.
const Delimiter = "---"

// EmptySentinel replaces a missing or blank metadata block so that parsing
// never has to special-case absence.
const EmptySentinel = "empty: true"

// Split partitions text into its metadata block and body.
//
// The first line equal to Delimiter opens the block and the next one closes
// it. Lines before the block, after it, and any later delimiter lines all
// belong to the body. Every body line is newline terminated. When the block is
// blank or absent the metadata is EmptySentinel.
func Split(text string) (metadata string, body string) {
	var fm, content strings.Builder
	begun, ended := false, false

	for _, line := range lines(text) {
		switch {
		case !begun && line == Delimiter:
			begun = true
		case begun && !ended && line == Delimiter:
			ended = true
		case begun && !ended:
			fm.WriteString(line)
			fm.WriteByte('\n')
		default:
			content.WriteString(line)
			content.WriteByte('\n')
		}
	}

	metadata = strings.TrimSuffix(fm.String(), "\n")
	if strings.TrimSpace(metadata) == "" {
		metadata = EmptySentinel
	}
	return metadata, content.String()
}

// lines splits text on newlines, dropping a trailing carriage return from each
// line and the empty remainder after a final newline.
func lines(text string) []string {
	if text == "" {
		return nil
	}
	out := strings.Split(text, "\n")
	if out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	for i, l := range out {
		out[i] = strings.TrimSuffix(l, "\r")
	}
	return out
}

// Parse decodes a metadata block into a map. The block must be a YAML mapping.
func Parse(metadata string) (meta.Map, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(metadata), &doc); err != nil {
		return nil, err
	}
	v, err := meta.FromNode(&doc)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return meta.Map{}, nil
	}
	m, err := v.AsMap()
	if err != nil {
		return nil, fmt.Errorf("metadata must be a mapping: %w", err)
	}
	return m, nil
}

// ParseFile runs Split followed by Parse, returning the raw block alongside
// the parsed map so callers can report it on failure.
func ParseFile(text string) (data meta.Map, raw string, body string, err error) {
	raw, body = Split(text)
	data, err = Parse(raw)
	return data, raw, body, err
}
