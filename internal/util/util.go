// internal/util/util.go
package util

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ComputeBaseHref calculates the relative path from a page URL back to the
// site root so that CSS/JS links work for pages at any depth.
// For example, a page at /posts/a/b.html gets a BaseHref of "../../".
func ComputeBaseHref(url string) string {
	if strings.HasSuffix(url, "/") {
		url += "index.html"
	}
	dir := path.Dir(strings.TrimPrefix(path.Clean("/"+url), "/"))
	if dir == "." || dir == "/" {
		return ""
	}
	depth := strings.Count(dir, "/") + 1
	return strings.Repeat("../", depth)
}

// OutputPath maps a page URL onto a file below outputDir. A URL ending in
// '/' is written as that directory's index.html. URLs that would resolve
// outside outputDir are rejected.
func OutputPath(outputDir, url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("empty page url")
	}
	rel := url
	if strings.HasSuffix(rel, "/") {
		rel += "index.html"
	}
	for _, part := range strings.Split(rel, "/") {
		if part == ".." {
			return "", fmt.Errorf("page url %q escapes the output directory", url)
		}
	}
	rel = strings.TrimPrefix(path.Clean("/"+rel), "/")
	if rel == "" {
		return "", fmt.Errorf("page url %q has no file name", url)
	}
	return filepath.Join(outputDir, filepath.FromSlash(rel)), nil
}

// IsHidden reports whether a file or directory name is excluded from the
// page walk: dotfiles and names starting with an underscore.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}
