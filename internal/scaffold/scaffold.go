// internal/scaffold/scaffold.go
package scaffold

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"dokkoo/internal/render"
)

// ArchetypePath is the template new pages are created from, relative to
// the site root.
var ArchetypePath = filepath.Join("archetypes", "default.mokkf")

// CreateNewSite lays out a minimal site in dir: configuration, a layout
// chain, a snippet, an index listing the blog collection and one post.
// Posts live in blog/, which sorts before index.mokkf, so a sequential build
// compiles them before the index reads the collection.
func CreateNewSite(dir string, now time.Time) error {
	fmt.Println("Scaffolding new site in:", dir)
	if entries, err := os.ReadDir(dir); err == nil && len(entries) > 0 {
		return fmt.Errorf("directory %s already exists and is not empty", dir)
	}

	mkdir := func(path string) error { return os.MkdirAll(filepath.Join(dir, path), 0755) }
	writeFile := func(path, content string) error {
		return os.WriteFile(filepath.Join(dir, path), []byte(content), 0644)
	}
	dirs := []string{"layouts", "snippets", "blog", "static/css", "archetypes"}
	for _, d := range dirs {
		if err := mkdir(d); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}

	files := map[string]string{
		"_global.yml":              globalYmlContent,
		"layouts/default.mokkf":    layoutDefaultContent,
		"layouts/post.mokkf":       layoutPostContent,
		"snippets/post-list":       snippetPostListContent,
		"index.mokkf":              indexContent,
		"static/css/style.css":     staticCssContent,
		"archetypes/default.mokkf": archetypeDefaultContent,
	}
	for path, content := range files {
		if err := writeFile(filepath.FromSlash(path), content); err != nil {
			return fmt.Errorf("failed to write file %s: %w", path, err)
		}
	}
	if _, err := CreatePage(dir, "blog", "Hello World", now); err != nil {
		return err
	}

	fmt.Println("Site scaffolded. You can now:")
	fmt.Println("  cd", dir)
	fmt.Println("  dokkoo build")
	fmt.Println("  dokkoo serve")
	return nil
}

// CreatePage writes a new page for title into the collection directory of
// the site at root, rendered from the site's archetype (or the built-in one
// when the site has none). It returns the path of the new file.
func CreatePage(root, collection, title string, now time.Time) (string, error) {
	slug := render.Slugify(title)
	if slug == "" {
		return "", fmt.Errorf("title %q does not produce a usable file name", title)
	}
	path := filepath.Join(root, collection, slug+render.SourceExt)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s already exists", path)
	}

	archetype := archetypeDefaultContent
	raw, err := os.ReadFile(filepath.Join(root, ArchetypePath))
	switch {
	case err == nil:
		archetype = string(raw)
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("could not read archetype file %s: %w", ArchetypePath, err)
	}

	out, err := render.NewLiquid().Render(archetype, map[string]any{
		"title":      title,
		"slug":       slug,
		"collection": collection,
		"date":       now.Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render archetype %s: %w", ArchetypePath, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		return "", err
	}
	fmt.Println("Created:", path)
	return path, nil
}

// Constants for default file contents
const globalYmlContent = `title: My Dokkoo Site
description: A new site built with dokkoo.
locale: en_US
minify: false
`

const layoutDefaultContent = `---
lang: en
---
<!DOCTYPE html>
<html lang="{{ layout.lang }}">
<head>
  <meta charset="utf-8">
  <title>{% if page.data.title %}{{ page.data.title }} | {% endif %}{{ global.title }}</title>
  <meta name="description" content="{{ global.description }}">
  <link rel="stylesheet" href="{{ page.base_href }}css/style.css">
</head>
<body>
  <header><a href="{{ page.base_href }}index.html">{{ global.title }}</a></header>
  <main>
{{ page.content }}
  </main>
  <footer>&copy; {{ global.date.year }} {{ global.title }}</footer>
</body>
</html>
`

const layoutPostContent = `---
layout: default
---
<article>
  <h1>{{ page.data.title }}</h1>
  <time datetime="{{ page.date.rfc_3339 }}">{{ page.date.long_day }}, {{ page.date.long_month }} {{ page.date.i_day }}, {{ page.date.year }}</time>
{{ page.content }}
</article>
`

const snippetPostListContent = `<ul class="posts">
{% for post in collections[snippet.collection] %}  <li><a href="{{ page.base_href }}{{ post.url | remove_first: "/" }}">{{ post.data.title }}</a></li>
{% endfor %}</ul>
`

const indexContent = `---
title: Home
layout: default
permalink: /index.html
---
Welcome to your new site.

{! snippet post-list collection="blog" !}
`

const archetypeDefaultContent = `---
title: "{{ title }}"
date: {{ date }}
collection: {{ collection }}
layout: post
permalink: /{{ collection }}/{{ slug }}.html
---
Write something meaningful here.
`

const staticCssContent = `body {
  font-family: sans-serif;
  max-width: 700px;
  margin: 2em auto;
  padding: 0 1em;
  line-height: 1.6;
  color: #222;
  background: #fdfdfd;
}
header { margin-bottom: 2em; }
header a { color: #777; font-style: italic; text-decoration: none; }
main { margin-bottom: 3em; }
footer { text-align: center; font-size: 0.9em; color: #555; }
ul { margin-left: 1.2em; padding-left: 1.2em; list-style-type: disc; }
li { margin-bottom: 0.25em; }
time { color: #777; font-size: 0.9em; }
.highlight { overflow-x: auto; }
`
