package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLiquid_RendersContext(t *testing.T) {
	l := NewLiquid()
	out, err := l.Render("{{ page.title }} by {{ global.author }}", map[string]any{
		"page":   map[string]any{"title": "Hello"},
		"global": map[string]any{"author": "Ada"},
	})
	require.NoError(t, err)
	require.Equal(t, "Hello by Ada", out)
}

func TestLiquid_UndefinedRendersEmpty(t *testing.T) {
	out, err := NewLiquid().Render("[{{ page.missing }}]", map[string]any{})
	require.NoError(t, err)
	require.Equal(t, "[]", out)
}

func TestLiquid_SyntaxError(t *testing.T) {
	_, err := NewLiquid().Render("{% if %}", nil)
	require.Error(t, err)
}

func TestLiquid_ExtraFilters(t *testing.T) {
	l := NewLiquid()
	out, err := l.Render(`{{ "Héllo, World!" | slugify }}|{{ tags | array_to_sentence_string }}|{{ n | pluralize: "post", "posts" }}`,
		map[string]any{"tags": []any{"a", "b", "c"}, "n": 2})
	require.NoError(t, err)
	require.Equal(t, "hello-world|a, b, and c|posts", out)
}

func TestLiquid_CachedTemplateRendersFreshContext(t *testing.T) {
	l := NewLiquid()
	for _, name := range []string{"one", "two"} {
		out, err := l.Render("{{ x }}", map[string]any{"x": name})
		require.NoError(t, err)
		require.Equal(t, name, out)
	}
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "cafe-au-lait", Slugify("  Café au lait "))
	require.Equal(t, "", Slugify("!!!"))
}

func TestGoldmark_HeadingsAndLinks(t *testing.T) {
	out, err := NewGoldmark().Convert("# Hello\n\nSee [next](next.mokkf#top) and [ext](https://x.org/a.mokkf).\n", false)
	require.NoError(t, err)
	require.Contains(t, out, `<h1 id="hello">Hello</h1>`)
	require.Contains(t, out, `href="next.html#top"`)
	require.Contains(t, out, `href="https://x.org/a.mokkf"`)
}

func TestGoldmark_HardWraps(t *testing.T) {
	out, err := NewGoldmark().Convert("a\nb\n", false)
	require.NoError(t, err)
	require.Contains(t, out, "<br>")
}

func TestGoldmark_SuperscriptOnlyWithoutMath(t *testing.T) {
	g := NewGoldmark()

	out, err := g.Convert("x^2^\n", false)
	require.NoError(t, err)
	require.Contains(t, out, "x<sup>2</sup>")

	out, err = g.Convert("x^2^\n", true)
	require.NoError(t, err)
	require.Contains(t, out, "x^2^")
}

func TestGoldmark_FencedCodeTaggedWithLanguage(t *testing.T) {
	out, err := NewGoldmark().Convert("```go\nfmt.Println(1)\n```\n", false)
	require.NoError(t, err)
	require.Contains(t, out, `data-lang="go"`)
}

func TestRewritePageLink(t *testing.T) {
	require.Equal(t, "a/b.html", string(rewritePageLink([]byte("a/b.mokkf"))))
	require.Equal(t, "b.md", string(rewritePageLink([]byte("b.md"))))
	require.Equal(t, "#x", string(rewritePageLink([]byte("#x"))))
}

type fakeTeX struct{}

func (fakeTeX) Display(tex string) (string, error) { return "[d:" + tex + "]", nil }
func (fakeTeX) Inline(tex string) (string, error) {
	if tex == "bad" {
		return "", errors.New("parse error")
	}
	return "[i:" + tex + "]", nil
}

func TestMath_ConvertsSpans(t *testing.T) {
	out, err := NewMathWith(fakeTeX{}).Convert("<p>$x^2$ and $$ y $$</p>")
	require.NoError(t, err)
	require.Equal(t, "<p>[i:x^2] and [d:y]</p>", out)
}

func TestMath_SkipsCodeAndCurrency(t *testing.T) {
	m := NewMathWith(fakeTeX{})
	for _, in := range []string{
		"<pre><code>$x$</code></pre>",
		"<script>if (a<b) { s = '$x-$'; }</script><p>done</p>",
		"<style>.a::after { content: \"$y$\"; }</style>",
		"<p>$5 and $10</p>",
		"<p>lonely $</p>",
		"no dollars",
	} {
		out, err := m.Convert(in)
		require.NoError(t, err)
		require.Equal(t, in, out)
	}
}

func TestMath_UnescapesEntities(t *testing.T) {
	out, err := NewMathWith(fakeTeX{}).Convert("<p>$a&lt;b$</p>")
	require.NoError(t, err)
	require.Equal(t, "<p>[i:a<b]</p>", out)
}

func TestMath_ErrorNamesExpression(t *testing.T) {
	_, err := NewMathWith(fakeTeX{}).Convert("<p>$bad$</p>")
	require.ErrorContains(t, err, `"bad"`)
}

func TestMath_Treeblood(t *testing.T) {
	out, err := NewMath().Convert("<p>$x$</p>")
	require.NoError(t, err)
	require.Contains(t, out, "<math")
}

func TestHTMLMinifier(t *testing.T) {
	out, err := NewHTMLMinifier().Minify("<p>\n  a   b\n</p>\n\n<p>c</p>\n")
	require.NoError(t, err)
	require.False(t, strings.Contains(out, "\n"))
	require.Contains(t, out, "</p>")
}

func TestUGCSanitizer(t *testing.T) {
	s := NewUGCSanitizer()
	out := s.Sanitize(`<div class="highlight" data-lang="go"><span class="k">x</span></div><script>alert(1)</script>`)
	require.Contains(t, out, `class="highlight"`)
	require.Contains(t, out, `data-lang="go"`)
	require.NotContains(t, out, "<script")
}

func TestEditML_PlainTextPassesThrough(t *testing.T) {
	out, err := NewEditML().Clean("hello world\n")
	require.NoError(t, err)
	require.Contains(t, out, "hello world")
}

func TestLiquid_IncludeParameters(t *testing.T) {
	partials := map[string]string{
		"card": "[{{ include.title }}|{{ include.n | plus: 1 }}|{{ site }}]",
	}
	l := NewLiquid(WithIncludes(func(name string) (string, error) {
		src, ok := partials[name]
		if !ok {
			return "", errors.New("no partial " + name)
		}
		return src, nil
	}))

	out, err := l.Render(`{% include card title="A \"B\"" n=count %}`, map[string]any{"site": "S", "count": 41})
	require.NoError(t, err)
	require.Equal(t, `[A "B"|42|S]`, out)

	_, err = l.Render("{% include nope %}", nil)
	require.Error(t, err)
}

func TestLiquid_IncludeWithoutPartialsIsError(t *testing.T) {
	_, err := NewLiquid().Render("{% include card %}", nil)
	require.Error(t, err)
}

func TestLiquid_DateInTZ(t *testing.T) {
	l := NewLiquid()
	out, err := l.Render(`{{ d | date_in_tz: "%Y-%m-%d %H:%M", "+0900" }}`, map[string]any{"d": "2024-01-05T10:20:30Z"})
	require.NoError(t, err)
	require.Equal(t, "2024-01-05 19:20", out)

	out, err = l.Render(`{{ d | date_in_tz: "%H:%M", "-05:30" }}`, map[string]any{"d": "2024-01-05T10:20:30Z"})
	require.NoError(t, err)
	require.Equal(t, "04:50", out)

	_, err = l.Render(`{{ d | date_in_tz: "%H", "+99xx" }}`, map[string]any{"d": "2024-01-05T10:20:30Z"})
	require.Error(t, err)
}

func TestEditML_CleanViewAcceptsEdits(t *testing.T) {
	out, err := NewEditML().Clean("Keep {++this++} and {--not that--}.{>>editor note<<}\n")
	require.NoError(t, err)
	require.Contains(t, out, "Keep this and")
	require.NotContains(t, out, "not that")
	require.NotContains(t, out, "editor note")
	require.NotContains(t, out, "{++")
}
