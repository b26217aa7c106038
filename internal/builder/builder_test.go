package builder

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dokkoo/internal/config"
	cerrors "dokkoo/internal/errors"
	"dokkoo/internal/meta"

	"github.com/stretchr/testify/require"
)

// writeSite lays files out below a temporary site root.
func writeSite(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func testGlobal() config.Global {
	return config.Global{Locale: "en_US", Data: meta.Map{"title": meta.StringValue("My Site")}}
}

type countingMarkdown struct{ calls int }

func (m *countingMarkdown) Convert(src string, math bool) (string, error) {
	m.calls++
	return "<md>" + src + "</md>", nil
}

type wrap struct{ name string }

func (w wrap) Convert(src string) (string, error) { return w.name + "(" + src + ")", nil }
func (w wrap) Minify(src string) (string, error) { return w.name + "(" + src + ")", nil }
func (w wrap) Sanitize(src string) string { return w.name + "(" + src + ")" }
func (w wrap) Clean(src string) (string, error) { return w.name + "(" + src + ")", nil }

type wrapMarkdown struct{}

func (wrapMarkdown) Convert(src string, math bool) (string, error) { return "M(" + src + ")", nil }

// passthrough leaves math and minify output untouched.
type passthrough struct{}

func (passthrough) Convert(src string) (string, error) { return src, nil }
func (passthrough) Minify(src string) (string, error) { return src, nil }

func newTestSession(t *testing.T, root string, opts Options) *Session {
	t.Helper()
	if opts.Math == nil {
		opts.Math = passthrough{}
	}
	if opts.Minifier == nil {
		opts.Minifier = passthrough{}
	}
	return NewSession(root, testGlobal(), opts)
}

func requireCategory(t *testing.T, err error, cat cerrors.Category) *cerrors.ClassifiedError {
	t.Helper()
	require.Error(t, err)
	ce, ok := cerrors.AsClassified(err)
	require.True(t, ok, "expected a classified error, got %T: %v", err, err)
	require.Equal(t, cat, ce.Category(), err.Error())
	return ce
}

func TestExpandPermalink(t *testing.T) {
	require.Equal(t, "/{{ page.data.collection }}/{{ page.data.title }}.html", ExpandPermalink("none"))
	require.True(t, strings.HasSuffix(ExpandPermalink("pretty"), "/index.html"))
	require.Equal(t, "/custom/{{ page.name }}.html", ExpandPermalink("/custom/{{ page.name }}.html"))
}

func TestLoadPage_DefaultsAndPermalink(t *testing.T) {
	root := writeSite(t, map[string]string{
		"posts/hello.mokkf": "---\ntitle: Hello\ncollection: posts\ndate: 2024-01-05T10:20:30Z\npermalink: date\n---\nBody\n",
	})
	s := newTestSession(t, root, Options{})

	page, err := s.LoadPage("posts/hello.mokkf")
	require.NoError(t, err)
	require.Equal(t, "posts", page.Directory)
	require.Equal(t, "hello", page.Name)
	require.Equal(t, "Body\n", page.Content)
	require.True(t, page.Markdown)
	require.True(t, page.Math)
	require.False(t, page.Minify)
	require.Equal(t, "en_US", page.Locale)
	require.Equal(t, "Fri", page.Date.ShortDay)
	require.Equal(t, "/posts/2024/01/05/Hello.html", page.URL)
}

func TestLoadPage_NoPermalinkLeavesURLEmpty(t *testing.T) {
	root := writeSite(t, map[string]string{"a.mokkf": "no metadata\n"})
	page, err := newTestSession(t, root, Options{}).LoadPage("a.mokkf")
	require.NoError(t, err)
	require.Empty(t, page.URL)
	require.True(t, page.Date.IsZero())
	require.Equal(t, "no metadata\n", page.Content)
}

func TestLoadPage_LocaleAndMinifyOverrides(t *testing.T) {
	root := writeSite(t, map[string]string{
		"a.mokkf": "---\nlocale: fr_FR\nminify: true\ndate: 2024-01-05T10:20:30Z\n---\n",
	})
	page, err := newTestSession(t, root, Options{}).LoadPage("a.mokkf")
	require.NoError(t, err)
	require.Equal(t, "fr_FR", page.Locale)
	require.True(t, page.Minify)
	require.Equal(t, "vendredi", page.Date.LongDay)
}

func TestLoadPage_Errors(t *testing.T) {
	root := writeSite(t, map[string]string{
		"mismatch.mokkf": "---\nmarkdown: \"yes\"\n---\n",
		"badyaml.mokkf":  "---\ntitle: [unclosed\n---\n",
		"baddate.mokkf":  "---\ndate: yesterday\n---\n",
	})
	s := newTestSession(t, root, Options{})

	_, err := s.LoadPage("missing.mokkf")
	ce := requireCategory(t, err, cerrors.CategoryIO)
	file, _ := ce.Context().GetString(cerrors.KeyFile)
	require.Equal(t, "missing.mokkf", file)

	_, err = s.LoadPage("mismatch.mokkf")
	requireCategory(t, err, cerrors.CategoryTypeMismatch)
	require.Contains(t, err.Error(), "markdown")
	require.Contains(t, err.Error(), "yes")
	require.Contains(t, err.Error(), "mismatch.mokkf")

	_, err = s.LoadPage("badyaml.mokkf")
	ce = requireCategory(t, err, cerrors.CategoryMetadata)
	raw, _ := ce.Context().GetString(cerrors.KeyRaw)
	require.Contains(t, raw, "[unclosed")

	_, err = s.LoadPage("baddate.mokkf")
	requireCategory(t, err, cerrors.CategoryTimestamp)
	require.Contains(t, err.Error(), "yesterday")
}

func TestContext_Keys(t *testing.T) {
	root := writeSite(t, map[string]string{
		"layouts/base.mokkf": "---\nkind: base\n---\n{{ page.content }}",
		"a.mokkf":            "---\nlayout: base\n---\n",
	})
	s := newTestSession(t, root, Options{})
	page, err := s.LoadPage("a.mokkf")
	require.NoError(t, err)

	ctx, err := s.Context(page, nil)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"global", "page", "layout", "collections"}, keys(ctx))
	require.Equal(t, "base", ctx["layout"].(map[string]any)["kind"])
	require.Equal(t, "My Site", ctx["global"].(map[string]any)["title"])

	ctx, err = s.Context(page, meta.Map{"n": meta.IntValue(1)})
	require.NoError(t, err)
	require.Equal(t, int64(1), ctx["snippet"].(map[string]any)["n"])
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestRenderBody_IdentityLaw(t *testing.T) {
	root := writeSite(t, map[string]string{
		"a.mokkf": "---\ntitle: T\nmarkdown: false\nmath: false\n---\n# {{ page.data.title }} {{ global.title }}\n",
	})
	md := &countingMarkdown{}
	s := newTestSession(t, root, Options{Markdown: md, Math: wrap{"X"}, Minifier: wrap{"N"}})
	page, err := s.LoadPage("a.mokkf")
	require.NoError(t, err)

	body, err := s.RenderBody(page, page.Content)
	require.NoError(t, err)
	tpl, err := s.RenderTemplate(page, page.Content)
	require.NoError(t, err)
	require.Equal(t, tpl, body)
	require.Equal(t, "# T My Site\n", body)
	require.Zero(t, md.calls)
}

func TestRenderBody_StageOrder(t *testing.T) {
	root := writeSite(t, map[string]string{
		"a.mokkf": "---\nminify: true\n---\nb",
	})
	s := newTestSession(t, root, Options{
		Markdown:  wrapMarkdown{},
		Sanitizer: wrap{"S"},
		Math:      wrap{"X"},
		Minifier:  wrap{"N"},
	})
	s.Global.Sanitize = true
	page, err := s.LoadPage("a.mokkf")
	require.NoError(t, err)

	out, err := s.RenderBody(page, page.Content)
	require.NoError(t, err)
	require.Equal(t, "N(X(S(M(b\n))))", out)

	page.EditML = true
	s.editorial = wrap{"E"}
	out, err = s.RenderBody(page, page.Content)
	require.NoError(t, err)
	require.Equal(t, "N(X(S(M(E(b\n)))))", out)
}

func TestRenderBody_TemplateError(t *testing.T) {
	root := writeSite(t, map[string]string{"a.mokkf": "{% if %}"})
	s := newTestSession(t, root, Options{})
	page, err := s.LoadPage("a.mokkf")
	require.NoError(t, err)

	_, err = s.RenderBody(page, page.Content)
	requireCategory(t, err, cerrors.CategoryTemplate)
	require.Contains(t, err.Error(), "a.mokkf")
}

func TestCompile_ThreeLevelLayoutsApplyMarkdownOnce(t *testing.T) {
	root := writeSite(t, map[string]string{
		"layouts/a.mokkf": "---\nlayout: b\n---\nA[{{ page.content }}]\n",
		"layouts/b.mokkf": "---\nlayout: c\n---\nB[{{ page.content }}]\n",
		"layouts/c.mokkf": "C[{{ page.content }}]\n",
		"page.mokkf":      "---\nlayout: a\n---\nhello\n",
	})
	md := &countingMarkdown{}
	s := newTestSession(t, root, Options{Markdown: md})
	page, err := s.LoadPage("page.mokkf")
	require.NoError(t, err)

	out, err := s.Compile(page)
	require.NoError(t, err)
	require.Equal(t, "C[B[A[<md>hello\n</md>]\n]\n]\n", out)
	require.Equal(t, 1, md.calls)
	require.Equal(t, "<md>hello\n</md>", page.Content)
}

func TestResolveLayouts_LayoutDataWins(t *testing.T) {
	root := writeSite(t, map[string]string{
		"layouts/a.mokkf": "---\nlayout: b\ntitle: from layout\n---\n{{ page.content }}",
		"layouts/b.mokkf": "{{ page.data.title }}|{{ page.data.own }}|{{ page.content }}",
		"page.mokkf":      "---\nlayout: a\ntitle: from page\nown: kept\nmarkdown: false\nmath: false\n---\nx",
	})
	s := newTestSession(t, root, Options{})
	page, err := s.LoadPage("page.mokkf")
	require.NoError(t, err)

	out, err := s.Compile(page)
	require.NoError(t, err)
	require.Equal(t, "from layout|kept|x", strings.TrimSpace(out))

	merged := MergeData(
		meta.Map{"a": meta.IntValue(1), "b": meta.IntValue(1)},
		meta.Map{"b": meta.IntValue(2)},
	)
	require.Equal(t, int64(1), merged["a"].Interface())
	require.Equal(t, int64(2), merged["b"].Interface())
}

func TestResolveLayouts_Cycle(t *testing.T) {
	root := writeSite(t, map[string]string{
		"layouts/a.mokkf": "---\nlayout: b\n---\n{{ page.content }}",
		"layouts/b.mokkf": "---\nlayout: a\n---\n{{ page.content }}",
		"page.mokkf":      "---\nlayout: a\n---\nx",
	})
	s := newTestSession(t, root, Options{})
	page, err := s.LoadPage("page.mokkf")
	require.NoError(t, err)

	_, err = s.Compile(page)
	ce := requireCategory(t, err, cerrors.CategoryLayoutCycle)
	chain, _ := ce.Context().GetString(cerrors.KeyChain)
	require.Equal(t, "a -> b -> a", chain)
}

func TestResolveLayouts_SelfCycle(t *testing.T) {
	root := writeSite(t, map[string]string{
		"layouts/a.mokkf": "---\nlayout: a\n---\n{{ page.content }}",
		"page.mokkf":      "---\nlayout: a\n---\nx",
	})
	s := newTestSession(t, root, Options{})
	page, err := s.LoadPage("page.mokkf")
	require.NoError(t, err)

	_, err = s.Compile(page)
	requireCategory(t, err, cerrors.CategoryLayoutCycle)
}

func TestCompile_CollectionsSeeOnlyEarlierPages(t *testing.T) {
	list := "{% for p in collections.posts %}[{{ p.name }}]{% endfor %}"
	root := writeSite(t, map[string]string{
		"p1.mokkf": "---\ncollection: posts\nmarkdown: false\nmath: false\n---\n" + list,
		"p2.mokkf": "---\ncollection: posts\nmarkdown: false\nmath: false\n---\n" + list,
	})
	s := newTestSession(t, root, Options{})

	p1, err := s.LoadPage("p1.mokkf")
	require.NoError(t, err)
	out1, err := s.Compile(p1)
	require.NoError(t, err)
	require.Equal(t, "", strings.TrimSpace(out1))

	p2, err := s.LoadPage("p2.mokkf")
	require.NoError(t, err)
	out2, err := s.Compile(p2)
	require.NoError(t, err)
	require.Equal(t, "[p1]", strings.TrimSpace(out2))

	require.Equal(t, []*Page{p1, p2}, s.Collections.Pages("posts"))
}

func TestSnippet_QuotedArgument(t *testing.T) {
	root := writeSite(t, map[string]string{
		"snippets/greet.html": "Hello {{ snippet.name }} from {{ page.name }}",
		"index.mokkf":         "---\nmarkdown: false\nmath: false\n---\n{! snippet greet.html name=\"Jane Doe\" !}",
	})
	s := newTestSession(t, root, Options{})
	page, err := s.LoadPage("index.mokkf")
	require.NoError(t, err)

	out, err := s.Compile(page)
	require.NoError(t, err)
	require.Equal(t, "Hello Jane Doe from index", strings.TrimSpace(out))
}

func TestSnippet_NestedCalls(t *testing.T) {
	root := writeSite(t, map[string]string{
		"snippets/outer": "<{! snippet inner v={{ snippet.v }} !}>",
		"snippets/inner": "{{ snippet.v | plus: 1 }}",
		"index.mokkf":    "---\nmarkdown: false\nmath: false\n---\n{! snippet outer v=41 !}",
	})
	s := newTestSession(t, root, Options{})
	page, err := s.LoadPage("index.mokkf")
	require.NoError(t, err)

	out, err := s.Compile(page)
	require.NoError(t, err)
	require.Equal(t, "<42>", strings.TrimSpace(out))
}

func TestSnippet_Errors(t *testing.T) {
	root := writeSite(t, map[string]string{
		"snippets/loop": "{! snippet loop !}",
		"loop.mokkf":    "---\nmarkdown: false\n---\n{! snippet loop !}",
		"bad.mokkf":     "---\nmarkdown: false\n---\n{! snippet !}",
		"missing.mokkf": "---\nmarkdown: false\n---\n{! snippet nope !}",
	})
	s := newTestSession(t, root, Options{})

	page, err := s.LoadPage("loop.mokkf")
	require.NoError(t, err)
	_, err = s.Compile(page)
	requireCategory(t, err, cerrors.CategorySnippet)

	page, err = s.LoadPage("bad.mokkf")
	require.NoError(t, err)
	_, err = s.Compile(page)
	ce := requireCategory(t, err, cerrors.CategorySnippet)
	call, _ := ce.Context().GetString(cerrors.KeyCall)
	require.Equal(t, "{! snippet !}", call)

	page, err = s.LoadPage("missing.mokkf")
	require.NoError(t, err)
	_, err = s.Compile(page)
	requireCategory(t, err, cerrors.CategoryIO)
}

func TestInclude_RendersSnippetAsPartial(t *testing.T) {
	root := writeSite(t, map[string]string{
		"snippets/greet": "Hello {{ include.who }} from {{ page.name }} on {{ global.title }}",
		"index.mokkf":    "---\nmarkdown: false\nmath: false\n---\n{% include greet who=\"Ana\" %}",
		"bare.mokkf":     "---\nmarkdown: false\nmath: false\nfriend: Bo\n---\n{% include greet who=page.data.friend %}",
	})
	s := newTestSession(t, root, Options{})

	page, err := s.LoadPage("index.mokkf")
	require.NoError(t, err)
	out, err := s.Compile(page)
	require.NoError(t, err)
	require.Equal(t, "Hello Ana from index on My Site", strings.TrimSpace(out))

	page, err = s.LoadPage("bare.mokkf")
	require.NoError(t, err)
	out, err = s.Compile(page)
	require.NoError(t, err)
	require.Equal(t, "Hello Bo from bare on My Site", strings.TrimSpace(out))
}

func TestInclude_Errors(t *testing.T) {
	root := writeSite(t, map[string]string{
		"snippets/loop": "{% include loop %}",
		"loop.mokkf":    "---\nmarkdown: false\n---\n{% include loop %}",
		"missing.mokkf": "---\nmarkdown: false\n---\n{% include nope %}",
		"escape.mokkf":  "---\nmarkdown: false\n---\n{% include ../secret %}",
	})
	s := newTestSession(t, root, Options{})

	for _, name := range []string{"loop.mokkf", "missing.mokkf", "escape.mokkf"} {
		page, err := s.LoadPage(name)
		require.NoError(t, err)
		_, err = s.Compile(page)
		requireCategory(t, err, cerrors.CategoryTemplate)
	}
}

type failingCleaner struct{}

func (failingCleaner) Clean(string) (string, error) { return "", errors.New("unbalanced edit") }

func TestRenderBody_EditMLStage(t *testing.T) {
	root := writeSite(t, map[string]string{
		"on.mokkf":  "---\neditml: true\nmarkdown: false\nmath: false\n---\nb",
		"off.mokkf": "---\nmarkdown: false\nmath: false\n---\nb",
		"bad.mokkf": "---\neditml: yes please\n---\nb",
	})
	s := newTestSession(t, root, Options{Editorial: wrap{"E"}})

	page, err := s.LoadPage("on.mokkf")
	require.NoError(t, err)
	require.True(t, page.EditML)
	out, err := s.RenderBody(page, page.Content)
	require.NoError(t, err)
	require.Equal(t, "E(b\n)", out)

	page, err = s.LoadPage("off.mokkf")
	require.NoError(t, err)
	out, err = s.RenderBody(page, page.Content)
	require.NoError(t, err)
	require.Equal(t, "b\n", out)

	_, err = s.LoadPage("bad.mokkf")
	requireCategory(t, err, cerrors.CategoryTypeMismatch)

	s = newTestSession(t, root, Options{Editorial: failingCleaner{}})
	page, err = s.LoadPage("on.mokkf")
	require.NoError(t, err)
	_, err = s.RenderBody(page, page.Content)
	ce := requireCategory(t, err, cerrors.CategoryMarkdown)
	file, _ := ce.Context().GetString(cerrors.KeyFile)
	require.Equal(t, "on.mokkf", file)
	require.ErrorContains(t, err, "unbalanced edit")
}
