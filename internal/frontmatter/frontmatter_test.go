package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit_BlockAndBody(t *testing.T) {
	fm, body := Split("---\nA\n---\nB\n")

	require.Equal(t, "A", fm)
	require.Equal(t, "B\n", body)
}

func TestSplit_NoDelimiter_ReturnsSentinelAndWholeInput(t *testing.T) {
	input := "# Title\n\nHello\n"

	fm, body := Split(input)
	require.Equal(t, EmptySentinel, fm)
	require.Equal(t, input, body)
}

func TestSplit_EmptyBlock_ReturnsSentinel(t *testing.T) {
	fm, body := Split("---\n---\nbody\n")

	require.Equal(t, EmptySentinel, fm)
	require.Equal(t, "body\n", body)
}

func TestSplit_LaterDelimitersAreBody(t *testing.T) {
	fm, body := Split("---\ntitle: x\n---\none\n---\ntwo\n")

	require.Equal(t, "title: x", fm)
	require.Equal(t, "one\n---\ntwo\n", body)
}

func TestSplit_TextBeforeBlockGoesToBody(t *testing.T) {
	fm, body := Split("intro\n---\nk: v\n---\nrest")

	require.Equal(t, "k: v", fm)
	require.Equal(t, "intro\nrest\n", body)
}

func TestSplit_CRLF(t *testing.T) {
	fm, body := Split("---\r\nk: v\r\n---\r\nbody\r\n")

	require.Equal(t, "k: v", fm)
	require.Equal(t, "body\n", body)
}

func TestParse_Sentinel(t *testing.T) {
	m, err := Parse(EmptySentinel)
	require.NoError(t, err)

	v, ok := m.Lookup("empty")
	require.True(t, ok)
	b, err := v.AsBool()
	require.NoError(t, err)
	require.True(t, b)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse("title: [unclosed")
	require.Error(t, err)
}

func TestParse_NonMappingIsError(t *testing.T) {
	_, err := Parse("- a\n- b")
	require.Error(t, err)
}

func TestParseFile(t *testing.T) {
	data, raw, body, err := ParseFile("---\ntitle: Hi\nlayout: base\n---\nHello {{ page.data.title }}\n")
	require.NoError(t, err)
	require.Equal(t, "title: Hi\nlayout: base", raw)
	require.Equal(t, "Hello {{ page.data.title }}\n", body)
	require.Equal(t, "base", data["layout"].String())
}

func TestParse_CommentOnlyBlockIsEmptyMap(t *testing.T) {
	fm, body := Split("---\n# draft, fill in later\n---\nBody\n")
	data, err := Parse(fm)

	require.NoError(t, err)
	require.Empty(t, data)
	require.Equal(t, "Body\n", body)
}

func TestParse_EmptyDocumentIsEmptyMap(t *testing.T) {
	data, err := Parse("")

	require.NoError(t, err)
	require.Empty(t, data)
}
