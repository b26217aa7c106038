package snippet

import (
	"fmt"
	"strings"
	"testing"

	"dokkoo/internal/meta"

	"github.com/stretchr/testify/require"
)

func TestParse_QuotedValueKeepsSpaces(t *testing.T) {
	inv, err := Parse(`{! snippet greet name="Jane Doe" !}`)
	require.NoError(t, err)

	require.Equal(t, "greet", inv.Name)
	require.Len(t, inv.Args, 1)
	require.Equal(t, "name", inv.Args[0].Key)
	s, err := inv.Args[0].Value.AsString()
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", s)
}

func TestParse_TypedBareValues(t *testing.T) {
	inv, err := Parse(`{! snippet cards/item.html count=3 ratio=0.5 shown=true label=hi url=/a?b=c !}`)
	require.NoError(t, err)
	require.Equal(t, "cards/item.html", inv.Name)

	args := inv.Map()
	require.Equal(t, meta.Int, args["count"].Kind())
	require.Equal(t, meta.Float, args["ratio"].Kind())
	require.Equal(t, meta.Bool, args["shown"].Kind())
	require.Equal(t, "hi", args["label"].String())
	require.Equal(t, "/a?b=c", args["url"].String())
}

func TestParse_ArgumentOrderIsPreserved(t *testing.T) {
	inv, err := Parse(`{! snippet x b=1 a="two words" c='single "quoted"' !}`)
	require.NoError(t, err)

	keys := make([]string, 0, len(inv.Args))
	for _, a := range inv.Args {
		keys = append(keys, a.Key)
	}
	require.Equal(t, []string{"b", "a", "c"}, keys)
	require.Equal(t, `single "quoted"`, inv.Args[2].Value.String())
}

func TestParse_QuotedValuesAreTyped(t *testing.T) {
	inv, err := Parse(`{! snippet card show="false" n="42" title="  two  spaces " !}`)
	require.NoError(t, err)
	require.Len(t, inv.Args, 3)

	require.Equal(t, meta.Bool, inv.Args[0].Value.Kind())
	b, err := inv.Args[0].Value.AsBool()
	require.NoError(t, err)
	require.False(t, b)

	require.Equal(t, meta.Int, inv.Args[1].Value.Kind())
	n, err := inv.Args[1].Value.AsInt()
	require.NoError(t, err)
	require.Equal(t, int64(42), n)

	require.Equal(t, meta.String, inv.Args[2].Value.Kind())
	require.Equal(t, "  two  spaces ", inv.Args[2].Value.String())
}

func TestParse_EscapedQuote(t *testing.T) {
	inv, err := Parse(`{! snippet x q="say \"hi\"  twice" !}`)
	require.NoError(t, err)
	require.Equal(t, `say "hi"  twice`, inv.Args[0].Value.String())
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"too few tokens":  `{! snippet !}`,
		"only open":       `{!`,
		"wrong keyword":   `{! include x !}`,
		"missing equals":  `{! snippet x name !}`,
		"missing value":   `{! snippet x name= !}`,
		"unterminated":    `{! snippet x name="Jane !}`,
		"missing close":   `{! snippet x a=1`,
		"escaping name":   `{! snippet ../secret !}`,
		"absolute name":   `{! snippet /etc/passwd !}`,
		"trailing text":   `{! snippet x !} extra`,
		"value where key": `{! snippet x "v" !}`,
	}
	for name, call := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(call)
			require.Error(t, err)
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			require.Equal(t, call, se.Call)
		})
	}
}

func echo(inv *Invocation) (string, error) {
	return fmt.Sprintf("<%s:%d>", inv.Name, len(inv.Args)), nil
}

func TestScan_ReplacesInvocations(t *testing.T) {
	out, err := Scan(`a {! snippet one x=1 !} b {! snippet two !} c`, echo)
	require.NoError(t, err)
	require.Equal(t, "a <one:1> b <two:0> c", out)
}

func TestScan_IdenticalCallsRenderOnce(t *testing.T) {
	calls := 0
	out, err := Scan(`{! snippet x !}|{! snippet x !}`, func(inv *Invocation) (string, error) {
		calls++
		return "X", nil
	})
	require.NoError(t, err)
	require.Equal(t, "X|X", out)
	require.Equal(t, 1, calls)
}

func TestScan_OtherBracesPassThrough(t *testing.T) {
	in := `body { color: red; } {{ not liquid }} {% raw %}`
	out, err := Scan(in+` {! snippet s !}`, echo)
	require.NoError(t, err)
	require.Equal(t, in+" <s:0>", out)
}

func TestScan_InvocationNestedInsideBraces(t *testing.T) {
	out, err := Scan(`{ wrap {! snippet s !} }`, echo)
	require.NoError(t, err)
	require.Equal(t, "{ wrap <s:0> }", out)
}

func TestScan_UnbalancedTailPassesThrough(t *testing.T) {
	in := `{! snippet s !} then { never closed {! snippet t !`
	out, err := Scan(in, echo)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "<s:0> then { never closed"))
}

func TestScan_NoMarkerIsIdentity(t *testing.T) {
	in := "plain {text} without calls"
	out, err := Scan(in, func(*Invocation) (string, error) { panic("unexpected") })
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestScan_MalformedCallIsError(t *testing.T) {
	_, err := Scan(`x {! snippet !} y`, echo)
	require.Error(t, err)
}

func TestScan_RenderErrorPropagates(t *testing.T) {
	_, err := Scan(`{! snippet s !}`, func(*Invocation) (string, error) {
		return "", fmt.Errorf("boom")
	})
	require.EqualError(t, err, "boom")
}
