// internal/render/goldmark_extensions.go
package render

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// SourceExt and OutputExt are the extensions of Mokk sources and the pages
// built from them.
const (
	SourceExt = ".mokkf"
	OutputExt = ".html"
)

// pageLinkTransformer rewrites links to sibling Mokk sources so that they
// point at the built page instead.
type pageLinkTransformer struct{}

func newPageLinkTransformer() parser.ASTTransformer {
	return &pageLinkTransformer{}
}

func (t *pageLinkTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		link.Destination = rewritePageLink(link.Destination)
		return ast.WalkContinue, nil
	})
}

// rewritePageLink swaps a trailing .mokkf for .html, keeping any fragment.
func rewritePageLink(dest []byte) []byte {
	path, frag := dest, []byte(nil)
	if i := bytes.IndexByte(dest, '#'); i >= 0 {
		path, frag = dest[:i], dest[i:]
	}
	if bytes.Contains(path, []byte("://")) || !bytes.HasSuffix(path, []byte(SourceExt)) {
		return dest
	}
	out := make([]byte, 0, len(dest)+len(OutputExt))
	out = append(out, bytes.TrimSuffix(path, []byte(SourceExt))...)
	out = append(out, OutputExt...)
	return append(out, frag...)
}

// KindSuperscript is the node kind for ^text^ spans.
var KindSuperscript = ast.NewNodeKind("Superscript")

type superscriptNode struct {
	ast.BaseInline
}

func (n *superscriptNode) Kind() ast.NodeKind { return KindSuperscript }

func (n *superscriptNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// superscriptParser matches ^text^ where text is non-empty and has no
// whitespace.
type superscriptParser struct{}

func (superscriptParser) Trigger() []byte { return []byte{'^'} }

func (superscriptParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, seg := block.PeekLine()
	if len(line) < 3 || line[0] != '^' {
		return nil
	}
	end := bytes.IndexByte(line[1:], '^')
	if end <= 0 {
		return nil
	}
	if bytes.ContainsAny(line[1:1+end], " \t\r\n") {
		return nil
	}
	node := &superscriptNode{}
	node.AppendChild(node, ast.NewTextSegment(text.NewSegment(seg.Start+1, seg.Start+1+end)))
	block.Advance(end + 2)
	return node
}

type superscriptRenderer struct{}

func (r superscriptRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindSuperscript, r.render)
}

func (r superscriptRenderer) render(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("<sup>")
	} else {
		_, _ = w.WriteString("</sup>")
	}
	return ast.WalkContinue, nil
}

type superscriptExtension struct{}

func (superscriptExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(superscriptParser{}, 600),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(superscriptRenderer{}, 600),
	))
}
