package snippet

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokOpen
	tokClose
	tokWord
	tokEquals
	tokString
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of call"
	case tokOpen:
		return "'{!'"
	case tokClose:
		return "'!}'"
	case tokWord:
		return "word"
	case tokEquals:
		return "'='"
	case tokString:
		return "quoted string"
	}
	return "unknown token"
}

type token struct {
	kind tokenKind
	text string // unquoted for tokString
	pos  int
}

// lexer tokenises a single invocation. Words stop at whitespace, '=', a quote
// or the closing delimiter; values are lexed separately because a bare value
// may itself contain '='.
type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer { return &lexer{src: src} }

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		r, w := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += w
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := l.pos
	rest := l.src[l.pos:]
	switch {
	case rest == "":
		return token{kind: tokEOF, pos: start}, nil
	case strings.HasPrefix(rest, OpenDelim):
		l.pos += len(OpenDelim)
		return token{kind: tokOpen, text: OpenDelim, pos: start}, nil
	case strings.HasPrefix(rest, CloseDelim):
		l.pos += len(CloseDelim)
		return token{kind: tokClose, text: CloseDelim, pos: start}, nil
	case rest[0] == '=':
		l.pos++
		return token{kind: tokEquals, text: "=", pos: start}, nil
	case rest[0] == '"' || rest[0] == '\'':
		return l.quoted()
	}
	for l.pos < len(l.src) {
		rest = l.src[l.pos:]
		r, w := utf8.DecodeRuneInString(rest)
		if unicode.IsSpace(r) || r == '=' || r == '"' || r == '\'' || strings.HasPrefix(rest, CloseDelim) {
			break
		}
		l.pos += w
	}
	return token{kind: tokWord, text: l.src[start:l.pos], pos: start}, nil
}

// value lexes the right-hand side of key=value: a quoted string, or a bare
// run of characters up to whitespace or the closing delimiter.
func (l *lexer) value() (token, error) {
	start := l.pos
	rest := l.src[l.pos:]
	if rest == "" || strings.HasPrefix(rest, CloseDelim) {
		return token{kind: tokEOF, pos: start}, nil
	}
	if rest[0] == '"' || rest[0] == '\'' {
		return l.quoted()
	}
	for l.pos < len(l.src) {
		rest = l.src[l.pos:]
		r, w := utf8.DecodeRuneInString(rest)
		if unicode.IsSpace(r) || strings.HasPrefix(rest, CloseDelim) {
			break
		}
		l.pos += w
	}
	if l.pos == start {
		return token{kind: tokEOF, pos: start}, nil
	}
	return token{kind: tokWord, text: l.src[start:l.pos], pos: start}, nil
}

// quoted reads a string delimited by the quote at the current position.
// A backslash escapes the next character.
func (l *lexer) quoted() (token, error) {
	start := l.pos
	quote := l.src[l.pos]
	l.pos++
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\\' && l.pos+1 < len(l.src):
			b.WriteByte(l.src[l.pos+1])
			l.pos += 2
		case c == quote:
			l.pos++
			return token{kind: tokString, text: b.String(), pos: start}, nil
		default:
			b.WriteByte(c)
			l.pos++
		}
	}
	return token{}, &SyntaxError{Pos: start, Msg: "unterminated quoted value"}
}
