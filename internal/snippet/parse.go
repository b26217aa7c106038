// Package snippet finds and parses inline snippet invocations of the form
//
//	{! snippet <name> key1=value1 key2="quoted value" !}
//
// Rendering the referenced snippet is left to the caller.
package snippet

import (
	"fmt"
	"path"
	"strings"

	"dokkoo/internal/meta"
)

const (
	OpenDelim  = "{!"
	CloseDelim = "!}"
	Keyword    = "snippet"
	// Marker identifies a brace span as an invocation.
	Marker = OpenDelim + " " + Keyword + " "
)

// Arg is one key=value argument, in call order.
type Arg struct {
	Key   string
	Value meta.Value
}

// Invocation is a parsed snippet call.
type Invocation struct {
	Raw  string
	Name string
	Args []Arg
}

// Map returns the arguments keyed by name; a repeated key keeps its last value.
func (inv *Invocation) Map() meta.Map {
	m := make(meta.Map, len(inv.Args))
	for _, a := range inv.Args {
		m[a.Key] = a.Value
	}
	return m
}

// SyntaxError describes a malformed invocation.
type SyntaxError struct {
	Call string
	Pos  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Call == "" {
		return fmt.Sprintf("snippet call: offset %d: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("snippet call %q: offset %d: %s", e.Call, e.Pos, e.Msg)
}

type parser struct {
	call string
	lex  *lexer
}

// Parse parses a complete invocation, delimiters included.
//
// Grammar:
//
//	call  = "{!" "snippet" name { arg } "!}"
//	arg   = key "=" value
//	value = quoted | bare
//
// Every value is typed like a metadata scalar once its quotes are removed. A
// quoted value that stays a string keeps its inner whitespace exactly.
func Parse(call string) (*Invocation, error) {
	p := &parser{call: call, lex: newLexer(call)}
	inv, err := p.parse()
	if err != nil {
		if se, ok := err.(*SyntaxError); ok {
			se.Call = call
		}
		return nil, err
	}
	return inv, nil
}

func (p *parser) parse() (*Invocation, error) {
	if _, err := p.expect(tokOpen, "call must start with '{!'"); err != nil {
		return nil, err
	}
	kw, err := p.expect(tokWord, "missing 'snippet' keyword")
	if err != nil {
		return nil, err
	}
	if kw.text != Keyword {
		return nil, &SyntaxError{Pos: kw.pos, Msg: fmt.Sprintf("expected keyword %q, found %q", Keyword, kw.text)}
	}

	nameTok, err := p.lex.next()
	if err != nil {
		return nil, err
	}
	if nameTok.kind != tokWord && nameTok.kind != tokString {
		return nil, &SyntaxError{Pos: nameTok.pos, Msg: "missing snippet name, found " + nameTok.kind.String()}
	}
	if err := ValidateName(nameTok.text); err != nil {
		return nil, &SyntaxError{Pos: nameTok.pos, Msg: err.Error()}
	}

	inv := &Invocation{Raw: p.call, Name: nameTok.text}
	for {
		tok, err := p.lex.next()
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokClose:
			if trailing, _ := p.lex.next(); trailing.kind != tokEOF {
				return nil, &SyntaxError{Pos: trailing.pos, Msg: "unexpected text after '!}'"}
			}
			return inv, nil
		case tokWord:
			arg, err := p.arg(tok)
			if err != nil {
				return nil, err
			}
			inv.Args = append(inv.Args, arg)
		default:
			return nil, &SyntaxError{Pos: tok.pos, Msg: "expected argument key or '!}', found " + tok.kind.String()}
		}
	}
}

func (p *parser) arg(key token) (Arg, error) {
	if _, err := p.expect(tokEquals, fmt.Sprintf("argument %q is missing '='", key.text)); err != nil {
		return Arg{}, err
	}
	val, err := p.lex.value()
	if err != nil {
		return Arg{}, err
	}
	switch val.kind {
	case tokString:
		// Quotes only group the value; it is still typed, but a string keeps
		// its inner whitespace exactly.
		v := meta.ParseScalar(val.text)
		if v.Kind() == meta.String {
			v = meta.StringValue(val.text)
		}
		return Arg{Key: key.text, Value: v}, nil
	case tokWord:
		return Arg{Key: key.text, Value: meta.ParseScalar(val.text)}, nil
	}
	return Arg{}, &SyntaxError{Pos: val.pos, Msg: fmt.Sprintf("argument %q is missing a value", key.text)}
}

func (p *parser) expect(kind tokenKind, msg string) (token, error) {
	tok, err := p.lex.next()
	if err != nil {
		return token{}, err
	}
	if tok.kind != kind {
		return token{}, &SyntaxError{Pos: tok.pos, Msg: msg}
	}
	return tok, nil
}

// ValidateName rejects names that would resolve outside the snippet directory.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("empty snippet name")
	case strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`):
		return fmt.Errorf("snippet name %q must be relative", name)
	}
	clean := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("snippet name %q escapes the snippet directory", name)
	}
	return nil
}
