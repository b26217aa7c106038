// Package meta holds the typed representation of Mokk metadata values.
package meta

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	Null Kind = iota
	String
	Int
	Float
	Bool
	Sequence
	Mapping
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Sequence:
		return "sequence"
	case Mapping:
		return "mapping"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is a metadata scalar, sequence or mapping.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	seq  []Value
	m    Map
}

// Map is a metadata mapping. Key order carries no meaning.
type Map map[string]Value

func StringValue(s string) Value { return Value{kind: String, s: s} }
func IntValue(i int64) Value { return Value{kind: Int, i: i} }
func FloatValue(f float64) Value { return Value{kind: Float, f: f} }
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }
func SequenceValue(v []Value) Value { return Value{kind: Sequence, seq: v} }
func MappingValue(m Map) Value { return Value{kind: Mapping, m: m} }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == Null }

// TypeError is returned by the As* conversions when v holds another kind.
type TypeError struct {
	Want Kind
	Got  Kind
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("expected %s, got %s", e.Want, e.Got)
}

// AsString returns the string held by v.
func (v Value) AsString() (string, error) {
	if v.kind != String {
		return "", &TypeError{Want: String, Got: v.kind}
	}
	return v.s, nil
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, error) {
	if v.kind != Bool {
		return false, &TypeError{Want: Bool, Got: v.kind}
	}
	return v.b, nil
}

// AsInt returns the integer held by v.
func (v Value) AsInt() (int64, error) {
	if v.kind != Int {
		return 0, &TypeError{Want: Int, Got: v.kind}
	}
	return v.i, nil
}

// AsSequence returns the elements held by v.
func (v Value) AsSequence() ([]Value, error) {
	if v.kind != Sequence {
		return nil, &TypeError{Want: Sequence, Got: v.kind}
	}
	return v.seq, nil
}

// AsMap returns the mapping held by v.
func (v Value) AsMap() (Map, error) {
	if v.kind != Mapping {
		return nil, &TypeError{Want: Mapping, Got: v.kind}
	}
	return v.m, nil
}

// Interface converts v into plain Go values (string, int64, float64, bool,
// []any, map[string]any or nil) for the template engine.
func (v Value) Interface() any {
	switch v.kind {
	case String:
		return v.s
	case Int:
		return v.i
	case Float:
		return v.f
	case Bool:
		return v.b
	case Sequence:
		out := make([]any, len(v.seq))
		for i, e := range v.seq {
			out[i] = e.Interface()
		}
		return out
	case Mapping:
		return v.m.Interface()
	}
	return nil
}

// String formats v the way it would print inside a rendered template.
func (v Value) String() string {
	switch v.kind {
	case Null:
		return ""
	case String:
		return v.s
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(v.b)
	}
	return fmt.Sprint(v.Interface())
}

// Interface converts m into a map[string]any.
func (m Map) Interface() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Interface()
	}
	return out
}

// Lookup returns the value for key and whether it is present and non-null.
func (m Map) Lookup(key string) (Value, bool) {
	v, ok := m[key]
	if !ok || v.IsNull() {
		return Value{}, false
	}
	return v, true
}

// Clone returns a shallow copy of m.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// FromNode converts a decoded YAML node into a Value. Timestamps keep their
// literal text so the date deriver sees exactly what the author wrote.
// An empty or comment-only document decodes to Null.
func FromNode(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case 0:
		return Value{}, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Value{}, nil
		}
		return FromNode(n.Content[0])
	case yaml.AliasNode:
		return FromNode(n.Alias)
	case yaml.SequenceNode:
		seq := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := FromNode(c)
			if err != nil {
				return Value{}, err
			}
			seq = append(seq, v)
		}
		return SequenceValue(seq), nil
	case yaml.MappingNode:
		m := make(Map, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind != yaml.ScalarNode {
				return Value{}, fmt.Errorf("line %d: mapping key must be a scalar", k.Line)
			}
			v, err := FromNode(n.Content[i+1])
			if err != nil {
				return Value{}, err
			}
			m[k.Value] = v
		}
		return MappingValue(m), nil
	case yaml.ScalarNode:
		return scalarFromNode(n)
	}
	return Value{}, fmt.Errorf("line %d: unsupported yaml node", n.Line)
}

func scalarFromNode(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Value{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Value{}, err
		}
		return BoolValue(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return Value{}, err
		}
		return IntValue(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, err
		}
		return FloatValue(f), nil
	}
	// !!str, !!timestamp, !!binary and custom tags stay textual.
	return StringValue(n.Value), nil
}

// ParseScalar types a bare piece of text with the same rules used for
// metadata values: booleans, integers, floats and null are recognised,
// everything else is a string.
func ParseScalar(text string) Value {
	if strings.TrimSpace(text) == "" {
		return StringValue(text)
	}
	var n yaml.Node
	if err := yaml.Unmarshal([]byte(text), &n); err != nil {
		return StringValue(text)
	}
	if len(n.Content) != 1 || n.Content[0].Kind != yaml.ScalarNode {
		return StringValue(text)
	}
	v, err := scalarFromNode(n.Content[0])
	if err != nil {
		return StringValue(text)
	}
	if v.kind == Float && (math.IsInf(v.f, 0) || math.IsNaN(v.f)) {
		return StringValue(text)
	}
	return v
}
