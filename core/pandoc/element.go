// Package pandoc reads and writes the pandoc JSON AST.
//
// Two element encodings are understood. The legacy keyed form writes an
// element as {"Para": [...]} and a nullary element as the bare string
// "Space"; the modern form writes {"t": "Para", "c": [...]}. Decoded
// payloads are kept as generic JSON values and picked apart on demand with
// the helpers in this package.
package pandoc

import (
	"encoding/json"
	"fmt"
	"math"
)

// Element is one tagged AST node. Content is nil for nullary elements such as
// Space; otherwise it holds the payload as generic JSON values, Elements, or
// a mix of both.
type Element struct {
	Tag     string
	Content any
}

// Nullary reports whether the element carries no payload.
func (e Element) Nullary() bool { return e.Content == nil }

// Element tags used by the importer and exporter.
const (
	TagStr         = "Str"
	TagSpace       = "Space"
	TagSoftBreak   = "SoftBreak"
	TagLineBreak   = "LineBreak"
	TagEmph        = "Emph"
	TagStrong      = "Strong"
	TagUnderline   = "Underline"
	TagStrikeout   = "Strikeout"
	TagSuperscript = "Superscript"
	TagSubscript   = "Subscript"
	TagSmallCaps   = "SmallCaps"
	TagQuoted      = "Quoted"
	TagCite        = "Cite"
	TagCode        = "Code"
	TagMath        = "Math"
	TagRawInline   = "RawInline"
	TagLink        = "Link"
	TagImage       = "Image"
	TagNote        = "Note"
	TagSpan        = "Span"

	TagPlain          = "Plain"
	TagPara           = "Para"
	TagLineBlock      = "LineBlock"
	TagCodeBlock      = "CodeBlock"
	TagRawBlock       = "RawBlock"
	TagBlockQuote     = "BlockQuote"
	TagOrderedList    = "OrderedList"
	TagBulletList     = "BulletList"
	TagDefinitionList = "DefinitionList"
	TagHeader         = "Header"
	TagHorizontalRule = "HorizontalRule"
	TagTable          = "Table"
	TagFigure         = "Figure"
	TagDiv            = "Div"
	TagNull           = "Null"

	TagInlineMath  = "InlineMath"
	TagDisplayMath = "DisplayMath"
	TagSingleQuote = "SingleQuote"
	TagDoubleQuote = "DoubleQuote"
)

// MarshalJSON writes the element in the modern encoding. Use Encode to pick
// the encoding of a whole document.
func (e Element) MarshalJSON() ([]byte, error) {
	return json.Marshal(encodeValue(e, Modern))
}

// ParseElement interprets a generic JSON value as an element.
func ParseElement(v any) (Element, error) {
	switch x := v.(type) {
	case Element:
		return x, nil
	case string:
		return Element{Tag: x}, nil
	case map[string]any:
		if t, ok := x["t"]; ok {
			tag, ok := t.(string)
			if !ok {
				return Element{}, fmt.Errorf("element tag is %T, want string", t)
			}
			return Element{Tag: tag, Content: x["c"]}, nil
		}
		if len(x) != 1 {
			return Element{}, fmt.Errorf("element object has %d keys, want 1", len(x))
		}
		for tag, c := range x {
			return Element{Tag: tag, Content: c}, nil
		}
	}
	return Element{}, fmt.Errorf("cannot read %T as element", v)
}

// Elements interprets a JSON array as a list of elements.
func Elements(v any) ([]Element, error) {
	switch x := v.(type) {
	case []Element:
		return x, nil
	case nil:
		return nil, nil
	case []any:
		out := make([]Element, 0, len(x))
		for i, item := range x {
			e, err := ParseElement(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, e)
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot read %T as element list", v)
}

// Args returns the payload of e as an array of at least n values.
func Args(e Element, n int) ([]any, error) {
	arr, ok := e.Content.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: payload is %T, want array", e.Tag, e.Content)
	}
	if len(arr) < n {
		return nil, fmt.Errorf("%s: payload has %d values, want %d", e.Tag, len(arr), n)
	}
	return arr, nil
}

// Inlines returns the payload of a container whose payload is a plain list
// of inlines (Para, Plain, Emph, Strong and friends).
func Inlines(e Element) ([]Element, error) {
	els, err := Elements(e.Content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Tag, err)
	}
	return els, nil
}

// String reads a JSON string.
func String(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("value is %T, want string", v)
	}
	return s, nil
}

// Int reads a JSON number that must hold an integer.
func Int(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("value %v is not an integer", x)
		}
		return int(x), nil
	case json.Number:
		n, err := x.Int64()
		return int(n), err
	}
	return 0, fmt.Errorf("value is %T, want number", v)
}

// List converts elements into a generic payload array.
func List(els []Element) []any {
	out := make([]any, len(els))
	for i, e := range els {
		out[i] = e
	}
	return out
}

// Attr is the [id, classes, key-values] triple many elements carry.
type Attr struct {
	ID      string
	Classes []string
	KeyVals [][2]string
}

// ParseAttr reads an attribute triple.
func ParseAttr(v any) (Attr, error) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 3 {
		return Attr{}, fmt.Errorf("attr is %T, want 3-element array", v)
	}
	var a Attr
	var err error
	if a.ID, err = String(arr[0]); err != nil {
		return Attr{}, fmt.Errorf("attr id: %w", err)
	}
	classes, _ := arr[1].([]any)
	for _, c := range classes {
		s, err := String(c)
		if err != nil {
			return Attr{}, fmt.Errorf("attr class: %w", err)
		}
		a.Classes = append(a.Classes, s)
	}
	kvs, _ := arr[2].([]any)
	for _, kv := range kvs {
		pair, ok := kv.([]any)
		if !ok || len(pair) != 2 {
			return Attr{}, fmt.Errorf("attr key-value is %T, want pair", kv)
		}
		k, err1 := String(pair[0])
		val, err2 := String(pair[1])
		if err1 != nil || err2 != nil {
			return Attr{}, fmt.Errorf("attr key-value is not a string pair")
		}
		a.KeyVals = append(a.KeyVals, [2]string{k, val})
	}
	return a, nil
}

// Get returns the value of key k.
func (a Attr) Get(k string) (string, bool) {
	for _, kv := range a.KeyVals {
		if kv[0] == k {
			return kv[1], true
		}
	}
	return "", false
}

// Value returns the attribute as a payload value.
func (a Attr) Value() any {
	classes := make([]any, len(a.Classes))
	for i, c := range a.Classes {
		classes[i] = c
	}
	kvs := make([]any, len(a.KeyVals))
	for i, kv := range a.KeyVals {
		kvs[i] = []any{kv[0], kv[1]}
	}
	return []any{a.ID, classes, kvs}
}
