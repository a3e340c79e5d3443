package pandoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Encoding selects how elements are written.
type Encoding int

const (
	// Legacy writes {"Tag": payload} and bare strings for nullary elements,
	// with the document as a [meta, blocks] array.
	Legacy Encoding = iota
	// Modern writes {"t": "Tag", "c": payload} with a versioned document object.
	Modern
)

// APIVersion is written into modern documents.
var APIVersion = []int{1, 23, 1}

// ParseEncoding reads "legacy" or "modern".
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "", "legacy":
		return Legacy, nil
	case "modern":
		return Modern, nil
	}
	return Legacy, fmt.Errorf("unknown AST encoding %q", s)
}

func (e Encoding) String() string {
	if e == Modern {
		return "modern"
	}
	return "legacy"
}

// Document is a decoded pandoc document. Meta holds raw pandoc meta values
// keyed by field name; see PlainMeta for a plain-value view.
type Document struct {
	Meta     map[string]any
	Blocks   []Element
	Encoding Encoding
}

// Decode reads a document in any of the accepted top-level shapes: a
// [meta, blocks] array, a versioned object with "blocks", or a single
// element that becomes the only block.
func Decode(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode pandoc json: %w", err)
	}
	switch x := v.(type) {
	case []any:
		if len(x) != 2 {
			return nil, fmt.Errorf("decode pandoc json: top-level array has %d values, want [meta, blocks]", len(x))
		}
		blocks, err := Elements(x[1])
		if err != nil {
			return nil, fmt.Errorf("decode pandoc json: blocks: %w", err)
		}
		return &Document{Meta: rawMeta(x[0]), Blocks: blocks, Encoding: Legacy}, nil
	case map[string]any:
		if raw, ok := x["blocks"]; ok {
			blocks, err := Elements(raw)
			if err != nil {
				return nil, fmt.Errorf("decode pandoc json: blocks: %w", err)
			}
			return &Document{Meta: rawMeta(x["meta"]), Blocks: blocks, Encoding: Modern}, nil
		}
		e, err := ParseElement(x)
		if err != nil {
			return nil, fmt.Errorf("decode pandoc json: %w", err)
		}
		enc := Legacy
		if _, ok := x["t"]; ok {
			enc = Modern
		}
		return &Document{Meta: map[string]any{}, Blocks: []Element{e}, Encoding: enc}, nil
	}
	return nil, fmt.Errorf("decode pandoc json: unexpected top-level %T", v)
}

func rawMeta(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	if inner, ok := m["unMeta"].(map[string]any); ok && len(m) == 1 {
		return inner
	}
	return m
}

// Encode writes d in the given encoding.
func Encode(d *Document, enc Encoding) ([]byte, error) {
	meta := d.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	blocks := make([]any, len(d.Blocks))
	for i, b := range d.Blocks {
		blocks[i] = encodeValue(b, enc)
	}
	var out any
	switch enc {
	case Modern:
		out = map[string]any{
			"pandoc-api-version": APIVersion,
			"meta":               encodeValue(meta, enc),
			"blocks":             blocks,
		}
	default:
		out = []any{map[string]any{"unMeta": encodeValue(meta, enc)}, blocks}
	}
	return json.Marshal(out)
}

func encodeValue(v any, enc Encoding) any {
	switch x := v.(type) {
	case Element:
		x = reshape(x, enc)
		if x.Nullary() {
			if enc == Modern {
				return map[string]any{"t": x.Tag}
			}
			return x.Tag
		}
		c := encodeValue(x.Content, enc)
		if enc == Modern {
			return map[string]any{"t": x.Tag, "c": c}
		}
		return map[string]any{x.Tag: c}
	case []Element:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = encodeValue(e, enc)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = encodeValue(item, enc)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = encodeValue(item, enc)
		}
		return out
	}
	return v
}
