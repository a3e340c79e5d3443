package pandoc

import (
	"fmt"
	"strings"
)

// Stringify returns the plain text of a list of inlines.
func Stringify(inlines []Element) string {
	var sb strings.Builder
	stringify(&sb, inlines)
	return sb.String()
}

func stringify(sb *strings.Builder, inlines []Element) {
	for _, e := range inlines {
		switch e.Tag {
		case TagStr:
			s, _ := String(e.Content)
			sb.WriteString(s)
		case TagSpace, TagSoftBreak:
			sb.WriteByte(' ')
		case TagLineBreak:
			sb.WriteByte('\n')
		case TagCode, TagMath, TagRawInline:
			if arr, err := Args(e, 2); err == nil {
				s, _ := String(arr[1])
				sb.WriteString(s)
			}
		case TagLink, TagImage:
			if _, inl, _, err := LinkParts(e); err == nil {
				stringify(sb, inl)
			}
		case TagSpan, TagQuoted, TagCite:
			if arr, err := Args(e, 2); err == nil {
				inl, _ := Elements(arr[1])
				stringify(sb, inl)
			}
		case TagNote:
		default:
			if inl, err := Inlines(e); err == nil {
				stringify(sb, inl)
			}
		}
	}
}

// PlainMeta converts raw pandoc meta values (MetaMap, MetaList, MetaString,
// MetaInlines, MetaBool, MetaBlocks) into plain Go values. Values that are
// not meta elements are converted structurally and otherwise left alone.
func PlainMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = plainMetaValue(v)
	}
	return out
}

func plainMetaValue(v any) any {
	if e, ok := metaElement(v); ok {
		switch e.Tag {
		case "MetaMap":
			m, _ := e.Content.(map[string]any)
			return PlainMeta(m)
		case "MetaList":
			arr, _ := e.Content.([]any)
			out := make([]any, len(arr))
			for i, item := range arr {
				out[i] = plainMetaValue(item)
			}
			return out
		case "MetaBool":
			b, _ := e.Content.(bool)
			return b
		case "MetaString":
			s, _ := e.Content.(string)
			return s
		case "MetaInlines":
			inl, _ := Elements(e.Content)
			return Stringify(inl)
		case "MetaBlocks":
			blocks, _ := Elements(e.Content)
			parts := make([]string, 0, len(blocks))
			for _, b := range blocks {
				inl, err := Inlines(b)
				if err != nil {
					continue
				}
				parts = append(parts, Stringify(inl))
			}
			return strings.Join(parts, "\n\n")
		}
	}
	switch x := v.(type) {
	case map[string]any:
		return PlainMeta(x)
	case []any:
		if inl, err := Elements(x); err == nil && looksInline(inl) {
			return Stringify(inl)
		}
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = plainMetaValue(item)
		}
		return out
	}
	return v
}

func metaElement(v any) (Element, bool) {
	switch v.(type) {
	case Element, map[string]any:
	default:
		return Element{}, false
	}
	e, err := ParseElement(v)
	if err != nil || !strings.HasPrefix(e.Tag, "Meta") {
		return Element{}, false
	}
	return e, true
}

func looksInline(els []Element) bool {
	if len(els) == 0 {
		return false
	}
	for _, e := range els {
		switch e.Tag {
		case TagStr, TagSpace, TagSoftBreak, TagLineBreak, TagEmph, TagStrong, TagCode, TagLink:
		default:
			return false
		}
	}
	return true
}

// MetaValues converts plain Go values into pandoc meta elements.
func MetaValues(plain map[string]any) map[string]any {
	out := make(map[string]any, len(plain))
	for k, v := range plain {
		out[k] = metaValue(v)
	}
	return out
}

func metaValue(v any) Element {
	switch x := v.(type) {
	case map[string]any:
		return Element{Tag: "MetaMap", Content: MetaValues(x)}
	case []any:
		items := make([]any, len(x))
		for i, item := range x {
			items[i] = metaValue(item)
		}
		return Element{Tag: "MetaList", Content: items}
	case []string:
		items := make([]any, len(x))
		for i, item := range x {
			items[i] = metaValue(item)
		}
		return Element{Tag: "MetaList", Content: items}
	case bool:
		return Element{Tag: "MetaBool", Content: x}
	case string:
		return Element{Tag: "MetaInlines", Content: List(Words(x))}
	case nil:
		return Element{Tag: "MetaString", Content: ""}
	}
	return Element{Tag: "MetaString", Content: fmt.Sprint(v)}
}
