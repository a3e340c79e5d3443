package pandoc

import "strings"

// Constructors for the elements the exporter and the format adapters emit.
// Payloads use the canonical shapes described in reshape.

func Str(s string) Element    { return Element{Tag: TagStr, Content: s} }
func Space() Element          { return Element{Tag: TagSpace} }
func SoftBreak() Element      { return Element{Tag: TagSoftBreak} }
func LineBreak() Element      { return Element{Tag: TagLineBreak} }
func HorizontalRule() Element { return Element{Tag: TagHorizontalRule} }

// Mark wraps inlines in a container whose payload is only the inline list,
// such as Emph or Strong.
func Mark(tag string, inlines ...Element) Element {
	return Element{Tag: tag, Content: List(inlines)}
}

func Emph(inlines ...Element) Element   { return Mark(TagEmph, inlines...) }
func Strong(inlines ...Element) Element { return Mark(TagStrong, inlines...) }
func Para(inlines ...Element) Element   { return Mark(TagPara, inlines...) }
func Plain(inlines ...Element) Element  { return Mark(TagPlain, inlines...) }

// Code is an inline code span.
func Code(text string) Element {
	return Element{Tag: TagCode, Content: []any{Attr{}.Value(), text}}
}

// Link builds a link with an empty attr.
func Link(url, title string, inlines ...Element) Element {
	return Element{Tag: TagLink, Content: []any{Attr{}.Value(), List(inlines), []any{url, title}}}
}

// Image builds an image whose inlines are its alt text or caption.
func Image(url, title string, inlines ...Element) Element {
	return Element{Tag: TagImage, Content: []any{Attr{}.Value(), List(inlines), []any{url, title}}}
}

// Math builds inline or display math.
func Math(display bool, tex string) Element {
	kind := TagInlineMath
	if display {
		kind = TagDisplayMath
	}
	return Element{Tag: TagMath, Content: []any{Element{Tag: kind}, tex}}
}

// Span wraps inlines with attributes.
func Span(attr Attr, inlines ...Element) Element {
	return Element{Tag: TagSpan, Content: []any{attr.Value(), List(inlines)}}
}

// Header builds a heading with the given identifier.
func Header(level int, id string, inlines ...Element) Element {
	return Element{Tag: TagHeader, Content: []any{level, Attr{ID: id}.Value(), List(inlines)}}
}

// CodeBlock builds a code block; lang becomes the first class when set.
func CodeBlock(lang, text string) Element {
	attr := Attr{}
	if lang != "" {
		attr.Classes = []string{lang}
	}
	return Element{Tag: TagCodeBlock, Content: []any{attr.Value(), text}}
}

// RawBlock builds a raw block of the given format.
func RawBlock(format, text string) Element {
	return Element{Tag: TagRawBlock, Content: []any{format, text}}
}

// BlockQuote wraps blocks.
func BlockQuote(blocks ...Element) Element {
	return Element{Tag: TagBlockQuote, Content: List(blocks)}
}

// BulletList builds a list whose items are block lists.
func BulletList(items ...[]Element) Element {
	return Element{Tag: TagBulletList, Content: listItems(items)}
}

// OrderedList builds a decimal list starting at 1.
func OrderedList(items ...[]Element) Element {
	attrs := []any{1, Element{Tag: "Decimal"}, Element{Tag: "Period"}}
	return Element{Tag: TagOrderedList, Content: []any{attrs, listItems(items)}}
}

func listItems(items [][]Element) []any {
	out := make([]any, len(items))
	for i, blocks := range items {
		out[i] = List(blocks)
	}
	return out
}

// Table builds a legacy five-value table. Every header and cell is a list of
// blocks; alignments and widths are defaults.
func Table(caption []Element, headers [][]Element, rows [][][]Element) Element {
	aligns := make([]any, len(headers))
	widths := make([]any, len(headers))
	hs := make([]any, len(headers))
	for i, h := range headers {
		aligns[i] = Element{Tag: "AlignDefault"}
		widths[i] = 0
		hs[i] = List(h)
	}
	rs := make([]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, c := range row {
			cells[j] = List(c)
		}
		rs[i] = cells
	}
	return Element{Tag: TagTable, Content: []any{List(caption), aligns, widths, hs, rs}}
}

// Figure builds a modern figure block holding one image.
func Figure(id string, caption []Element, image Element) Element {
	var capBlocks []any
	if len(caption) > 0 {
		capBlocks = []any{Plain(caption...)}
	} else {
		capBlocks = []any{}
	}
	return Element{Tag: TagFigure, Content: []any{
		Attr{ID: id}.Value(),
		[]any{nil, capBlocks},
		[]any{Plain(image)},
	}}
}

// Words splits text on spaces into Str and Space elements, the way pandoc
// tokenizes prose. Newlines become LineBreak.
func Words(text string) []Element {
	var out []Element
	line, rest := text, ""
	for {
		nl := strings.IndexByte(line, '\n')
		if nl >= 0 {
			line, rest = line[:nl], line[nl+1:]
		}
		start := 0
		for i := 0; i <= len(line); i++ {
			if i < len(line) && line[i] != ' ' {
				continue
			}
			if i > start {
				out = append(out, Str(line[start:i]))
			}
			if i < len(line) {
				out = append(out, Space())
			}
			start = i + 1
		}
		if nl < 0 {
			return out
		}
		out = append(out, LineBreak())
		line = rest
	}
}
