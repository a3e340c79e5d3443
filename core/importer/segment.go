package importer

import "github.com/gaurav-prasanna/flatdoc/core/pandoc"

type segmentKind int

const (
	textSegment segmentKind = iota
	imageSegment
	formulaSegment
)

// segment is a run of inlines that becomes one node.
type segment struct {
	kind    segmentKind
	inlines []pandoc.Element
}

// segmentInlines splits a paragraph's inlines at images and math. Every
// image and formula is a segment of its own; the inlines between them are
// grouped into text segments. The input is not modified.
func segmentInlines(inl []pandoc.Element) []segment {
	var out []segment
	for _, e := range inl {
		switch e.Tag {
		case pandoc.TagImage:
			out = append(out, segment{kind: imageSegment, inlines: []pandoc.Element{e}})
		case pandoc.TagMath:
			out = append(out, segment{kind: formulaSegment, inlines: []pandoc.Element{e}})
		default:
			if n := len(out); n > 0 && out[n-1].kind == textSegment {
				out[n-1].inlines = append(out[n-1].inlines, e)
				continue
			}
			out = append(out, segment{kind: textSegment, inlines: []pandoc.Element{e}})
		}
	}
	return out
}

// blank reports whether a text segment holds only whitespace elements.
func (seg segment) blank() bool {
	if seg.kind != textSegment {
		return false
	}
	for _, e := range seg.inlines {
		switch e.Tag {
		case pandoc.TagSpace, pandoc.TagSoftBreak, pandoc.TagLineBreak:
		default:
			return false
		}
	}
	return true
}
