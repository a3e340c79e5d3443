// Package fragment turns a node's flat text and its range annotations back
// into a nested tree of spans.
//
// The sweep visits every breakpoint (0, the text length and each annotation
// boundary). For each stretch of text between two breakpoints it computes the
// annotations covering the stretch, ordered outermost first, and aligns the
// stack of open spans with that order: spans past the longest common prefix
// are closed and the missing ones opened. Properly nested annotations are
// therefore never split, while partially crossing ones are split at the
// boundary where they cross.
package fragment

import (
	"sort"
	"strings"

	"github.com/gaurav-prasanna/flatdoc/core"
	"github.com/gaurav-prasanna/flatdoc/core/doc"
)

// Levels maps annotation types to nesting priorities. Among annotations with
// identical ranges the lower level is the outer span. Types missing from the
// map are transparent: their text stays in the parent span.
type Levels map[string]int

// DefaultLevels returns the built-in priorities: links outermost, code
// innermost because a code span cannot contain other marks.
func DefaultLevels() Levels {
	return Levels{
		doc.AnnotationLink:        0,
		doc.AnnotationEmphasis:    1,
		doc.AnnotationStrong:      1,
		doc.AnnotationUnderline:   1,
		"strikeout":               1,
		doc.AnnotationSubscript:   2,
		doc.AnnotationSuperscript: 2,
		doc.AnnotationCode:        3,
	}
}

// Fragment is either a text leaf (Annotation is nil) or a span wrapping
// its children.
type Fragment struct {
	Annotation *doc.Annotation
	Text       string
	Children   []*Fragment
}

// IsText reports whether f is a text leaf.
func (f *Fragment) IsText() bool { return f.Annotation == nil }

// PlainText returns the text under f.
func (f *Fragment) PlainText() string {
	if f.IsText() {
		return f.Text
	}
	return PlainText(f.Children)
}

// PlainText concatenates the text of a fragment list.
func PlainText(frags []*Fragment) string {
	var sb strings.Builder
	for _, f := range frags {
		sb.WriteString(f.PlainText())
	}
	return sb.String()
}

type entry struct {
	ann   *doc.Annotation
	level int
	index int
}

func (e *entry) start() int { return e.ann.Range.Start() }
func (e *entry) end() int   { return e.ann.Range.End() }

// outer orders entries outermost first.
func outer(a, b *entry) bool {
	if a.start() != b.start() {
		return a.start() < b.start()
	}
	if a.end() != b.end() {
		return a.end() > b.end()
	}
	if a.level != b.level {
		return a.level < b.level
	}
	return a.index < b.index
}

type frame struct {
	entry *entry
	frag  *Fragment
}

// Build nests the annotations of one node over its text. nodeID is used in
// errors only. A range that does not fit the text is an *core.ExporterError.
func Build(nodeID, text string, anns []*doc.Annotation, levels Levels) ([]*Fragment, error) {
	runes := []rune(text)
	n := len(runes)

	var entries []*entry
	for i, a := range anns {
		if !a.Range.Within(n) {
			return nil, core.NewExporterError(nodeID, "annotation %s range [%d, %d] does not fit content of length %d",
				a.ID, a.Range.Start(), a.Range.End(), n)
		}
		level, ok := levels[a.Type]
		if !ok {
			continue
		}
		entries = append(entries, &entry{ann: a, level: level, index: i})
	}
	sort.Slice(entries, func(i, j int) bool { return outer(entries[i], entries[j]) })

	breaks := breakpoints(n, entries)
	root := &Fragment{}
	var stack []frame
	top := func() *Fragment {
		if len(stack) == 0 {
			return root
		}
		return stack[len(stack)-1].frag
	}

	for i, b := range breaks {
		if empties := emptyAt(entries, b); len(empties) > 0 {
			k := 0
			for k < len(stack) && stack[k].entry.start() < b && stack[k].entry.end() > b {
				k++
			}
			stack = stack[:k]
			for _, e := range empties {
				parent := top()
				parent.Children = append(parent.Children, &Fragment{Annotation: e.ann})
			}
		}
		if i == len(breaks)-1 {
			break
		}
		next := breaks[i+1]

		active := covering(entries, b, next)
		k := 0
		for k < len(stack) && k < len(active) && stack[k].entry == active[k] {
			k++
		}
		stack = stack[:k]
		for _, e := range active[k:] {
			f := &Fragment{Annotation: e.ann}
			parent := top()
			parent.Children = append(parent.Children, f)
			stack = append(stack, frame{entry: e, frag: f})
		}
		parent := top()
		parent.Children = append(parent.Children, &Fragment{Text: string(runes[b:next])})
	}
	return root.Children, nil
}

func breakpoints(n int, entries []*entry) []int {
	seen := map[int]bool{0: true, n: true}
	for _, e := range entries {
		seen[e.start()] = true
		seen[e.end()] = true
	}
	out := make([]int, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Ints(out)
	return out
}

// emptyAt returns the zero-length entries at offset b, outermost first.
func emptyAt(entries []*entry, b int) []*entry {
	var out []*entry
	for _, e := range entries {
		if e.start() == b && e.end() == b {
			out = append(out, e)
		}
	}
	return out
}

// covering returns the entries spanning [from, to), outermost first.
func covering(entries []*entry, from, to int) []*entry {
	var out []*entry
	for _, e := range entries {
		if e.start() <= from && e.end() >= to && e.start() < e.end() {
			out = append(out, e)
		}
	}
	return out
}
