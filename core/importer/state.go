package importer

import (
	"fmt"

	"github.com/gaurav-prasanna/flatdoc/core"
	"github.com/gaurav-prasanna/flatdoc/core/doc"
	"github.com/gaurav-prasanna/flatdoc/core/ids"
)

// target is one entry of the target stack: the node accepting inline text
// and the running offset into its content.
type target struct {
	id     string
	offset int
}

// state is everything one Import call mutates.
type state struct {
	doc     *doc.Document
	ids     *ids.Generator
	targets []target
	pending []*doc.Annotation
	flushed bool
	// sourceIDs maps identifiers found in the source to node ids.
	sourceIDs map[string]string
	report    *core.Report
}

func newState(d *doc.Document) *state {
	return &state{
		doc:       d,
		ids:       ids.New(),
		sourceIDs: make(map[string]string),
		report:    &core.Report{},
	}
}

// withTarget makes id the current target while fn runs. The entry is popped
// even when fn fails.
func (s *state) withTarget(id string, fn func() error) error {
	s.targets = append(s.targets, target{id: id})
	defer func() { s.targets = s.targets[:len(s.targets)-1] }()
	return fn()
}

func (s *state) current() (*target, bool) {
	if len(s.targets) == 0 {
		return nil, false
	}
	return &s.targets[len(s.targets)-1], true
}

// advance moves the current offset by n code points.
func (s *state) advance(n int) {
	if t, ok := s.current(); ok {
		t.offset += n
	}
}

// reserve takes the next slot of the deferral queue. The caller fills it
// once the annotation's range is known.
func (s *state) reserve() int {
	s.pending = append(s.pending, nil)
	return len(s.pending) - 1
}

// flush materializes the deferral queue. It runs once per call, after the
// walk; a second call is a programming error.
func (s *state) flush() error {
	if s.flushed {
		return fmt.Errorf("annotation queue already flushed")
	}
	s.flushed = true
	for _, a := range s.pending {
		if a.Target != "" {
			if id, ok := s.sourceIDs[a.Target]; ok {
				a.Target = id
			}
		}
		if err := s.doc.AddAnnotation(a); err != nil {
			return &core.ImporterError{Element: a.Type, Message: "materialize annotation", Err: err}
		}
	}
	s.pending = nil
	return s.checkRanges()
}

// checkRanges verifies every annotation fits the content it addresses.
func (s *state) checkRanges() error {
	ix := doc.NewAnnotationIndex(s.doc)
	for _, id := range ix.Nodes() {
		text, err := s.doc.Text(doc.Path{id, doc.ContentProperty})
		if err != nil {
			return &core.ImporterError{Message: "check annotation ranges", Err: err}
		}
		n := doc.TextLen(text)
		all := ix.ForNode(id)
		if inside := ix.InRange(id, 0, n); len(inside) != len(all) {
			return core.NewImporterError("", "node %s has annotations outside its content", id)
		}
	}
	return nil
}

func (s *state) warn(kind core.WarningKind, element, msg string) {
	s.report.Add(kind, element, msg)
}
