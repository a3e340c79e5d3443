// Package importer flattens a pandoc AST into the flat document model.
//
// The walk is a recursive descent over blocks. Text-bearing blocks are pushed
// on a target stack while their inlines are read; marks found in the inlines
// become annotations whose ranges are measured with a running offset. The
// annotations are queued and only added to the document once the whole tree
// has been walked, so every annotation path resolves to an existing node.
package importer

import (
	"fmt"

	"github.com/phuslu/log"

	"github.com/gaurav-prasanna/flatdoc/core"
	"github.com/gaurav-prasanna/flatdoc/core/doc"
	"github.com/gaurav-prasanna/flatdoc/core/ids"
	"github.com/gaurav-prasanna/flatdoc/core/logging"
	"github.com/gaurav-prasanna/flatdoc/core/pandoc"
)

// Options configures an Importer.
type Options struct {
	// Strict turns unsupported constructs into errors instead of warnings.
	Strict bool
	// MultiNodeItems allows a list item to produce more than one node.
	MultiNodeItems bool
	// FlattenSegments returns the nodes of a mixed paragraph as siblings
	// instead of grouping them under a richparagraph.
	FlattenSegments bool
	// FigureView is the view figures are shown in; empty means "content".
	FigureView string
	// Marks maps inline element tags to annotation types.
	Marks map[string]string
	// SpanClasses maps Span classes to annotation types.
	SpanClasses map[string]string
	Logger      *log.Logger
}

// DefaultMarks returns the tag to annotation type table used when
// Options.Marks is nil.
func DefaultMarks() map[string]string {
	return map[string]string{
		pandoc.TagEmph:        doc.AnnotationEmphasis,
		pandoc.TagStrong:      doc.AnnotationStrong,
		pandoc.TagCode:        doc.AnnotationCode,
		pandoc.TagLink:        doc.AnnotationLink,
		pandoc.TagSubscript:   doc.AnnotationSubscript,
		pandoc.TagSuperscript: doc.AnnotationSuperscript,
		pandoc.TagUnderline:   doc.AnnotationUnderline,
		pandoc.TagStrikeout:   "strikeout",
	}
}

// DefaultSpanClasses returns the Span class table used when
// Options.SpanClasses is nil.
func DefaultSpanClasses() map[string]string {
	return map[string]string{"xref": "cross_reference"}
}

// Importer converts pandoc documents. It holds only configuration, so one
// Importer may serve concurrent calls.
type Importer struct {
	opts   Options
	logger *log.Logger
}

var _ core.Importer = (*Importer)(nil)

// New creates an Importer.
func New(opts Options) *Importer {
	if opts.Marks == nil {
		opts.Marks = DefaultMarks()
	}
	if opts.SpanClasses == nil {
		opts.SpanClasses = DefaultSpanClasses()
	}
	return &Importer{opts: opts, logger: logging.OrNop(opts.Logger)}
}

// Import walks src and returns the populated document. On error nothing is
// returned; the partially built document is discarded.
func (im *Importer) Import(src *pandoc.Document) (*doc.Document, *core.Report, error) {
	if src == nil {
		return nil, nil, core.NewImporterError("", "no source document")
	}
	meta := pandoc.PlainMeta(src.Meta)
	d := doc.New(documentID(meta))
	d.Meta = meta

	s := newState(d)
	if err := im.document(s, src.Blocks); err != nil {
		return nil, nil, err
	}

	im.logger.Debug().Str("doc", d.ID).Int("nodes", d.Len()).
		Int("annotations", len(d.Annotations())).Int("warnings", len(s.report.Warnings)).
		Msg("import complete")
	return d, s.report, nil
}

// document walks the top-level blocks, shows what they produce and flushes
// the annotation queue exactly once at the end.
func (im *Importer) document(s *state, blocks []pandoc.Element) error {
	for _, b := range blocks {
		produced, err := im.block(s, b)
		if err != nil {
			return err
		}
		for _, id := range produced {
			s.doc.Show(im.viewFor(s, id), id)
		}
	}
	return s.flush()
}

func (im *Importer) viewFor(s *state, id string) string {
	if im.opts.FigureView != "" {
		if n, ok := s.doc.Get(id); ok && n.NodeType() == doc.TypeFigure {
			return im.opts.FigureView
		}
	}
	return doc.DefaultView
}

// unsupported reports a construct the importer has no handler for.
func (im *Importer) unsupported(s *state, kind core.WarningKind, tag string) error {
	if im.opts.Strict {
		return core.NewImporterError(tag, "unsupported element")
	}
	s.warn(kind, tag, "unsupported element skipped")
	im.logger.Warn().Str("element", tag).Str("kind", string(kind)).Msg("unsupported element skipped")
	return nil
}

func malformed(tag string, err error) error {
	return &core.ImporterError{Element: tag, Message: "malformed payload", Err: err}
}

func documentID(meta map[string]any) string {
	for _, key := range []string{"doc_id", "id"} {
		if v, ok := meta[key]; ok {
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
	}
	return ids.DocumentID()
}
