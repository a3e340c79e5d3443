// Package exporter rebuilds a pandoc AST from a flat document.
//
// Nodes are visited in view order. The content of every text node is passed
// through the fragmenter together with its annotations, and the resulting
// span tree is rendered as nested pandoc inlines.
package exporter

import (
	"maps"
	"strings"

	"github.com/phuslu/log"

	"github.com/gaurav-prasanna/flatdoc/core"
	"github.com/gaurav-prasanna/flatdoc/core/doc"
	"github.com/gaurav-prasanna/flatdoc/core/fragment"
	"github.com/gaurav-prasanna/flatdoc/core/logging"
	"github.com/gaurav-prasanna/flatdoc/core/pandoc"
)

// Options configures an Exporter.
type Options struct {
	// Levels orders annotations with identical ranges. Types missing from it
	// are not exported.
	Levels fragment.Levels
	// Marks maps annotation types to inline element tags.
	Marks map[string]string
	// SpanClasses maps annotation types exported as a classed Span.
	SpanClasses map[string]string
	// Encoding selects the element encoding of the result.
	Encoding pandoc.Encoding
	// View is the view to export; empty means "content".
	View   string
	Logger *log.Logger
}

// DefaultLevels extends fragment.DefaultLevels with cross references.
func DefaultLevels() fragment.Levels {
	l := fragment.DefaultLevels()
	l["cross_reference"] = 0
	return l
}

// DefaultMarks returns the annotation type to tag table used when
// Options.Marks is nil.
func DefaultMarks() map[string]string {
	return map[string]string{
		doc.AnnotationEmphasis:    pandoc.TagEmph,
		doc.AnnotationStrong:      pandoc.TagStrong,
		doc.AnnotationCode:        pandoc.TagCode,
		doc.AnnotationLink:        pandoc.TagLink,
		doc.AnnotationSubscript:   pandoc.TagSubscript,
		doc.AnnotationSuperscript: pandoc.TagSuperscript,
		doc.AnnotationUnderline:   pandoc.TagUnderline,
		"strikeout":               pandoc.TagStrikeout,
	}
}

// DefaultSpanClasses returns the table used when Options.SpanClasses is nil.
func DefaultSpanClasses() map[string]string {
	return map[string]string{"cross_reference": "xref"}
}

// Exporter converts flat documents. Like the importer it keeps no per-call
// state and is safe for concurrent use.
type Exporter struct {
	opts   Options
	logger *log.Logger
}

var _ core.Exporter = (*Exporter)(nil)

// New creates an Exporter.
func New(opts Options) *Exporter {
	if opts.Levels == nil {
		opts.Levels = DefaultLevels()
	}
	if opts.Marks == nil {
		opts.Marks = DefaultMarks()
	}
	if opts.SpanClasses == nil {
		opts.SpanClasses = DefaultSpanClasses()
	}
	if opts.View == "" {
		opts.View = doc.DefaultView
	}
	return &Exporter{opts: opts, logger: logging.OrNop(opts.Logger)}
}

// Export returns the pandoc document for d. The document id is written to
// meta.doc_id so a later import keeps it.
func (ex *Exporter) Export(d *doc.Document) (*pandoc.Document, error) {
	if d == nil {
		return nil, core.NewExporterError("", "no document")
	}
	w := &walk{ex: ex, doc: d, index: doc.NewAnnotationIndex(d)}

	blocks := []pandoc.Element{}
	for _, id := range d.View(ex.opts.View) {
		b, err := w.block(id)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b...)
	}

	meta := make(map[string]any, len(d.Meta)+1)
	maps.Copy(meta, d.Meta)
	meta["doc_id"] = d.ID

	ex.logger.Debug().Str("doc", d.ID).Str("view", ex.opts.View).Int("blocks", len(blocks)).Msg("export complete")
	return &pandoc.Document{Meta: pandoc.MetaValues(meta), Blocks: blocks, Encoding: ex.opts.Encoding}, nil
}

// walk is the state of one Export call.
type walk struct {
	ex    *Exporter
	doc   *doc.Document
	index *doc.AnnotationIndex
}

func (w *walk) node(id string) (doc.Node, error) {
	n, ok := w.doc.Get(id)
	if !ok {
		return nil, core.NewExporterError(id, "node not found")
	}
	return n, nil
}

func (w *walk) block(id string) ([]pandoc.Element, error) {
	n, err := w.node(id)
	if err != nil {
		return nil, err
	}
	switch n := n.(type) {
	case *doc.Heading:
		inl, err := w.inlines(n.ID, n.Content)
		if err != nil {
			return nil, err
		}
		return one(pandoc.Header(n.Level, Slug(n.Content), inl...)), nil
	case *doc.Paragraph:
		inl, err := w.inlines(n.ID, n.Content)
		if err != nil {
			return nil, err
		}
		return one(pandoc.Para(inl...)), nil
	case *doc.List:
		return w.list(n)
	case *doc.CodeBlock:
		return one(pandoc.CodeBlock(n.Language, n.Content)), nil
	case *doc.Image:
		img, err := w.image(n)
		if err != nil {
			return nil, err
		}
		return one(pandoc.Para(img)), nil
	case *doc.Figure:
		return w.figure(n)
	case *doc.Formula:
		return one(pandoc.Para(pandoc.Math(!n.Inline, n.Data))), nil
	case *doc.Table:
		return w.table(n)
	case *doc.RichParagraph:
		var inl []pandoc.Element
		for _, child := range n.Children {
			part, err := w.richChild(child)
			if err != nil {
				return nil, err
			}
			inl = append(inl, part...)
		}
		return one(pandoc.Para(inl...)), nil
	default:
		return nil, core.NewExporterError(id, "unknown node type %q", n.NodeType())
	}
}

func one(e pandoc.Element) []pandoc.Element { return []pandoc.Element{e} }

// inlines fragments a text node and renders the fragments.
func (w *walk) inlines(id, text string) ([]pandoc.Element, error) {
	frags, err := fragment.Build(id, text, w.index.ForNode(id), w.ex.opts.Levels)
	if err != nil {
		return nil, err
	}
	return w.fragments(frags), nil
}

// paragraphInlines returns the inlines of a paragraph node, or nil for "".
func (w *walk) paragraphInlines(id string) ([]pandoc.Element, error) {
	if id == "" {
		return nil, nil
	}
	n, err := w.node(id)
	if err != nil {
		return nil, err
	}
	p, ok := n.(*doc.Paragraph)
	if !ok {
		return nil, core.NewExporterError(id, "%s where a paragraph is expected", n.NodeType())
	}
	return w.inlines(p.ID, p.Content)
}

func (w *walk) fragments(frags []*fragment.Fragment) []pandoc.Element {
	var out []pandoc.Element
	for _, f := range frags {
		if f.IsText() {
			out = append(out, pandoc.Words(f.Text)...)
			continue
		}
		out = append(out, w.span(f)...)
	}
	return out
}

func (w *walk) span(f *fragment.Fragment) []pandoc.Element {
	a := f.Annotation
	if class, ok := w.ex.opts.SpanClasses[a.Type]; ok {
		attr := pandoc.Attr{Classes: []string{class}}
		if a.Target != "" {
			attr.KeyVals = [][2]string{{"rid", w.sourceID(a.Target)}}
		}
		return one(pandoc.Span(attr, w.fragments(f.Children)...))
	}
	tag, ok := w.ex.opts.Marks[a.Type]
	if !ok {
		return w.fragments(f.Children)
	}
	switch tag {
	case pandoc.TagCode:
		return one(pandoc.Code(f.PlainText()))
	case pandoc.TagLink:
		return one(pandoc.Link(a.URL, a.Title, w.fragments(f.Children)...))
	default:
		return one(pandoc.Mark(tag, w.fragments(f.Children)...))
	}
}

// sourceID returns the identifier a reference target is exported under.
func (w *walk) sourceID(target string) string {
	if n, ok := w.doc.Get(target); ok {
		if fig, ok := n.(*doc.Figure); ok && fig.SourceID != "" {
			return fig.SourceID
		}
	}
	return target
}

func (w *walk) list(n *doc.List) ([]pandoc.Element, error) {
	items := make([][]pandoc.Element, 0, len(n.Items))
	for _, id := range n.Items {
		child, err := w.node(id)
		if err != nil {
			return nil, err
		}
		if p, ok := child.(*doc.Paragraph); ok {
			inl, err := w.inlines(p.ID, p.Content)
			if err != nil {
				return nil, err
			}
			items = append(items, one(pandoc.Plain(inl...)))
			continue
		}
		blocks, err := w.block(id)
		if err != nil {
			return nil, err
		}
		items = append(items, blocks)
	}
	if n.Ordered {
		return one(pandoc.OrderedList(items...)), nil
	}
	return one(pandoc.BulletList(items...)), nil
}

func (w *walk) image(n *doc.Image) (pandoc.Element, error) {
	caption, err := w.paragraphInlines(n.Caption)
	if err != nil {
		return pandoc.Element{}, err
	}
	return pandoc.Image(n.URL, n.Title, caption...), nil
}

// figure writes a Figure block in the modern encoding. The legacy encoding
// has none, so pandoc's implicit figure is used: a paragraph holding one
// image titled "fig:".
func (w *walk) figure(n *doc.Figure) ([]pandoc.Element, error) {
	in, err := w.node(n.Image)
	if err != nil {
		return nil, err
	}
	img, ok := in.(*doc.Image)
	if !ok {
		return nil, core.NewExporterError(n.ID, "figure image %s is a %s", n.Image, in.NodeType())
	}
	caption, err := w.paragraphInlines(n.Caption)
	if err != nil {
		return nil, err
	}
	if w.ex.opts.Encoding == pandoc.Modern {
		return one(pandoc.Figure(n.SourceID, caption, pandoc.Image(img.URL, img.Title))), nil
	}
	return one(pandoc.Para(pandoc.Image(img.URL, "fig:"+img.Title, caption...))), nil
}

func (w *walk) table(n *doc.Table) ([]pandoc.Element, error) {
	caption, err := w.paragraphInlines(n.Caption)
	if err != nil {
		return nil, err
	}
	headers := make([][]pandoc.Element, 0, len(n.Headers))
	for _, id := range n.Headers {
		cell, err := w.cell(id)
		if err != nil {
			return nil, err
		}
		headers = append(headers, cell)
	}
	rows := make([][][]pandoc.Element, 0, len(n.Cells))
	for _, row := range n.Cells {
		line := make([][]pandoc.Element, 0, len(row))
		for _, id := range row {
			cell, err := w.cell(id)
			if err != nil {
				return nil, err
			}
			line = append(line, cell)
		}
		rows = append(rows, line)
	}
	return one(pandoc.Table(caption, headers, rows)), nil
}

// cell returns the blocks of a table cell; an empty cell has none.
func (w *walk) cell(id string) ([]pandoc.Element, error) {
	inl, err := w.paragraphInlines(id)
	if err != nil {
		return nil, err
	}
	if len(inl) == 0 {
		return []pandoc.Element{}, nil
	}
	return one(pandoc.Plain(inl...)), nil
}

// richChild renders one child of a richparagraph as inlines.
func (w *walk) richChild(id string) ([]pandoc.Element, error) {
	n, err := w.node(id)
	if err != nil {
		return nil, err
	}
	switch n := n.(type) {
	case *doc.Paragraph:
		return w.inlines(n.ID, n.Content)
	case *doc.Image:
		img, err := w.image(n)
		if err != nil {
			return nil, err
		}
		return one(img), nil
	case *doc.Formula:
		return one(pandoc.Math(!n.Inline, n.Data)), nil
	default:
		return nil, core.NewExporterError(id, "%s cannot be part of a richparagraph", n.NodeType())
	}
}

// Slug is the identifier written for a heading: its words lowercased and
// joined by "-".
func Slug(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), "-")
}
