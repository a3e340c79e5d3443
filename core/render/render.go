// Package render provides the output renderers of a flat document.
//
// Every renderer walks the nodes of one view in order and expands the text
// of each node with its annotations through the fragmenter, the same way the
// pandoc exporter does.
package render

import (
	"github.com/phuslu/log"

	"github.com/gaurav-prasanna/flatdoc/core"
	"github.com/gaurav-prasanna/flatdoc/core/doc"
	"github.com/gaurav-prasanna/flatdoc/core/exporter"
	"github.com/gaurav-prasanna/flatdoc/core/fragment"
)

// Options configures the renderers. Zero values select the defaults.
type Options struct {
	// Levels orders annotations with identical ranges; see fragment.Levels.
	Levels fragment.Levels
	// View is the view to render; empty means "content".
	View string
	// Sanitize passes HTML output through a bluemonday policy.
	Sanitize bool
	// PageSize is the PDF page size, "A4" when empty.
	PageSize string
	Logger   *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Levels == nil {
		o.Levels = exporter.DefaultLevels()
	}
	if o.View == "" {
		o.View = doc.DefaultView
	}
	if o.PageSize == "" {
		o.PageSize = "A4"
	}
	return o
}

// walker resolves node ids and fragments text for one render call.
type walker struct {
	doc    *doc.Document
	index  *doc.AnnotationIndex
	levels fragment.Levels
}

func newWalker(d *doc.Document, levels fragment.Levels) *walker {
	return &walker{doc: d, index: doc.NewAnnotationIndex(d), levels: levels}
}

func (w *walker) node(id string) (doc.Node, error) {
	n, ok := w.doc.Get(id)
	if !ok {
		return nil, core.NewExporterError(id, "node not found")
	}
	return n, nil
}

func (w *walker) fragments(id, text string) ([]*fragment.Fragment, error) {
	return fragment.Build(id, text, w.index.ForNode(id), w.levels)
}

// paragraph resolves an optional caption or cell reference.
func (w *walker) paragraph(id string) (*doc.Paragraph, error) {
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
	return p, nil
}

func (w *walker) image(id string) (*doc.Image, error) {
	n, err := w.node(id)
	if err != nil {
		return nil, err
	}
	img, ok := n.(*doc.Image)
	if !ok {
		return nil, core.NewExporterError(id, "%s where an image is expected", n.NodeType())
	}
	return img, nil
}

// caption returns the plain text of an optional caption paragraph.
func (w *walker) caption(id string) (string, error) {
	p, err := w.paragraph(id)
	if err != nil || p == nil {
		return "", err
	}
	return p.Content, nil
}

// anchor is the fragment identifier a cross reference to id points at.
func (w *walker) anchor(id string) string {
	if n, ok := w.doc.Get(id); ok {
		if fig, ok := n.(*doc.Figure); ok && fig.SourceID != "" {
			return fig.SourceID
		}
	}
	return id
}

func unknown(n doc.Node) error {
	return core.NewExporterError(n.NodeID(), "unknown node type %q", n.NodeType())
}
