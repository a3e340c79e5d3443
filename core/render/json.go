package render

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gaurav-prasanna/flatdoc/core"
	"github.com/gaurav-prasanna/flatdoc/core/doc"
	"github.com/gaurav-prasanna/flatdoc/core/pandoc"
)

// DocumentRenderer writes the flat document model itself as JSON.
type DocumentRenderer struct{}

// NewDocumentRenderer creates a DocumentRenderer.
func NewDocumentRenderer() *DocumentRenderer {
	return &DocumentRenderer{}
}

// Render marshals d with its annotations nested under their nodes.
func (r *DocumentRenderer) Render(d *doc.Document) ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling document: %w", err)
	}
	return append(data, '\n'), nil
}

// Extension returns the file extension for document JSON.
func (r *DocumentRenderer) Extension() string {
	return ".flatdoc.json"
}

// PandocRenderer writes the pandoc JSON AST of a document.
type PandocRenderer struct {
	exporter core.Exporter
	encoding pandoc.Encoding
}

// NewPandocRenderer creates a PandocRenderer writing enc.
func NewPandocRenderer(ex core.Exporter, enc pandoc.Encoding) *PandocRenderer {
	return &PandocRenderer{exporter: ex, encoding: enc}
}

// Render exports d and encodes the result.
func (r *PandocRenderer) Render(d *doc.Document) ([]byte, error) {
	out, err := r.exporter.Export(d)
	if err != nil {
		return nil, err
	}
	return pandoc.Encode(out, r.encoding)
}

// Extension returns the file extension for pandoc JSON.
func (r *PandocRenderer) Extension() string {
	return ".json"
}

// FormatRenderer hands the pandoc JSON of a document to the transcoder to
// produce any format pandoc can write.
type FormatRenderer struct {
	ctx        context.Context
	exporter   core.Exporter
	transcoder core.Transcoder
	format     string
}

// NewFormatRenderer creates a FormatRenderer for format. The exporter must
// produce the modern encoding, which is the only one current pandoc reads.
// ctx bounds the transcoder runs.
func NewFormatRenderer(ctx context.Context, ex core.Exporter, t core.Transcoder, format string) *FormatRenderer {
	return &FormatRenderer{ctx: ctx, exporter: ex, transcoder: t, format: format}
}

// Render exports d and transcodes it.
func (r *FormatRenderer) Render(d *doc.Document) ([]byte, error) {
	out, err := r.exporter.Export(d)
	if err != nil {
		return nil, err
	}
	data, err := pandoc.Encode(out, pandoc.Modern)
	if err != nil {
		return nil, err
	}
	return r.transcoder.Transcode(r.ctx, data, "json", r.format)
}

// Extension is the format name as an extension, e.g. ".docx".
func (r *FormatRenderer) Extension() string {
	switch r.format {
	case "latex":
		return ".tex"
	case "plain":
		return ".txt"
	}
	return "." + r.format
}
