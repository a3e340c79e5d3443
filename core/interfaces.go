// Package core defines the pipeline interfaces for flatdoc.
// Each stage of a conversion is a clean, testable interface: sources are
// fetched and parsed into a pandoc AST, imported into the flat document
// model, and rendered back out.
package core

import (
	"context"
	"time"

	"github.com/gaurav-prasanna/flatdoc/core/doc"
	"github.com/gaurav-prasanna/flatdoc/core/pandoc"
)

// FetchResult holds the raw body and response metadata from a fetch.
type FetchResult struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// WarningKind classifies a construct the importer skipped.
type WarningKind string

const (
	WarnUnknownBlock  WarningKind = "unknown_block"
	WarnUnknownInline WarningKind = "unknown_inline"
	WarnDropped       WarningKind = "dropped"
)

// Warning records one skipped construct in lenient mode.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Element string      `json:"element"`
	Message string      `json:"message"`
}

// Report collects the warnings of one conversion call.
type Report struct {
	Warnings []Warning `json:"warnings"`
}

// Add appends a warning.
func (r *Report) Add(kind WarningKind, element, msg string) {
	r.Warnings = append(r.Warnings, Warning{Kind: kind, Element: element, Message: msg})
}

// Empty reports whether nothing was recorded.
func (r *Report) Empty() bool { return r == nil || len(r.Warnings) == 0 }

// Fetcher retrieves a remote source document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// Extractor pulls the main content from raw HTML, stripping noise.
type Extractor interface {
	Extract(html string) (string, error)
}

// Normalizer converts cleaned HTML into Markdown.
type Normalizer interface {
	Normalize(html string) (string, error)
}

// Parser turns source bytes of one format into a pandoc AST.
type Parser interface {
	Parse(src []byte) (*pandoc.Document, error)
}

// MultiNodeItemSource is implemented by parsers whose list items may hold
// more than one block.
type MultiNodeItemSource interface {
	SupportsMultiNodeItems() bool
}

// Importer flattens a pandoc AST into a document model.
type Importer interface {
	Import(src *pandoc.Document) (*doc.Document, *Report, error)
}

// Exporter rebuilds a pandoc AST from a document model.
type Exporter interface {
	Export(d *doc.Document) (*pandoc.Document, error)
}

// Renderer converts a document model into a specific output format.
type Renderer interface {
	Render(d *doc.Document) ([]byte, error)
	Extension() string
}

// Transcoder converts between formats with an external tool.
type Transcoder interface {
	Transcode(ctx context.Context, input []byte, from, to string) ([]byte, error)
}

// StoredDocument is the listing entry of a stored document.
type StoredDocument struct {
	ID        string
	Title     string
	Source    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists document models.
type Store interface {
	Save(ctx context.Context, d *doc.Document, source string) error
	Load(ctx context.Context, id string) (*doc.Document, error)
	List(ctx context.Context) ([]StoredDocument, error)
	Delete(ctx context.Context, id string) error
}
