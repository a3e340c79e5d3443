// Package source resolves an input format name to the parser that turns
// bytes of that format into a pandoc AST.
//
// json, markdown, html and nlm are read natively. Every other format name is
// handed to the transcoder, which converts it to pandoc JSON first.
package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/phuslu/log"

	"github.com/gaurav-prasanna/flatdoc/core"
	"github.com/gaurav-prasanna/flatdoc/core/extract"
	"github.com/gaurav-prasanna/flatdoc/core/logging"
	"github.com/gaurav-prasanna/flatdoc/core/markdown"
	"github.com/gaurav-prasanna/flatdoc/core/nlm"
	"github.com/gaurav-prasanna/flatdoc/core/normalize"
	"github.com/gaurav-prasanna/flatdoc/core/pandoc"
)

// Native input formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatNLM      = "nlm"
)

// Detect guesses the input format from a file name or URL path.
func Detect(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return FormatJSON, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	case ".html", ".htm", ".xhtml":
		return FormatHTML, nil
	case ".xml", ".nxml":
		return FormatNLM, nil
	case ".tex":
		return "latex", nil
	case "":
		return "", fmt.Errorf("%w: cannot detect format of %q, use --from", core.ErrUnsupportedFormat, path)
	default:
		// pandoc names most formats after their extension (docx, rst, odt, ...).
		return strings.TrimPrefix(ext, "."), nil
	}
}

// DetectContentType maps an HTTP Content-Type to an input format.
func DetectContentType(contentType string) (string, bool) {
	mediaType, _, _ := strings.Cut(strings.ToLower(contentType), ";")
	switch strings.TrimSpace(mediaType) {
	case "text/html", "application/xhtml+xml":
		return FormatHTML, true
	case "application/json":
		return FormatJSON, true
	case "text/markdown", "text/x-markdown":
		return FormatMarkdown, true
	case "application/xml", "text/xml", "application/jats+xml":
		return FormatNLM, true
	}
	return "", false
}

// ParserFunc adapts a function to core.Parser.
type ParserFunc func(src []byte) (*pandoc.Document, error)

// Parse calls f.
func (f ParserFunc) Parse(src []byte) (*pandoc.Document, error) { return f(src) }

// Resolver builds parsers by format name.
type Resolver struct {
	// Transcoder handles non-native formats. Nil disables them.
	Transcoder core.Transcoder
	// Domain resolves relative links of HTML input, e.g. "example.com".
	Domain string
	Logger *log.Logger
}

// Parser returns the parser for format. ctx bounds transcoder runs.
func (r *Resolver) Parser(ctx context.Context, format string) (core.Parser, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		return ParserFunc(pandoc.Decode), nil
	case FormatMarkdown, "md", "commonmark", "gfm":
		return markdown.New(), nil
	case FormatHTML:
		return NewHTMLParser(r.Domain), nil
	case FormatNLM, "jats":
		return nlm.New(), nil
	case "":
		return nil, fmt.Errorf("%w: empty format", core.ErrUnsupportedFormat)
	}
	if r.Transcoder == nil {
		return nil, fmt.Errorf("%w: %s (needs pandoc)", core.ErrUnsupportedFormat, format)
	}
	logger := logging.OrNop(r.Logger)
	t := r.Transcoder
	return ParserFunc(func(src []byte) (*pandoc.Document, error) {
		logger.Debug().Str("format", format).Msg("transcoding input to pandoc json")
		out, err := t.Transcode(ctx, src, format, FormatJSON)
		if err != nil {
			return nil, err
		}
		return pandoc.Decode(out)
	}), nil
}

// HTMLParser reads a web page: the main content is extracted, converted to
// Markdown and parsed from there. The page title becomes meta.title unless
// the content already sets one.
type HTMLParser struct {
	extractor  *extract.HTMLExtractor
	normalizer *normalize.MarkdownNormalizer
	markdown   *markdown.Parser
}

var (
	_ core.Parser              = (*HTMLParser)(nil)
	_ core.MultiNodeItemSource = (*HTMLParser)(nil)
)

// NewHTMLParser creates an HTMLParser. domain may be empty.
func NewHTMLParser(domain string) *HTMLParser {
	n := normalize.New()
	if domain != "" {
		n = normalize.NewForDomain(domain)
	}
	return &HTMLParser{extractor: extract.New(), normalizer: n, markdown: markdown.New()}
}

// SupportsMultiNodeItems reports true, as for Markdown.
func (p *HTMLParser) SupportsMultiNodeItems() bool { return true }

// Parse reads an HTML page.
func (p *HTMLParser) Parse(src []byte) (*pandoc.Document, error) {
	page, err := p.extractor.ExtractPage(string(src))
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	md, err := p.normalizer.Normalize(page.Content)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	d, err := p.markdown.Parse([]byte(md))
	if err != nil {
		return nil, err
	}

	extra := map[string]any{}
	if _, ok := d.Meta["title"]; !ok && page.Title != "" {
		extra["title"] = page.Title
	}
	if _, ok := d.Meta["lang"]; !ok && page.Language != "" {
		extra["lang"] = page.Language
	}
	for k, v := range pandoc.MetaValues(extra) {
		d.Meta[k] = v
	}
	return d, nil
}

// MultiNodeItems reports whether p declares list items with several blocks.
func MultiNodeItems(p core.Parser) bool {
	m, ok := p.(core.MultiNodeItemSource)
	return ok && m.SupportsMultiNodeItems()
}
