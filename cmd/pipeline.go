package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/phuslu/log"

	"github.com/gaurav-prasanna/flatdoc/core"
	"github.com/gaurav-prasanna/flatdoc/core/config"
	"github.com/gaurav-prasanna/flatdoc/core/doc"
	"github.com/gaurav-prasanna/flatdoc/core/exporter"
	"github.com/gaurav-prasanna/flatdoc/core/fetch"
	"github.com/gaurav-prasanna/flatdoc/core/importer"
	"github.com/gaurav-prasanna/flatdoc/core/logging"
	"github.com/gaurav-prasanna/flatdoc/core/nlm"
	"github.com/gaurav-prasanna/flatdoc/core/output"
	"github.com/gaurav-prasanna/flatdoc/core/pandoc"
	"github.com/gaurav-prasanna/flatdoc/core/render"
	"github.com/gaurav-prasanna/flatdoc/core/source"
	"github.com/gaurav-prasanna/flatdoc/core/store"
)

// allFormats are the outputs written by --to all.
var allFormats = []string{"flatdoc", "json", "html", "markdown", "pdf"}

// pipeline holds the configuration and components shared by one command run.
type pipeline struct {
	cfg     *config.Config
	logger  *log.Logger
	fetcher core.Fetcher
}

// newPipeline loads the config file and applies the persistent flags.
func newPipeline() (*pipeline, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Log.Format = flagLogFormat
	}
	if flagDB != "" {
		cfg.Store.Path = flagDB
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &pipeline{
		cfg:     cfg,
		logger:  logging.New(cfg.Log.Level, cfg.Log.Format),
		fetcher: fetch.New(),
	}, nil
}

// input is a source document read into memory.
type input struct {
	location string
	format   string
	domain   string
	data     []byte
}

// read loads location, a file path, an http(s) URL or "-" for stdin. from
// overrides format detection.
func (p *pipeline) read(ctx context.Context, location, from string, stdin io.Reader) (*input, error) {
	in := &input{location: location, format: from}

	switch {
	case location == "-":
		if from == "" {
			return nil, errors.New("--from is required when reading stdin")
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		in.data = data
	case output.IsURL(location):
		result, err := p.fetcher.Fetch(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}
		in.data = result.Body
		if u, err := url.Parse(location); err == nil {
			in.domain = u.Host
			if in.format == "" {
				if f, ok := source.DetectContentType(result.ContentType); ok {
					in.format = f
				} else if f, err := source.Detect(u.Path); err == nil {
					in.format = f
				}
			}
		}
		if in.format == "" {
			in.format = source.FormatHTML
		}
		p.logger.Info().Str("url", location).Int("bytes", len(in.data)).Str("format", in.format).Msg("fetched")
	default:
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", location, err)
		}
		in.data = data
		if in.format == "" {
			f, err := source.Detect(location)
			if err != nil {
				return nil, err
			}
			in.format = f
		}
	}
	return in, nil
}

// load parses in and imports it into a document model.
func (p *pipeline) load(ctx context.Context, in *input, strict bool) (*doc.Document, *core.Report, error) {
	resolver := &source.Resolver{
		Transcoder: p.cfg.Transcoder(p.logger),
		Domain:     in.domain,
		Logger:     p.logger,
	}
	parser, err := resolver.Parser(ctx, in.format)
	if err != nil {
		return nil, nil, err
	}
	src, err := parser.Parse(in.data)
	if err != nil {
		return nil, nil, fmt.Errorf("parse: %w", err)
	}

	opts := p.cfg.ImporterOptions(p.logger)
	opts.Strict = opts.Strict || strict
	opts.MultiNodeItems = opts.MultiNodeItems || source.MultiNodeItems(parser)
	if opts.FigureView == "" && strings.EqualFold(in.format, source.FormatNLM) {
		opts.FigureView = nlm.FigureView
	}

	d, report, err := importer.New(opts).Import(src)
	if err != nil {
		return nil, nil, fmt.Errorf("import: %w", err)
	}
	p.logger.Info().Str("doc", d.ID).Int("nodes", d.Len()).Int("warnings", len(report.Warnings)).Msg("imported")
	return d, report, nil
}

func (p *pipeline) openStore() (*store.SQLite, error) {
	s, err := store.Open(p.cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return s, nil
}

// renderers returns the renderers for --to, which is a single format name
// or "all".
func (p *pipeline) renderers(ctx context.Context, to string) ([]core.Renderer, error) {
	names := []string{to}
	if strings.EqualFold(to, "all") {
		names = allFormats
	}
	out := make([]core.Renderer, 0, len(names))
	for _, name := range names {
		r, err := p.selectRenderer(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// selectRenderer creates the Renderer for one format name. Names flatdoc
// does not render itself are produced by pandoc from the exported AST.
func (p *pipeline) selectRenderer(ctx context.Context, name string) (core.Renderer, error) {
	switch strings.ToLower(name) {
	case "flatdoc":
		return render.NewDocumentRenderer(), nil
	case "json":
		return render.NewPandocRenderer(exporter.New(p.cfg.ExporterOptions(p.logger)), p.cfg.Encoding()), nil
	case "html":
		return render.NewHTMLRenderer(p.cfg.RenderOptions(p.logger)), nil
	case "markdown", "md":
		return render.NewMarkdownRenderer(p.cfg.RenderOptions(p.logger)), nil
	case "pdf":
		return render.NewPDFRenderer(p.cfg.RenderOptions(p.logger)), nil
	case "", "all":
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, name)
	}
	opts := p.cfg.ExporterOptions(p.logger)
	opts.Encoding = pandoc.Modern
	return render.NewFormatRenderer(ctx, exporter.New(opts), p.cfg.Transcoder(p.logger), name), nil
}

// write renders d with every renderer and writes the results next to
// each other as name plus the renderer's extension.
func (p *pipeline) write(out io.Writer, d *doc.Document, name string, renderers []core.Renderer, dir string) error {
	writer, err := output.New(dir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}
	for _, r := range renderers {
		data, err := r.Render(d)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		path, err := writer.WriteAs(name, data, r.Extension())
		if err != nil {
			return fmt.Errorf("write: %w", err)
		}
		fmt.Fprintf(out, "✓ Written: %s\n", path)
	}
	return nil
}

func printWarnings(w io.Writer, report *core.Report) {
	if report.Empty() {
		return
	}
	for _, warn := range report.Warnings {
		fmt.Fprintf(w, "  ! %s %s: %s\n", warn.Kind, warn.Element, warn.Message)
	}
}
