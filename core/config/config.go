// Package config loads flatdoc settings from a TOML file on top of built-in
// defaults. Priority: CLI flags > config file > defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/phuslu/log"

	"github.com/gaurav-prasanna/flatdoc/core/exporter"
	"github.com/gaurav-prasanna/flatdoc/core/importer"
	"github.com/gaurav-prasanna/flatdoc/core/pandoc"
	"github.com/gaurav-prasanna/flatdoc/core/render"
	"github.com/gaurav-prasanna/flatdoc/core/transcode"
)

type Config struct {
	Import ImportConfig `toml:"import"`
	Export ExportConfig `toml:"export"`
	Render RenderConfig `toml:"render"`
	Pandoc PandocConfig `toml:"pandoc"`
	Store  StoreConfig  `toml:"store"`
	Log    LogConfig    `toml:"log"`
}

type ImportConfig struct {
	Strict         bool   `toml:"strict"`
	MultiNodeItems bool   `toml:"multi_node_items"` // also enabled by parsers that declare it
	GroupSegments  bool   `toml:"group_segments"`   // false returns mixed paragraph parts as siblings
	FigureView     string `toml:"figure_view"`      // empty shows figures in "content"
	// Marks maps inline element tags (Emph, Underline, ...) to annotation
	// types; empty keeps the built-in table.
	Marks map[string]string `toml:"marks" validate:"dive,keys,required,endkeys,required"`
	// SpanClasses maps Span classes to annotation types.
	SpanClasses map[string]string `toml:"span_classes" validate:"dive,keys,required,endkeys,required"`
}

type ExportConfig struct {
	View        string            `toml:"view"`
	ASTEncoding string            `toml:"ast_encoding" validate:"oneof=legacy modern"`
	Levels      map[string]int    `toml:"levels" validate:"dive,keys,required,endkeys,min=0"`
	Marks       map[string]string `toml:"marks" validate:"dive,keys,required,endkeys,required"`
}

type RenderConfig struct {
	SanitizeHTML bool   `toml:"sanitize_html"`
	PDFPageSize  string `toml:"pdf_page_size" validate:"oneof=A3 A4 A5 Letter Legal"`
}

type PandocConfig struct {
	Path    string `toml:"path" validate:"required"`
	Timeout string `toml:"timeout" validate:"required"` // e.g. "60s"
}

type StoreConfig struct {
	Path string `toml:"path"` // empty means ~/.flatdoc/documents.db
}

type LogConfig struct {
	Level  string `toml:"level" validate:"oneof=trace debug info warn error"`
	Format string `toml:"format" validate:"oneof=console json"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Import: ImportConfig{GroupSegments: true},
		Export: ExportConfig{ASTEncoding: "modern"},
		Render: RenderConfig{SanitizeHTML: true, PDFPageSize: "A4"},
		Pandoc: PandocConfig{Path: "pandoc", Timeout: transcode.DefaultTimeout.String()},
		Log:    LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads path over the defaults and validates the result. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags and the values they cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.PandocTimeout(); err != nil {
		return fmt.Errorf("invalid config: pandoc.timeout: %w", err)
	}
	return nil
}

// PandocTimeout parses pandoc.timeout.
func (c *Config) PandocTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Pandoc.Timeout)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", c.Pandoc.Timeout)
	}
	return d, nil
}

// Encoding returns export.ast_encoding as a pandoc encoding.
func (c *Config) Encoding() pandoc.Encoding {
	enc, err := pandoc.ParseEncoding(c.Export.ASTEncoding)
	if err != nil {
		return pandoc.Modern
	}
	return enc
}

// ImporterOptions maps the [import] section.
func (c *Config) ImporterOptions(logger *log.Logger) importer.Options {
	opts := importer.Options{
		Strict:          c.Import.Strict,
		MultiNodeItems:  c.Import.MultiNodeItems,
		FlattenSegments: !c.Import.GroupSegments,
		FigureView:      c.Import.FigureView,
		Logger:          logger,
	}
	if len(c.Import.Marks) > 0 {
		opts.Marks = c.Import.Marks
	}
	if len(c.Import.SpanClasses) > 0 {
		opts.SpanClasses = c.Import.SpanClasses
	}
	return opts
}

// ExporterOptions maps the [export] section. Configured levels and marks
// extend the built-in tables.
func (c *Config) ExporterOptions(logger *log.Logger) exporter.Options {
	levels := exporter.DefaultLevels()
	for k, v := range c.Export.Levels {
		levels[k] = v
	}
	marks := exporter.DefaultMarks()
	for k, v := range c.Export.Marks {
		marks[k] = v
	}
	return exporter.Options{
		Levels:   levels,
		Marks:    marks,
		Encoding: c.Encoding(),
		View:     c.Export.View,
		Logger:   logger,
	}
}

// RenderOptions maps the [render] section plus the export levels and view.
func (c *Config) RenderOptions(logger *log.Logger) render.Options {
	opts := c.ExporterOptions(logger)
	return render.Options{
		Levels:   opts.Levels,
		View:     c.Export.View,
		Sanitize: c.Render.SanitizeHTML,
		PageSize: c.Render.PDFPageSize,
		Logger:   logger,
	}
}

// Transcoder builds the pandoc transcoder of the [pandoc] section.
func (c *Config) Transcoder(logger *log.Logger) *transcode.Pandoc {
	timeout, _ := c.PandocTimeout()
	t := transcode.New(c.Pandoc.Path, timeout)
	t.Logger = logger
	return t
}
