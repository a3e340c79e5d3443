// Package output handles file naming and writing for rendered documents.
// Output files are named after their input: a file path keeps its base
// name (notes.md -> notes.html), a URL is flattened into host and path
// segments (https://example.com/docs/intro -> example_com_docs_intro.html)
// and stdin becomes "stdin".
package output

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Writer writes rendered output to disk.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory.
// If outputDir is empty, it defaults to the current working directory.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Writer{OutputDir: outputDir}, nil
}

// Write stores data as <name><ext>, where name is derived from the input
// location, and returns the path written.
func (w *Writer) Write(location string, data []byte, ext string) (string, error) {
	return w.WriteAs(Name(location), data, ext)
}

// WriteAs stores data as <name><ext>; name is sanitized first.
func (w *Writer) WriteAs(name string, data []byte, ext string) (string, error) {
	path := filepath.Join(w.OutputDir, sanitize(name)+ext)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	return path, nil
}

// Name returns the output base name for an input location.
func Name(location string) string {
	if location == "" || location == "-" {
		return "stdin"
	}
	if IsURL(location) {
		return filenameFromURL(location)
	}
	base := filepath.Base(location)
	// Strip compound extensions written by this tool, e.g. x.flatdoc.json.
	for ext := filepath.Ext(base); ext != "" && ext != base; ext = filepath.Ext(base) {
		base = strings.TrimSuffix(base, ext)
	}
	return sanitize(base)
}

// IsURL reports whether location is an http(s) URL.
func IsURL(location string) bool {
	u, err := url.Parse(location)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// filenameFromURL converts a URL into a flat filename.
// Example: https://example.com/docs/intro -> example_com_docs_intro
func filenameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return sanitize(rawURL)
	}

	parts := []string{sanitize(parsed.Host)}
	path := strings.Trim(parsed.Path, "/")
	if path != "" {
		path = strings.TrimSuffix(path, filepath.Ext(path))
		for _, seg := range strings.Split(path, "/") {
			parts = append(parts, sanitize(seg))
		}
	}
	return strings.Join(parts, "_")
}

// sanitize replaces characters other than ASCII letters, digits, '-' and
// '_' with underscores.
func sanitize(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '-' || ch == '_' {
			b.WriteRune(ch)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
