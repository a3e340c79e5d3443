// Package markdown reads Markdown into the pandoc source AST with goldmark.
// A leading YAML front matter block becomes document metadata.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/gaurav-prasanna/flatdoc/core"
	"github.com/gaurav-prasanna/flatdoc/core/pandoc"
)

// Parser converts Markdown (CommonMark plus GFM tables, strikethrough and
// autolinks) to a pandoc document.
type Parser struct {
	md goldmark.Markdown
}

var (
	_ core.Parser              = (*Parser)(nil)
	_ core.MultiNodeItemSource = (*Parser)(nil)
)

// New creates a Parser.
func New() *Parser {
	return &Parser{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
		),
	}
}

// SupportsMultiNodeItems reports true: a loose Markdown list item may hold
// several paragraphs.
func (p *Parser) SupportsMultiNodeItems() bool { return true }

// Parse reads src.
func (p *Parser) Parse(src []byte) (*pandoc.Document, error) {
	meta, body, err := frontMatter(src)
	if err != nil {
		return nil, err
	}
	root := p.md.Parser().Parse(text.NewReader(body))
	c := &converter{source: body}
	return &pandoc.Document{
		Meta:   pandoc.MetaValues(meta),
		Blocks: c.blocks(root),
	}, nil
}

// frontMatter splits a leading "---" delimited YAML block from src.
func frontMatter(src []byte) (map[string]any, []byte, error) {
	meta := map[string]any{}
	rest, ok := bytes.CutPrefix(src, []byte("---\n"))
	if !ok {
		return meta, src, nil
	}
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return meta, src, nil
	}
	block, body := rest[:end], rest[end+len("\n---"):]
	if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = nil
	}
	if err := yaml.Unmarshal(block, &meta); err != nil {
		return nil, nil, fmt.Errorf("front matter: %w", err)
	}
	return meta, body, nil
}

type converter struct {
	source []byte
}

func (c *converter) blocks(parent ast.Node) []pandoc.Element {
	var out []pandoc.Element
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if b, ok := c.block(n); ok {
			out = append(out, b)
		}
	}
	return out
}

func (c *converter) block(n ast.Node) (pandoc.Element, bool) {
	switch n := n.(type) {
	case *ast.Heading:
		return pandoc.Header(n.Level, "", c.inlines(n)...), true
	case *ast.Paragraph:
		return pandoc.Para(c.inlines(n)...), true
	case *ast.TextBlock:
		return pandoc.Plain(c.inlines(n)...), true
	case *ast.ThematicBreak:
		return pandoc.HorizontalRule(), true
	case *ast.FencedCodeBlock:
		return pandoc.CodeBlock(string(n.Language(c.source)), c.lines(n)), true
	case *ast.CodeBlock:
		return pandoc.CodeBlock("", c.lines(n)), true
	case *ast.HTMLBlock:
		return pandoc.RawBlock("html", c.lines(n)), true
	case *ast.Blockquote:
		return pandoc.BlockQuote(c.blocks(n)...), true
	case *ast.List:
		var items [][]pandoc.Element
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			items = append(items, c.blocks(item))
		}
		if n.IsOrdered() {
			return pandoc.OrderedList(items...), true
		}
		return pandoc.BulletList(items...), true
	case *extast.Table:
		return c.table(n), true
	}
	// Anything else is passed through under its goldmark kind so the
	// importer can report it.
	return pandoc.Element{Tag: n.Kind().String(), Content: []any{}}, true
}

func (c *converter) lines(n ast.Node) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(c.source))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func (c *converter) table(n *extast.Table) pandoc.Element {
	var headers [][]pandoc.Element
	var rows [][][]pandoc.Element
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch row := child.(type) {
		case *extast.TableHeader:
			headers = c.cells(row)
		case *extast.TableRow:
			rows = append(rows, c.cells(row))
		}
	}
	return pandoc.Table(nil, headers, rows)
}

func (c *converter) cells(row ast.Node) [][]pandoc.Element {
	var out [][]pandoc.Element
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); !ok {
			continue
		}
		inl := c.inlines(cell)
		if len(inl) == 0 {
			out = append(out, []pandoc.Element{})
			continue
		}
		out = append(out, []pandoc.Element{pandoc.Plain(inl...)})
	}
	return out
}

func (c *converter) inlines(parent ast.Node) []pandoc.Element {
	var out []pandoc.Element
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		out = append(out, c.inline(n)...)
	}
	return out
}

func (c *converter) inline(n ast.Node) []pandoc.Element {
	switch n := n.(type) {
	case *ast.Text:
		out := pandoc.Words(string(n.Segment.Value(c.source)))
		switch {
		case n.HardLineBreak():
			out = append(out, pandoc.LineBreak())
		case n.SoftLineBreak():
			out = append(out, pandoc.SoftBreak())
		}
		return out
	case *ast.String:
		return pandoc.Words(string(n.Value))
	case *ast.Emphasis:
		if n.Level >= 2 {
			return []pandoc.Element{pandoc.Strong(c.inlines(n)...)}
		}
		return []pandoc.Element{pandoc.Emph(c.inlines(n)...)}
	case *ast.CodeSpan:
		var sb strings.Builder
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			switch t := child.(type) {
			case *ast.Text:
				sb.Write(t.Segment.Value(c.source))
			case *ast.String:
				sb.Write(t.Value)
			}
		}
		return []pandoc.Element{pandoc.Code(sb.String())}
	case *ast.Link:
		return []pandoc.Element{pandoc.Link(string(n.Destination), string(n.Title), c.inlines(n)...)}
	case *ast.AutoLink:
		url := string(n.URL(c.source))
		return []pandoc.Element{pandoc.Link(url, "", pandoc.Str(string(n.Label(c.source))))}
	case *ast.Image:
		return []pandoc.Element{pandoc.Image(string(n.Destination), string(n.Title), c.inlines(n)...)}
	case *ast.RawHTML:
		var sb strings.Builder
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			sb.Write(seg.Value(c.source))
		}
		return []pandoc.Element{{Tag: pandoc.TagRawInline, Content: []any{"html", sb.String()}}}
	case *extast.Strikethrough:
		return []pandoc.Element{pandoc.Mark(pandoc.TagStrikeout, c.inlines(n)...)}
	default:
		return c.inlines(n)
	}
}
