// Package nlm reads NLM/JATS article XML into the pandoc source AST.
//
// Article metadata from <front> becomes document meta; <body> sections,
// paragraphs, figures, lists, tables and formulas become blocks. Inline
// formatting maps onto the pandoc inline vocabulary, and <xref> becomes a
// Span with class "xref" whose "rid" names the referenced element.
package nlm

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/gaurav-prasanna/flatdoc/core"
	"github.com/gaurav-prasanna/flatdoc/core/pandoc"
)

// FigureView is the view the CLI shows article figures in.
const FigureView = "figures"

// Parser converts article XML.
type Parser struct{}

var (
	_ core.Parser              = (*Parser)(nil)
	_ core.MultiNodeItemSource = (*Parser)(nil)
)

// New creates a Parser.
func New() *Parser { return &Parser{} }

// SupportsMultiNodeItems reports true: a <list-item> may hold several
// paragraphs.
func (p *Parser) SupportsMultiNodeItems() bool { return true }

// Parse reads an <article> document. A <front> with <article-meta> is
// required; <body> is optional.
func (p *Parser) Parse(src []byte) (*pandoc.Document, error) {
	root, err := xmlquery.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	article := xmlquery.FindOne(root, "//article")
	if article == nil {
		return nil, fmt.Errorf("expected an article element")
	}
	front := child(article, "front")
	if front == nil {
		return nil, fmt.Errorf("expected a front element")
	}
	articleMeta := child(front, "article-meta")
	if articleMeta == nil {
		return nil, fmt.Errorf("expected an article-meta element")
	}

	d := &pandoc.Document{Meta: pandoc.MetaValues(metadata(articleMeta))}
	if body := child(article, "body"); body != nil {
		d.Blocks = bodyNodes(elements(body), 0)
	}
	return d, nil
}

// metadata reads the supported <article-meta> fields into plain values.
func metadata(am *xmlquery.Node) map[string]any {
	meta := map[string]any{}
	if id := xmlquery.FindOne(am, "article-id"); id != nil {
		meta["doc_id"] = strings.TrimSpace(id.InnerText())
	}
	if title := xmlquery.FindOne(am, "title-group/article-title"); title != nil {
		meta["title"] = text(title)
	}
	var authors []any
	for _, c := range xmlquery.Find(am, "contrib-group/contrib[@contrib-type='author']") {
		name := child(c, "name")
		if name == nil {
			continue
		}
		given, surname := text(child(name, "given-names")), text(child(name, "surname"))
		authors = append(authors, strings.TrimSpace(given+" "+surname))
	}
	if len(authors) > 0 {
		meta["creator"] = authors[0]
		meta["authors"] = authors
	}
	if date := xmlquery.FindOne(am, "pub-date"); date != nil {
		if created := pubDate(date); created != "" {
			meta["created_at"] = created
		}
	}
	if abs := child(am, "abstract"); abs != nil {
		meta["abstract"] = text(abs)
	}
	return meta
}

func pubDate(n *xmlquery.Node) string {
	year := text(child(n, "year"))
	if year == "" {
		return ""
	}
	out := year
	for _, part := range []string{"month", "day"} {
		v := text(child(n, part))
		if v == "" {
			break
		}
		if len(v) == 1 {
			v = "0" + v
		}
		out += "-" + v
	}
	return out
}

// bodyNodes converts the block-level children of <body>, <sec> or
// <list-item>. level is the depth of the enclosing section.
func bodyNodes(children []*xmlquery.Node, level int) []pandoc.Element {
	var out []pandoc.Element
	for _, el := range children {
		switch el.Data {
		case "p":
			out = append(out, paragraph(el)...)
		case "sec":
			out = append(out, section(el, level+1)...)
		case "title", "label":
		default:
			out = append(out, block(el, level)...)
		}
	}
	return out
}

// block converts the elements allowed both in sections and inside
// paragraphs. Unknown elements keep their name as the tag so the importer
// can report them.
func block(el *xmlquery.Node, level int) []pandoc.Element {
	switch el.Data {
	case "fig":
		return []pandoc.Element{figure(el)}
	case "fig-group":
		var out []pandoc.Element
		for _, fig := range elements(el) {
			if fig.Data == "fig" {
				out = append(out, figure(fig))
			}
		}
		return out
	case "list":
		return []pandoc.Element{list(el, level)}
	case "table-wrap":
		return []pandoc.Element{table(el)}
	case "disp-formula":
		return []pandoc.Element{pandoc.Para(pandoc.Math(true, tex(el)))}
	case "disp-quote":
		return []pandoc.Element{pandoc.BlockQuote(bodyNodes(elements(el), level)...)}
	case "preformat", "code":
		return []pandoc.Element{pandoc.CodeBlock(el.SelectAttr("language"), el.InnerText())}
	default:
		return []pandoc.Element{{Tag: el.Data, Content: []any{}}}
	}
}

func section(sec *xmlquery.Node, level int) []pandoc.Element {
	var out []pandoc.Element
	if title := child(sec, "title"); title != nil {
		out = append(out, pandoc.Header(level, sec.SelectAttr("id"), trimSpaces(inlines(title))...))
	}
	return append(out, bodyNodes(elements(sec), level)...)
}

// paragraph splits a <p> at block-level children: runs of text and inline
// elements become Para blocks, figures, lists and the like become blocks
// of their own.
func paragraph(p *xmlquery.Node) []pandoc.Element {
	var out, run []pandoc.Element
	flush := func() {
		if inl := trimSpaces(run); len(inl) > 0 {
			out = append(out, pandoc.Para(inl...))
		}
		run = nil
	}
	for n := p.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode && isBlock(n.Data) {
			flush()
			out = append(out, block(n, 0)...)
			continue
		}
		run = append(run, inline(n)...)
	}
	flush()
	return out
}

func isBlock(name string) bool {
	switch name {
	case "fig", "fig-group", "list", "table-wrap", "disp-formula", "disp-quote", "preformat":
		return true
	}
	return false
}

func inlines(parent *xmlquery.Node) []pandoc.Element {
	var out []pandoc.Element
	for n := parent.FirstChild; n != nil; n = n.NextSibling {
		out = append(out, inline(n)...)
	}
	return out
}

// inline maps one inline node. Elements without a mapping are transparent.
func inline(n *xmlquery.Node) []pandoc.Element {
	switch n.Type {
	case xmlquery.TextNode, xmlquery.CharDataNode:
		return pandoc.Words(collapse(n.Data))
	case xmlquery.ElementNode:
	default:
		return nil
	}

	one := func(e pandoc.Element) []pandoc.Element { return []pandoc.Element{e} }
	switch n.Data {
	case "bold":
		return one(pandoc.Strong(inlines(n)...))
	case "italic":
		return one(pandoc.Emph(inlines(n)...))
	case "monospace":
		return one(pandoc.Code(collapse(n.InnerText())))
	case "sub":
		return one(pandoc.Mark(pandoc.TagSubscript, inlines(n)...))
	case "sup":
		return one(pandoc.Mark(pandoc.TagSuperscript, inlines(n)...))
	case "underline":
		return one(pandoc.Mark(pandoc.TagUnderline, inlines(n)...))
	case "strike":
		return one(pandoc.Mark(pandoc.TagStrikeout, inlines(n)...))
	case "sc":
		return one(pandoc.Mark(pandoc.TagSmallCaps, inlines(n)...))
	case "ext-link", "uri":
		return one(pandoc.Link(href(n), "", inlines(n)...))
	case "xref":
		attr := pandoc.Attr{Classes: []string{"xref"}}
		if rid := n.SelectAttr("rid"); rid != "" {
			attr.KeyVals = append(attr.KeyVals, [2]string{"rid", rid})
		}
		if typ := n.SelectAttr("ref-type"); typ != "" {
			attr.KeyVals = append(attr.KeyVals, [2]string{"ref-type", typ})
		}
		return one(pandoc.Span(attr, inlines(n)...))
	case "inline-formula":
		return one(pandoc.Math(false, tex(n)))
	case "break":
		return one(pandoc.LineBreak())
	default:
		return inlines(n)
	}
}

func figure(fig *xmlquery.Node) pandoc.Element {
	var caption []pandoc.Element
	if c := child(fig, "caption"); c != nil {
		if p := child(c, "p"); p != nil {
			caption = trimSpaces(inlines(p))
		} else if t := child(c, "title"); t != nil {
			caption = trimSpaces(inlines(t))
		}
	}
	graphic := child(fig, "graphic")
	if graphic == nil {
		return pandoc.Para(caption...)
	}
	return pandoc.Figure(fig.SelectAttr("id"), caption, pandoc.Image(href(graphic), ""))
}

func list(el *xmlquery.Node, level int) pandoc.Element {
	var items [][]pandoc.Element
	for _, item := range elements(el) {
		if item.Data == "list-item" {
			items = append(items, bodyNodes(elements(item), level))
		}
	}
	switch el.SelectAttr("list-type") {
	case "order", "ordered", "alpha-lower", "alpha-upper", "roman-lower", "roman-upper":
		return pandoc.OrderedList(items...)
	}
	return pandoc.BulletList(items...)
}

func table(wrap *xmlquery.Node) pandoc.Element {
	var caption []pandoc.Element
	if c := child(wrap, "caption"); c != nil {
		caption = trimSpaces(inlines(c))
	}
	var headers [][]pandoc.Element
	var rows [][][]pandoc.Element
	hasHead := xmlquery.FindOne(wrap, ".//thead") != nil
	for i, tr := range xmlquery.Find(wrap, ".//tr") {
		cells, allTH := rowCells(tr)
		inHead := tr.Parent != nil && tr.Parent.Data == "thead"
		if headers == nil && (inHead || (!hasHead && i == 0 && allTH)) {
			headers = cells
			continue
		}
		rows = append(rows, cells)
	}
	return pandoc.Table(caption, headers, rows)
}

// rowCells converts the cells of a <tr> and reports whether all are <th>.
func rowCells(tr *xmlquery.Node) ([][]pandoc.Element, bool) {
	var cells [][]pandoc.Element
	allTH := true
	for _, cell := range elements(tr) {
		if cell.Data != "td" && cell.Data != "th" {
			continue
		}
		allTH = allTH && cell.Data == "th"
		inl := trimSpaces(inlines(cell))
		if len(inl) == 0 {
			cells = append(cells, []pandoc.Element{})
			continue
		}
		cells = append(cells, []pandoc.Element{pandoc.Plain(inl...)})
	}
	return cells, allTH && len(cells) > 0
}

func tex(n *xmlquery.Node) string {
	if t := xmlquery.FindOne(n, ".//tex-math"); t != nil {
		return strings.TrimSpace(t.InnerText())
	}
	return strings.TrimSpace(n.InnerText())
}

func child(n *xmlquery.Node, name string) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == name {
			return c
		}
	}
	return nil
}

func elements(n *xmlquery.Node) []*xmlquery.Node {
	var out []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

func text(n *xmlquery.Node) string {
	if n == nil {
		return ""
	}
	return collapse(strings.TrimSpace(n.InnerText()))
}

// href returns the (xlink:)href attribute of n.
func href(n *xmlquery.Node) string {
	for _, a := range n.Attr {
		if a.Name.Local == "href" {
			return a.Value
		}
	}
	return ""
}

// collapse replaces every run of whitespace with a single space.
func collapse(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			if !space {
				sb.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// trimSpaces drops leading and trailing Space elements.
func trimSpaces(inl []pandoc.Element) []pandoc.Element {
	for len(inl) > 0 && inl[0].Tag == pandoc.TagSpace {
		inl = inl[1:]
	}
	for len(inl) > 0 && inl[len(inl)-1].Tag == pandoc.TagSpace {
		inl = inl[:len(inl)-1]
	}
	return inl
}
