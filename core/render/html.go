package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gaurav-prasanna/flatdoc/core/doc"
	"github.com/gaurav-prasanna/flatdoc/core/exporter"
	"github.com/gaurav-prasanna/flatdoc/core/fragment"
	"github.com/gaurav-prasanna/flatdoc/core/logging"
)

var headings = [...]atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

// inlineAtoms maps annotation types to the element wrapping their text.
// Links and cross references are handled separately.
var inlineAtoms = map[string]atom.Atom{
	doc.AnnotationEmphasis:    atom.Em,
	doc.AnnotationStrong:      atom.Strong,
	doc.AnnotationCode:        atom.Code,
	doc.AnnotationSubscript:   atom.Sub,
	doc.AnnotationSuperscript: atom.Sup,
	doc.AnnotationUnderline:   atom.U,
	"strikeout":               atom.S,
}

// HTMLRenderer writes a standalone HTML page.
type HTMLRenderer struct {
	opts   Options
	policy *bluemonday.Policy
}

// NewHTMLRenderer creates an HTMLRenderer.
func NewHTMLRenderer(opts Options) *HTMLRenderer {
	opts = opts.withDefaults()
	r := &HTMLRenderer{opts: opts}
	if opts.Sanitize {
		r.policy = sanitizer()
	}
	return r
}

// sanitizer is the user generated content policy plus the classes the
// renderer writes for code languages, math and cross references.
func sanitizer() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)).OnElements("code", "span", "div", "a")
	p.AllowElements("figure", "figcaption")
	return p
}

// Render produces the page for d.
func (r *HTMLRenderer) Render(d *doc.Document) ([]byte, error) {
	w := &htmlWalk{walker: newWalker(d, r.opts.Levels)}

	var body bytes.Buffer
	for _, id := range d.View(r.opts.View) {
		nodes, err := w.block(id)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			if err := html.Render(&body, n); err != nil {
				return nil, fmt.Errorf("rendering html: %w", err)
			}
			body.WriteByte('\n')
		}
	}

	content := body.Bytes()
	if r.policy != nil {
		clean := r.policy.SanitizeBytes(content)
		if len(clean) != len(content) {
			logging.OrNop(r.opts.Logger).Debug().Str("doc", d.ID).Int("removed_bytes", len(content)-len(clean)).Msg("sanitizer changed html")
		}
		content = clean
	}

	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html")
	if lang, ok := d.Meta["lang"].(string); ok && lang != "" {
		fmt.Fprintf(&out, " lang=\"%s\"", html.EscapeString(lang))
	}
	out.WriteString(">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&out, "<title>%s</title>\n", html.EscapeString(d.Title()))
	out.WriteString("</head>\n<body>\n")
	out.Write(content)
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}

// Extension returns the file extension for HTML output.
func (r *HTMLRenderer) Extension() string {
	return ".html"
}

func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func appendAll(parent *html.Node, children ...*html.Node) *html.Node {
	for _, c := range children {
		parent.AppendChild(c)
	}
	return parent
}

// textNodes turns text into text nodes with <br> at line breaks.
func textNodes(s string) []*html.Node {
	var out []*html.Node
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			out = append(out, element(atom.Br))
		}
		if line != "" {
			out = append(out, &html.Node{Type: html.TextNode, Data: line})
		}
	}
	return out
}

type htmlWalk struct {
	*walker
}

func (w *htmlWalk) block(id string) ([]*html.Node, error) {
	n, err := w.node(id)
	if err != nil {
		return nil, err
	}
	switch n := n.(type) {
	case *doc.Heading:
		level := min(max(n.Level, 1), len(headings))
		inl, err := w.inlines(n.ID, n.Content)
		if err != nil {
			return nil, err
		}
		h := element(headings[level-1], "id", exporter.Slug(n.Content))
		return []*html.Node{appendAll(h, inl...)}, nil
	case *doc.Paragraph:
		inl, err := w.inlines(n.ID, n.Content)
		if err != nil {
			return nil, err
		}
		return []*html.Node{appendAll(element(atom.P), inl...)}, nil
	case *doc.List:
		return w.list(n)
	case *doc.CodeBlock:
		code := element(atom.Code)
		if n.Language != "" {
			code = element(atom.Code, "class", "language-"+n.Language)
		}
		code.AppendChild(&html.Node{Type: html.TextNode, Data: n.Content})
		return []*html.Node{appendAll(element(atom.Pre), code)}, nil
	case *doc.Image:
		img, err := w.img(n, "")
		if err != nil {
			return nil, err
		}
		return []*html.Node{appendAll(element(atom.P), img)}, nil
	case *doc.Figure:
		return w.figure(n)
	case *doc.Formula:
		if n.Inline {
			return []*html.Node{appendAll(element(atom.P), mathNode(n, false))}, nil
		}
		return []*html.Node{mathNode(n, true)}, nil
	case *doc.Table:
		return w.table(n)
	case *doc.RichParagraph:
		p := element(atom.P)
		for _, child := range n.Children {
			parts, err := w.richChild(child)
			if err != nil {
				return nil, err
			}
			appendAll(p, parts...)
		}
		return []*html.Node{p}, nil
	default:
		return nil, unknown(n)
	}
}

func (w *htmlWalk) inlines(id, text string) ([]*html.Node, error) {
	frags, err := w.fragments(id, text)
	if err != nil {
		return nil, err
	}
	return w.fragmentNodes(frags), nil
}

func (w *htmlWalk) fragmentNodes(frags []*fragment.Fragment) []*html.Node {
	var out []*html.Node
	for _, f := range frags {
		if f.IsText() {
			out = append(out, textNodes(f.Text)...)
			continue
		}
		out = append(out, w.span(f)...)
	}
	return out
}

func (w *htmlWalk) span(f *fragment.Fragment) []*html.Node {
	a := f.Annotation
	switch a.Type {
	case doc.AnnotationLink:
		attrs := []string{"href", a.URL}
		if a.Title != "" {
			attrs = append(attrs, "title", a.Title)
		}
		return []*html.Node{appendAll(element(atom.A, attrs...), w.fragmentNodes(f.Children)...)}
	case doc.AnnotationCode:
		return []*html.Node{appendAll(element(atom.Code), textNodes(f.PlainText())...)}
	case "cross_reference":
		if a.Target == "" {
			return w.fragmentNodes(f.Children)
		}
		link := element(atom.A, "class", "xref", "href", "#"+w.anchor(a.Target))
		return []*html.Node{appendAll(link, w.fragmentNodes(f.Children)...)}
	}
	if tag, ok := inlineAtoms[a.Type]; ok {
		return []*html.Node{appendAll(element(tag), w.fragmentNodes(f.Children)...)}
	}
	return w.fragmentNodes(f.Children)
}

func (w *htmlWalk) list(n *doc.List) ([]*html.Node, error) {
	list := element(atom.Ul)
	if n.Ordered {
		list = element(atom.Ol)
	}
	for _, id := range n.Items {
		li := element(atom.Li)
		child, err := w.node(id)
		if err != nil {
			return nil, err
		}
		if p, ok := child.(*doc.Paragraph); ok {
			inl, err := w.inlines(p.ID, p.Content)
			if err != nil {
				return nil, err
			}
			list.AppendChild(appendAll(li, inl...))
			continue
		}
		blocks, err := w.block(id)
		if err != nil {
			return nil, err
		}
		list.AppendChild(appendAll(li, blocks...))
	}
	return []*html.Node{list}, nil
}

// img writes an image element. fallbackAlt is used when the image has no
// caption of its own, as for figure images whose caption is on the figure.
func (w *htmlWalk) img(n *doc.Image, fallbackAlt string) (*html.Node, error) {
	alt, err := w.caption(n.Caption)
	if err != nil {
		return nil, err
	}
	if alt == "" {
		alt = fallbackAlt
	}
	attrs := []string{"src", n.URL, "alt", alt}
	if n.Title != "" {
		attrs = append(attrs, "title", n.Title)
	}
	return element(atom.Img, attrs...), nil
}

func (w *htmlWalk) figure(n *doc.Figure) ([]*html.Node, error) {
	img, err := w.image(n.Image)
	if err != nil {
		return nil, err
	}
	fig := element(atom.Figure)
	if n.SourceID != "" {
		fig = element(atom.Figure, "id", n.SourceID)
	}
	caption, err := w.caption(n.Caption)
	if err != nil {
		return nil, err
	}
	imgNode, err := w.img(img, caption)
	if err != nil {
		return nil, err
	}
	fig.AppendChild(imgNode)

	p, err := w.paragraph(n.Caption)
	if err != nil {
		return nil, err
	}
	if p != nil {
		inl, err := w.inlines(p.ID, p.Content)
		if err != nil {
			return nil, err
		}
		fig.AppendChild(appendAll(element(atom.Figcaption), inl...))
	}
	return []*html.Node{fig}, nil
}

// mathNode writes TeX between MathJax delimiters. Display math is a div
// only when it stands as a block of its own.
func mathNode(n *doc.Formula, block bool) *html.Node {
	switch {
	case n.Inline:
		return appendAll(element(atom.Span, "class", "math inline"), textNodes(`\(`+n.Data+`\)`)...)
	case block:
		return appendAll(element(atom.Div, "class", "math display"), textNodes(`\[`+n.Data+`\]`)...)
	default:
		return appendAll(element(atom.Span, "class", "math display"), textNodes(`\[`+n.Data+`\]`)...)
	}
}

func (w *htmlWalk) table(n *doc.Table) ([]*html.Node, error) {
	table := element(atom.Table)
	p, err := w.paragraph(n.Caption)
	if err != nil {
		return nil, err
	}
	if p != nil {
		inl, err := w.inlines(p.ID, p.Content)
		if err != nil {
			return nil, err
		}
		table.AppendChild(appendAll(element(atom.Caption), inl...))
	}
	if len(n.Headers) > 0 {
		tr, err := w.row(atom.Th, n.Headers)
		if err != nil {
			return nil, err
		}
		table.AppendChild(appendAll(element(atom.Thead), tr))
	}
	tbody := element(atom.Tbody)
	for _, ids := range n.Cells {
		tr, err := w.row(atom.Td, ids)
		if err != nil {
			return nil, err
		}
		tbody.AppendChild(tr)
	}
	table.AppendChild(tbody)
	return []*html.Node{table}, nil
}

func (w *htmlWalk) row(cell atom.Atom, ids []string) (*html.Node, error) {
	tr := element(atom.Tr)
	for _, id := range ids {
		c := element(cell)
		p, err := w.paragraph(id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			inl, err := w.inlines(p.ID, p.Content)
			if err != nil {
				return nil, err
			}
			appendAll(c, inl...)
		}
		tr.AppendChild(c)
	}
	return tr, nil
}

func (w *htmlWalk) richChild(id string) ([]*html.Node, error) {
	n, err := w.node(id)
	if err != nil {
		return nil, err
	}
	switch n := n.(type) {
	case *doc.Paragraph:
		return w.inlines(n.ID, n.Content)
	case *doc.Image:
		img, err := w.img(n, "")
		if err != nil {
			return nil, err
		}
		return []*html.Node{img}, nil
	case *doc.Formula:
		return []*html.Node{mathNode(n, false)}, nil
	default:
		return nil, unknown(n)
	}
}
