package render

import (
	"fmt"
	"maps"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gaurav-prasanna/flatdoc/core/doc"
	"github.com/gaurav-prasanna/flatdoc/core/fragment"
)

// markdownMarks are the delimiters written around annotated text.
var markdownMarks = map[string][2]string{
	doc.AnnotationEmphasis:    {"*", "*"},
	doc.AnnotationStrong:      {"**", "**"},
	doc.AnnotationSubscript:   {"~", "~"},
	doc.AnnotationSuperscript: {"^", "^"},
	doc.AnnotationUnderline:   {"<u>", "</u>"},
	"strikeout":               {"~~", "~~"},
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "<", `\<`,
)

// MarkdownRenderer writes pandoc flavoured Markdown with a YAML front
// matter block holding the document metadata and id.
type MarkdownRenderer struct {
	opts Options
}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer(opts Options) *MarkdownRenderer {
	return &MarkdownRenderer{opts: opts.withDefaults()}
}

// Render converts d to Markdown.
func (r *MarkdownRenderer) Render(d *doc.Document) ([]byte, error) {
	var sb strings.Builder

	meta := make(map[string]any, len(d.Meta)+1)
	maps.Copy(meta, d.Meta)
	if d.ID != "" {
		meta["doc_id"] = d.ID
	}
	if len(meta) > 0 {
		front, err := yaml.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("marshaling front matter: %w", err)
		}
		sb.WriteString("---\n")
		sb.Write(front)
		sb.WriteString("---\n\n")
	}

	w := &markdownWalk{walker: newWalker(d, r.opts.Levels)}
	blocks := make([]string, 0, len(d.View(r.opts.View)))
	for _, id := range d.View(r.opts.View) {
		b, err := w.block(id)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	sb.WriteString(strings.Join(blocks, "\n\n"))
	sb.WriteByte('\n')
	return []byte(sb.String()), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

type markdownWalk struct {
	*walker
}

func (w *markdownWalk) block(id string) (string, error) {
	n, err := w.node(id)
	if err != nil {
		return "", err
	}
	switch n := n.(type) {
	case *doc.Heading:
		inl, err := w.inlines(n.ID, n.Content)
		if err != nil {
			return "", err
		}
		return strings.Repeat("#", max(n.Level, 1)) + " " + inl, nil
	case *doc.Paragraph:
		return w.inlines(n.ID, n.Content)
	case *doc.List:
		return w.list(n)
	case *doc.CodeBlock:
		fence := "```"
		for strings.Contains(n.Content, fence) {
			fence += "`"
		}
		return fence + n.Language + "\n" + n.Content + "\n" + fence, nil
	case *doc.Image:
		return w.img(n)
	case *doc.Figure:
		img, err := w.image(n.Image)
		if err != nil {
			return "", err
		}
		caption, err := w.captionInlines(n.Caption)
		if err != nil {
			return "", err
		}
		out := "![" + caption + "](" + target(img.URL, img.Title) + ")"
		if n.SourceID != "" {
			out += "{#" + n.SourceID + "}"
		}
		return out, nil
	case *doc.Formula:
		return formulaMarkdown(n), nil
	case *doc.Table:
		return w.table(n)
	case *doc.RichParagraph:
		var sb strings.Builder
		for _, child := range n.Children {
			part, err := w.richChild(child)
			if err != nil {
				return "", err
			}
			sb.WriteString(part)
		}
		return sb.String(), nil
	default:
		return "", unknown(n)
	}
}

func (w *markdownWalk) inlines(id, text string) (string, error) {
	frags, err := w.fragments(id, text)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	w.write(&sb, frags)
	return sb.String(), nil
}

func (w *markdownWalk) write(sb *strings.Builder, frags []*fragment.Fragment) {
	for _, f := range frags {
		if f.IsText() {
			sb.WriteString(strings.ReplaceAll(markdownEscaper.Replace(f.Text), "\n", "\\\n"))
			continue
		}
		w.span(sb, f)
	}
}

func (w *markdownWalk) span(sb *strings.Builder, f *fragment.Fragment) {
	a := f.Annotation
	switch a.Type {
	case doc.AnnotationCode:
		sb.WriteString(codeSpan(f.PlainText()))
		return
	case doc.AnnotationLink:
		sb.WriteByte('[')
		w.write(sb, f.Children)
		sb.WriteString("](" + target(a.URL, a.Title) + ")")
		return
	case "cross_reference":
		if a.Target != "" {
			sb.WriteByte('[')
			w.write(sb, f.Children)
			sb.WriteString("](#" + w.anchor(a.Target) + ")")
			return
		}
	}
	if m, ok := markdownMarks[a.Type]; ok {
		sb.WriteString(m[0])
		w.write(sb, f.Children)
		sb.WriteString(m[1])
		return
	}
	w.write(sb, f.Children)
}

// codeSpan picks a backtick run longer than any inside s.
func codeSpan(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	fence := strings.Repeat("`", longest+1)
	if longest > 0 {
		return fence + " " + s + " " + fence
	}
	return fence + s + fence
}

func target(url, title string) string {
	if title == "" {
		return url
	}
	return url + ` "` + strings.ReplaceAll(title, `"`, `\"`) + `"`
}

func formulaMarkdown(n *doc.Formula) string {
	if n.Inline {
		return "$" + n.Data + "$"
	}
	return "$$" + n.Data + "$$"
}

func (w *markdownWalk) list(n *doc.List) (string, error) {
	items := make([]string, 0, len(n.Items))
	for i, id := range n.Items {
		body, err := w.block(id)
		if err != nil {
			return "", err
		}
		marker := "- "
		if n.Ordered {
			marker = strconv.Itoa(i+1) + ". "
		}
		indent := strings.Repeat(" ", len(marker))
		lines := strings.Split(body, "\n")
		for j := 1; j < len(lines); j++ {
			if lines[j] != "" {
				lines[j] = indent + lines[j]
			}
		}
		items = append(items, marker+strings.Join(lines, "\n"))
	}
	return strings.Join(items, "\n"), nil
}

func (w *markdownWalk) img(n *doc.Image) (string, error) {
	alt, err := w.captionInlines(n.Caption)
	if err != nil {
		return "", err
	}
	return "![" + alt + "](" + target(n.URL, n.Title) + ")", nil
}

func (w *markdownWalk) captionInlines(id string) (string, error) {
	p, err := w.paragraph(id)
	if err != nil || p == nil {
		return "", err
	}
	return w.inlines(p.ID, p.Content)
}

// table writes a pipe table. Pipe tables need a header row, so a table
// without headers gets an empty one.
func (w *markdownWalk) table(n *doc.Table) (string, error) {
	cols := len(n.Headers)
	for _, row := range n.Cells {
		cols = max(cols, len(row))
	}
	if cols == 0 {
		return "", nil
	}

	headers, err := w.cells(n.Headers, cols)
	if err != nil {
		return "", err
	}
	lines := []string{pipeRow(headers), pipeRow(slicesRepeat("---", cols))}
	for _, row := range n.Cells {
		cells, err := w.cells(row, cols)
		if err != nil {
			return "", err
		}
		lines = append(lines, pipeRow(cells))
	}

	caption, err := w.captionInlines(n.Caption)
	if err != nil {
		return "", err
	}
	if caption != "" {
		lines = append(lines, "", "Table: "+caption)
	}
	return strings.Join(lines, "\n"), nil
}

func (w *markdownWalk) cells(ids []string, cols int) ([]string, error) {
	out := make([]string, cols)
	for i, id := range ids {
		text, err := w.captionInlines(id)
		if err != nil {
			return nil, err
		}
		out[i] = strings.ReplaceAll(strings.ReplaceAll(text, "|", `\|`), "\\\n", " ")
	}
	return out, nil
}

func pipeRow(cells []string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}

func slicesRepeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func (w *markdownWalk) richChild(id string) (string, error) {
	n, err := w.node(id)
	if err != nil {
		return "", err
	}
	switch n := n.(type) {
	case *doc.Paragraph:
		return w.inlines(n.ID, n.Content)
	case *doc.Image:
		return w.img(n)
	case *doc.Formula:
		return formulaMarkdown(n), nil
	default:
		return "", unknown(n)
	}
}
