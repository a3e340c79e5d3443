package render

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/gaurav-prasanna/flatdoc/core/doc"
	"github.com/gaurav-prasanna/flatdoc/core/fragment"
)

var headingSizes = map[int]float64{1: 18, 2: 15, 3: 13, 4: 12, 5: 11, 6: 10}

const (
	bodySize   = 10.0
	lineHeight = 5.0
	listIndent = 6.0
)

// PDFRenderer renders a document as a PDF with gofpdf. Annotations become
// font styles; images are listed by caption and URL, not embedded.
type PDFRenderer struct {
	opts Options
}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer(opts Options) *PDFRenderer {
	return &PDFRenderer{opts: opts.withDefaults()}
}

// Render converts d into PDF bytes.
func (r *PDFRenderer) Render(d *doc.Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", r.opts.PageSize, "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle(d.Title(), true)
	pdf.AddPage()

	w := &pdfWalk{
		walker: newWalker(d, r.opts.Levels),
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
	}

	if title := d.Title(); title != "" {
		pdf.SetFont("Helvetica", "B", 18)
		pdf.MultiCell(0, 8, w.tr(title), "", "L", false)
		pdf.Ln(4)
	}

	for _, id := range d.View(r.opts.View) {
		if err := w.block(id); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

// style is the font state under a fragment.
type style struct {
	size      float64
	bold      bool
	italic    bool
	underline bool
	strike    bool
	mono      bool
}

func (s style) apply(pdf *gofpdf.Fpdf) {
	family := "Helvetica"
	if s.mono {
		family = "Courier"
	}
	var st string
	if s.bold {
		st += "B"
	}
	if s.italic {
		st += "I"
	}
	if s.underline {
		st += "U"
	}
	if s.strike {
		st += "S"
	}
	pdf.SetFont(family, st, s.size)
}

type pdfWalk struct {
	*walker
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func (w *pdfWalk) block(id string) error {
	n, err := w.node(id)
	if err != nil {
		return err
	}
	pdf := w.pdf
	switch n := n.(type) {
	case *doc.Heading:
		size, ok := headingSizes[n.Level]
		if !ok {
			size = bodySize
		}
		pdf.Ln(4)
		if err := w.inlines(n.ID, n.Content, style{size: size, bold: true}, size*0.6); err != nil {
			return err
		}
		pdf.Ln(size * 0.6)
		pdf.Ln(2)
	case *doc.Paragraph:
		if err := w.para(n); err != nil {
			return err
		}
	case *doc.List:
		return w.list(n)
	case *doc.CodeBlock:
		pdf.Ln(2)
		pdf.SetFont("Courier", "", 9)
		pdf.SetFillColor(245, 245, 245)
		pdf.MultiCell(0, 4.5, w.tr(n.Content), "", "L", true)
		pdf.Ln(3)
	case *doc.Image:
		caption, err := w.caption(n.Caption)
		if err != nil {
			return err
		}
		w.placeholder(caption, n.URL)
	case *doc.Figure:
		img, err := w.image(n.Image)
		if err != nil {
			return err
		}
		caption, err := w.caption(n.Caption)
		if err != nil {
			return err
		}
		w.placeholder(caption, img.URL)
	case *doc.Formula:
		pdf.SetFont("Courier", "", bodySize)
		pdf.MultiCell(0, lineHeight, w.tr(n.Data), "", "C", false)
		pdf.Ln(3)
	case *doc.Table:
		return w.table(n)
	case *doc.RichParagraph:
		for _, child := range n.Children {
			if err := w.richChild(child); err != nil {
				return err
			}
		}
		pdf.Ln(lineHeight)
		pdf.Ln(3)
	default:
		return unknown(n)
	}
	return nil
}

func (w *pdfWalk) para(p *doc.Paragraph) error {
	if err := w.inlines(p.ID, p.Content, style{size: bodySize}, lineHeight); err != nil {
		return err
	}
	w.pdf.Ln(lineHeight)
	w.pdf.Ln(3)
	return nil
}

func (w *pdfWalk) inlines(id, text string, base style, h float64) error {
	frags, err := w.fragments(id, text)
	if err != nil {
		return err
	}
	w.write(frags, base, h)
	return nil
}

func (w *pdfWalk) write(frags []*fragment.Fragment, s style, h float64) {
	for _, f := range frags {
		if f.IsText() {
			s.apply(w.pdf)
			w.pdf.Write(h, w.tr(f.Text))
			continue
		}
		w.span(f, s, h)
	}
}

func (w *pdfWalk) span(f *fragment.Fragment, s style, h float64) {
	a := f.Annotation
	switch a.Type {
	case doc.AnnotationEmphasis:
		s.italic = true
	case doc.AnnotationStrong:
		s.bold = true
	case doc.AnnotationUnderline:
		s.underline = true
	case "strikeout":
		s.strike = true
	case doc.AnnotationCode:
		s.mono = true
		s.apply(w.pdf)
		w.pdf.Write(h, w.tr(f.PlainText()))
		return
	case doc.AnnotationLink:
		s.underline = true
		s.apply(w.pdf)
		w.pdf.SetTextColor(0, 0, 180)
		w.pdf.WriteLinkString(h, w.tr(f.PlainText()), a.URL)
		w.pdf.SetTextColor(0, 0, 0)
		return
	case doc.AnnotationSubscript, doc.AnnotationSuperscript:
		offset := s.size * 0.15
		if a.Type == doc.AnnotationSuperscript {
			offset = -offset
		}
		s.apply(w.pdf)
		w.pdf.SubWrite(h, w.tr(f.PlainText()), s.size*0.7, offset, 0, "")
		return
	}
	w.write(f.Children, s, h)
}

func (w *pdfWalk) placeholder(caption, url string) {
	w.pdf.SetFont("Helvetica", "I", 9)
	w.pdf.SetTextColor(100, 100, 100)
	text := "[image] " + url
	if caption != "" {
		text = "[image: " + caption + "] " + url
	}
	w.pdf.MultiCell(0, lineHeight, w.tr(text), "", "L", false)
	w.pdf.SetTextColor(0, 0, 0)
	w.pdf.Ln(3)
}

func (w *pdfWalk) list(n *doc.List) error {
	pdf := w.pdf
	left, top, right, _ := pdf.GetMargins()
	defer pdf.SetMargins(left, top, right)

	for i, id := range n.Items {
		marker := "-"
		if n.Ordered {
			marker = strconv.Itoa(i+1) + "."
		}
		pdf.SetX(left)
		pdf.SetFont("Helvetica", "", bodySize)
		pdf.CellFormat(listIndent, lineHeight, marker, "", 0, "L", false, 0, "")
		pdf.SetLeftMargin(left + listIndent)

		child, err := w.node(id)
		if err != nil {
			return err
		}
		if p, ok := child.(*doc.Paragraph); ok {
			if err := w.inlines(p.ID, p.Content, style{size: bodySize}, lineHeight); err != nil {
				return err
			}
			pdf.Ln(lineHeight)
		} else if err := w.block(id); err != nil {
			return err
		}
		pdf.SetLeftMargin(left)
	}
	pdf.Ln(3)
	return nil
}

func (w *pdfWalk) table(n *doc.Table) error {
	pdf := w.pdf
	cols := len(n.Headers)
	for _, row := range n.Cells {
		cols = max(cols, len(row))
	}
	if cols == 0 {
		return nil
	}

	caption, err := w.caption(n.Caption)
	if err != nil {
		return err
	}
	if caption != "" {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, lineHeight, w.tr(caption), "", "L", false)
	}

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colW := (pageW - left - right) / float64(cols)

	row := func(ids []string, bold bool) error {
		st := ""
		if bold {
			st = "B"
		}
		pdf.SetFont("Helvetica", st, 9)
		for i := 0; i < cols; i++ {
			var text string
			if i < len(ids) {
				t, err := w.caption(ids[i])
				if err != nil {
					return err
				}
				text = t
			}
			pdf.CellFormat(colW, 6, w.tr(text), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		return nil
	}

	if len(n.Headers) > 0 {
		if err := row(n.Headers, true); err != nil {
			return err
		}
	}
	for _, ids := range n.Cells {
		if err := row(ids, false); err != nil {
			return err
		}
	}
	pdf.Ln(3)
	return nil
}

func (w *pdfWalk) richChild(id string) error {
	n, err := w.node(id)
	if err != nil {
		return err
	}
	switch n := n.(type) {
	case *doc.Paragraph:
		return w.inlines(n.ID, n.Content, style{size: bodySize}, lineHeight)
	case *doc.Image:
		caption, err := w.caption(n.Caption)
		if err != nil {
			return err
		}
		w.pdf.SetFont("Helvetica", "I", bodySize)
		w.pdf.Write(lineHeight, w.tr("["+caption+"]"))
	case *doc.Formula:
		w.pdf.SetFont("Courier", "", bodySize)
		w.pdf.Write(lineHeight, w.tr(n.Data))
	default:
		return unknown(n)
	}
	return nil
}
