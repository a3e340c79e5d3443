package importer

import (
	"strings"

	"github.com/gaurav-prasanna/flatdoc/core"
	"github.com/gaurav-prasanna/flatdoc/core/doc"
	"github.com/gaurav-prasanna/flatdoc/core/pandoc"
)

// block dispatches one block element and returns the ids of the top-level
// nodes it produced, in source order.
func (im *Importer) block(s *state, b pandoc.Element) ([]string, error) {
	switch b.Tag {
	case pandoc.TagHeader:
		return im.heading(s, b)
	case pandoc.TagPara, pandoc.TagPlain:
		inl, err := pandoc.Inlines(b)
		if err != nil {
			return nil, malformed(b.Tag, err)
		}
		if img, ok := implicitFigure(inl); ok {
			return im.figure(s, img, "", nil)
		}
		return im.paragraph(s, inl)
	case pandoc.TagLineBlock:
		return im.lineBlock(s, b)
	case pandoc.TagCodeBlock, pandoc.TagRawBlock:
		return im.codeBlock(s, b)
	case pandoc.TagBlockQuote:
		blocks, err := pandoc.Elements(b.Content)
		if err != nil {
			return nil, malformed(b.Tag, err)
		}
		return im.blocks(s, blocks)
	case pandoc.TagDiv:
		arr, err := pandoc.Args(b, 2)
		if err != nil {
			return nil, malformed(b.Tag, err)
		}
		blocks, err := pandoc.Elements(arr[1])
		if err != nil {
			return nil, malformed(b.Tag, err)
		}
		return im.blocks(s, blocks)
	case pandoc.TagBulletList, pandoc.TagOrderedList:
		return im.list(s, b)
	case pandoc.TagImage:
		return im.figure(s, b, "", nil)
	case pandoc.TagFigure:
		return im.figureBlock(s, b)
	case pandoc.TagTable:
		return im.table(s, b)
	case pandoc.TagHorizontalRule, pandoc.TagNull:
		return nil, nil
	default:
		if im.isInline(b.Tag) {
			return nil, im.strayInline(s, b)
		}
		return nil, im.unsupported(s, core.WarnUnknownBlock, b.Tag)
	}
}

// inlineTags are the inline elements that may show up where a block is
// expected. Tags in Options.Marks count as inline too.
var inlineTags = map[string]bool{
	pandoc.TagStr: true, pandoc.TagSpace: true, pandoc.TagSoftBreak: true, pandoc.TagLineBreak: true,
	pandoc.TagEmph: true, pandoc.TagStrong: true, pandoc.TagUnderline: true, pandoc.TagStrikeout: true,
	pandoc.TagSuperscript: true, pandoc.TagSubscript: true, pandoc.TagSmallCaps: true,
	pandoc.TagQuoted: true, pandoc.TagCite: true, pandoc.TagCode: true, pandoc.TagMath: true,
	pandoc.TagRawInline: true, pandoc.TagLink: true, pandoc.TagNote: true, pandoc.TagSpan: true,
}

func (im *Importer) isInline(tag string) bool {
	_, mapped := im.opts.Marks[tag]
	return mapped || inlineTags[tag]
}

// strayInline rejects an inline found outside any text node. Walking it
// first lets a mark fail with its annotation type; bare text fails after.
func (im *Importer) strayInline(s *state, e pandoc.Element) error {
	var sb strings.Builder
	if err := im.inline(s, &sb, e); err != nil {
		return err
	}
	return core.NewImporterError(e.Tag, "inline content has no target node")
}

func (im *Importer) blocks(s *state, blocks []pandoc.Element) ([]string, error) {
	var out []string
	for _, b := range blocks {
		produced, err := im.block(s, b)
		if err != nil {
			return nil, err
		}
		out = append(out, produced...)
	}
	return out, nil
}

func (im *Importer) heading(s *state, b pandoc.Element) ([]string, error) {
	arr, err := pandoc.Args(b, 3)
	if err != nil {
		return nil, malformed(b.Tag, err)
	}
	level, err := pandoc.Int(arr[0])
	if err != nil || level < 1 {
		return nil, core.NewImporterError(b.Tag, "invalid level %v", arr[0])
	}
	inl, err := pandoc.Elements(arr[2])
	if err != nil {
		return nil, malformed(b.Tag, err)
	}
	id := s.ids.Next(string(doc.TypeHeading))
	content, err := im.textNode(s, id, inl)
	if err != nil {
		return nil, err
	}
	if err := s.doc.Create(&doc.Heading{ID: id, Level: level, Content: content}); err != nil {
		return nil, &core.ImporterError{Element: b.Tag, Message: "create heading", Err: err}
	}
	return []string{id}, nil
}

// paragraph segments inlines and creates one node per segment. Several
// nodes are grouped under a richparagraph unless FlattenSegments is set.
func (im *Importer) paragraph(s *state, inl []pandoc.Element) ([]string, error) {
	var out []string
	segs := segmentInlines(inl)
	for _, seg := range segs {
		if len(segs) > 1 && seg.blank() {
			continue
		}
		var id string
		var err error
		switch seg.kind {
		case textSegment:
			id, err = im.textParagraph(s, seg.inlines)
		case imageSegment:
			id, err = im.image(s, seg.inlines[0])
		case formulaSegment:
			id, err = im.formula(s, seg.inlines[0])
		}
		if err != nil {
			return nil, err
		}
		if id != "" {
			out = append(out, id)
		}
	}
	if len(out) <= 1 || im.opts.FlattenSegments {
		return out, nil
	}
	id := s.ids.Next(string(doc.TypeRichParagraph))
	if err := s.doc.Create(&doc.RichParagraph{ID: id, Children: out}); err != nil {
		return nil, &core.ImporterError{Message: "create richparagraph", Err: err}
	}
	return []string{id}, nil
}

// textParagraph creates a paragraph from inlines. Empty paragraphs are
// dropped together with any annotations queued for them, and "" is returned.
func (im *Importer) textParagraph(s *state, inl []pandoc.Element) (string, error) {
	id := s.ids.Next(string(doc.TypeParagraph))
	queued := len(s.pending)
	content, err := im.textNode(s, id, inl)
	if err != nil {
		return "", err
	}
	if content == "" {
		s.pending = s.pending[:queued]
		return "", nil
	}
	if err := s.doc.Create(&doc.Paragraph{ID: id, Content: content}); err != nil {
		return "", &core.ImporterError{Message: "create paragraph", Err: err}
	}
	return id, nil
}

// cellParagraph creates a paragraph for a table cell. It is kept even when
// empty so the table grid stays rectangular.
func (im *Importer) cellParagraph(s *state, blocks []pandoc.Element) (string, error) {
	for _, b := range blocks {
		if b.Tag != pandoc.TagPlain && b.Tag != pandoc.TagPara {
			if err := im.unsupported(s, core.WarnDropped, b.Tag); err != nil {
				return "", err
			}
		}
	}
	id := s.ids.Next(string(doc.TypeParagraph))
	content, err := im.textNode(s, id, pandoc.BlockInlines(blocks))
	if err != nil {
		return "", err
	}
	if err := s.doc.Create(&doc.Paragraph{ID: id, Content: content}); err != nil {
		return "", &core.ImporterError{Message: "create table cell", Err: err}
	}
	return id, nil
}

func (im *Importer) lineBlock(s *state, b pandoc.Element) ([]string, error) {
	lines, ok := b.Content.([]any)
	if !ok {
		return nil, core.NewImporterError(b.Tag, "payload is %T, want array of lines", b.Content)
	}
	var inl []pandoc.Element
	for i, line := range lines {
		els, err := pandoc.Elements(line)
		if err != nil {
			return nil, malformed(b.Tag, err)
		}
		if i > 0 {
			inl = append(inl, pandoc.LineBreak())
		}
		inl = append(inl, els...)
	}
	return im.paragraph(s, inl)
}

// codeBlock handles CodeBlock [attr, text] and RawBlock [format, text]; the
// first class or the raw format becomes the language.
func (im *Importer) codeBlock(s *state, b pandoc.Element) ([]string, error) {
	arr, err := pandoc.Args(b, 2)
	if err != nil {
		return nil, malformed(b.Tag, err)
	}
	text, err := pandoc.String(arr[1])
	if err != nil {
		return nil, malformed(b.Tag, err)
	}
	var lang string
	if b.Tag == pandoc.TagRawBlock {
		lang, _ = pandoc.String(arr[0])
	} else {
		attr, err := pandoc.ParseAttr(arr[0])
		if err != nil {
			return nil, malformed(b.Tag, err)
		}
		if len(attr.Classes) > 0 {
			lang = attr.Classes[0]
		}
	}
	id := s.ids.Next(string(doc.TypeCodeBlock))
	if err := s.doc.Create(&doc.CodeBlock{ID: id, Content: text, Language: lang}); err != nil {
		return nil, &core.ImporterError{Element: b.Tag, Message: "create codeblock", Err: err}
	}
	return []string{id}, nil
}

func (im *Importer) list(s *state, b pandoc.Element) ([]string, error) {
	ordered := b.Tag == pandoc.TagOrderedList
	payload := b.Content
	if ordered {
		arr, err := pandoc.Args(b, 2)
		if err != nil {
			return nil, malformed(b.Tag, err)
		}
		payload = arr[1]
	}
	items, ok := payload.([]any)
	if !ok {
		return nil, core.NewImporterError(b.Tag, "items are %T, want array", payload)
	}

	id := s.ids.Next(string(doc.TypeList))
	list := &doc.List{ID: id, Ordered: ordered, Items: []string{}}
	for i, item := range items {
		blocks, err := pandoc.Elements(item)
		if err != nil {
			return nil, malformed(b.Tag, err)
		}
		if len(blocks) > 1 && !im.opts.MultiNodeItems {
			return nil, core.NewImporterError(b.Tag, "item %d has %d blocks, want 1", i, len(blocks))
		}
		produced, err := im.blocks(s, blocks)
		if err != nil {
			return nil, err
		}
		switch {
		case len(produced) == 0:
			return nil, core.NewImporterError(b.Tag, "item %d has no content", i)
		case len(produced) > 1 && !im.opts.MultiNodeItems:
			return nil, core.NewImporterError(b.Tag, "item %d produced %d nodes, want 1", i, len(produced))
		}
		list.Items = append(list.Items, produced...)
	}
	if err := s.doc.Create(list); err != nil {
		return nil, &core.ImporterError{Element: b.Tag, Message: "create list", Err: err}
	}
	return []string{id}, nil
}

// implicitFigure reports whether a paragraph is a lone image titled "fig:",
// pandoc's convention for a captioned figure.
func implicitFigure(inl []pandoc.Element) (pandoc.Element, bool) {
	if len(inl) != 1 || inl[0].Tag != pandoc.TagImage {
		return pandoc.Element{}, false
	}
	_, _, tgt, err := pandoc.LinkParts(inl[0])
	if err != nil || !strings.HasPrefix(tgt.Title, "fig:") {
		return pandoc.Element{}, false
	}
	return inl[0], true
}

// image creates an image node; non-empty alt inlines become its caption.
func (im *Importer) image(s *state, e pandoc.Element) (string, error) {
	_, alt, tgt, err := pandoc.LinkParts(e)
	if err != nil {
		return "", malformed(e.Tag, err)
	}
	id := s.ids.Next(string(doc.TypeImage))
	caption, err := im.textParagraph(s, alt)
	if err != nil {
		return "", err
	}
	if err := s.doc.Create(&doc.Image{ID: id, URL: tgt.URL, Title: tgt.Title, Caption: caption}); err != nil {
		return "", &core.ImporterError{Element: e.Tag, Message: "create image", Err: err}
	}
	return id, nil
}

// figure creates a figure around an image element. caption overrides the
// image's own inlines when given; sourceID is registered for references.
func (im *Importer) figure(s *state, img pandoc.Element, sourceID string, caption []pandoc.Element) ([]string, error) {
	_, alt, tgt, err := pandoc.LinkParts(img)
	if err != nil {
		return nil, malformed(img.Tag, err)
	}
	if caption == nil {
		caption = alt
	}
	figID := s.ids.Next(string(doc.TypeFigure))
	imgID := s.ids.Next(string(doc.TypeImage))
	captionID, err := im.textParagraph(s, caption)
	if err != nil {
		return nil, err
	}
	title := strings.TrimPrefix(tgt.Title, "fig:")
	if err := s.doc.Create(&doc.Image{ID: imgID, URL: tgt.URL, Title: title}); err != nil {
		return nil, &core.ImporterError{Element: img.Tag, Message: "create image", Err: err}
	}
	fig := &doc.Figure{ID: figID, Image: imgID, Caption: captionID, SourceID: sourceID}
	if err := s.doc.Create(fig); err != nil {
		return nil, &core.ImporterError{Element: img.Tag, Message: "create figure", Err: err}
	}
	if sourceID != "" {
		s.sourceIDs[sourceID] = figID
	}
	return []string{figID}, nil
}

// figureBlock handles the Figure block [attr, [short, caption blocks], body].
// A figure without an image is flattened into its body blocks.
func (im *Importer) figureBlock(s *state, b pandoc.Element) ([]string, error) {
	arr, err := pandoc.Args(b, 3)
	if err != nil {
		return nil, malformed(b.Tag, err)
	}
	attr, err := pandoc.ParseAttr(arr[0])
	if err != nil {
		return nil, malformed(b.Tag, err)
	}
	var caption []pandoc.Element
	if capArr, ok := arr[1].([]any); ok && len(capArr) == 2 {
		blocks, err := pandoc.Elements(capArr[1])
		if err != nil {
			return nil, malformed(b.Tag, err)
		}
		caption = pandoc.BlockInlines(blocks)
	}
	body, err := pandoc.Elements(arr[2])
	if err != nil {
		return nil, malformed(b.Tag, err)
	}
	for _, inl := range pandoc.BlockInlines(body) {
		if inl.Tag == pandoc.TagImage {
			if caption == nil {
				caption = []pandoc.Element{}
			}
			return im.figure(s, inl, attr.ID, caption)
		}
	}
	return im.blocks(s, body)
}

func (im *Importer) formula(s *state, e pandoc.Element) (string, error) {
	arr, err := pandoc.Args(e, 2)
	if err != nil {
		return "", malformed(e.Tag, err)
	}
	kind, err := pandoc.ParseElement(arr[0])
	if err != nil {
		return "", malformed(e.Tag, err)
	}
	tex, err := pandoc.String(arr[1])
	if err != nil {
		return "", malformed(e.Tag, err)
	}
	id := s.ids.Next(string(doc.TypeFormula))
	f := &doc.Formula{ID: id, Format: "latex", Data: tex, Inline: kind.Tag != pandoc.TagDisplayMath}
	if err := s.doc.Create(f); err != nil {
		return "", &core.ImporterError{Element: e.Tag, Message: "create formula", Err: err}
	}
	return id, nil
}

func (im *Importer) table(s *state, b pandoc.Element) ([]string, error) {
	parts, err := pandoc.ParseTable(b)
	if err != nil {
		return nil, malformed(b.Tag, err)
	}
	id := s.ids.Next(string(doc.TypeTable))
	t := &doc.Table{ID: id, Headers: []string{}, Cells: [][]string{}}
	if t.Caption, err = im.textParagraph(s, parts.Caption); err != nil {
		return nil, err
	}
	for _, h := range parts.Headers {
		cell, err := im.cellParagraph(s, h)
		if err != nil {
			return nil, err
		}
		t.Headers = append(t.Headers, cell)
	}
	for _, row := range parts.Rows {
		line := make([]string, 0, len(row))
		for _, c := range row {
			cell, err := im.cellParagraph(s, c)
			if err != nil {
				return nil, err
			}
			line = append(line, cell)
		}
		t.Cells = append(t.Cells, line)
	}
	if err := s.doc.Create(t); err != nil {
		return nil, &core.ImporterError{Element: b.Tag, Message: "create table", Err: err}
	}
	return []string{id}, nil
}
