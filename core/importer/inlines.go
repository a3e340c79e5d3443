package importer

import (
	"strings"

	"github.com/gaurav-prasanna/flatdoc/core"
	"github.com/gaurav-prasanna/flatdoc/core/doc"
	"github.com/gaurav-prasanna/flatdoc/core/pandoc"
)

// textNode reads inlines as the content of node id. The node is the current
// target for the duration of the read.
func (im *Importer) textNode(s *state, id string, inl []pandoc.Element) (string, error) {
	var content string
	err := s.withTarget(id, func() error {
		var err error
		if content, err = im.text(s, inl); err != nil {
			return err
		}
		if t, _ := s.current(); t.offset != doc.TextLen(content) {
			return core.NewImporterError("", "offset %d does not match content length %d of %s",
				t.offset, doc.TextLen(content), id)
		}
		return nil
	})
	return content, err
}

// text concatenates the text of inlines, queueing an annotation for every
// mapped mark against the current target.
func (im *Importer) text(s *state, inl []pandoc.Element) (string, error) {
	var sb strings.Builder
	if err := im.inlines(s, &sb, inl); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (im *Importer) inlines(s *state, sb *strings.Builder, inl []pandoc.Element) error {
	for _, e := range inl {
		if err := im.inline(s, sb, e); err != nil {
			return err
		}
	}
	return nil
}

func write(s *state, sb *strings.Builder, str string) {
	sb.WriteString(str)
	s.advance(doc.TextLen(str))
}

func (im *Importer) inline(s *state, sb *strings.Builder, e pandoc.Element) error {
	switch e.Tag {
	case pandoc.TagStr:
		str, err := pandoc.String(e.Content)
		if err != nil {
			return malformed(e.Tag, err)
		}
		write(s, sb, str)
		return nil
	case pandoc.TagSpace, pandoc.TagSoftBreak:
		write(s, sb, " ")
		return nil
	case pandoc.TagLineBreak:
		write(s, sb, "\n")
		return nil
	case pandoc.TagSpan:
		return im.span(s, sb, e)
	}

	if typ, ok := im.opts.Marks[e.Tag]; ok {
		a := &doc.Annotation{}
		if e.Tag == pandoc.TagLink || e.Tag == pandoc.TagImage {
			_, _, tgt, err := pandoc.LinkParts(e)
			if err != nil {
				return malformed(e.Tag, err)
			}
			a.URL, a.Title = tgt.URL, tgt.Title
		}
		return im.annotate(s, e.Tag, typ, a, func() error { return im.body(s, sb, e) })
	}

	switch e.Tag {
	case pandoc.TagEmph, pandoc.TagStrong, pandoc.TagUnderline, pandoc.TagStrikeout,
		pandoc.TagSuperscript, pandoc.TagSubscript, pandoc.TagSmallCaps, pandoc.TagCite,
		pandoc.TagLink, pandoc.TagImage, pandoc.TagCode, pandoc.TagMath:
		return im.body(s, sb, e)
	case pandoc.TagQuoted:
		arr, err := pandoc.Args(e, 2)
		if err != nil {
			return malformed(e.Tag, err)
		}
		q := "\""
		if kind, err := pandoc.ParseElement(arr[0]); err == nil && kind.Tag == pandoc.TagSingleQuote {
			q = "'"
		}
		write(s, sb, q)
		if err := im.body(s, sb, e); err != nil {
			return err
		}
		write(s, sb, q)
		return nil
	default:
		return im.unsupported(s, core.WarnUnknownInline, e.Tag)
	}
}

// body writes the text an inline contributes without annotating it:
// verbatim text for Code and Math, the nested inlines for containers.
func (im *Importer) body(s *state, sb *strings.Builder, e pandoc.Element) error {
	switch e.Tag {
	case pandoc.TagCode, pandoc.TagMath:
		arr, err := pandoc.Args(e, 2)
		if err != nil {
			return malformed(e.Tag, err)
		}
		str, err := pandoc.String(arr[1])
		if err != nil {
			return malformed(e.Tag, err)
		}
		write(s, sb, str)
		return nil
	case pandoc.TagLink, pandoc.TagImage:
		_, inl, _, err := pandoc.LinkParts(e)
		if err != nil {
			return malformed(e.Tag, err)
		}
		return im.inlines(s, sb, inl)
	case pandoc.TagSpan, pandoc.TagQuoted, pandoc.TagCite:
		arr, err := pandoc.Args(e, 2)
		if err != nil {
			return malformed(e.Tag, err)
		}
		inl, err := pandoc.Elements(arr[1])
		if err != nil {
			return malformed(e.Tag, err)
		}
		return im.inlines(s, sb, inl)
	default:
		inl, err := pandoc.Inlines(e)
		if err != nil {
			return malformed(e.Tag, err)
		}
		return im.inlines(s, sb, inl)
	}
}

// span annotates a Span whose first mapped class names an annotation type.
// The "rid" or "target" attribute becomes the annotation target. Other spans
// are transparent.
func (im *Importer) span(s *state, sb *strings.Builder, e pandoc.Element) error {
	arr, err := pandoc.Args(e, 2)
	if err != nil {
		return malformed(e.Tag, err)
	}
	attr, err := pandoc.ParseAttr(arr[0])
	if err != nil {
		return malformed(e.Tag, err)
	}
	for _, class := range attr.Classes {
		typ, ok := im.opts.SpanClasses[class]
		if !ok {
			continue
		}
		a := &doc.Annotation{}
		if rid, ok := attr.Get("rid"); ok {
			a.Target = rid
		} else if tgt, ok := attr.Get("target"); ok {
			a.Target = tgt
		}
		return im.annotate(s, e.Tag, typ, a, func() error { return im.body(s, sb, e) })
	}
	return im.body(s, sb, e)
}

// annotate records the range covered by fill as an annotation of type typ on
// the current target. The id is allocated after fill returns, so nested
// annotations are numbered first, but the queue slot is taken before, so an
// outer annotation precedes the ones nested in it.
func (im *Importer) annotate(s *state, tag, typ string, a *doc.Annotation, fill func() error) error {
	t, ok := s.current()
	if !ok {
		return core.NewImporterError(tag, "%s annotation has no target node", typ)
	}
	nodeID, start := t.id, t.offset
	slot := s.reserve()
	if err := fill(); err != nil {
		return err
	}
	t, _ = s.current()
	a.Type = typ
	a.Path = doc.Path{nodeID, doc.ContentProperty}
	a.Range = doc.Range{start, t.offset}
	a.ID = s.ids.Next(typ)
	s.pending[slot] = a
	return nil
}
