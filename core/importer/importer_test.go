package importer

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/flatdoc/core"
	"github.com/gaurav-prasanna/flatdoc/core/doc"
	"github.com/gaurav-prasanna/flatdoc/core/pandoc"
)

func importBlocks(t *testing.T, opts Options, blocks ...pandoc.Element) (*doc.Document, *core.Report) {
	t.Helper()
	d, report, err := New(opts).Import(&pandoc.Document{Blocks: blocks})
	require.NoError(t, err)
	return d, report
}

func node[T doc.Node](t *testing.T, d *doc.Document, id string) T {
	t.Helper()
	n, ok := d.Get(id)
	require.True(t, ok, "node %s missing", id)
	typed, ok := n.(T)
	require.True(t, ok, "node %s is %T", id, n)
	return typed
}

func TestImport_HeadingAndParagraph(t *testing.T) {
	src, err := pandoc.Decode([]byte(`[{"unMeta":{}},[
		{"Header":[1,["intro",[],[]],[{"Str":"Introduction"}]]},
		{"Para":[{"Str":"Hello"},"Space",{"Str":"world."}]}
	]]`))
	require.NoError(t, err)

	d, report, err := New(Options{}).Import(src)
	require.NoError(t, err)
	assert.True(t, report.Empty())

	h := node[*doc.Heading](t, d, "heading_1")
	assert.Equal(t, 1, h.Level)
	assert.Equal(t, "Introduction", h.Content)
	assert.Equal(t, "Hello world.", node[*doc.Paragraph](t, d, "paragraph_1").Content)
	assert.Equal(t, []string{"heading_1", "paragraph_1"}, d.View(doc.DefaultView))
	assert.Empty(t, d.Annotations())
}

func TestImport_Marks(t *testing.T) {
	tests := []struct {
		name    string
		para    pandoc.Element
		content string
		typ     string
		rng     doc.Range
		url     string
	}{
		{
			name: "link",
			para: pandoc.Para(
				pandoc.Str("This"), pandoc.Space(), pandoc.Str("is"), pandoc.Space(),
				pandoc.Link("http://example.com", "", pandoc.Str("an"), pandoc.Space(), pandoc.Str("example")),
				pandoc.Space(), pandoc.Str("inline"), pandoc.Space(), pandoc.Str("link."),
			),
			content: "This is an example inline link.",
			typ:     doc.AnnotationLink,
			rng:     doc.Range{8, 18},
			url:     "http://example.com",
		},
		{
			name: "code",
			para: pandoc.Para(
				pandoc.Str("Don't"), pandoc.Space(), pandoc.Str("call"), pandoc.Space(),
				pandoc.Str("me"), pandoc.Space(), pandoc.Code("foo()"), pandoc.Str(","),
				pandoc.Space(), pandoc.Str("fool"),
			),
			content: "Don't call me foo(), fool",
			typ:     doc.AnnotationCode,
			rng:     doc.Range{14, 19},
		},
		{
			name: "emphasis",
			para: pandoc.Para(
				pandoc.Str("This"), pandoc.Space(), pandoc.Str("is"), pandoc.Space(),
				pandoc.Emph(pandoc.Str("important")), pandoc.Space(), pandoc.Str("text."),
			),
			content: "This is important text.",
			typ:     doc.AnnotationEmphasis,
			rng:     doc.Range{8, 17},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := importBlocks(t, Options{}, tt.para)

			p := node[*doc.Paragraph](t, d, "paragraph_1")
			assert.Equal(t, tt.content, p.Content)

			anns := d.Annotations()
			require.Len(t, anns, 1)
			a := anns[0]
			assert.Equal(t, tt.typ+"_1", a.ID)
			assert.Equal(t, tt.typ, a.Type)
			assert.Equal(t, doc.Path{"paragraph_1", "content"}, a.Path)
			assert.Equal(t, tt.rng, a.Range)
			assert.Equal(t, tt.url, a.URL)
		})
	}
}

func TestImport_NestedMarks(t *testing.T) {
	d, _ := importBlocks(t, Options{}, pandoc.Para(
		pandoc.Strong(pandoc.Str("a"), pandoc.Space(), pandoc.Emph(pandoc.Str("b"))),
		pandoc.Space(), pandoc.Str("c"),
	))

	assert.Equal(t, "a b c", node[*doc.Paragraph](t, d, "paragraph_1").Content)
	anns := d.Annotations()
	require.Len(t, anns, 2)
	assert.Equal(t, doc.AnnotationStrong, anns[0].Type, "outer annotation is queued first")
	assert.Equal(t, doc.Range{0, 3}, anns[0].Range)
	assert.Equal(t, doc.AnnotationEmphasis, anns[1].Type)
	assert.Equal(t, doc.Range{2, 3}, anns[1].Range)
}

func TestImport_NestedMarksIDsInnerFirst(t *testing.T) {
	d, _ := importBlocks(t, Options{}, pandoc.Para(
		pandoc.Strong(pandoc.Strong(pandoc.Str("x"))),
	))

	anns := d.Annotations()
	require.Len(t, anns, 2)
	assert.Equal(t, "strong_2", anns[0].ID)
	assert.Equal(t, "strong_1", anns[1].ID)
}

func TestImport_OffsetsCountCodePoints(t *testing.T) {
	d, _ := importBlocks(t, Options{},
		pandoc.Header(2, "", pandoc.Str("Grüße"), pandoc.Space(), pandoc.Emph(pandoc.Str("日本"))),
		pandoc.Para(pandoc.Str("héllo"), pandoc.Space(), pandoc.Strong(pandoc.Str("wörld")), pandoc.LineBreak(), pandoc.Code("ñ")),
	)

	anns := d.Annotations()
	require.Len(t, anns, 3)
	assert.Equal(t, doc.Range{6, 8}, anns[0].Range)
	assert.Equal(t, doc.Range{6, 11}, anns[1].Range)
	assert.Equal(t, doc.Range{12, 13}, anns[2].Range)

	for _, a := range anns {
		text, err := d.Text(a.Path)
		require.NoError(t, err)
		assert.True(t, a.Range.Within(doc.TextLen(text)), "%s %v outside %q", a.ID, a.Range, text)
	}
}

func TestImport_AnnotationOutsideTarget(t *testing.T) {
	im := New(Options{})
	s := newState(doc.New("d"))

	_, err := im.text(s, []pandoc.Element{pandoc.Emph(pandoc.Str("x"))})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrImport)

	// Plain text without a target is harmless.
	text, err := im.text(s, []pandoc.Element{pandoc.Str("x")})
	require.NoError(t, err)
	assert.Equal(t, "x", text)
}

func TestImport_InlineOutsideBlock(t *testing.T) {
	tests := []struct {
		name   string
		blocks []pandoc.Element
		msg    string
	}{
		{"emphasis", []pandoc.Element{pandoc.Emph(pandoc.Str("x"))}, "emphasis annotation has no target node"},
		{
			"strong before paragraph",
			[]pandoc.Element{pandoc.Strong(pandoc.Str("x")), pandoc.Para(pandoc.Str("y"))},
			"strong annotation has no target node",
		},
		{"nested in transparent container", []pandoc.Element{pandoc.Mark(pandoc.TagSmallCaps, pandoc.Emph(pandoc.Str("x")))}, "emphasis annotation"},
		{"bare text", []pandoc.Element{pandoc.Str("x")}, "inline content has no target node"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, strict := range []bool{false, true} {
				d, report, err := New(Options{Strict: strict}).Import(&pandoc.Document{Blocks: tt.blocks})
				assert.Nil(t, d)
				assert.Nil(t, report)
				var ie *core.ImporterError
				require.ErrorAs(t, err, &ie)
				assert.ErrorIs(t, err, core.ErrImport)
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}

	// Decoded input takes the same path.
	src, err := pandoc.Decode([]byte(`{"Emph":[{"Str":"x"}]}`))
	require.NoError(t, err)
	_, _, err = New(Options{}).Import(src)
	assert.ErrorIs(t, err, core.ErrImport)
}

func TestState_FlushOnce(t *testing.T) {
	s := newState(doc.New("d"))
	require.NoError(t, s.flush())
	assert.Error(t, s.flush())
}

func TestState_TargetStackPopsOnError(t *testing.T) {
	s := newState(doc.New("d"))
	err := s.withTarget("a", func() error {
		return s.withTarget("b", func() error {
			cur, ok := s.current()
			require.True(t, ok)
			assert.Equal(t, "b", cur.id)
			return assert.AnError
		})
	})
	assert.ErrorIs(t, err, assert.AnError)
	_, ok := s.current()
	assert.False(t, ok)
}

func TestSegmentInlines(t *testing.T) {
	img := pandoc.Image("a.png", "")
	math := pandoc.Math(false, "x")
	inl := []pandoc.Element{pandoc.Str("a"), pandoc.Space(), img, pandoc.Str("b"), math}

	segs := segmentInlines(inl)
	kinds := make([]segmentKind, len(segs))
	for i, s := range segs {
		kinds[i] = s.kind
	}
	assert.Equal(t, []segmentKind{textSegment, imageSegment, textSegment, formulaSegment}, kinds)
	assert.Len(t, inl, 5, "input untouched")

	for _, seg := range segs {
		again := segmentInlines(seg.inlines)
		require.Len(t, again, 1)
		assert.Equal(t, seg, again[0])
	}
	assert.Empty(t, segmentInlines(nil))
}

func TestImport_RichParagraph(t *testing.T) {
	para := pandoc.Para(
		pandoc.Str("See"), pandoc.Space(),
		pandoc.Image("a.png", "A", pandoc.Str("alt")),
		pandoc.Space(), pandoc.Str("here"),
	)

	d, _ := importBlocks(t, Options{}, para)
	rp := node[*doc.RichParagraph](t, d, "richparagraph_1")
	assert.Equal(t, []string{"paragraph_1", "image_1", "paragraph_3"}, rp.Children)
	assert.Equal(t, "See ", node[*doc.Paragraph](t, d, "paragraph_1").Content)
	img := node[*doc.Image](t, d, "image_1")
	assert.Equal(t, "a.png", img.URL)
	assert.Equal(t, "A", img.Title)
	assert.Equal(t, "paragraph_2", img.Caption)
	assert.Equal(t, []string{"richparagraph_1"}, d.View(doc.DefaultView))

	d, _ = importBlocks(t, Options{FlattenSegments: true}, para)
	assert.Equal(t, []string{"paragraph_1", "image_1", "paragraph_3"}, d.View(doc.DefaultView))
}

func TestImport_LoneImageIsNotWrapped(t *testing.T) {
	d, _ := importBlocks(t, Options{}, pandoc.Para(pandoc.Image("a.png", "")))
	assert.Equal(t, []string{"image_1"}, d.View(doc.DefaultView))
	assert.Empty(t, node[*doc.Image](t, d, "image_1").Caption)
}

func TestImport_Formula(t *testing.T) {
	d, _ := importBlocks(t, Options{},
		pandoc.Para(pandoc.Math(true, `x^2`)),
		pandoc.Para(pandoc.Str("so"), pandoc.Space(), pandoc.Math(false, "y")),
	)

	f := node[*doc.Formula](t, d, "formula_1")
	assert.Equal(t, "latex", f.Format)
	assert.Equal(t, "x^2", f.Data)
	assert.False(t, f.Inline)
	assert.True(t, node[*doc.Formula](t, d, "formula_2").Inline)
	assert.Equal(t, []string{"formula_1", "richparagraph_1"}, d.View(doc.DefaultView))
}

func TestImport_Lists(t *testing.T) {
	d, _ := importBlocks(t, Options{},
		pandoc.BulletList(
			[]pandoc.Element{pandoc.Plain(pandoc.Str("one"))},
			[]pandoc.Element{pandoc.Plain(pandoc.Emph(pandoc.Str("two")))},
		),
		pandoc.OrderedList([]pandoc.Element{pandoc.Para(pandoc.Str("first"))}),
	)

	bullets := node[*doc.List](t, d, "list_1")
	assert.False(t, bullets.Ordered)
	assert.Equal(t, []string{"paragraph_1", "paragraph_2"}, bullets.Items)
	ordered := node[*doc.List](t, d, "list_2")
	assert.True(t, ordered.Ordered)
	assert.Equal(t, []string{"paragraph_3"}, ordered.Items)
	assert.Equal(t, []string{"list_1", "list_2"}, d.View(doc.DefaultView))
	require.Len(t, d.Annotations(), 1)
	assert.Equal(t, "paragraph_2", d.Annotations()[0].Path.NodeID())
}

func TestImport_ListItemErrors(t *testing.T) {
	two := []pandoc.Element{pandoc.Para(pandoc.Str("a")), pandoc.Para(pandoc.Str("b"))}

	tests := []struct {
		name string
		item []pandoc.Element
	}{
		{"empty item", nil},
		{"item without text", []pandoc.Element{pandoc.Plain()}},
		{"two blocks", two},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := New(Options{}).Import(&pandoc.Document{Blocks: []pandoc.Element{pandoc.BulletList(tt.item)}})
			var ie *core.ImporterError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, pandoc.TagBulletList, ie.Element)
		})
	}

	d, _ := importBlocks(t, Options{MultiNodeItems: true}, pandoc.BulletList(two))
	assert.Equal(t, []string{"paragraph_1", "paragraph_2"}, node[*doc.List](t, d, "list_1").Items)
}

func TestImport_UnsupportedElements(t *testing.T) {
	note := pandoc.Element{Tag: pandoc.TagNote, Content: []any{pandoc.Para(pandoc.Str("fn"))}}
	defs := pandoc.Element{Tag: pandoc.TagDefinitionList, Content: []any{}}
	blocks := []pandoc.Element{pandoc.Para(pandoc.Str("a"), note), defs}

	t.Run("lenient", func(t *testing.T) {
		d, report := importBlocks(t, Options{}, blocks...)
		assert.Equal(t, "a", node[*doc.Paragraph](t, d, "paragraph_1").Content)
		require.Len(t, report.Warnings, 2)
		assert.Equal(t, core.WarnUnknownInline, report.Warnings[0].Kind)
		assert.Equal(t, pandoc.TagNote, report.Warnings[0].Element)
		assert.Equal(t, core.WarnUnknownBlock, report.Warnings[1].Kind)
	})

	t.Run("strict", func(t *testing.T) {
		d, report, err := New(Options{Strict: true}).Import(&pandoc.Document{Blocks: blocks})
		assert.Nil(t, d)
		assert.Nil(t, report)
		var ie *core.ImporterError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, pandoc.TagNote, ie.Element)
	})
}

func TestImport_EmptyParagraphsDropped(t *testing.T) {
	d, _ := importBlocks(t, Options{},
		pandoc.Para(),
		pandoc.Para(pandoc.Emph()),
		pandoc.Para(pandoc.Str("kept")),
		pandoc.HorizontalRule(),
	)
	assert.Equal(t, 1, d.Len())
	assert.Empty(t, d.Annotations())
	assert.Equal(t, "kept", node[*doc.Paragraph](t, d, d.View(doc.DefaultView)[0]).Content)
}

func TestImport_FlattenedContainers(t *testing.T) {
	div := pandoc.Element{Tag: pandoc.TagDiv, Content: []any{pandoc.Attr{}.Value(), []any{pandoc.Para(pandoc.Str("in div"))}}}
	lines := pandoc.Element{Tag: pandoc.TagLineBlock, Content: []any{
		[]any{pandoc.Str("roses")},
		[]any{pandoc.Str("violets")},
	}}

	d, _ := importBlocks(t, Options{},
		pandoc.BlockQuote(pandoc.Para(pandoc.Str("quoted"))),
		div,
		lines,
	)
	assert.Equal(t, []string{"paragraph_1", "paragraph_2", "paragraph_3"}, d.View(doc.DefaultView))
	assert.Equal(t, "roses\nviolets", node[*doc.Paragraph](t, d, "paragraph_3").Content)
}

func TestImport_CodeBlocks(t *testing.T) {
	d, _ := importBlocks(t, Options{},
		pandoc.CodeBlock("go", "package main\n"),
		pandoc.RawBlock("html", "<hr>"),
	)
	code := node[*doc.CodeBlock](t, d, "codeblock_1")
	assert.Equal(t, "go", code.Language)
	assert.Equal(t, "package main\n", code.Content)
	assert.Equal(t, "html", node[*doc.CodeBlock](t, d, "codeblock_2").Language)
}

func TestImport_InlineContainers(t *testing.T) {
	quoted := pandoc.Element{Tag: pandoc.TagQuoted, Content: []any{
		pandoc.Element{Tag: pandoc.TagDoubleQuote}, []any{pandoc.Str("hi")},
	}}
	small := pandoc.Mark(pandoc.TagSmallCaps, pandoc.Str("caps"))
	span := pandoc.Span(pandoc.Attr{Classes: []string{"note"}}, pandoc.Str("plain"))

	d, _ := importBlocks(t, Options{}, pandoc.Para(
		quoted, pandoc.Space(), small, pandoc.Space(), span, pandoc.SoftBreak(), pandoc.Str("end"),
	))
	assert.Equal(t, `"hi" caps plain end`, node[*doc.Paragraph](t, d, "paragraph_1").Content)
	assert.Empty(t, d.Annotations())
}

func TestImport_Figures(t *testing.T) {
	t.Run("implicit", func(t *testing.T) {
		d, _ := importBlocks(t, Options{FigureView: "figures"},
			pandoc.Para(pandoc.Image("f.png", "fig:Plot", pandoc.Str("Results"))),
		)
		fig := node[*doc.Figure](t, d, "figure_1")
		assert.Equal(t, "image_1", fig.Image)
		assert.Equal(t, "paragraph_1", fig.Caption)
		assert.Equal(t, "Plot", node[*doc.Image](t, d, "image_1").Title)
		assert.Equal(t, "Results", node[*doc.Paragraph](t, d, "paragraph_1").Content)
		assert.Equal(t, []string{"figure_1"}, d.View("figures"))
		assert.Empty(t, d.View(doc.DefaultView))
	})

	t.Run("figure block with cross reference", func(t *testing.T) {
		xref := pandoc.Attr{Classes: []string{"xref"}, KeyVals: [][2]string{{"rid", "fig1"}}}
		d, _ := importBlocks(t, Options{},
			pandoc.Para(pandoc.Str("See"), pandoc.Space(), pandoc.Span(xref, pandoc.Str("Figure"), pandoc.Space(), pandoc.Str("1"))),
			pandoc.Figure("fig1", []pandoc.Element{pandoc.Str("Caption")}, pandoc.Image("f.png", "")),
		)

		fig := node[*doc.Figure](t, d, "figure_1")
		assert.Equal(t, "fig1", fig.SourceID)
		assert.Equal(t, "Caption", node[*doc.Paragraph](t, d, fig.Caption).Content)

		anns := d.Annotations()
		require.Len(t, anns, 1)
		assert.Equal(t, "cross_reference", anns[0].Type)
		assert.Equal(t, "figure_1", anns[0].Target)
		assert.Equal(t, doc.Range{4, 12}, anns[0].Range)
		assert.Equal(t, []*doc.Annotation{anns[0]}, doc.NewAnnotationIndex(d).ByTarget("figure_1"))
	})
}

func TestImport_Table(t *testing.T) {
	tbl := pandoc.Table(
		[]pandoc.Element{pandoc.Str("Totals")},
		[][]pandoc.Element{{pandoc.Plain(pandoc.Str("Name"))}, {pandoc.Plain(pandoc.Str("Value"))}},
		[][][]pandoc.Element{{{pandoc.Plain(pandoc.Strong(pandoc.Str("a")))}, {}}},
	)

	d, _ := importBlocks(t, Options{}, tbl)
	table := node[*doc.Table](t, d, "table_1")
	assert.Equal(t, "paragraph_1", table.Caption)
	assert.Equal(t, []string{"paragraph_2", "paragraph_3"}, table.Headers)
	assert.Equal(t, [][]string{{"paragraph_4", "paragraph_5"}}, table.Cells)
	assert.Equal(t, "", node[*doc.Paragraph](t, d, "paragraph_5").Content, "empty cells are kept")
	assert.Equal(t, []string{"table_1"}, d.View(doc.DefaultView))
	require.Len(t, d.Annotations(), 1)
	assert.Equal(t, "paragraph_4", d.Annotations()[0].Path.NodeID())
}

func TestImport_Meta(t *testing.T) {
	src := &pandoc.Document{
		Meta:   pandoc.MetaValues(map[string]any{"doc_id": "paper-7", "title": "On Flat Documents"}),
		Blocks: []pandoc.Element{pandoc.Para(pandoc.Str("x"))},
	}
	d, _, err := New(Options{}).Import(src)
	require.NoError(t, err)
	assert.Equal(t, "paper-7", d.ID)
	assert.Equal(t, "On Flat Documents", d.Title())

	d, _ = importBlocks(t, Options{}, pandoc.Para(pandoc.Str("x")))
	assert.Len(t, d.ID, 36)
}

func TestImport_NilSource(t *testing.T) {
	_, _, err := New(Options{}).Import(nil)
	assert.ErrorIs(t, err, core.ErrImport)
}

func TestImport_ConcurrentCalls(t *testing.T) {
	src := &pandoc.Document{
		Meta: pandoc.MetaValues(map[string]any{"doc_id": "shared"}),
		Blocks: []pandoc.Element{
			pandoc.Header(1, "", pandoc.Str("Title")),
			pandoc.Para(pandoc.Emph(pandoc.Str("a")), pandoc.Space(), pandoc.Link("u", "", pandoc.Str("b"))),
		},
	}
	im := New(Options{})
	want, _, err := im.Import(src)
	require.NoError(t, err)
	wantJSON, err := json.Marshal(want)
	require.NoError(t, err)

	const n = 8
	results := make([][]byte, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, _, err := im.Import(src)
			if err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = json.Marshal(d)
		}(i)
	}
	wg.Wait()
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.JSONEq(t, string(wantJSON), string(results[i]))
	}
}
