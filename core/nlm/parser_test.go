package nlm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/flatdoc/core/doc"
	"github.com/gaurav-prasanna/flatdoc/core/importer"
	"github.com/gaurav-prasanna/flatdoc/core/pandoc"
)

const article = `<?xml version="1.0" encoding="UTF-8"?>
<article xmlns:xlink="http://www.w3.org/1999/xlink">
  <front>
    <article-meta>
      <article-id pub-id-type="doi">10.7554/eLife.00001</article-id>
      <title-group>
        <article-title>Flat   documents
          in practice</article-title>
      </title-group>
      <contrib-group>
        <contrib contrib-type="editor"><name><surname>Ed</surname><given-names>Itor</given-names></name></contrib>
        <contrib contrib-type="author"><name><surname>Lovelace</surname><given-names>Ada</given-names></name></contrib>
      </contrib-group>
      <pub-date><day>5</day><month>3</month><year>2013</year></pub-date>
    </article-meta>
  </front>
  <body>
    <sec id="s1">
      <title>Introduction</title>
      <p>We use <bold>bold</bold>, <italic>italic</italic> and <monospace>mono</monospace>
        text, see <xref ref-type="fig" rid="fig1">Figure 1</xref>.</p>
      <sec id="s1-1">
        <title>Details</title>
        <p>H<sub>2</sub>O and <ext-link xlink:href="http://example.org">a site</ext-link>.</p>
      </sec>
      <fig id="fig1">
        <label>Figure 1</label>
        <caption><p>A <italic>plot</italic>.</p></caption>
        <graphic xlink:href="fig1.tif"/>
      </fig>
      <list list-type="order">
        <list-item><p>first</p></list-item>
        <list-item><p>second</p></list-item>
      </list>
    </sec>
  </body>
</article>`

func TestParse_Meta(t *testing.T) {
	src, err := New().Parse([]byte(article))
	require.NoError(t, err)

	meta := pandoc.PlainMeta(src.Meta)
	assert.Equal(t, "10.7554/eLife.00001", meta["doc_id"])
	assert.Equal(t, "Flat documents in practice", meta["title"])
	assert.Equal(t, "Ada Lovelace", meta["creator"])
	assert.Equal(t, "2013-03-05", meta["created_at"])
}

func TestParse_Blocks(t *testing.T) {
	src, err := New().Parse([]byte(article))
	require.NoError(t, err)

	tags := make([]string, len(src.Blocks))
	for i, b := range src.Blocks {
		tags[i] = b.Tag
	}
	assert.Equal(t, []string{
		pandoc.TagHeader, pandoc.TagPara, pandoc.TagHeader, pandoc.TagPara,
		pandoc.TagFigure, pandoc.TagOrderedList,
	}, tags)
	assert.Equal(t, pandoc.Header(2, "s1-1", pandoc.Str("Details")), src.Blocks[2])
}

func TestParse_Import(t *testing.T) {
	p := New()
	src, err := p.Parse([]byte(article))
	require.NoError(t, err)

	d, report, err := importer.New(importer.Options{
		MultiNodeItems: p.SupportsMultiNodeItems(),
		FigureView:     FigureView,
	}).Import(src)
	require.NoError(t, err)
	assert.True(t, report.Empty())
	assert.Equal(t, "10.7554/eLife.00001", d.ID)

	n, ok := d.Get("paragraph_1")
	require.True(t, ok)
	assert.Equal(t, "We use bold, italic and mono text, see Figure 1.", n.(*doc.Paragraph).Content)

	byType := map[string]*doc.Annotation{}
	for _, a := range d.Annotations() {
		if a.Path.NodeID() == "paragraph_1" {
			byType[a.Type] = a
		}
	}
	assert.Equal(t, doc.Range{7, 11}, byType[doc.AnnotationStrong].Range)
	assert.Equal(t, doc.Range{13, 19}, byType[doc.AnnotationEmphasis].Range)
	assert.Equal(t, doc.Range{24, 28}, byType[doc.AnnotationCode].Range)
	xref := byType["cross_reference"]
	require.NotNil(t, xref)
	assert.Equal(t, doc.Range{39, 47}, xref.Range)
	assert.Equal(t, "figure_1", xref.Target)

	assert.Equal(t, []string{"figure_1"}, d.View(FigureView))
	assert.NotContains(t, d.View(doc.DefaultView), "figure_1")

	h, ok := d.Get("heading_2")
	require.True(t, ok)
	assert.Equal(t, 2, h.(*doc.Heading).Level)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{"not xml", "<article"},
		{"no article", "<book/>"},
		{"no front", "<article><body/></article>"},
		{"no article-meta", "<article><front/></article>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Parse([]byte(tt.xml))
			assert.Error(t, err)
		})
	}
}

func TestParse_Table(t *testing.T) {
	src, err := New().Parse([]byte(`<article><front><article-meta/></front><body>
	  <table-wrap><caption><title>Counts</title></caption><table>
	    <tr><th>k</th><th>v</th></tr>
	    <tr><td>a</td><td/></tr>
	  </table></table-wrap></body></article>`))
	require.NoError(t, err)
	require.Len(t, src.Blocks, 1)

	parts, err := pandoc.ParseTable(src.Blocks[0])
	require.NoError(t, err)
	assert.Equal(t, []pandoc.Element{pandoc.Str("Counts")}, parts.Caption)
	assert.Equal(t, [][]pandoc.Element{{pandoc.Plain(pandoc.Str("k"))}, {pandoc.Plain(pandoc.Str("v"))}}, parts.Headers)
	assert.Equal(t, [][][]pandoc.Element{{{pandoc.Plain(pandoc.Str("a"))}, {}}}, parts.Rows)
}

func TestCollapse(t *testing.T) {
	assert.Equal(t, " a b ", collapse("\n  a\t\tb \n"))
	assert.Equal(t, "", collapse(""))
}
