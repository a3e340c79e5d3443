package doc

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument(t *testing.T) *Document {
	t.Helper()
	d := New("doc-1")
	d.Meta = map[string]any{"title": "Sample"}
	require.NoError(t, d.Create(&Heading{ID: "heading_1", Level: 1, Content: "Heading"}))
	require.NoError(t, d.Create(&Paragraph{ID: "paragraph_1", Content: "I am an annotated paragraph."}))
	require.NoError(t, d.Create(&List{ID: "list_1", Items: []string{"paragraph_1"}}))
	require.NoError(t, d.AddAnnotation(&Annotation{
		ID: "emphasis_1", Type: AnnotationEmphasis,
		Path: Path{"paragraph_1", ContentProperty}, Range: Range{8, 17},
	}))
	require.NoError(t, d.AddAnnotation(&Annotation{
		ID: "link_1", Type: AnnotationLink, URL: "http://example.com",
		Path: Path{"heading_1", ContentProperty}, Range: Range{0, 7},
	}))
	d.Show(DefaultView, "heading_1", "list_1")
	return d
}

func TestDocument_CreateRejectsDuplicates(t *testing.T) {
	d := sampleDocument(t)

	err := d.Create(&Paragraph{ID: "heading_1"})
	assert.ErrorIs(t, err, ErrDuplicateID)

	err = d.AddAnnotation(&Annotation{ID: "paragraph_1", Type: "strong", Path: Path{"heading_1", ContentProperty}})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestDocument_AddAnnotationChecksPath(t *testing.T) {
	d := sampleDocument(t)

	tests := []struct {
		name string
		path Path
	}{
		{"missing node", Path{"paragraph_9", ContentProperty}},
		{"node without text", Path{"list_1", ContentProperty}},
		{"unknown property", Path{"paragraph_1", "title"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.AddAnnotation(&Annotation{ID: "strong_1", Type: "strong", Path: tt.path})
			assert.ErrorIs(t, err, ErrDanglingPath)
		})
	}
}

func TestDocument_AnnotationsKeepInsertionOrder(t *testing.T) {
	d := sampleDocument(t)

	anns := d.Annotations()
	require.Len(t, anns, 2)
	assert.Equal(t, "emphasis_1", anns[0].ID)
	assert.Equal(t, "link_1", anns[1].ID)
}

func TestDocument_Text(t *testing.T) {
	d := sampleDocument(t)

	text, err := d.Text(Path{"heading_1", ContentProperty})
	require.NoError(t, err)
	assert.Equal(t, "Heading", text)

	_, err = d.Text(Path{"list_1", ContentProperty})
	assert.ErrorIs(t, err, ErrDanglingPath)
}

func TestDocument_JSONKeepsAnnotationsInsideNodes(t *testing.T) {
	d := sampleDocument(t)

	data, err := json.Marshal(d)
	require.NoError(t, err)

	var raw struct {
		ID    string                    `json:"id"`
		Nodes map[string]map[string]any `json:"nodes"`
		Views map[string][]string       `json:"views"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "doc-1", raw.ID)
	assert.Len(t, raw.Nodes, 5)
	assert.Equal(t, "heading", raw.Nodes["heading_1"]["type"])
	assert.Equal(t, "emphasis", raw.Nodes["emphasis_1"]["type"])
	assert.Equal(t, []any{"paragraph_1", "content"}, raw.Nodes["emphasis_1"]["path"])
	assert.Equal(t, []any{float64(8), float64(17)}, raw.Nodes["emphasis_1"]["range"])
	assert.Equal(t, "http://example.com", raw.Nodes["link_1"]["url"])
	assert.Equal(t, []string{"heading_1", "list_1"}, raw.Views["content"])
}

func TestDocument_JSONRoundTrip(t *testing.T) {
	d := sampleDocument(t)

	data, err := json.Marshal(d)
	require.NoError(t, err)

	var back Document
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, d.ID, back.ID)
	assert.Equal(t, "Sample", back.Title())
	assert.Equal(t, d.NodeIDs(), back.NodeIDs())
	assert.Equal(t, d.View(DefaultView), back.View(DefaultView))

	h, ok := back.Get("heading_1")
	require.True(t, ok)
	assert.Equal(t, &Heading{ID: "heading_1", Level: 1, Content: "Heading"}, h)

	a, ok := back.Annotation("emphasis_1")
	require.True(t, ok)
	assert.Equal(t, Range{8, 17}, a.Range)
}

func TestDocument_UnmarshalRejectsDanglingAnnotation(t *testing.T) {
	data := `{"id":"d","nodes":{"strong_1":{"type":"strong","path":["paragraph_1","content"],"range":[0,1]}},"views":{}}`

	var d Document
	err := json.Unmarshal([]byte(data), &d)
	assert.ErrorIs(t, err, ErrDanglingPath)
}

func TestDocument_UnmarshalRejectsUnknownNodeType(t *testing.T) {
	data := `{"id":"d","nodes":{"x_1":{"type":"sidebar"}},"views":{}}`

	var d Document
	assert.Error(t, json.Unmarshal([]byte(data), &d))
}

func TestReferences(t *testing.T) {
	table := &Table{ID: "table_1", Caption: "p_1", Headers: []string{"p_2"}, Cells: [][]string{{"p_3"}, {"p_4"}}}
	assert.Equal(t, []string{"p_1", "p_2", "p_3", "p_4"}, References(table))
	assert.Equal(t, []string{"image_1"}, References(&Figure{ID: "figure_1", Image: "image_1"}))
	assert.Nil(t, References(&Paragraph{ID: "p"}))
}

func TestDocument_UnmarshalTakesIDFromKey(t *testing.T) {
	data := `{"id":"d","nodes":{
	  "p1":{"type":"paragraph","content":"hello"},
	  "s1":{"type":"strong","path":["p1","content"],"range":[0,5]}
	},"views":{"content":["p1"]}}`

	var d Document
	require.NoError(t, json.Unmarshal([]byte(data), &d))

	n, ok := d.Get("p1")
	require.True(t, ok)
	assert.Equal(t, &Paragraph{ID: "p1", Content: "hello"}, n)
	a, ok := d.Annotation("s1")
	require.True(t, ok)
	assert.Equal(t, "s1", a.ID)
	assert.Equal(t, []string{"p1"}, d.View(DefaultView))
}

func TestDocument_UnmarshalRejectsMismatchedID(t *testing.T) {
	tests := []struct {
		name  string
		nodes string
	}{
		{"node", `{"p1":{"type":"paragraph","id":"other","content":"x"}}`},
		{"annotation", `{"p1":{"type":"paragraph","content":"x"},"s1":{"type":"strong","id":"s2","path":["p1","content"],"range":[0,1]}}`},
		{"empty inner id", `{"p1":{"type":"paragraph","id":"","content":"x"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Document
			err := json.Unmarshal([]byte(`{"id":"d","nodes":`+tt.nodes+`,"views":{}}`), &d)
			assert.ErrorIs(t, err, ErrIDMismatch)
		})
	}
}

func TestDocument_JSONKeepsAnnotationOrder(t *testing.T) {
	d := New("d")
	require.NoError(t, d.Create(&Paragraph{ID: "paragraph_1", Content: "abc"}))
	// Outer mark first, with ids that sort the other way as strings.
	for _, a := range []*Annotation{
		{ID: "strong_10", Type: AnnotationStrong, Range: Range{0, 3}},
		{ID: "emphasis_2", Type: AnnotationEmphasis, Range: Range{0, 3}},
		{ID: "emphasis_1", Type: AnnotationEmphasis, Range: Range{1, 2}},
	} {
		a.Path = Path{"paragraph_1", ContentProperty}
		require.NoError(t, d.AddAnnotation(a))
	}

	data, err := json.Marshal(d)
	require.NoError(t, err)
	var back Document
	require.NoError(t, json.Unmarshal(data, &back))

	var got []string
	for _, a := range back.Annotations() {
		got = append(got, a.ID)
	}
	assert.Equal(t, []string{"strong_10", "emphasis_2", "emphasis_1"}, got)
}

func TestCompareIDs(t *testing.T) {
	ids := []string{"paragraph_10", "heading_1", "paragraph_2", "x", "paragraph_1", "fig-a"}
	slices.SortFunc(ids, CompareIDs)
	assert.Equal(t, []string{"fig-a", "heading_1", "paragraph_1", "paragraph_2", "paragraph_10", "x"}, ids)

	assert.Negative(t, CompareIDs("emphasis_2", "emphasis_10"))
	assert.Zero(t, CompareIDs("list_3", "list_3"))
}
