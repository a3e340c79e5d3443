package fragment

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/flatdoc/core"
	"github.com/gaurav-prasanna/flatdoc/core/doc"
)

func ann(id, typ string, s, e int) *doc.Annotation {
	return &doc.Annotation{ID: id, Type: typ, Path: doc.Path{"paragraph_1", doc.ContentProperty}, Range: doc.Range{s, e}}
}

// markup prints fragments as <type>text</type> for compact assertions.
func markup(frags []*Fragment) string {
	var sb strings.Builder
	var walk func([]*Fragment)
	walk = func(fs []*Fragment) {
		for _, f := range fs {
			if f.IsText() {
				sb.WriteString(f.Text)
				continue
			}
			sb.WriteString("<" + f.Annotation.Type + ">")
			walk(f.Children)
			sb.WriteString("</" + f.Annotation.Type + ">")
		}
	}
	walk(frags)
	return sb.String()
}

func TestBuild(t *testing.T) {
	const text = "I am an annotated paragraph."

	tests := []struct {
		name string
		text string
		anns []*doc.Annotation
		want string
	}{
		{
			name: "no annotations",
			text: text,
			want: text,
		},
		{
			name: "single emphasis",
			text: text,
			anns: []*doc.Annotation{ann("emphasis_1", "emphasis", 8, 17)},
			want: "I am an <emphasis>annotated</emphasis> paragraph.",
		},
		{
			name: "strong nested in emphasis",
			text: text,
			anns: []*doc.Annotation{ann("strong_1", "strong", 10, 17), ann("emphasis_1", "emphasis", 8, 17)},
			want: "I am an <emphasis>an<strong>notated</strong></emphasis> paragraph.",
		},
		{
			name: "emphasis containing a link at the same start",
			text: text,
			anns: []*doc.Annotation{ann("link_1", "link", 8, 12), ann("emphasis_1", "emphasis", 8, 27)},
			want: "I am an <emphasis><link>anno</link>tated paragraph</emphasis>.",
		},
		{
			name: "identical ranges follow levels",
			text: text,
			anns: []*doc.Annotation{ann("code_1", "code", 0, 4), ann("emphasis_1", "emphasis", 0, 4), ann("link_1", "link", 0, 4)},
			want: "<link><emphasis><code>I am</code></emphasis></link> an annotated paragraph.",
		},
		{
			name: "crossing ranges split the later one",
			text: "abcdefghij",
			anns: []*doc.Annotation{ann("emphasis_1", "emphasis", 0, 6), ann("strong_1", "strong", 3, 10)},
			want: "<emphasis>abc<strong>def</strong></emphasis><strong>ghij</strong>",
		},
		{
			name: "duplicates are both emitted",
			text: "abc",
			anns: []*doc.Annotation{ann("emphasis_1", "emphasis", 0, 3), ann("emphasis_2", "emphasis", 0, 3)},
			want: "<emphasis><emphasis>abc</emphasis></emphasis>",
		},
		{
			name: "unknown types are transparent",
			text: "abc def",
			anns: []*doc.Annotation{ann("idea_1", "idea", 0, 7), ann("strong_1", "strong", 4, 7)},
			want: "abc <strong>def</strong>",
		},
		{
			name: "zero-length annotation",
			text: "abc",
			anns: []*doc.Annotation{ann("emphasis_1", "emphasis", 1, 1)},
			want: "a<emphasis></emphasis>bc",
		},
		{
			name: "zero-length inside an open span",
			text: "abc",
			anns: []*doc.Annotation{ann("strong_1", "strong", 0, 3), ann("emphasis_1", "emphasis", 1, 1)},
			want: "<strong>a<emphasis></emphasis>bc</strong>",
		},
		{
			name: "adjacent spans",
			text: "abcd",
			anns: []*doc.Annotation{ann("strong_1", "strong", 2, 4), ann("emphasis_1", "emphasis", 0, 2)},
			want: "<emphasis>ab</emphasis><strong>cd</strong>",
		},
		{
			name: "offsets count code points",
			text: "naïve café",
			anns: []*doc.Annotation{ann("emphasis_1", "emphasis", 6, 10)},
			want: "naïve <emphasis>café</emphasis>",
		},
		{
			name: "empty text",
			text: "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frags, err := Build("paragraph_1", tt.text, tt.anns, DefaultLevels())
			require.NoError(t, err)
			assert.Equal(t, tt.want, markup(frags))
			assert.Equal(t, tt.text, PlainText(frags))
		})
	}
}

func TestBuild_MalformedRange(t *testing.T) {
	tests := []struct {
		name string
		a    *doc.Annotation
	}{
		{"start after end", ann("emphasis_1", "emphasis", 20, 15)},
		{"end past text", ann("emphasis_1", "emphasis", 2, 40)},
		{"negative start", ann("emphasis_1", "emphasis", -1, 2)},
		{"transparent type is still checked", ann("idea_1", "idea", 5, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frags, err := Build("paragraph_1", "short text", []*doc.Annotation{tt.a}, DefaultLevels())
			require.Error(t, err)
			assert.Nil(t, frags)

			var exportErr *core.ExporterError
			require.True(t, errors.As(err, &exportErr))
			assert.Equal(t, "paragraph_1", exportErr.NodeID)
			assert.ErrorIs(t, err, core.ErrExport)
		})
	}
}

func TestBuild_CustomLevels(t *testing.T) {
	anns := []*doc.Annotation{ann("emphasis_1", "emphasis", 0, 3), ann("strong_1", "strong", 0, 3)}

	frags, err := Build("p", "abc", anns, Levels{"strong": 0, "emphasis": 5})
	require.NoError(t, err)
	assert.Equal(t, "<strong><emphasis>abc</emphasis></strong>", markup(frags))

	frags, err = Build("p", "abc", anns, Levels{"strong": 1})
	require.NoError(t, err)
	assert.Equal(t, "<strong>abc</strong>", markup(frags))
}
