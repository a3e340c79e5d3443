package doc

import "unicode/utf8"

// Canonical annotation types. Adapters may introduce others; exporters treat
// types they do not know as transparent.
const (
	AnnotationEmphasis    = "emphasis"
	AnnotationStrong      = "strong"
	AnnotationCode        = "code"
	AnnotationLink        = "link"
	AnnotationSubscript   = "subscript"
	AnnotationSuperscript = "superscript"
	AnnotationUnderline   = "underline"
)

// Path addresses a text property of a node: [nodeID, property].
type Path [2]string

// NodeID returns the referenced node id.
func (p Path) NodeID() string { return p[0] }

// Property returns the referenced property name.
func (p Path) Property() string { return p[1] }

// Range is a half-open [start, end) span of code point offsets.
type Range [2]int

func (r Range) Start() int { return r[0] }
func (r Range) End() int   { return r[1] }
func (r Range) Len() int   { return r[1] - r[0] }

// Annotation marks a range of a node's content. It does not own the node it
// points at.
type Annotation struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Path   Path   `json:"path"`
	Range  Range  `json:"range"`
	URL    string `json:"url,omitempty"`
	Title  string `json:"title,omitempty"`
	Target string `json:"target,omitempty"`
}

// Within reports whether the range fits a text of n code points.
func (r Range) Within(n int) bool {
	return r[0] >= 0 && r[0] <= r[1] && r[1] <= n
}

// TextLen returns the length of s in code points, the unit ranges use.
func TextLen(s string) int {
	return utf8.RuneCountInString(s)
}
