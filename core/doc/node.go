// Package doc implements the flat document model: addressable nodes, named
// views that order them, and range annotations layered over node text.
package doc

// NodeType names a node variant in the document model.
type NodeType string

// Node types. The set is closed: every variant below has a struct in this
// file and nothing else implements Node.
const (
	TypeHeading       NodeType = "heading"
	TypeParagraph     NodeType = "paragraph"
	TypeList          NodeType = "list"
	TypeCodeBlock     NodeType = "codeblock"
	TypeImage         NodeType = "image"
	TypeFigure        NodeType = "figure"
	TypeFormula       NodeType = "formula"
	TypeTable         NodeType = "table"
	TypeRichParagraph NodeType = "richparagraph"
)

// ContentProperty is the only text property annotations address.
const ContentProperty = "content"

// Node is one addressable unit of content. The interface is sealed; switch on
// the concrete type to handle a node.
type Node interface {
	NodeID() string
	NodeType() NodeType
	node()
}

// TextNode is a node whose content annotations can address.
type TextNode interface {
	Node
	Text() string
}

// Heading is a section title.
type Heading struct {
	ID      string `json:"id"`
	Level   int    `json:"level"`
	Content string `json:"content"`
}

// Paragraph is a run of plain text.
type Paragraph struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// List holds the ids of the nodes produced by each item, in order.
type List struct {
	ID      string   `json:"id"`
	Items   []string `json:"items"`
	Ordered bool     `json:"ordered"`
}

// CodeBlock is preformatted text.
type CodeBlock struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

// Image references an image by URL. Caption is the id of a paragraph node.
type Image struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// Figure pairs an image node with a caption paragraph. SourceID keeps the
// identifier the source format gave the figure, if any.
type Figure struct {
	ID       string `json:"id"`
	Image    string `json:"image"`
	Caption  string `json:"caption,omitempty"`
	SourceID string `json:"source_id,omitempty"`
}

// Formula is a math expression, inline or displayed.
type Formula struct {
	ID     string `json:"id"`
	Format string `json:"format"`
	Data   string `json:"data"`
	Inline bool   `json:"inline"`
}

// Table references one paragraph node per header and per cell.
type Table struct {
	ID      string     `json:"id"`
	Caption string     `json:"caption,omitempty"`
	Headers []string   `json:"headers"`
	Cells   [][]string `json:"cells"`
}

// RichParagraph groups the nodes a mixed paragraph was split into.
type RichParagraph struct {
	ID       string   `json:"id"`
	Children []string `json:"children"`
}

func (n *Heading) NodeID() string       { return n.ID }
func (n *Paragraph) NodeID() string     { return n.ID }
func (n *List) NodeID() string          { return n.ID }
func (n *CodeBlock) NodeID() string     { return n.ID }
func (n *Image) NodeID() string         { return n.ID }
func (n *Figure) NodeID() string        { return n.ID }
func (n *Formula) NodeID() string       { return n.ID }
func (n *Table) NodeID() string         { return n.ID }
func (n *RichParagraph) NodeID() string { return n.ID }

func (*Heading) NodeType() NodeType       { return TypeHeading }
func (*Paragraph) NodeType() NodeType     { return TypeParagraph }
func (*List) NodeType() NodeType          { return TypeList }
func (*CodeBlock) NodeType() NodeType     { return TypeCodeBlock }
func (*Image) NodeType() NodeType         { return TypeImage }
func (*Figure) NodeType() NodeType        { return TypeFigure }
func (*Formula) NodeType() NodeType       { return TypeFormula }
func (*Table) NodeType() NodeType         { return TypeTable }
func (*RichParagraph) NodeType() NodeType { return TypeRichParagraph }

func (*Heading) node()       {}
func (*Paragraph) node()     {}
func (*List) node()          {}
func (*CodeBlock) node()     {}
func (*Image) node()         {}
func (*Figure) node()        {}
func (*Formula) node()       {}
func (*Table) node()         {}
func (*RichParagraph) node() {}

func (n *Heading) Text() string   { return n.Content }
func (n *Paragraph) Text() string { return n.Content }
func (n *CodeBlock) Text() string { return n.Content }

// newNode returns an empty value of the variant named by t carrying id.
func newNode(t NodeType, id string) (Node, bool) {
	switch t {
	case TypeHeading:
		return &Heading{ID: id}, true
	case TypeParagraph:
		return &Paragraph{ID: id}, true
	case TypeList:
		return &List{ID: id}, true
	case TypeCodeBlock:
		return &CodeBlock{ID: id}, true
	case TypeImage:
		return &Image{ID: id}, true
	case TypeFigure:
		return &Figure{ID: id}, true
	case TypeFormula:
		return &Formula{ID: id}, true
	case TypeTable:
		return &Table{ID: id}, true
	case TypeRichParagraph:
		return &RichParagraph{ID: id}, true
	}
	return nil, false
}

// References returns the ids a node points at, in document order.
func References(n Node) []string {
	switch n := n.(type) {
	case *List:
		return n.Items
	case *RichParagraph:
		return n.Children
	case *Image:
		if n.Caption != "" {
			return []string{n.Caption}
		}
	case *Figure:
		refs := []string{n.Image}
		if n.Caption != "" {
			refs = append(refs, n.Caption)
		}
		return refs
	case *Table:
		var refs []string
		if n.Caption != "" {
			refs = append(refs, n.Caption)
		}
		refs = append(refs, n.Headers...)
		for _, row := range n.Cells {
			refs = append(refs, row...)
		}
		return refs
	}
	return nil
}
