package doc

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// DefaultView is the view holding the main reading order.
const DefaultView = "content"

var (
	// ErrDuplicateID is returned when a node or annotation id is already taken.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrDanglingPath is returned when an annotation addresses a missing node.
	ErrDanglingPath = errors.New("annotation path does not resolve")
	// ErrIDMismatch is returned when a "nodes" entry names a different id
	// than its key.
	ErrIDMismatch = errors.New("id does not match its key")
)

// Document owns the nodes, annotations and views of one converted document.
type Document struct {
	ID   string
	Meta map[string]any

	nodes       map[string]Node
	annotations map[string]*Annotation
	order       []string // annotation insertion order
	views       map[string][]string
}

// New returns an empty document.
func New(id string) *Document {
	return &Document{
		ID:          id,
		nodes:       make(map[string]Node),
		annotations: make(map[string]*Annotation),
		views:       make(map[string][]string),
	}
}

// Create adds a node. Ids are shared between nodes and annotations.
func (d *Document) Create(n Node) error {
	id := n.NodeID()
	if id == "" {
		return fmt.Errorf("create %s: empty id", n.NodeType())
	}
	if d.has(id) {
		return fmt.Errorf("create %s: %w: %s", n.NodeType(), ErrDuplicateID, id)
	}
	d.nodes[id] = n
	return nil
}

// Get returns the node with the given id.
func (d *Document) Get(id string) (Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Len returns the number of nodes, annotations excluded.
func (d *Document) Len() int { return len(d.nodes) }

// NodeIDs returns all node ids sorted with CompareIDs.
func (d *Document) NodeIDs() []string {
	ids := make([]string, 0, len(d.nodes))
	for id := range d.nodes {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, CompareIDs)
	return ids
}

// CompareIDs orders ids of the form <type>_<n> by type, then numerically by
// n, so paragraph_2 sorts before paragraph_10. Other ids compare as strings.
func CompareIDs(a, b string) int {
	pa, na, okA := splitID(a)
	pb, nb, okB := splitID(b)
	if !okA || !okB || pa != pb {
		return strings.Compare(a, b)
	}
	if c := cmp.Compare(na, nb); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func splitID(id string) (string, int, bool) {
	i := strings.LastIndexByte(id, '_')
	if i < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return id[:i], n, true
}

// AddAnnotation adds an annotation after checking that its path resolves to
// a text node. Ranges are not checked here: a document loaded from JSON may
// carry ranges that no longer fit, and exporting it must report that.
func (d *Document) AddAnnotation(a *Annotation) error {
	if a.ID == "" {
		return fmt.Errorf("add annotation %s: empty id", a.Type)
	}
	if d.has(a.ID) {
		return fmt.Errorf("add annotation: %w: %s", ErrDuplicateID, a.ID)
	}
	n, ok := d.nodes[a.Path.NodeID()]
	if !ok {
		return fmt.Errorf("add annotation %s: %w: %s", a.ID, ErrDanglingPath, a.Path.NodeID())
	}
	if _, ok := n.(TextNode); !ok || a.Path.Property() != ContentProperty {
		return fmt.Errorf("add annotation %s: %w: %s.%s is not text", a.ID, ErrDanglingPath, a.Path.NodeID(), a.Path.Property())
	}
	d.annotations[a.ID] = a
	d.order = append(d.order, a.ID)
	return nil
}

// Annotation returns the annotation with the given id.
func (d *Document) Annotation(id string) (*Annotation, bool) {
	a, ok := d.annotations[id]
	return a, ok
}

// Annotations returns all annotations in insertion order.
func (d *Document) Annotations() []*Annotation {
	out := make([]*Annotation, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.annotations[id])
	}
	return out
}

// Show appends ids to a view, creating the view on first use.
func (d *Document) Show(view string, ids ...string) {
	d.views[view] = append(d.views[view], ids...)
}

// View returns the ids of a view in reading order.
func (d *Document) View(name string) []string {
	return d.views[name]
}

// Views returns the view names in sorted order.
func (d *Document) Views() []string {
	names := make([]string, 0, len(d.views))
	for name := range d.views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Text returns the content a path addresses.
func (d *Document) Text(p Path) (string, error) {
	n, ok := d.nodes[p.NodeID()]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrDanglingPath, p.NodeID())
	}
	t, ok := n.(TextNode)
	if !ok || p.Property() != ContentProperty {
		return "", fmt.Errorf("%w: %s.%s is not text", ErrDanglingPath, p.NodeID(), p.Property())
	}
	return t.Text(), nil
}

// Title returns meta.title when it is a string.
func (d *Document) Title() string {
	if s, ok := d.Meta["title"].(string); ok {
		return s
	}
	return ""
}

func (d *Document) has(id string) bool {
	if _, ok := d.nodes[id]; ok {
		return true
	}
	_, ok := d.annotations[id]
	return ok
}
