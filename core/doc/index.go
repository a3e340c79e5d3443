package doc

import "sort"

// AnnotationIndex answers per-node and reverse lookups over a document's
// annotations. It is a snapshot: build a new one after mutating the document.
type AnnotationIndex struct {
	byNode   map[string][]*Annotation
	byTarget map[string][]*Annotation
}

// NewAnnotationIndex indexes every annotation of d.
func NewAnnotationIndex(d *Document) *AnnotationIndex {
	ix := &AnnotationIndex{
		byNode:   make(map[string][]*Annotation),
		byTarget: make(map[string][]*Annotation),
	}
	for _, a := range d.Annotations() {
		ix.byNode[a.Path.NodeID()] = append(ix.byNode[a.Path.NodeID()], a)
		if a.Target != "" {
			ix.byTarget[a.Target] = append(ix.byTarget[a.Target], a)
		}
	}
	for _, anns := range ix.byNode {
		sort.SliceStable(anns, func(i, j int) bool {
			if anns[i].Range.Start() != anns[j].Range.Start() {
				return anns[i].Range.Start() < anns[j].Range.Start()
			}
			return anns[i].Range.End() > anns[j].Range.End()
		})
	}
	return ix
}

// ForNode returns the annotations addressing node id, ordered by start
// ascending and then by end descending.
func (ix *AnnotationIndex) ForNode(id string) []*Annotation {
	return ix.byNode[id]
}

// InRange returns the annotations of node id whose range lies within
// [start, end], zero-length ones at either edge included.
func (ix *AnnotationIndex) InRange(id string, start, end int) []*Annotation {
	var out []*Annotation
	for _, a := range ix.byNode[id] {
		s, e := a.Range.Start(), a.Range.End()
		if s > end {
			break
		}
		if s >= start && e <= end {
			out = append(out, a)
		}
	}
	return out
}

// ByTarget returns the reference annotations pointing at node id.
func (ix *AnnotationIndex) ByTarget(id string) []*Annotation {
	return ix.byTarget[id]
}

// Nodes returns the ids of nodes that carry at least one annotation.
func (ix *AnnotationIndex) Nodes() []string {
	ids := make([]string, 0, len(ix.byNode))
	for id := range ix.byNode {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
