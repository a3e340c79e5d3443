package doc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type documentJSON struct {
	ID    string              `json:"id"`
	Meta  map[string]any      `json:"meta,omitempty"`
	Nodes orderedNodes        `json:"nodes"`
	Views map[string][]string `json:"views"`
}

// orderedNodes is the "nodes" object with its key order kept. Annotations
// are written in insertion order, which breaks ties between annotations
// covering the same range, so the order has to survive a round trip.
type orderedNodes struct {
	keys   []string
	values map[string]json.RawMessage
}

func (o *orderedNodes) add(key string, raw json.RawMessage) error {
	if o.values == nil {
		o.values = make(map[string]json.RawMessage)
	}
	if _, dup := o.values[key]; dup {
		return fmt.Errorf("node %s: %w", key, ErrDuplicateID)
	}
	o.keys = append(o.keys, key)
	o.values[key] = raw
	return nil
}

func (o orderedNodes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(o.values[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *orderedNodes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("nodes: want an object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("node %s: %w", key, err)
		}
		if err := o.add(key, raw); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

// MarshalJSON writes nodes and annotations into one "nodes" map, each entry
// tagged with its "type". Nodes come first, then annotations in insertion
// order.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := documentJSON{
		ID:    d.ID,
		Meta:  d.Meta,
		Views: d.views,
	}
	if out.Views == nil {
		out.Views = map[string][]string{}
	}
	for _, id := range d.NodeIDs() {
		n := d.nodes[id]
		raw, err := marshalTagged(string(n.NodeType()), n)
		if err != nil {
			return nil, fmt.Errorf("marshal node %s: %w", id, err)
		}
		if err := out.Nodes.add(id, raw); err != nil {
			return nil, err
		}
	}
	for _, a := range d.Annotations() {
		raw, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("marshal annotation %s: %w", a.ID, err)
		}
		if err := out.Nodes.add(a.ID, raw); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the format written by MarshalJSON. Entries whose type
// is a node type become nodes; entries carrying a path become annotations.
// The map key is the id: an entry without an "id" field takes it, and an
// entry whose "id" differs is rejected. Annotations are added after all
// nodes, in the order they appear, so their paths can be checked.
func (d *Document) UnmarshalJSON(data []byte) error {
	var in documentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	fresh := New(in.ID)
	fresh.Meta = in.Meta

	var anns []*Annotation
	for _, key := range in.Nodes.keys {
		raw := in.Nodes.values[key]
		var head struct {
			ID   *string         `json:"id"`
			Type string          `json:"type"`
			Path json.RawMessage `json:"path"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return fmt.Errorf("node %s: %w", key, err)
		}
		if head.ID != nil && *head.ID != key {
			return fmt.Errorf("node %s: %w: entry id is %q", key, ErrIDMismatch, *head.ID)
		}
		if n, ok := newNode(NodeType(head.Type), key); ok {
			if err := json.Unmarshal(raw, n); err != nil {
				return fmt.Errorf("node %s: %w", key, err)
			}
			if err := fresh.Create(n); err != nil {
				return err
			}
			continue
		}
		if head.Path == nil {
			return fmt.Errorf("node %s: unknown type %q", key, head.Type)
		}
		a := &Annotation{}
		if err := json.Unmarshal(raw, a); err != nil {
			return fmt.Errorf("annotation %s: %w", key, err)
		}
		a.ID = key
		anns = append(anns, a)
	}
	for _, a := range anns {
		if err := fresh.AddAnnotation(a); err != nil {
			return err
		}
	}
	for name, ids := range in.Views {
		for _, id := range ids {
			if _, ok := fresh.nodes[id]; !ok {
				return fmt.Errorf("view %s: unknown node %s", name, id)
			}
		}
		fresh.Show(name, ids...)
	}
	*d = *fresh
	return nil
}

func marshalTagged(typ string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	tag, err := json.Marshal(typ)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+len(tag)+9)
	out = append(out, `{"type":`...)
	out = append(out, tag...)
	if len(body) > 2 {
		out = append(out, ',')
	}
	return append(out, body[1:]...), nil
}
