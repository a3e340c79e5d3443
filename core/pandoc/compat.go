package pandoc

import "fmt"

// Target is the [url, title] pair of links and images.
type Target struct {
	URL   string
	Title string
}

// LinkParts splits a Link or Image payload. Both the legacy [inlines, target]
// and the modern [attr, inlines, target] shapes are accepted.
func LinkParts(e Element) (Attr, []Element, Target, error) {
	arr, err := Args(e, 2)
	if err != nil {
		return Attr{}, nil, Target{}, err
	}
	var attr Attr
	if len(arr) == 3 {
		if attr, err = ParseAttr(arr[0]); err != nil {
			return Attr{}, nil, Target{}, fmt.Errorf("%s: %w", e.Tag, err)
		}
		arr = arr[1:]
	}
	inlines, err := Elements(arr[0])
	if err != nil {
		return Attr{}, nil, Target{}, fmt.Errorf("%s: %w", e.Tag, err)
	}
	tgt, ok := arr[1].([]any)
	if !ok || len(tgt) != 2 {
		return Attr{}, nil, Target{}, fmt.Errorf("%s: target is %T, want [url, title]", e.Tag, arr[1])
	}
	url, err1 := String(tgt[0])
	title, err2 := String(tgt[1])
	if err1 != nil || err2 != nil {
		return Attr{}, nil, Target{}, fmt.Errorf("%s: target is not a string pair", e.Tag)
	}
	return attr, inlines, Target{URL: url, Title: title}, nil
}

// TableParts is a table reduced to what the document model keeps. Each
// cell is a list of blocks.
type TableParts struct {
	Caption []Element
	Headers [][]Element
	Rows    [][][]Element
}

// ParseTable reads the legacy five-value table payload
// [caption, aligns, widths, headers, rows] or the modern six-value one
// [attr, caption, colspecs, head, bodies, foot]. Row and column spans of
// modern tables are not kept.
func ParseTable(e Element) (*TableParts, error) {
	arr, err := Args(e, 5)
	if err != nil {
		return nil, err
	}
	if len(arr) == 5 {
		return legacyTable(arr)
	}
	return modernTable(arr)
}

func legacyTable(arr []any) (*TableParts, error) {
	t := &TableParts{}
	var err error
	if t.Caption, err = Elements(arr[0]); err != nil {
		return nil, fmt.Errorf("table caption: %w", err)
	}
	if t.Headers, err = cellList(arr[3]); err != nil {
		return nil, fmt.Errorf("table headers: %w", err)
	}
	rows, ok := arr[4].([]any)
	if !ok {
		return nil, fmt.Errorf("table rows are %T, want array", arr[4])
	}
	for i, r := range rows {
		cells, err := cellList(r)
		if err != nil {
			return nil, fmt.Errorf("table row %d: %w", i, err)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, nil
}

func cellList(v any) ([][]Element, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("cells are %T, want array", v)
	}
	out := make([][]Element, 0, len(arr))
	for _, c := range arr {
		blocks, err := Elements(c)
		if err != nil {
			return nil, err
		}
		out = append(out, blocks)
	}
	return out, nil
}

func modernTable(arr []any) (*TableParts, error) {
	t := &TableParts{}
	if caption, ok := arr[1].([]any); ok && len(caption) == 2 {
		blocks, err := Elements(caption[1])
		if err != nil {
			return nil, fmt.Errorf("table caption: %w", err)
		}
		t.Caption = BlockInlines(blocks)
	}
	if head, ok := arr[3].([]any); ok && len(head) == 2 {
		rows, err := modernRows(head[1])
		if err != nil {
			return nil, fmt.Errorf("table head: %w", err)
		}
		if len(rows) > 0 {
			t.Headers = rows[0]
			t.Rows = append(t.Rows, rows[1:]...)
		}
	}
	bodies, _ := arr[4].([]any)
	for _, b := range bodies {
		body, ok := b.([]any)
		if !ok || len(body) != 4 {
			return nil, fmt.Errorf("table body is %T, want 4-element array", b)
		}
		for _, part := range body[2:] {
			rows, err := modernRows(part)
			if err != nil {
				return nil, fmt.Errorf("table body: %w", err)
			}
			t.Rows = append(t.Rows, rows...)
		}
	}
	if len(arr) > 5 {
		if foot, ok := arr[5].([]any); ok && len(foot) == 2 {
			rows, err := modernRows(foot[1])
			if err != nil {
				return nil, fmt.Errorf("table foot: %w", err)
			}
			t.Rows = append(t.Rows, rows...)
		}
	}
	return t, nil
}

func modernRows(v any) ([][][]Element, error) {
	rows, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("rows are %T, want array", v)
	}
	var out [][][]Element
	for _, r := range rows {
		row, ok := r.([]any)
		if !ok || len(row) != 2 {
			return nil, fmt.Errorf("row is %T, want [attr, cells]", r)
		}
		cells, ok := row[1].([]any)
		if !ok {
			return nil, fmt.Errorf("row cells are %T, want array", row[1])
		}
		var line [][]Element
		for _, c := range cells {
			cell, ok := c.([]any)
			if !ok || len(cell) != 5 {
				return nil, fmt.Errorf("cell is %T, want 5-element array", c)
			}
			blocks, err := Elements(cell[4])
			if err != nil {
				return nil, err
			}
			line = append(line, blocks)
		}
		out = append(out, line)
	}
	return out, nil
}

// BlockInlines joins the inlines of Plain and Para blocks, separated by a
// Space. Other blocks are ignored.
func BlockInlines(blocks []Element) []Element {
	var out []Element
	for _, b := range blocks {
		if b.Tag != TagPlain && b.Tag != TagPara {
			continue
		}
		inl, err := Inlines(b)
		if err != nil {
			continue
		}
		if len(out) > 0 && len(inl) > 0 {
			out = append(out, Space())
		}
		out = append(out, inl...)
	}
	return out
}

// reshape adapts payload shapes that differ between encodings. Elements are
// built in one canonical shape: Link and Image carry an attr, Table uses the
// legacy five-value payload.
func reshape(e Element, enc Encoding) Element {
	switch e.Tag {
	case TagLink, TagImage:
		arr, ok := e.Content.([]any)
		if ok && len(arr) == 3 && enc == Legacy {
			return Element{Tag: e.Tag, Content: arr[1:]}
		}
	case TagTable:
		arr, ok := e.Content.([]any)
		if ok && len(arr) == 5 && enc == Modern {
			return Element{Tag: e.Tag, Content: modernTablePayload(arr)}
		}
	}
	return e
}

func modernTablePayload(legacy []any) []any {
	emptyAttr := Attr{}.Value()
	cell := func(blocks any) any {
		return []any{emptyAttr, Element{Tag: "AlignDefault"}, 1, 1, blocks}
	}
	row := func(cells any) any {
		arr, _ := cells.([]any)
		out := make([]any, len(arr))
		for i, c := range arr {
			out[i] = cell(c)
		}
		return []any{emptyAttr, out}
	}

	headers, _ := legacy[3].([]any)
	colspecs := make([]any, len(headers))
	for i := range colspecs {
		colspecs[i] = []any{Element{Tag: "AlignDefault"}, Element{Tag: "ColWidthDefault"}}
	}
	var caption []any
	if inl, _ := legacy[0].([]any); len(inl) > 0 {
		caption = []any{Element{Tag: TagPlain, Content: inl}}
	} else {
		caption = []any{}
	}
	var headRows []any
	if len(headers) > 0 {
		headRows = []any{row(headers)}
	} else {
		headRows = []any{}
	}
	legacyRows, _ := legacy[4].([]any)
	bodyRows := make([]any, len(legacyRows))
	for i, r := range legacyRows {
		bodyRows[i] = row(r)
	}
	return []any{
		emptyAttr,
		[]any{nil, caption},
		colspecs,
		[]any{emptyAttr, headRows},
		[]any{[]any{emptyAttr, 0, []any{}, bodyRows}},
		[]any{emptyAttr, []any{}},
	}
}
