package document

import "fmt"

// Point is a position inside a block, counted in runes.
type Point struct {
	Key    string `json:"key"`
	Offset int    `json:"offset"`
}

// Selection is a range between an anchor and a focus point. The focus may
// precede the anchor.
type Selection struct {
	Anchor Point `json:"anchor"`
	Focus  Point `json:"focus"`
}

// Caret returns a collapsed selection.
func Caret(key string, offset int) Selection {
	p := Point{Key: key, Offset: offset}
	return Selection{Anchor: p, Focus: p}
}

// Range returns a selection from (anchorKey, anchorOffset) to
// (focusKey, focusOffset).
func Range(anchorKey string, anchorOffset int, focusKey string, focusOffset int) Selection {
	return Selection{
		Anchor: Point{Key: anchorKey, Offset: anchorOffset},
		Focus:  Point{Key: focusKey, Offset: focusOffset},
	}
}

// Collapsed reports whether the selection is a caret.
func (s Selection) Collapsed() bool {
	return s.Anchor == s.Focus
}

type span struct {
	si, so int
	ei, eo int
}

func (sp span) collapsed() bool {
	return sp.si == sp.ei && sp.so == sp.eo
}

// bounds resolves sel to block indexes in document order.
func (d *Document) bounds(sel Selection) (span, error) {
	ai, err := d.resolve(sel.Anchor)
	if err != nil {
		return span{}, err
	}
	fi, err := d.resolve(sel.Focus)
	if err != nil {
		return span{}, err
	}
	sp := span{si: ai, so: sel.Anchor.Offset, ei: fi, eo: sel.Focus.Offset}
	if fi < ai || (fi == ai && sel.Focus.Offset < sel.Anchor.Offset) {
		sp = span{si: fi, so: sel.Focus.Offset, ei: ai, eo: sel.Anchor.Offset}
	}
	return sp, nil
}

func (d *Document) resolve(p Point) (int, error) {
	i := d.index(p.Key)
	if i < 0 {
		return -1, fmt.Errorf("%w: no block %q", ErrInvalidSelection, p.Key)
	}
	if p.Offset < 0 || p.Offset > d.blocks[i].Len() {
		return -1, fmt.Errorf("%w: offset %d outside block %q", ErrInvalidSelection, p.Offset, p.Key)
	}
	return i, nil
}
