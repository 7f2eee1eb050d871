package document

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// RemoveRange deletes the selected content. Atomic blocks touched by the
// range are removed whole.
func (d *Document) RemoveRange(sel Selection) (*Document, Selection, error) {
	sp, err := d.bounds(sel)
	if err != nil {
		return d, sel, err
	}
	nd, p := d.removeSpan(sp)
	return nd, Caret(p.Key, p.Offset), nil
}

func (d *Document) removeSpan(sp span) (*Document, Point) {
	first, last := d.blocks[sp.si], d.blocks[sp.ei]
	if sp.collapsed() {
		return d, Point{first.Key, sp.so}
	}
	var merged Block
	var caret Point
	switch {
	case !first.IsAtomic():
		merged = Block{Key: first.Key, Type: first.Type, Depth: first.Depth}
		tail := sliceRuns(last.Runs, sp.eo, last.Len())
		if last.IsAtomic() {
			tail = nil
		}
		merged.Runs = concatRuns(sliceRuns(first.Runs, 0, sp.so), tail)
		caret = Point{first.Key, sp.so}
	case !last.IsAtomic():
		merged = Block{Key: last.Key, Type: last.Type, Depth: last.Depth}
		merged.Runs = sliceRuns(last.Runs, sp.eo, last.Len())
		caret = Point{last.Key, 0}
	default:
		merged = Block{Key: newKey(), Type: Unstyled}
		caret = Point{merged.Key, 0}
	}
	blocks := slices.Concat(d.blocks[:sp.si], []Block{merged}, d.blocks[sp.ei+1:])
	return d.with(blocks), caret
}

// InsertText replaces the selection with text carrying styles. Newlines
// split the block.
func (d *Document) InsertText(sel Selection, text string, styles StyleSet) (*Document, Selection, error) {
	sp, err := d.bounds(sel)
	if err != nil {
		return d, sel, err
	}
	nd, p := d.removeSpan(sp)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			nd, p = nd.splitAt(p)
		}
		if line != "" {
			nd, p = nd.insertAt(p, line, styles)
		}
	}
	return nd, Caret(p.Key, p.Offset), nil
}

func (d *Document) insertAt(p Point, text string, styles StyleSet) (*Document, Point) {
	i := d.index(p.Key)
	b := d.blocks[i]
	n := utf8.RuneCountInString(text)
	if b.IsAtomic() {
		nb := Block{Key: newKey(), Type: Unstyled, Runs: []Run{{Text: text, Styles: styles}}}
		blocks := slices.Insert(slices.Clone(d.blocks), i+1, nb)
		return d.with(blocks), Point{nb.Key, n}
	}
	nb := b
	nb.Runs = concatRuns(
		sliceRuns(b.Runs, 0, p.Offset),
		[]Run{{Text: text, Styles: styles}},
		sliceRuns(b.Runs, p.Offset, b.Len()),
	)
	return d.replace(i, nb), Point{b.Key, p.Offset + n}
}

func (d *Document) splitAt(p Point) (*Document, Point) {
	i := d.index(p.Key)
	b := d.blocks[i]
	if b.IsAtomic() {
		nb := Block{Key: newKey(), Type: Unstyled}
		blocks := slices.Insert(slices.Clone(d.blocks), i+1, nb)
		return d.with(blocks), Point{nb.Key, 0}
	}
	head := Block{Key: b.Key, Type: b.Type, Depth: b.Depth, Runs: sliceRuns(b.Runs, 0, p.Offset)}
	tail := Block{Key: newKey(), Type: b.Type, Depth: b.Depth, Runs: sliceRuns(b.Runs, p.Offset, b.Len())}
	blocks := slices.Concat(d.blocks[:i], []Block{head, tail}, d.blocks[i+1:])
	return d.with(blocks), Point{tail.Key, 0}
}

// SplitBlock breaks the block at the caret. An empty list item turns back
// into a paragraph instead of splitting.
func (d *Document) SplitBlock(sel Selection) (*Document, Selection, error) {
	sp, err := d.bounds(sel)
	if err != nil {
		return d, sel, err
	}
	nd, p := d.removeSpan(sp)
	i := nd.index(p.Key)
	if b := nd.blocks[i]; b.Type.IsList() && b.Len() == 0 {
		b.Type, b.Depth = Unstyled, 0
		return nd.replace(i, b), Caret(p.Key, 0), nil
	}
	nd, p = nd.splitAt(p)
	return nd, Caret(p.Key, p.Offset), nil
}

// Backspace deletes backwards from the caret, or the selected range.
func (d *Document) Backspace(sel Selection) (*Document, Selection, error) {
	sp, err := d.bounds(sel)
	if err != nil {
		return d, sel, err
	}
	if !sp.collapsed() {
		nd, p := d.removeSpan(sp)
		return nd, Caret(p.Key, p.Offset), nil
	}
	i, off := sp.si, sp.so
	b := d.blocks[i]
	switch {
	case b.IsAtomic():
		nd, p := d.removeBlock(i, false)
		return nd, Caret(p.Key, p.Offset), nil
	case off > 0:
		nb := b
		nb.Runs = concatRuns(sliceRuns(b.Runs, 0, off-1), sliceRuns(b.Runs, off, b.Len()))
		return d.replace(i, nb), Caret(b.Key, off-1), nil
	case b.Type != Unstyled || b.Depth > 0:
		nb := b
		nb.Type, nb.Depth = Unstyled, 0
		return d.replace(i, nb), sel, nil
	case i == 0:
		return d, sel, nil
	}
	prev := d.blocks[i-1]
	if prev.IsAtomic() {
		blocks := slices.Delete(slices.Clone(d.blocks), i-1, i)
		return d.with(blocks), sel, nil
	}
	merged := prev
	merged.Runs = concatRuns(prev.Runs, b.Runs)
	blocks := slices.Concat(d.blocks[:i-1], []Block{merged}, d.blocks[i+1:])
	return d.with(blocks), Caret(prev.Key, prev.Len()), nil
}

// Delete deletes forwards from the caret, or the selected range.
func (d *Document) Delete(sel Selection) (*Document, Selection, error) {
	sp, err := d.bounds(sel)
	if err != nil {
		return d, sel, err
	}
	if !sp.collapsed() {
		nd, p := d.removeSpan(sp)
		return nd, Caret(p.Key, p.Offset), nil
	}
	i, off := sp.si, sp.so
	b := d.blocks[i]
	switch {
	case b.IsAtomic():
		nd, p := d.removeBlock(i, true)
		return nd, Caret(p.Key, p.Offset), nil
	case off < b.Len():
		nb := b
		nb.Runs = concatRuns(sliceRuns(b.Runs, 0, off), sliceRuns(b.Runs, off+1, b.Len()))
		return d.replace(i, nb), sel, nil
	case i == len(d.blocks)-1:
		return d, sel, nil
	}
	next := d.blocks[i+1]
	if next.IsAtomic() {
		blocks := slices.Delete(slices.Clone(d.blocks), i+1, i+2)
		return d.with(blocks), sel, nil
	}
	merged := b
	merged.Runs = concatRuns(b.Runs, next.Runs)
	blocks := slices.Concat(d.blocks[:i], []Block{merged}, d.blocks[i+2:])
	return d.with(blocks), sel, nil
}

// removeBlock drops block i and picks a caret next to the gap. forward
// prefers the start of the following block over the end of the previous.
func (d *Document) removeBlock(i int, forward bool) (*Document, Point) {
	blocks := slices.Delete(slices.Clone(d.blocks), i, i+1)
	if len(blocks) == 0 {
		nb := Block{Key: newKey(), Type: Unstyled}
		return d.with([]Block{nb}), Point{nb.Key, 0}
	}
	nd := d.with(blocks)
	if (forward || i == 0) && i < len(blocks) {
		return nd, Point{blocks[i].Key, 0}
	}
	prev := blocks[i-1]
	return nd, Point{prev.Key, prev.Len()}
}

// SetBlockType sets the type of every non-atomic block in the selection.
func (d *Document) SetBlockType(sel Selection, t BlockType) (*Document, error) {
	if !t.Known() || t == Atomic {
		return d, ErrInvalidBlockType
	}
	sp, err := d.bounds(sel)
	if err != nil {
		return d, err
	}
	var blocks []Block
	for i := sp.si; i <= sp.ei; i++ {
		b := d.blocks[i]
		if b.IsAtomic() || b.Type == t {
			continue
		}
		if blocks == nil {
			blocks = slices.Clone(d.blocks)
		}
		b.Type = t
		if t == Unstyled {
			b.Depth = 0
		}
		blocks[i] = b
	}
	if blocks == nil {
		return d, nil
	}
	return d.with(blocks), nil
}

// BlockTypeAt returns the type of the block holding the selection start.
func (d *Document) BlockTypeAt(sel Selection) (BlockType, error) {
	sp, err := d.bounds(sel)
	if err != nil {
		return "", err
	}
	return d.blocks[sp.si].Type, nil
}

// ApplyStyle adds s to every character in the selection. Adding a member of
// an exclusive group drops its siblings from the same characters.
func (d *Document) ApplyStyle(sel Selection, s Style) (*Document, error) {
	return d.mapStyles(sel, func(ss StyleSet) StyleSet { return ss.With(s) })
}

// RemoveStyle removes s from every character in the selection.
func (d *Document) RemoveStyle(sel Selection, s Style) (*Document, error) {
	return d.mapStyles(sel, func(ss StyleSet) StyleSet { return ss.Without(s) })
}

func (d *Document) mapStyles(sel Selection, fn func(StyleSet) StyleSet) (*Document, error) {
	sp, err := d.bounds(sel)
	if err != nil || sp.collapsed() {
		return d, err
	}
	var blocks []Block
	for i := sp.si; i <= sp.ei; i++ {
		b := d.blocks[i]
		if b.IsAtomic() {
			continue
		}
		from, to := 0, b.Len()
		if i == sp.si {
			from = sp.so
		}
		if i == sp.ei {
			to = sp.eo
		}
		runs := mapStyles(b.Runs, from, to, fn)
		if equalRuns(runs, b.Runs) {
			continue
		}
		if blocks == nil {
			blocks = slices.Clone(d.blocks)
		}
		b.Runs = runs
		blocks[i] = b
	}
	if blocks == nil {
		return d, nil
	}
	return d.with(blocks), nil
}

// StyleAt returns the styles in effect at the selection: for a caret, the
// styles of the character before it; for a range, of its first character.
func (d *Document) StyleAt(sel Selection) (StyleSet, error) {
	sp, err := d.bounds(sel)
	if err != nil {
		return 0, err
	}
	b := d.blocks[sp.si]
	if sp.collapsed() && sp.so > 0 {
		return b.StyleAt(sp.so - 1), nil
	}
	return b.StyleAt(sp.so), nil
}

// InsertAtomic replaces the selection with an atomic block holding e and
// placeholder text. The block at the caret is split around the new block
// and the returned caret sits at the start of the block after it.
func (d *Document) InsertAtomic(sel Selection, e Entity, placeholder string) (*Document, Selection, error) {
	sp, err := d.bounds(sel)
	if err != nil {
		return d, sel, err
	}
	if placeholder == "" {
		placeholder = " "
	}
	nd, p := d.removeSpan(sp)
	entities := append(slices.Clone(nd.entities), e.clone())
	atom := Block{
		Key:    newKey(),
		Type:   Atomic,
		Runs:   []Run{{Text: placeholder}},
		Entity: EntityKey(len(entities)),
	}
	i := nd.index(p.Key)
	b := nd.blocks[i]
	var around []Block
	var after Block
	if b.IsAtomic() {
		after = Block{Key: newKey(), Type: Unstyled}
		around = []Block{b, atom, after}
	} else {
		before := Block{Key: b.Key, Type: b.Type, Depth: b.Depth, Runs: sliceRuns(b.Runs, 0, p.Offset)}
		after = Block{Key: newKey(), Type: Unstyled, Runs: sliceRuns(b.Runs, p.Offset, b.Len())}
		if len(after.Runs) > 0 {
			after.Type, after.Depth = b.Type, b.Depth
		}
		around = []Block{before, atom, after}
	}
	blocks := slices.Concat(nd.blocks[:i], around, nd.blocks[i+1:])
	return &Document{blocks: blocks, entities: entities}, Caret(after.Key, 0), nil
}
