// Package document implements the rich-text document model: an ordered list
// of typed blocks holding styled runs, plus an entity table for embedded
// records such as images.
//
// Documents are immutable. Every edit returns a new *Document and leaves the
// receiver untouched; an edit that changes nothing returns the receiver
// itself, which callers can detect with Same.
package document

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"unicode/utf8"
)

var (
	// ErrInvalidSelection is returned when a selection points at a missing
	// block or an out-of-range offset.
	ErrInvalidSelection = errors.New("document: invalid selection")
	// ErrInvalidBlockType is returned for unknown or non-settable block types.
	ErrInvalidBlockType = errors.New("document: invalid block type")
	// ErrMalformed is returned when a document fails validation.
	ErrMalformed = errors.New("document: malformed document")
)

// Document is an immutable rich-text document.
type Document struct {
	blocks   []Block
	entities []Entity
}

// New returns an empty document: a single empty paragraph.
func New() *Document {
	return &Document{blocks: []Block{{Key: newKey(), Type: Unstyled}}}
}

// FromBlocks builds a document from blocks and an entity table. Atomic
// blocks must reference an entity in the table by its 1-based position.
// Blocks without a key get a fresh one.
func FromBlocks(blocks []Block, entities []Entity) (*Document, error) {
	if len(blocks) == 0 {
		return New(), nil
	}
	d := &Document{
		blocks:   make([]Block, len(blocks)),
		entities: make([]Entity, len(entities)),
	}
	for i, e := range entities {
		d.entities[i] = e.clone()
	}
	seen := make(map[string]bool, len(blocks))
	for i, b := range blocks {
		if b.Key == "" {
			b.Key = newKey()
		}
		if seen[b.Key] {
			return nil, fmt.Errorf("%w: duplicate block key %q", ErrMalformed, b.Key)
		}
		seen[b.Key] = true
		if !b.Type.Known() {
			return nil, fmt.Errorf("%w: block %q has unknown type %q", ErrMalformed, b.Key, b.Type)
		}
		if b.Type == Atomic {
			if b.Entity < 1 || int(b.Entity) > len(entities) {
				return nil, fmt.Errorf("%w: atomic block %q has no entity", ErrMalformed, b.Key)
			}
		} else {
			b.Entity = 0
		}
		for _, r := range b.Runs {
			if !r.Styles.Valid() {
				return nil, fmt.Errorf("%w: block %q mixes exclusive styles", ErrMalformed, b.Key)
			}
		}
		b.Runs = normalize(slices.Clone(b.Runs))
		b.Depth = max(b.Depth, 0)
		d.blocks[i] = b
	}
	return d, nil
}

// Same reports whether d and other are the same document value, i.e. no
// edit happened between them.
func (d *Document) Same(other *Document) bool {
	return d == other
}

// Len returns the number of blocks.
func (d *Document) Len() int {
	return len(d.blocks)
}

// Blocks returns a copy of the block list.
func (d *Document) Blocks() []Block {
	out := make([]Block, len(d.blocks))
	for i, b := range d.blocks {
		out[i] = b.clone()
	}
	return out
}

// BlockAt returns the block at position i.
func (d *Document) BlockAt(i int) Block {
	return d.blocks[i].clone()
}

// Block looks up a block by key.
func (d *Document) Block(key string) (Block, bool) {
	i := d.index(key)
	if i < 0 {
		return Block{}, false
	}
	return d.blocks[i].clone(), true
}

// Entity returns the entity stored under k.
func (d *Document) Entity(k EntityKey) (Entity, bool) {
	if k < 1 || int(k) > len(d.entities) {
		return Entity{}, false
	}
	return d.entities[k-1].clone(), true
}

// Images returns the image entities referenced by atomic blocks, in
// document order.
func (d *Document) Images() []Entity {
	var out []Entity
	for _, b := range d.blocks {
		if !b.IsAtomic() {
			continue
		}
		if e, ok := d.Entity(b.Entity); ok && e.Type == EntityImage {
			out = append(out, e)
		}
	}
	return out
}

// PlainText returns the text of all non-atomic blocks joined by newlines.
func (d *Document) PlainText() string {
	lines := make([]string, 0, len(d.blocks))
	for _, b := range d.blocks {
		if b.IsAtomic() {
			continue
		}
		lines = append(lines, b.Text())
	}
	return strings.Join(lines, "\n")
}

// CharCount counts the runes of text in non-atomic blocks. Block separators
// and embedded entities do not count.
func (d *Document) CharCount() int {
	n := 0
	for _, b := range d.blocks {
		if !b.IsAtomic() {
			n += utf8.RuneCountInString(b.Text())
		}
	}
	return n
}

// IsEmpty reports whether the document has no text and no embedded entities.
func (d *Document) IsEmpty() bool {
	for _, b := range d.blocks {
		if b.IsAtomic() || b.Len() > 0 {
			return false
		}
	}
	return true
}

// Equal reports whether d and other have the same blocks, styles and
// entity data. Block keys and entity table positions are ignored.
func (d *Document) Equal(other *Document) bool {
	if d == other {
		return true
	}
	if len(d.blocks) != len(other.blocks) {
		return false
	}
	for i, a := range d.blocks {
		b := other.blocks[i]
		if a.Type != b.Type || a.Depth != b.Depth || !equalRuns(a.Runs, b.Runs) {
			return false
		}
		if a.IsAtomic() {
			ea, _ := d.Entity(a.Entity)
			eb, _ := other.Entity(b.Entity)
			if ea.Type != eb.Type || ea.Mutability != eb.Mutability || !reflect.DeepEqual(ea.Data, eb.Data) {
				return false
			}
		}
	}
	return true
}

// Start returns a caret at the beginning of the document.
func (d *Document) Start() Selection {
	return Caret(d.blocks[0].Key, 0)
}

// End returns a caret at the end of the document.
func (d *Document) End() Selection {
	last := d.blocks[len(d.blocks)-1]
	return Caret(last.Key, last.Len())
}

// All selects the whole document.
func (d *Document) All() Selection {
	last := d.blocks[len(d.blocks)-1]
	return Range(d.blocks[0].Key, 0, last.Key, last.Len())
}

// Validate checks that sel points inside d.
func (d *Document) Validate(sel Selection) error {
	_, err := d.bounds(sel)
	return err
}

func (d *Document) index(key string) int {
	for i, b := range d.blocks {
		if b.Key == key {
			return i
		}
	}
	return -1
}

func (d *Document) with(blocks []Block) *Document {
	return &Document{blocks: blocks, entities: d.entities}
}

func (d *Document) replace(i int, b Block) *Document {
	blocks := slices.Clone(d.blocks)
	blocks[i] = b
	return d.with(blocks)
}
