package document

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// RawDocument is the tree-shaped serialization of a document. It is the
// form persisted in drafts and sent on submission. Offsets and lengths
// count runes.
type RawDocument struct {
	Blocks    []RawBlock           `json:"blocks"`
	EntityMap map[string]RawEntity `json:"entityMap"`
}

// RawBlock is the serialized form of a block.
type RawBlock struct {
	Key               string           `json:"key"`
	Text              string           `json:"text"`
	Type              string           `json:"type"`
	Depth             int              `json:"depth"`
	InlineStyleRanges []RawStyleRange  `json:"inlineStyleRanges"`
	EntityRanges      []RawEntityRange `json:"entityRanges"`
	Data              map[string]any   `json:"data"`
}

// RawStyleRange marks a style over a span of a block's text.
type RawStyleRange struct {
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	Style  string `json:"style"`
}

// RawEntityRange attaches an entity map entry to a span of text.
type RawEntityRange struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
	Key    int `json:"key"`
}

// RawEntity is the serialized form of an entity.
type RawEntity struct {
	Type       string         `json:"type"`
	Mutability string         `json:"mutability"`
	Data       map[string]any `json:"data"`
}

// Marshal serializes d to JSON.
func Marshal(d *Document) ([]byte, error) {
	return json.Marshal(d.Raw())
}

// Unmarshal parses a document serialized by Marshal.
func Unmarshal(data []byte) (*Document, error) {
	var raw RawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return FromRaw(raw)
}

// Raw converts d to its serialized form. Only entities referenced by
// atomic blocks are written, renumbered from zero in document order.
func (d *Document) Raw() RawDocument {
	raw := RawDocument{
		Blocks:    make([]RawBlock, 0, len(d.blocks)),
		EntityMap: map[string]RawEntity{},
	}
	for _, b := range d.blocks {
		rb := RawBlock{
			Key:               b.Key,
			Text:              b.Text(),
			Type:              string(b.Type),
			Depth:             b.Depth,
			InlineStyleRanges: styleRanges(b.Runs),
			EntityRanges:      []RawEntityRange{},
			Data:              map[string]any{},
		}
		if e, ok := d.Entity(b.Entity); ok && b.IsAtomic() {
			n := len(raw.EntityMap)
			raw.EntityMap[strconv.Itoa(n)] = RawEntity{Type: e.Type, Mutability: e.Mutability, Data: e.Data}
			rb.EntityRanges = append(rb.EntityRanges, RawEntityRange{Offset: 0, Length: b.Len(), Key: n})
		}
		raw.Blocks = append(raw.Blocks, rb)
	}
	return raw
}

func styleRanges(runs []Run) []RawStyleRange {
	out := []RawStyleRange{}
	for _, s := range AllStyles() {
		pos, start := 0, -1
		for _, r := range runs {
			n := len([]rune(r.Text))
			switch {
			case r.Styles.Has(s) && start < 0:
				start = pos
			case !r.Styles.Has(s) && start >= 0:
				out = append(out, RawStyleRange{Offset: start, Length: pos - start, Style: s.String()})
				start = -1
			}
			pos += n
		}
		if start >= 0 {
			out = append(out, RawStyleRange{Offset: start, Length: pos - start, Style: s.String()})
		}
	}
	return out
}

// FromRaw rebuilds a document from its serialized form. Unknown style names
// are dropped and unknown block types read as paragraphs. When ranges put
// two members of an exclusive group on one character, the later range wins.
func FromRaw(raw RawDocument) (*Document, error) {
	var entities []Entity
	blocks := make([]Block, 0, len(raw.Blocks))
	for _, rb := range raw.Blocks {
		text := []rune(rb.Text)
		styles := make([]StyleSet, len(text))
		for _, sr := range rb.InlineStyleRanges {
			s, ok := ParseStyle(sr.Style)
			if !ok {
				continue
			}
			from, to := clamp(sr.Offset, len(text)), clamp(sr.Offset+sr.Length, len(text))
			for i := from; i < to; i++ {
				styles[i] = styles[i].With(s)
			}
		}
		b := Block{Key: rb.Key, Type: BlockType(rb.Type), Depth: rb.Depth}
		if !b.Type.Known() {
			b.Type = Unstyled
		}
		for i, r := range text {
			b.Runs = append(b.Runs, Run{Text: string(r), Styles: styles[i]})
		}
		if b.Type == Atomic {
			if len(rb.EntityRanges) == 0 {
				return nil, fmt.Errorf("%w: atomic block %q has no entity range", ErrMalformed, rb.Key)
			}
			re, ok := raw.EntityMap[strconv.Itoa(rb.EntityRanges[0].Key)]
			if !ok {
				return nil, fmt.Errorf("%w: entity %d missing from entity map", ErrMalformed, rb.EntityRanges[0].Key)
			}
			entities = append(entities, Entity{Type: re.Type, Mutability: re.Mutability, Data: re.Data})
			b.Entity = EntityKey(len(entities))
		}
		blocks = append(blocks, b)
	}
	return FromBlocks(blocks, entities)
}

func clamp(v, n int) int {
	return max(0, min(v, n))
}
