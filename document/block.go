package document

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// BlockType is the structural kind of a block.
type BlockType string

const (
	Unstyled      BlockType = "unstyled"
	UnorderedList BlockType = "unordered-list-item"
	OrderedList   BlockType = "ordered-list-item"
	Atomic        BlockType = "atomic"
)

// Known reports whether t is one of the supported block types.
func (t BlockType) Known() bool {
	switch t {
	case Unstyled, UnorderedList, OrderedList, Atomic:
		return true
	}
	return false
}

// IsList reports whether t is a list item type.
func (t BlockType) IsList() bool {
	return t == UnorderedList || t == OrderedList
}

// Run is a span of text sharing one style set.
type Run struct {
	Text   string
	Styles StyleSet
}

// Block is one structural unit of a document. Atomic blocks reference an
// entity and carry only placeholder text.
type Block struct {
	Key    string
	Type   BlockType
	Depth  int
	Runs   []Run
	Entity EntityKey
}

func newKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Text returns the concatenated text of the block.
func (b Block) Text() string {
	if len(b.Runs) == 1 {
		return b.Runs[0].Text
	}
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Len returns the length of the block in runes.
func (b Block) Len() int {
	n := 0
	for _, r := range b.Runs {
		n += utf8.RuneCountInString(r.Text)
	}
	return n
}

// IsAtomic reports whether the block embeds an entity.
func (b Block) IsAtomic() bool {
	return b.Type == Atomic
}

// StyleAt returns the style of the rune at offset, or of the last rune
// when offset is at the end of the block.
func (b Block) StyleAt(offset int) StyleSet {
	pos := 0
	var last StyleSet
	for _, r := range b.Runs {
		n := utf8.RuneCountInString(r.Text)
		if offset < pos+n {
			return r.Styles
		}
		pos += n
		last = r.Styles
	}
	return last
}

func (b Block) clone() Block {
	b.Runs = append([]Run(nil), b.Runs...)
	return b
}

// slice returns the runs covering the rune range [from, to).
func sliceRuns(runs []Run, from, to int) []Run {
	var out []Run
	pos := 0
	for _, r := range runs {
		rs := []rune(r.Text)
		start, end := pos, pos+len(rs)
		pos = end
		if end <= from || start >= to {
			continue
		}
		lo, hi := max(from, start)-start, min(to, end)-start
		out = append(out, Run{Text: string(rs[lo:hi]), Styles: r.Styles})
	}
	return out
}

func runsLen(runs []Run) int {
	n := 0
	for _, r := range runs {
		n += utf8.RuneCountInString(r.Text)
	}
	return n
}

// normalize drops empty runs and merges neighbours with equal styles.
func normalize(runs []Run) []Run {
	out := make([]Run, 0, len(runs))
	for _, r := range runs {
		if r.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Styles == r.Styles {
			out[n-1].Text += r.Text
			continue
		}
		out = append(out, r)
	}
	return out
}

func concatRuns(parts ...[]Run) []Run {
	var all []Run
	for _, p := range parts {
		all = append(all, p...)
	}
	return normalize(all)
}

// mapStyles applies fn to the styles of the rune range [from, to).
func mapStyles(runs []Run, from, to int, fn func(StyleSet) StyleSet) []Run {
	total := runsLen(runs)
	return concatRuns(
		sliceRuns(runs, 0, from),
		restyle(sliceRuns(runs, from, to), fn),
		sliceRuns(runs, to, total),
	)
}

func restyle(runs []Run, fn func(StyleSet) StyleSet) []Run {
	out := make([]Run, len(runs))
	for i, r := range runs {
		out[i] = Run{Text: r.Text, Styles: fn(r.Styles)}
	}
	return out
}

func equalRuns(a, b []Run) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
