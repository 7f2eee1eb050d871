package document

import "strings"

// Style is a single inline style tag.
type Style uint16

const (
	Bold Style = 1 << iota
	Italic
	Underline
	Strikethrough
	Highlight
	Red
	Blue
	Size1x5
	Size2x
	Size3x
	Size4x
)

var styleNames = []struct {
	style Style
	name  string
}{
	{Bold, "BOLD"},
	{Italic, "ITALIC"},
	{Underline, "UNDERLINE"},
	{Strikethrough, "STRIKETHROUGH"},
	{Highlight, "HIGHLIGHT"},
	{Red, "RED"},
	{Blue, "BLUE"},
	{Size1x5, "1.5X"},
	{Size2x, "2X"},
	{Size3x, "3X"},
	{Size4x, "4X"},
}

// ColorGroup and SizeGroup are the mutually exclusive style groups.
var (
	ColorGroup = StyleSet(Red | Blue)
	SizeGroup  = StyleSet(Size1x5 | Size2x | Size3x | Size4x)
)

// String returns the serialized name of the style, e.g. "BOLD" or "1.5X".
func (s Style) String() string {
	for _, n := range styleNames {
		if n.style == s {
			return n.name
		}
	}
	return ""
}

// Group returns the exclusive group s belongs to, or an empty set.
func (s Style) Group() StyleSet {
	switch {
	case ColorGroup.Has(s):
		return ColorGroup
	case SizeGroup.Has(s):
		return SizeGroup
	}
	return 0
}

// ParseStyle looks up a style by its serialized name.
func ParseStyle(name string) (Style, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for _, n := range styleNames {
		if n.name == name {
			return n.style, true
		}
	}
	return 0, false
}

// AllStyles returns every known style in display order.
func AllStyles() []Style {
	out := make([]Style, len(styleNames))
	for i, n := range styleNames {
		out[i] = n.style
	}
	return out
}

// StyleSet is a set of inline styles.
type StyleSet uint16

// Has reports whether s is in the set.
func (ss StyleSet) Has(s Style) bool {
	return s != 0 && ss&StyleSet(s) == StyleSet(s)
}

// With returns the set with s added. Adding a member of an exclusive
// group drops its siblings.
func (ss StyleSet) With(s Style) StyleSet {
	if g := s.Group(); g != 0 {
		ss &^= g
	}
	return ss | StyleSet(s)
}

// Without returns the set with s removed.
func (ss StyleSet) Without(s Style) StyleSet {
	return ss &^ StyleSet(s)
}

// Styles lists the members in display order.
func (ss StyleSet) Styles() []Style {
	var out []Style
	for _, n := range styleNames {
		if ss.Has(n.style) {
			out = append(out, n.style)
		}
	}
	return out
}

// Names lists the serialized names of the members.
func (ss StyleSet) Names() []string {
	var out []string
	for _, s := range ss.Styles() {
		out = append(out, s.String())
	}
	return out
}

// Valid reports whether each exclusive group holds at most one member.
func (ss StyleSet) Valid() bool {
	return single(ss&ColorGroup) && single(ss&SizeGroup)
}

func single(ss StyleSet) bool {
	return ss&(ss-1) == 0
}
