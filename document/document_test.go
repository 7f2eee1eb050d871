package document

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, blocks []Block, entities []Entity) *Document {
	t.Helper()
	d, err := FromBlocks(blocks, entities)
	require.NoError(t, err)
	return d
}

func para(key, text string) Block {
	return Block{Key: key, Type: Unstyled, Runs: []Run{{Text: text}}}
}

func TestNewDocumentIsEmpty(t *testing.T) {
	d := New()
	require.Equal(t, 1, d.Len())
	assert.Equal(t, Unstyled, d.BlockAt(0).Type)
	assert.True(t, d.IsEmpty())
	assert.Equal(t, 0, d.CharCount())
	assert.Equal(t, "", d.PlainText())
}

func TestStyleSetWithDropsGroupSiblings(t *testing.T) {
	tests := []struct {
		name string
		set  StyleSet
		add  Style
		want StyleSet
	}{
		{"color replaces color", StyleSet(Red | Bold), Blue, StyleSet(Blue | Bold)},
		{"size replaces size", StyleSet(Size2x | Italic), Size4x, StyleSet(Size4x | Italic)},
		{"plain style keeps others", StyleSet(Red | Size3x), Underline, StyleSet(Red | Size3x | Underline)},
		{"same member is idempotent", StyleSet(Size1x5), Size1x5, StyleSet(Size1x5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.set.With(tt.add)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
}

func TestParseStyle(t *testing.T) {
	for _, s := range AllStyles() {
		got, ok := ParseStyle(s.String())
		require.True(t, ok, s.String())
		assert.Equal(t, s, got)
	}
	_, ok := ParseStyle("CODE")
	assert.False(t, ok)
}

func TestInsertTextSplitsOnNewlines(t *testing.T) {
	d := New()
	nd, sel, err := d.InsertText(d.Start(), "first\nsecond", StyleSet(Bold))
	require.NoError(t, err)

	require.Equal(t, 2, nd.Len())
	assert.Equal(t, "first", nd.BlockAt(0).Text())
	assert.Equal(t, "second", nd.BlockAt(1).Text())
	assert.Equal(t, Caret(nd.BlockAt(1).Key, 6), sel)
	assert.True(t, nd.BlockAt(1).StyleAt(0).Has(Bold))

	assert.True(t, d.IsEmpty(), "receiver must not change")
}

func TestInsertTextReplacesRange(t *testing.T) {
	d := mustDoc(t, []Block{para("a", "hello world")}, nil)
	nd, sel, err := d.InsertText(Range("a", 6, "a", 11), "gophers", 0)
	require.NoError(t, err)
	assert.Equal(t, "hello gophers", nd.BlockAt(0).Text())
	assert.Equal(t, Caret("a", 13), sel)
}

func TestInvalidSelection(t *testing.T) {
	d := mustDoc(t, []Block{para("a", "abc")}, nil)
	_, _, err := d.InsertText(Caret("missing", 0), "x", 0)
	assert.ErrorIs(t, err, ErrInvalidSelection)
	_, _, err = d.InsertText(Caret("a", 4), "x", 0)
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestRemoveRangeAcrossBlocks(t *testing.T) {
	d := mustDoc(t, []Block{para("a", "hello"), para("b", "middle"), para("c", "world")}, nil)
	nd, sel, err := d.RemoveRange(Range("c", 2, "a", 2))
	require.NoError(t, err)
	require.Equal(t, 1, nd.Len())
	assert.Equal(t, "herld", nd.BlockAt(0).Text())
	assert.Equal(t, Caret("a", 2), sel)
}

func TestRemoveRangeDropsAtomicBlocksWhole(t *testing.T) {
	d := mustDoc(t, []Block{
		para("a", "before"),
		{Key: "img", Type: Atomic, Runs: []Run{{Text: " "}}, Entity: 1},
		para("c", "after"),
	}, []Entity{NewImage("/uploads/cat.jpg")})

	nd, _, err := d.RemoveRange(Range("a", 3, "img", 1))
	require.NoError(t, err)
	require.Equal(t, 2, nd.Len())
	assert.Equal(t, "bef", nd.BlockAt(0).Text())
	assert.Equal(t, "after", nd.BlockAt(1).Text())
	assert.Empty(t, nd.Images())
}

func TestBackspace(t *testing.T) {
	list := Block{Key: "l", Type: UnorderedList, Runs: []Run{{Text: "item"}}}
	img := Block{Key: "img", Type: Atomic, Runs: []Run{{Text: " "}}, Entity: 1}
	entities := []Entity{NewImage("/x.jpg")}

	tests := []struct {
		name      string
		blocks    []Block
		sel       Selection
		wantTexts []string
		wantTypes []BlockType
		wantSel   Selection
	}{
		{
			name:      "deletes previous rune",
			blocks:    []Block{para("a", "abc")},
			sel:       Caret("a", 2),
			wantTexts: []string{"ac"},
			wantTypes: []BlockType{Unstyled},
			wantSel:   Caret("a", 1),
		},
		{
			name:      "merges with previous paragraph",
			blocks:    []Block{para("a", "ab"), para("b", "cd")},
			sel:       Caret("b", 0),
			wantTexts: []string{"abcd"},
			wantTypes: []BlockType{Unstyled},
			wantSel:   Caret("a", 2),
		},
		{
			name:      "list item at start becomes paragraph",
			blocks:    []Block{para("a", "ab"), list},
			sel:       Caret("l", 0),
			wantTexts: []string{"ab", "item"},
			wantTypes: []BlockType{Unstyled, Unstyled},
			wantSel:   Caret("l", 0),
		},
		{
			name:      "removes atomic block before caret",
			blocks:    []Block{para("a", "ab"), img, para("c", "cd")},
			sel:       Caret("c", 0),
			wantTexts: []string{"ab", "cd"},
			wantTypes: []BlockType{Unstyled, Unstyled},
			wantSel:   Caret("c", 0),
		},
		{
			name:      "start of document is a no-op",
			blocks:    []Block{para("a", "ab")},
			sel:       Caret("a", 0),
			wantTexts: []string{"ab"},
			wantTypes: []BlockType{Unstyled},
			wantSel:   Caret("a", 0),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ents []Entity
			for _, b := range tt.blocks {
				if b.IsAtomic() {
					ents = entities
				}
			}
			d := mustDoc(t, tt.blocks, ents)
			nd, sel, err := d.Backspace(tt.sel)
			require.NoError(t, err)
			var texts []string
			var types []BlockType
			for _, b := range nd.Blocks() {
				texts = append(texts, b.Text())
				types = append(types, b.Type)
			}
			assert.Equal(t, tt.wantTexts, texts)
			assert.Equal(t, tt.wantTypes, types)
			assert.Equal(t, tt.wantSel, sel)
		})
	}
}

func TestBackspaceAtStartIsSameDocument(t *testing.T) {
	d := mustDoc(t, []Block{para("a", "ab")}, nil)
	nd, _, err := d.Backspace(Caret("a", 0))
	require.NoError(t, err)
	assert.True(t, nd.Same(d))
}

func TestDeleteMergesNextBlock(t *testing.T) {
	d := mustDoc(t, []Block{para("a", "ab"), para("b", "cd")}, nil)
	nd, sel, err := d.Delete(Caret("a", 2))
	require.NoError(t, err)
	require.Equal(t, 1, nd.Len())
	assert.Equal(t, "abcd", nd.BlockAt(0).Text())
	assert.Equal(t, Caret("a", 2), sel)
}

func TestSplitBlock(t *testing.T) {
	d := mustDoc(t, []Block{{Key: "l", Type: OrderedList, Runs: []Run{{Text: "onetwo"}}}}, nil)
	nd, sel, err := d.SplitBlock(Caret("l", 3))
	require.NoError(t, err)
	require.Equal(t, 2, nd.Len())
	assert.Equal(t, "one", nd.BlockAt(0).Text())
	assert.Equal(t, "two", nd.BlockAt(1).Text())
	assert.Equal(t, OrderedList, nd.BlockAt(1).Type)
	assert.Equal(t, nd.BlockAt(1).Key, sel.Focus.Key)

	empty := mustDoc(t, []Block{{Key: "l", Type: OrderedList}}, nil)
	nd, _, err = empty.SplitBlock(Caret("l", 0))
	require.NoError(t, err)
	require.Equal(t, 1, nd.Len())
	assert.Equal(t, Unstyled, nd.BlockAt(0).Type)
}

func TestSetBlockTypeSkipsAtomic(t *testing.T) {
	d := mustDoc(t, []Block{
		para("a", "one"),
		{Key: "img", Type: Atomic, Runs: []Run{{Text: " "}}, Entity: 1},
		para("c", "two"),
	}, []Entity{NewImage("/x.jpg")})

	nd, err := d.SetBlockType(Range("a", 0, "c", 1), UnorderedList)
	require.NoError(t, err)
	assert.Equal(t, UnorderedList, nd.BlockAt(0).Type)
	assert.Equal(t, Atomic, nd.BlockAt(1).Type)
	assert.Equal(t, UnorderedList, nd.BlockAt(2).Type)

	_, err = d.SetBlockType(d.Start(), Atomic)
	assert.ErrorIs(t, err, ErrInvalidBlockType)
}

func TestApplyStyleKeepsExclusiveGroups(t *testing.T) {
	d := mustDoc(t, []Block{para("a", "abcdefghij"), para("b", "klmnopqrst")}, nil)
	group := []Style{Red, Blue, Size1x5, Size2x, Size3x, Size4x, Bold}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		keys := []string{"a", "b"}
		ak, fk := keys[rng.Intn(2)], keys[rng.Intn(2)]
		sel := Range(ak, rng.Intn(11), fk, rng.Intn(11))
		s := group[rng.Intn(len(group))]
		var err error
		if rng.Intn(3) == 0 {
			d, err = d.RemoveStyle(sel, s)
		} else {
			d, err = d.ApplyStyle(sel, s)
		}
		require.NoError(t, err)
		for _, b := range d.Blocks() {
			for _, r := range b.Runs {
				require.True(t, r.Styles.Valid(), "run %q has styles %v", r.Text, r.Styles.Names())
			}
		}
	}
}

func TestApplyStyleNoChangeReturnsSameDocument(t *testing.T) {
	d := mustDoc(t, []Block{{Key: "a", Type: Unstyled, Runs: []Run{{Text: "bold", Styles: StyleSet(Bold)}}}}, nil)
	nd, err := d.ApplyStyle(Range("a", 0, "a", 4), Bold)
	require.NoError(t, err)
	assert.True(t, nd.Same(d))
}

func TestStyleAt(t *testing.T) {
	d := mustDoc(t, []Block{{Key: "a", Type: Unstyled, Runs: []Run{
		{Text: "ab", Styles: StyleSet(Bold)},
		{Text: "cd", Styles: StyleSet(Italic)},
	}}}, nil)

	got, err := d.StyleAt(Caret("a", 2))
	require.NoError(t, err)
	assert.Equal(t, StyleSet(Bold), got)

	got, err = d.StyleAt(Range("a", 2, "a", 4))
	require.NoError(t, err)
	assert.Equal(t, StyleSet(Italic), got)
}

func TestInsertAtomicSplitsBlock(t *testing.T) {
	text := strings.Repeat("x", 4999)
	d := mustDoc(t, []Block{para("a", text)}, nil)

	nd, sel, err := d.InsertAtomic(Caret("a", 2000), NewImage("/uploads/pic.jpg"), " ")
	require.NoError(t, err)

	require.Equal(t, 3, nd.Len())
	assert.Equal(t, 2000, nd.BlockAt(0).Len())
	assert.Equal(t, Atomic, nd.BlockAt(1).Type)
	assert.Equal(t, 2999, nd.BlockAt(2).Len())
	assert.Equal(t, Caret(nd.BlockAt(2).Key, 0), sel)

	e, ok := nd.Entity(nd.BlockAt(1).Entity)
	require.True(t, ok)
	assert.Equal(t, "/uploads/pic.jpg", e.Src())
	assert.Equal(t, 4999, nd.CharCount())

	assert.Empty(t, d.Images(), "receiver must not gain entities")
}

func TestInsertAtomicDoesNotShareEntityTables(t *testing.T) {
	d := New()
	a, _, err := d.InsertAtomic(d.Start(), NewImage("/a.jpg"), " ")
	require.NoError(t, err)
	b, _, err := d.InsertAtomic(d.Start(), NewImage("/b.jpg"), " ")
	require.NoError(t, err)

	ia, ib := a.Images(), b.Images()
	require.Len(t, ia, 1)
	require.Len(t, ib, 1)
	assert.Equal(t, "/a.jpg", ia[0].Src())
	assert.Equal(t, "/b.jpg", ib[0].Src())
}

func TestRawRoundTrip(t *testing.T) {
	d := mustDoc(t, []Block{
		{Key: "a", Type: Unstyled, Runs: []Run{
			{Text: "plain "},
			{Text: "bold red", Styles: StyleSet(Bold | Red)},
			{Text: " 中文", Styles: StyleSet(Size2x | Highlight)},
		}},
		{Key: "b", Type: UnorderedList, Runs: []Run{{Text: "item", Styles: StyleSet(Strikethrough)}}},
		{Key: "c", Type: OrderedList, Runs: []Run{{Text: "\tnumbered"}}},
		{Key: "d", Type: Atomic, Runs: []Run{{Text: " "}}, Entity: 1},
		{Key: "e", Type: Unstyled},
	}, []Entity{NewImage("https://cdn.example.com/a.jpg")})

	data, err := Marshal(d)
	require.NoError(t, err)
	got, err := Unmarshal(data)
	require.NoError(t, err)

	assert.True(t, d.Equal(got))
	for i := 0; i < d.Len(); i++ {
		assert.Equal(t, d.BlockAt(i).Key, got.BlockAt(i).Key)
	}
	require.Len(t, got.Images(), 1)
	assert.Equal(t, "https://cdn.example.com/a.jpg", got.Images()[0].Src())
}

func TestUnmarshalDraftJSON(t *testing.T) {
	data := `{"blocks":[
		{"key":"k1","text":"Hi there","type":"unstyled","depth":0,
		 "inlineStyleRanges":[{"offset":0,"length":2,"style":"BOLD"},{"offset":3,"length":5,"style":"CODE"}],
		 "entityRanges":[],"data":{}},
		{"key":"k2","text":" ","type":"atomic","depth":0,"inlineStyleRanges":[],
		 "entityRanges":[{"offset":0,"length":1,"key":0}],"data":{}}],
		"entityMap":{"0":{"type":"IMAGE","mutability":"IMMUTABLE","data":{"src":"/uploads/x.jpg"}}}}`

	d, err := Unmarshal([]byte(data))
	require.NoError(t, err)
	require.Equal(t, 2, d.Len())
	b := d.BlockAt(0)
	require.Len(t, b.Runs, 2)
	assert.Equal(t, Run{Text: "Hi", Styles: StyleSet(Bold)}, b.Runs[0])
	assert.Equal(t, Run{Text: " there"}, b.Runs[1])
	assert.Equal(t, "/uploads/x.jpg", d.Images()[0].Src())
}

func TestUnmarshalRejectsAtomicWithoutEntity(t *testing.T) {
	data := `{"blocks":[{"key":"k","text":" ","type":"atomic","depth":0,"inlineStyleRanges":[],"entityRanges":[],"data":{}}],"entityMap":{}}`
	_, err := Unmarshal([]byte(data))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Unmarshal([]byte("not json"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCharCountExcludesAtomicBlocks(t *testing.T) {
	d := mustDoc(t, []Block{
		para("a", "héllo"),
		{Key: "img", Type: Atomic, Runs: []Run{{Text: " "}}, Entity: 1},
		para("c", "wörld"),
	}, []Entity{NewImage("/x.jpg")})
	assert.Equal(t, 10, d.CharCount())
	assert.Equal(t, "héllo\nwörld", d.PlainText())
	assert.False(t, d.IsEmpty())
}
