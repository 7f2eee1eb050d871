package editor

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/pubdraft/document"
	"github.com/eringen/pubdraft/status"
)

func typed(t *testing.T, text string) *Editor {
	t.Helper()
	e := New()
	require.NoError(t, e.InsertText(text))
	return e
}

func selectAll(t *testing.T, e *Editor) {
	t.Helper()
	require.NoError(t, e.SetSelection(e.Document().All()))
}

func TestToggleColorGroupIsExclusive(t *testing.T) {
	e := typed(t, "colorful")
	selectAll(t, e)

	_, err := e.ToggleInlineStyle(document.Red)
	require.NoError(t, err)
	assert.True(t, e.QueryInlineActive(document.Red))

	_, err = e.ToggleInlineStyle(document.Blue)
	require.NoError(t, err)
	assert.True(t, e.QueryInlineActive(document.Blue))
	assert.False(t, e.QueryInlineActive(document.Red))

	_, err = e.ToggleInlineStyle(document.Blue)
	require.NoError(t, err)
	assert.False(t, e.QueryInlineActive(document.Blue))
	assert.False(t, e.QueryInlineActive(document.Red))
}

func TestToggleSequencesKeepGroupsExclusive(t *testing.T) {
	e := typed(t, "one two three\nfour five six")
	doc := e.Document()
	first, second := doc.BlockAt(0), doc.BlockAt(1)
	styles := []document.Style{
		document.Red, document.Blue,
		document.Size1x5, document.Size2x, document.Size3x, document.Size4x,
		document.Bold, document.Highlight,
	}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 300; i++ {
		a := rng.Intn(first.Len() + 1)
		f := rng.Intn(second.Len() + 1)
		sel := document.Range(first.Key, a, second.Key, f)
		if rng.Intn(2) == 0 {
			sel = document.Range(first.Key, a, first.Key, rng.Intn(first.Len()+1))
		}
		require.NoError(t, e.SetSelection(sel))
		_, err := e.ToggleInlineStyle(styles[rng.Intn(len(styles))])
		require.NoError(t, err)

		for _, b := range e.Document().Blocks() {
			for _, r := range b.Runs {
				require.Truef(t, r.Styles.Valid(), "step %d: run %q has %v", i, r.Text, r.Styles.Names())
			}
		}
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	e := New()
	assert.False(t, e.Undo(), "nothing to undo after mount")
	assert.False(t, e.Redo(), "nothing to redo after mount")

	before := e.Document()
	require.NoError(t, e.InsertText("hello"))
	after := e.Document()
	require.False(t, after.Same(before))

	require.True(t, e.Undo())
	assert.True(t, e.Document().Same(before))
	require.True(t, e.Redo())
	assert.True(t, e.Document().Same(after))
	assert.False(t, e.Redo())
}

func TestUndoAfterEachKindOfEdit(t *testing.T) {
	edits := map[string]func(t *testing.T, e *Editor) error{
		"style": func(t *testing.T, e *Editor) error {
			selectAll(t, e)
			_, err := e.ToggleInlineStyle(document.Size3x)
			return err
		},
		"block": func(t *testing.T, e *Editor) error {
			_, err := e.ToggleBlockType(document.OrderedList)
			return err
		},
		"entity": func(t *testing.T, e *Editor) error {
			_, _, err := e.InsertEntity(document.EntityImage, map[string]any{"src": "/a.jpg"}, " ")
			return err
		},
		"backspace": func(t *testing.T, e *Editor) error { return e.Backspace() },
		"split":     func(t *testing.T, e *Editor) error { return e.SplitBlock() },
	}
	for name, edit := range edits {
		t.Run(name, func(t *testing.T) {
			e := typed(t, "some text")
			before := e.Document()
			require.NoError(t, edit(t, e))
			edited := e.Document()
			require.False(t, edited.Same(before))

			require.True(t, e.Undo())
			assert.True(t, e.Document().Same(before))
			require.True(t, e.Redo())
			assert.True(t, e.Document().Same(edited))
		})
	}
}

func TestNewEditClearsRedo(t *testing.T) {
	e := typed(t, "a")
	require.True(t, e.Undo())
	require.NoError(t, e.InsertText("b"))
	assert.False(t, e.Redo())
}

func TestHistoryLimit(t *testing.T) {
	e := New(WithHistoryLimit(3))
	for i := 0; i < 10; i++ {
		require.NoError(t, e.InsertText("x"))
	}
	undone := 0
	for e.Undo() {
		undone++
	}
	assert.Equal(t, 3, undone)
	assert.Equal(t, 7, e.CharCount())
}

func TestPendingStyleAppliesToNextInsert(t *testing.T) {
	e := typed(t, "plain ")
	_, err := e.ToggleInlineStyle(document.Bold)
	require.NoError(t, err)
	assert.True(t, e.QueryInlineActive(document.Bold))
	assert.Equal(t, document.StyleSet(document.Bold), e.CurrentStyle())

	require.NoError(t, e.InsertText("bold"))
	b := e.Document().BlockAt(0)
	require.Len(t, b.Runs, 2)
	assert.Equal(t, "plain ", b.Runs[0].Text)
	assert.Equal(t, document.StyleSet(document.Bold), b.Runs[1].Styles)
}

func TestToggleBlockType(t *testing.T) {
	e := typed(t, "item")
	_, err := e.ToggleBlockType(document.UnorderedList)
	require.NoError(t, err)
	assert.True(t, e.QueryBlockActive(document.UnorderedList))

	_, err = e.ToggleBlockType(document.OrderedList)
	require.NoError(t, err)
	assert.True(t, e.QueryBlockActive(document.OrderedList))

	_, err = e.ToggleBlockType(document.OrderedList)
	require.NoError(t, err)
	assert.True(t, e.QueryBlockActive(document.Unstyled))
}

func TestInsertEntityPlacesCaretAfterBlock(t *testing.T) {
	e := typed(t, "abcd")
	doc := e.Document()
	require.NoError(t, e.SetSelection(document.Caret(doc.BlockAt(0).Key, 2)))

	nd, sel, err := e.InsertEntity(document.EntityImage, map[string]any{"src": "/uploads/a.jpg"}, " ")
	require.NoError(t, err)
	require.Equal(t, 3, nd.Len())
	assert.Equal(t, document.Atomic, nd.BlockAt(1).Type)
	assert.Equal(t, document.Caret(nd.BlockAt(2).Key, 0), sel)
	assert.Equal(t, sel, e.Selection())
	assert.Equal(t, 4, e.CharCount())
}

func TestSetTitleTruncates(t *testing.T) {
	e := New()
	got := e.SetTitle(strings.Repeat("标", 60))
	assert.Equal(t, 50, len([]rune(got)))
	assert.Equal(t, got, e.Title())
}

func TestSetSelectionRejectsInvalid(t *testing.T) {
	e := New()
	assert.ErrorIs(t, e.SetSelection(document.Caret("nope", 0)), document.ErrInvalidSelection)
}

func TestCanSubmit(t *testing.T) {
	e := New()
	assert.False(t, e.CanSubmit())
	e.SetTitle("A title")
	assert.False(t, e.CanSubmit(), "empty body")
	require.NoError(t, e.InsertText("body"))
	assert.True(t, e.CanSubmit())

	require.NoError(t, e.InsertText(strings.Repeat("x", MaxChars)))
	assert.False(t, e.CanSubmit(), "over the limit")
}

func TestLoadAndReset(t *testing.T) {
	e := typed(t, "old")
	doc, err := document.FromBlocks([]document.Block{{Key: "k", Type: document.Unstyled, Runs: []document.Run{{Text: "restored"}}}}, nil)
	require.NoError(t, err)

	e.Load("Restored title", doc)
	assert.Equal(t, "Restored title", e.Title())
	assert.True(t, e.Document().Same(doc))
	assert.Equal(t, document.Caret("k", 8), e.Selection())
	assert.False(t, e.Undo())

	e.Reset()
	assert.Equal(t, "", e.Title())
	assert.True(t, e.Document().IsEmpty())
}

func TestEditsArePublished(t *testing.T) {
	em := &status.MockEmitter{}
	e := New(WithEmitter(em))
	require.NoError(t, e.InsertText("hi"))

	events := em.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventDocument, events[0].Event)
	st := events[0].Data.(State)
	assert.Equal(t, 2, st.CharCount)
	assert.True(t, st.CanUndo)
}
