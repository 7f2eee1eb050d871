// Package editor wraps a document with the state an editing surface needs:
// the title, the selection, a pending inline style for the caret, and a
// bounded undo/redo history. All methods are safe for concurrent use and
// apply edits strictly in call order.
package editor

import (
	"context"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/eringen/pubdraft/document"
	"github.com/eringen/pubdraft/status"
)

const (
	// MaxTitleLen is the longest accepted title, in runes.
	MaxTitleLen = 50
	// MaxChars is the submission limit on document characters.
	MaxChars = 5000
	// DefaultHistory bounds the undo stack.
	DefaultHistory = 100
)

// EventDocument is emitted with a State after every committed edit.
const EventDocument = "document"

type snapshot struct {
	doc *document.Document
	sel document.Selection
}

// Editor owns one in-memory document. Other components change it only
// through these methods.
type Editor struct {
	mu      sync.Mutex
	title   string
	doc     *document.Document
	sel     document.Selection
	pending *document.StyleSet
	undo    []snapshot
	redo    []snapshot
	limit   int
	emitter status.Emitter
	log     zerolog.Logger
}

// Option configures an Editor.
type Option func(*Editor)

// WithHistoryLimit bounds the undo stack to n entries.
func WithHistoryLimit(n int) Option {
	return func(e *Editor) {
		if n > 0 {
			e.limit = n
		}
	}
}

// WithEmitter publishes the editor state after each edit. The emitter is
// called with the editor locked and must not call back into it.
func WithEmitter(em status.Emitter) Option {
	return func(e *Editor) { e.emitter = em }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Editor) { e.log = l }
}

// New returns an editor holding an empty document.
func New(opts ...Option) *Editor {
	doc := document.New()
	e := &Editor{
		doc:   doc,
		sel:   doc.Start(),
		limit: DefaultHistory,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Title returns the current title.
func (e *Editor) Title() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.title
}

// SetTitle replaces the title, truncated to MaxTitleLen runes.
func (e *Editor) SetTitle(title string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.title = truncate(title, MaxTitleLen)
	e.publish()
	return e.title
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Document returns the current document.
func (e *Editor) Document() *document.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc
}

// Selection returns the current selection.
func (e *Editor) Selection() document.Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sel
}

// Draft returns the title and document as one consistent pair.
func (e *Editor) Draft() (string, *document.Document) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.title, e.doc
}

// SetSelection moves the selection. Moving the caret drops any pending
// inline style.
func (e *Editor) SetSelection(sel document.Selection) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.doc.Validate(sel); err != nil {
		return err
	}
	if sel != e.sel {
		e.pending = nil
	}
	e.sel = sel
	return nil
}

// commit installs nd as the current document and records the previous one
// for undo. It reports whether the document changed.
func (e *Editor) commit(nd *document.Document, sel document.Selection) bool {
	if nd.Same(e.doc) {
		e.sel = sel
		return false
	}
	e.undo = append(e.undo, snapshot{doc: e.doc, sel: e.sel})
	if len(e.undo) > e.limit {
		e.undo = e.undo[len(e.undo)-e.limit:]
	}
	e.redo = nil
	e.doc, e.sel = nd, sel
	e.pending = nil
	e.publish()
	return true
}

func (e *Editor) publish() {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(context.Background(), EventDocument, e.state())
}

// currentStyle is the style the next inserted character gets.
func (e *Editor) currentStyle() document.StyleSet {
	if e.pending != nil {
		return *e.pending
	}
	ss, err := e.doc.StyleAt(e.sel)
	if err != nil {
		return 0
	}
	return ss
}

// ToggleInlineStyle flips s over the selection. Members of an exclusive
// group first clear their siblings. On a caret the change is held as a
// pending style for the next insert.
func (e *Editor) ToggleInlineStyle(s document.Style) (*document.Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	active := e.currentStyle().Has(s)
	if e.sel.Collapsed() {
		next := e.currentStyle()
		if active {
			next = next.Without(s)
		} else {
			next = next.With(s)
		}
		e.pending = &next
		e.publish()
		return e.doc, nil
	}

	nd := e.doc
	var err error
	for _, sibling := range s.Group().Styles() {
		if sibling == s {
			continue
		}
		if nd, err = nd.RemoveStyle(e.sel, sibling); err != nil {
			return e.doc, err
		}
	}
	if active {
		nd, err = nd.RemoveStyle(e.sel, s)
	} else {
		nd, err = nd.ApplyStyle(e.sel, s)
	}
	if err != nil {
		return e.doc, err
	}
	e.commit(nd, e.sel)
	return e.doc, nil
}

// ToggleBlockType sets the selected blocks to t, or back to a paragraph
// when the block at the selection start already has type t.
func (e *Editor) ToggleBlockType(t document.BlockType) (*document.Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, err := e.doc.BlockTypeAt(e.sel)
	if err != nil {
		return e.doc, err
	}
	target := t
	if cur == t {
		target = document.Unstyled
	}
	nd, err := e.doc.SetBlockType(e.sel, target)
	if err != nil {
		return e.doc, err
	}
	e.commit(nd, e.sel)
	return e.doc, nil
}

// InsertEntity adds an immutable entity of the given kind in an atomic
// block at the current selection. The returned selection sits right after
// the new block.
func (e *Editor) InsertEntity(kind string, data map[string]any, placeholder string) (*document.Document, document.Selection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent := document.Entity{Type: kind, Mutability: document.Immutable, Data: data}
	nd, sel, err := e.doc.InsertAtomic(e.sel, ent, placeholder)
	if err != nil {
		return e.doc, e.sel, err
	}
	e.commit(nd, sel)
	e.log.Debug().Str("kind", kind).Str("block", sel.Focus.Key).Msg("entity inserted")
	return e.doc, e.sel, nil
}

// InsertText types text at the selection using the current style.
func (e *Editor) InsertText(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	nd, sel, err := e.doc.InsertText(e.sel, text, e.currentStyle())
	if err != nil {
		return err
	}
	e.commit(nd, sel)
	return nil
}

// Backspace deletes backwards.
func (e *Editor) Backspace() error {
	return e.edit((*document.Document).Backspace)
}

// Delete deletes forwards.
func (e *Editor) Delete() error {
	return e.edit((*document.Document).Delete)
}

// SplitBlock starts a new block at the caret.
func (e *Editor) SplitBlock() error {
	return e.edit((*document.Document).SplitBlock)
}

func (e *Editor) edit(op func(*document.Document, document.Selection) (*document.Document, document.Selection, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	nd, sel, err := op(e.doc, e.sel)
	if err != nil {
		return err
	}
	e.commit(nd, sel)
	return nil
}

// CurrentStyle returns the style set the next typed character gets: the
// pending caret style if one is held, otherwise the style at the selection.
func (e *Editor) CurrentStyle() document.StyleSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentStyle()
}

// QueryInlineActive reports whether s is active at the selection.
func (e *Editor) QueryInlineActive(s document.Style) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentStyle().Has(s)
}

// QueryBlockActive reports whether the block at the selection start has
// type t.
func (e *Editor) QueryBlockActive(t document.BlockType) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cur, err := e.doc.BlockTypeAt(e.sel)
	return err == nil && cur == t
}

// Undo restores the document before the last edit. It returns false when
// there is nothing to undo.
func (e *Editor) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.undo) == 0 {
		return false
	}
	prev := e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]
	e.redo = append(e.redo, snapshot{doc: e.doc, sel: e.sel})
	e.doc, e.sel, e.pending = prev.doc, prev.sel, nil
	e.publish()
	return true
}

// Redo reapplies the last undone edit. It returns false when there is
// nothing to redo.
func (e *Editor) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.redo) == 0 {
		return false
	}
	next := e.redo[len(e.redo)-1]
	e.redo = e.redo[:len(e.redo)-1]
	e.undo = append(e.undo, snapshot{doc: e.doc, sel: e.sel})
	e.doc, e.sel, e.pending = next.doc, next.sel, nil
	e.publish()
	return true
}

// Load replaces title and document, e.g. from a restored draft. History
// starts over and the caret moves to the end of the document.
func (e *Editor) Load(title string, doc *document.Document) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if doc == nil {
		doc = document.New()
	}
	e.title = truncate(title, MaxTitleLen)
	e.doc, e.sel = doc, doc.End()
	e.undo, e.redo, e.pending = nil, nil, nil
	e.publish()
}

// Reset empties the editor, as after a successful submission.
func (e *Editor) Reset() {
	e.Load("", document.New())
}

// CharCount returns the document's character count.
func (e *Editor) CharCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.CharCount()
}

// CanSubmit reports whether the draft passes the submission gate: a
// title and between 1 and MaxChars characters.
func (e *Editor) CanSubmit() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.doc.CharCount()
	return e.title != "" && n > 0 && n <= MaxChars
}
