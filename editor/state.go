package editor

import "github.com/eringen/pubdraft/document"

// State is a read-only view of the editor for clients: what to render and
// which controls to highlight.
type State struct {
	Title        string               `json:"title"`
	Content      document.RawDocument `json:"content"`
	Selection    document.Selection   `json:"selection"`
	ActiveStyles []string             `json:"activeStyles"`
	BlockType    string               `json:"blockType"`
	CharCount    int                  `json:"charCount"`
	CanUndo      bool                 `json:"canUndo"`
	CanRedo      bool                 `json:"canRedo"`
	CanSubmit    bool                 `json:"canSubmit"`
}

// Snapshot returns the current state.
func (e *Editor) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state()
}

func (e *Editor) state() State {
	bt, _ := e.doc.BlockTypeAt(e.sel)
	n := e.doc.CharCount()
	active := e.currentStyle().Names()
	if active == nil {
		active = []string{}
	}
	return State{
		Title:        e.title,
		Content:      e.doc.Raw(),
		Selection:    e.sel,
		ActiveStyles: active,
		BlockType:    string(bt),
		CharCount:    n,
		CanUndo:      len(e.undo) > 0,
		CanRedo:      len(e.redo) > 0,
		CanSubmit:    e.title != "" && n > 0 && n <= MaxChars,
	}
}
