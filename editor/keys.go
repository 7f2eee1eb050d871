package editor

import (
	"strings"
	"unicode/utf8"

	"github.com/eringen/pubdraft/document"
)

// KeyEvent is a key press on the editing surface. Key uses DOM key names:
// "a", "Tab", "Enter", "Backspace", "Delete".
type KeyEvent struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Meta  bool   `json:"meta"`
	Shift bool   `json:"shift"`
	Alt   bool   `json:"alt"`
}

// Mod reports whether the platform modifier (Ctrl or Cmd) is held.
func (k KeyEvent) Mod() bool {
	return k.Ctrl || k.Meta
}

// IsSave reports whether k is the save shortcut.
func (k KeyEvent) IsSave() bool {
	return k.Mod() && strings.EqualFold(k.Key, "s")
}

// KeyResult tells the caller what a key press did.
type KeyResult int

const (
	// KeyIgnored means the editor did nothing with the key.
	KeyIgnored KeyResult = iota
	// KeyHandled means the editor consumed the key.
	KeyHandled
	// KeySave means the key is the save shortcut; the owner should save.
	KeySave
)

var shortcutStyles = map[string]document.Style{
	"b": document.Bold,
	"i": document.Italic,
	"u": document.Underline,
}

// HandleKey applies a key press. Tab inserts a tab character instead of
// moving focus.
func (e *Editor) HandleKey(k KeyEvent) (KeyResult, error) {
	if k.IsSave() {
		return KeySave, nil
	}
	if k.Mod() {
		key := strings.ToLower(k.Key)
		if s, ok := shortcutStyles[key]; ok {
			_, err := e.ToggleInlineStyle(s)
			return KeyHandled, err
		}
		switch {
		case key == "z" && k.Shift, key == "y":
			e.Redo()
			return KeyHandled, nil
		case key == "z":
			e.Undo()
			return KeyHandled, nil
		}
		return KeyIgnored, nil
	}
	switch k.Key {
	case "Tab":
		return KeyHandled, e.InsertText("\t")
	case "Enter":
		return KeyHandled, e.SplitBlock()
	case "Backspace":
		return KeyHandled, e.Backspace()
	case "Delete":
		return KeyHandled, e.Delete()
	}
	if !k.Alt && utf8.RuneCountInString(k.Key) == 1 {
		return KeyHandled, e.InsertText(k.Key)
	}
	return KeyIgnored, nil
}

// HandleKeyCommand runs a named editor command. It reports whether the
// command is known.
func (e *Editor) HandleKeyCommand(cmd string) (bool, error) {
	switch cmd {
	case "bold", "italic", "underline", "strikethrough":
		s, _ := document.ParseStyle(cmd)
		_, err := e.ToggleInlineStyle(s)
		return true, err
	case "backspace":
		return true, e.Backspace()
	case "delete":
		return true, e.Delete()
	case "split-block":
		return true, e.SplitBlock()
	case "undo":
		e.Undo()
		return true, nil
	case "redo":
		e.Redo()
		return true, nil
	}
	return false, nil
}
