// Package status holds the editor's transient status line: short messages
// such as "saved" or "upload failed" that clear themselves after a quiet
// period.
package status

import (
	"context"
	"sync"
	"time"

	"github.com/bep/debounce"
)

// EventStatus is the event name used when the status line changes.
const EventStatus = "status"

// DefaultTTL is how long a message stays visible after the last Show.
const DefaultTTL = 3 * time.Second

// Kind identifies a status message.
type Kind string

const (
	None          Kind = ""
	Saved         Kind = "saved"
	SaveFail      Kind = "saveFail"
	Uploading     Kind = "uploading"
	UploadSuccess Kind = "uploadSuccess"
	UploadFail    Kind = "uploadFail"
	TooLarge      Kind = "tooLarge"
	NotImage      Kind = "notImage"
	Submitted     Kind = "submitted"
	SubmitFail    Kind = "submitFail"
)

var defaultTexts = map[Kind]string{
	Saved:         "Draft saved",
	SaveFail:      "Failed to save draft",
	Uploading:     "Uploading image...",
	UploadSuccess: "Image uploaded",
	UploadFail:    "Image upload failed",
	TooLarge:      "Image is larger than 10 MB",
	NotImage:      "Only image files can be uploaded",
	Submitted:     "Article submitted for review",
	SubmitFail:    "Failed to submit article",
}

// IsError reports whether the kind reports a failure.
func (k Kind) IsError() bool {
	switch k {
	case SaveFail, UploadFail, TooLarge, NotImage, SubmitFail:
		return true
	}
	return false
}

// Message is the current content of the status line.
type Message struct {
	Kind  Kind      `json:"kind"`
	Text  string    `json:"text"`
	Error bool      `json:"error"`
	Shown time.Time `json:"shown"`
}

// Board owns the status line of one editor session.
type Board struct {
	mu       sync.Mutex
	current  Message
	emitter  Emitter
	texts    map[Kind]string
	ttl      time.Duration
	debounce func(func())
}

// Option configures a Board.
type Option func(*Board)

// WithEmitter sets where status changes are published.
func WithEmitter(e Emitter) Option {
	return func(b *Board) { b.emitter = e }
}

// WithTTL overrides how long messages stay visible.
func WithTTL(d time.Duration) Option {
	return func(b *Board) { b.ttl = d }
}

// WithTexts overrides message texts, e.g. for another language.
func WithTexts(texts map[Kind]string) Option {
	return func(b *Board) {
		for k, v := range texts {
			b.texts[k] = v
		}
	}
}

// NewBoard creates an empty status board.
func NewBoard(opts ...Option) *Board {
	b := &Board{
		emitter: nopEmitter{},
		texts:   make(map[Kind]string, len(defaultTexts)),
		ttl:     DefaultTTL,
	}
	for k, v := range defaultTexts {
		b.texts[k] = v
	}
	for _, opt := range opts {
		opt(b)
	}
	b.debounce = debounce.New(b.ttl)
	return b
}

// Show replaces the current message and restarts the clear timer.
func (b *Board) Show(kind Kind) {
	b.mu.Lock()
	b.current = Message{Kind: kind, Text: b.texts[kind], Error: kind.IsError(), Shown: time.Now()}
	msg := b.current
	b.mu.Unlock()

	b.emitter.Emit(context.Background(), EventStatus, msg)
	b.debounce(b.Clear)
}

// Current returns the message on display.
func (b *Board) Current() Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Clear empties the status line immediately.
func (b *Board) Clear() {
	b.mu.Lock()
	if b.current.Kind == None {
		b.mu.Unlock()
		return
	}
	b.current = Message{}
	b.mu.Unlock()
	b.emitter.Emit(context.Background(), EventStatus, Message{})
}
