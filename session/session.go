// Package session assembles one editing session: an editor with its
// autosave controller, upload bridge, status board and settings hub, all
// publishing through a single event broadcaster.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/eringen/pubdraft/autosave"
	"github.com/eringen/pubdraft/client"
	"github.com/eringen/pubdraft/document"
	"github.com/eringen/pubdraft/editor"
	"github.com/eringen/pubdraft/settings"
	"github.com/eringen/pubdraft/status"
	"github.com/eringen/pubdraft/upload"
)

// EventSettings is emitted with settings.Effective when settings change.
const EventSettings = "settings"

// ErrNotReady is returned by Submit when the draft fails the submission
// gate.
var ErrNotReady = errors.New("session: draft is not ready to submit")

// Storage persists drafts and preferences.
type Storage interface {
	autosave.Storage
}

// Submitter sends a finished article for review.
type Submitter interface {
	Submit(ctx context.Context, title, content string) (client.Submission, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, title, content string) (client.Submission, error)

func (f SubmitterFunc) Submit(ctx context.Context, title, content string) (client.Submission, error) {
	return f(ctx, title, content)
}

// Session is one user's editor and everything attached to it.
type Session struct {
	ID       string
	Editor   *editor.Editor
	Board    *status.Board
	Autosave *autosave.Controller
	Uploads  *upload.Bridge
	Settings *settings.Hub
	Events   *status.Broadcaster

	submitter Submitter
	log       zerolog.Logger
}

type options struct {
	log        zerolog.Logger
	history    int
	schedule   string
	statusTTL  time.Duration
	limitPaste bool
	env        settings.Environment
	texts      map[status.Kind]string
}

// Option configures a Session.
type Option func(*options)

// WithLogger sets the logger shared by the session's components.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithHistoryLimit bounds the undo stack.
func WithHistoryLimit(n int) Option {
	return func(o *options) { o.history = n }
}

// WithSchedule sets the autosave schedule.
func WithSchedule(spec string) Option {
	return func(o *options) { o.schedule = spec }
}

// WithStatusTTL sets how long status messages stay visible.
func WithStatusTTL(d time.Duration) Option {
	return func(o *options) { o.statusTTL = d }
}

// WithPasteSizeLimit size-checks pasted images too.
func WithPasteSizeLimit() Option {
	return func(o *options) { o.limitPaste = true }
}

// WithEnvironment sets what the client reported about itself.
func WithEnvironment(env settings.Environment) Option {
	return func(o *options) { o.env = env }
}

// WithStatusTexts overrides status message texts.
func WithStatusTexts(texts map[status.Kind]string) Option {
	return func(o *options) { o.texts = texts }
}

// New wires a session. Call Open before use and Close when done.
func New(id string, store Storage, up upload.Uploader, sub Submitter, opts ...Option) *Session {
	o := options{
		log:       zerolog.Nop(),
		history:   editor.DefaultHistory,
		schedule:  autosave.DefaultSchedule,
		statusTTL: status.DefaultTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log.With().Str("session", id).Logger()

	events := status.NewBroadcaster()
	board := status.NewBoard(
		status.WithEmitter(events),
		status.WithTTL(o.statusTTL),
		status.WithTexts(o.texts),
	)
	ed := editor.New(
		editor.WithEmitter(events),
		editor.WithHistoryLimit(o.history),
		editor.WithLogger(log),
	)
	bridgeOpts := []upload.Option{upload.WithBoard(board), upload.WithLogger(log)}
	if o.limitPaste {
		bridgeOpts = append(bridgeOpts, upload.WithPasteSizeLimit())
	}

	return &Session{
		ID:     id,
		Editor: ed,
		Board:  board,
		Autosave: autosave.New(ed, store,
			autosave.WithBoard(board),
			autosave.WithLogger(log),
			autosave.WithSchedule(o.schedule),
		),
		Uploads:   upload.New(up, ed, bridgeOpts...),
		Settings:  settings.NewHub(store, settings.WithLogger(log), settings.WithEnvironment(o.env)),
		Events:    events,
		submitter: sub,
		log:       log,
	}
}

// Open restores the saved draft and preferences and starts autosave. A
// document that cannot be decoded is logged and the editor starts with
// only the saved title.
func (s *Session) Open(ctx context.Context) error {
	if _, err := s.Autosave.Restore(ctx); err != nil {
		s.log.Warn().Err(err).Msg("draft not restored")
	}
	if err := s.Settings.Load(ctx); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if err := s.Autosave.Start(); err != nil {
		return fmt.Errorf("start autosave: %w", err)
	}
	return nil
}

// HandleKey applies a key press and saves on the save shortcut.
func (s *Session) HandleKey(ctx context.Context, k editor.KeyEvent) (editor.KeyResult, autosave.Outcome, error) {
	if autosave.IsSaveShortcut(k) {
		return editor.KeySave, s.Autosave.SaveNow(ctx), nil
	}
	res, err := s.Editor.HandleKey(k)
	return res, autosave.Unchanged, err
}

// Save persists the draft now.
func (s *Session) Save(ctx context.Context) autosave.Outcome {
	return s.Autosave.SaveNow(ctx)
}

// Submit sends the draft once. On success the saved draft is cleared and
// the editor emptied; on failure nothing changes.
func (s *Session) Submit(ctx context.Context) (client.Submission, error) {
	if !s.Editor.CanSubmit() {
		return client.Submission{}, ErrNotReady
	}
	title, doc := s.Editor.Draft()
	content, err := document.Marshal(doc)
	if err != nil {
		return client.Submission{}, fmt.Errorf("encode draft: %w", err)
	}
	sub, err := s.submitter.Submit(ctx, title, string(content))
	if err != nil {
		s.log.Warn().Err(err).Msg("submit failed")
		s.Board.Show(status.SubmitFail)
		return client.Submission{}, err
	}
	// Reset before clearing so a scheduled save in between finds nothing
	// to write back.
	s.Editor.Reset()
	if err := s.Autosave.Clear(ctx); err != nil {
		s.log.Error().Err(err).Msg("clear saved draft")
	}
	s.Board.Show(status.Submitted)
	s.log.Info().Str("article", sub.ID).Msg("article submitted")
	return sub, nil
}

// Subscribe streams session events and settings changes to fn until the
// returned function is called.
func (s *Session) Subscribe(fn status.EmitterFunc) (unsubscribe func()) {
	unsubEvents := s.Events.Subscribe(fn)
	unsubSettings := s.Settings.Subscribe(func(eff settings.Effective) {
		fn(context.Background(), EventSettings, eff)
	})
	return func() {
		unsubSettings()
		unsubEvents()
	}
}

// Close waits for uploads, saves a final time and stops autosave.
func (s *Session) Close(ctx context.Context) {
	s.Uploads.Close()
	if out := s.Autosave.SaveNow(ctx); out == autosave.Failed {
		s.log.Warn().Msg("final save failed")
	}
	s.Autosave.Stop()
}
