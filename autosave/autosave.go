// Package autosave persists an editor's title and document to a key/value
// store on a schedule and on demand, and restores them when an editing
// session starts.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/eringen/pubdraft/document"
	"github.com/eringen/pubdraft/editor"
	"github.com/eringen/pubdraft/status"
)

// Storage keys of the persisted draft.
const (
	KeyTitle   = "articleTitle"
	KeyContent = "articleContent"
)

// DefaultSchedule saves once a minute.
const DefaultSchedule = "@every 1m"

// IsSaveShortcut reports whether k should trigger an immediate save.
func IsSaveShortcut(k editor.KeyEvent) bool {
	return k.IsSave()
}

// Outcome describes what a save did.
type Outcome int

const (
	// Unchanged means nothing differed from the last save; nothing was written.
	Unchanged Outcome = iota
	// Saved means at least one key was written.
	Saved
	// Failed means a write failed; the failure status is shown.
	Failed
	// Closed means the controller was stopped; nothing was written.
	Closed
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Saved:
		return "saved"
	case Failed:
		return "failed"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Source is the editor being saved.
type Source interface {
	Draft() (title string, doc *document.Document)
	Load(title string, doc *document.Document)
}

// Controller saves one editor's draft.
type Controller struct {
	mu       sync.Mutex
	src      Source
	store    Storage
	board    *status.Board
	log      zerolog.Logger
	schedule string
	timeout  time.Duration

	cron        *cron.Cron
	lastTitle   string
	lastContent string
	closed      bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithBoard sets where save results are shown.
func WithBoard(b *status.Board) Option {
	return func(c *Controller) { c.board = b }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithSchedule overrides the save schedule, in robfig/cron syntax.
func WithSchedule(spec string) Option {
	return func(c *Controller) { c.schedule = spec }
}

// WithTimeout bounds each scheduled save.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// New creates a controller for src backed by store. Call Start to enable
// scheduled saves.
func New(src Source, store Storage, opts ...Option) *Controller {
	c := &Controller{
		src:      src,
		store:    store,
		log:      zerolog.Nop(),
		schedule: DefaultSchedule,
		timeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.board == nil {
		c.board = status.NewBoard()
	}
	return c
}

// Start schedules periodic saves.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("autosave: controller stopped")
	}
	if c.cron != nil {
		return nil
	}
	cr := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := cr.AddFunc(c.schedule, c.tick); err != nil {
		return fmt.Errorf("autosave: schedule %q: %w", c.schedule, err)
	}
	cr.Start()
	c.cron = cr
	return nil
}

func (c *Controller) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if out := c.SaveNow(ctx); out != Unchanged {
		c.log.Debug().Stringer("outcome", out).Msg("scheduled save")
	}
}

// Stop cancels scheduled saves and waits for a running one. No writes
// happen after Stop returns.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.closed = true
	cr := c.cron
	c.mu.Unlock()

	if cr != nil {
		<-cr.Stop().Done()
	}
}

// SaveNow writes the title and serialized document if they changed since
// the last save. Empty titles and empty documents are not written.
// Failures are shown on the status board and logged, never returned.
func (c *Controller) SaveNow(ctx context.Context) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Closed
	}

	title, doc := c.src.Draft()
	wrote := false

	if title != "" && title != c.lastTitle {
		if err := c.store.Set(ctx, KeyTitle, title); err != nil {
			return c.fail(err, KeyTitle)
		}
		c.lastTitle = title
		wrote = true
	}

	if !doc.IsEmpty() {
		data, err := document.Marshal(doc)
		if err != nil {
			return c.fail(err, KeyContent)
		}
		if content := string(data); content != c.lastContent {
			if err := c.store.Set(ctx, KeyContent, content); err != nil {
				return c.fail(err, KeyContent)
			}
			c.lastContent = content
			wrote = true
		}
	}

	if !wrote {
		return Unchanged
	}
	c.board.Show(status.Saved)
	return Saved
}

func (c *Controller) fail(err error, key string) Outcome {
	c.log.Warn().Err(err).Str("key", key).Msg("autosave failed")
	c.board.Show(status.SaveFail)
	return Failed
}

// Restore loads a persisted draft into the source. It reports whether a
// draft was found. A missing draft is not an error. The two slots are read
// independently: a stored document that cannot be decoded is reported as
// an error, but a stored title is still restored with an empty document.
func (c *Controller) Restore(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	title, hasTitle, err := c.store.Get(ctx, KeyTitle)
	if err != nil {
		return false, fmt.Errorf("autosave: read title: %w", err)
	}
	content, hasContent, err := c.store.Get(ctx, KeyContent)
	if err != nil {
		return false, fmt.Errorf("autosave: read content: %w", err)
	}
	if !hasTitle && !hasContent {
		return false, nil
	}

	doc := document.New()
	if hasContent {
		parsed, err := document.Unmarshal([]byte(content))
		if err != nil {
			c.log.Warn().Err(err).Bool("title", hasTitle).Msg("stored draft is unreadable")
			if hasTitle {
				c.src.Load(title, doc)
				c.lastTitle = title
			}
			return hasTitle, fmt.Errorf("autosave: decode content: %w", err)
		}
		doc = parsed
	}
	c.src.Load(title, doc)
	c.lastTitle, c.lastContent = title, content
	c.log.Debug().Bool("title", hasTitle).Bool("content", hasContent).Msg("draft restored")
	return true, nil
}

// Clear removes the persisted draft, as after a successful submission.
func (c *Controller) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := errors.Join(
		c.store.Remove(ctx, KeyTitle),
		c.store.Remove(ctx, KeyContent),
	)
	c.lastTitle, c.lastContent = "", ""
	if err != nil {
		return fmt.Errorf("autosave: clear: %w", err)
	}
	return nil
}
