// Package upload turns image files chosen by the user or pasted from the
// clipboard into image blocks: it validates the candidate, uploads it in
// the background and embeds the resulting URL at the editor's selection.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eringen/pubdraft/document"
	"github.com/eringen/pubdraft/status"
)

// MaxFileSize is the size limit for selected files.
const MaxFileSize = 10 << 20

var (
	// ErrNotImage rejects candidates whose type is not image/*.
	ErrNotImage = errors.New("upload: not an image")
	// ErrTooLarge rejects candidates over the size limit.
	ErrTooLarge = errors.New("upload: file too large")
	// ErrClosed rejects candidates offered after Close.
	ErrClosed = errors.New("upload: bridge closed")
)

// Origin is where a candidate came from.
type Origin string

const (
	FileSelection Origin = "select"
	Paste         Origin = "paste"
)

// Candidate is an image the user wants to embed.
type Candidate struct {
	Name   string
	Type   string
	Size   int64
	Data   []byte
	Origin Origin
}

func (c Candidate) size() int64 {
	if c.Size > 0 {
		return c.Size
	}
	return int64(len(c.Data))
}

// FirstImage picks the first image among pasted clipboard items.
func FirstImage(items []Candidate) (Candidate, bool) {
	for _, it := range items {
		if strings.HasPrefix(it.Type, "image/") {
			it.Origin = Paste
			return it, true
		}
	}
	return Candidate{}, false
}

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// UploaderFunc adapts a function to Uploader.
type UploaderFunc func(ctx context.Context, name, contentType string, data []byte) (string, error)

func (f UploaderFunc) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	return f(ctx, name, contentType, data)
}

// Inserter embeds an entity at its current selection.
type Inserter interface {
	InsertEntity(kind string, data map[string]any, placeholder string) (*document.Document, document.Selection, error)
}

// Bridge validates, uploads and embeds images for one editor.
type Bridge struct {
	up         Uploader
	ins        Inserter
	board      *status.Board
	log        zerolog.Logger
	limitPaste bool
	timeout    time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithBoard sets where upload progress is shown.
func WithBoard(b *status.Board) Option {
	return func(br *Bridge) { br.board = b }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(br *Bridge) { br.log = l }
}

// WithPasteSizeLimit applies the size limit to pasted images too. By
// default only selected files are size-checked.
func WithPasteSizeLimit() Option {
	return func(br *Bridge) { br.limitPaste = true }
}

// WithTimeout bounds each upload.
func WithTimeout(d time.Duration) Option {
	return func(br *Bridge) { br.timeout = d }
}

// New creates a bridge uploading through up and inserting into ins.
func New(up Uploader, ins Inserter, opts ...Option) *Bridge {
	br := &Bridge{
		up:      up,
		ins:     ins,
		log:     zerolog.Nop(),
		timeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(br)
	}
	if br.board == nil {
		br.board = status.NewBoard()
	}
	return br
}

// Validate checks a candidate without side effects.
func (br *Bridge) Validate(c Candidate) error {
	if !strings.HasPrefix(c.Type, "image/") {
		return fmt.Errorf("%w: %q", ErrNotImage, c.Type)
	}
	if (c.Origin != Paste || br.limitPaste) && c.size() > MaxFileSize {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, c.size())
	}
	return nil
}

// Accept validates c and, if it passes, uploads it in the background.
// Rejections are shown on the status board and returned; nothing else
// changes. The upload outlives ctx's cancellation.
func (br *Bridge) Accept(ctx context.Context, c Candidate) error {
	if err := br.Validate(c); err != nil {
		switch {
		case errors.Is(err, ErrNotImage):
			br.board.Show(status.NotImage)
		case errors.Is(err, ErrTooLarge):
			br.board.Show(status.TooLarge)
		}
		br.log.Info().Err(err).Str("name", c.Name).Str("origin", string(c.Origin)).Msg("image rejected")
		return err
	}

	br.mu.Lock()
	defer br.mu.Unlock()
	if br.closed {
		return ErrClosed
	}
	br.board.Show(status.Uploading)
	br.wg.Add(1)
	go func() {
		defer br.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), br.timeout)
		defer cancel()
		br.upload(ctx, c)
	}()
	return nil
}

func (br *Bridge) upload(ctx context.Context, c Candidate) {
	url, err := br.up.Upload(ctx, c.Name, c.Type, c.Data)
	if err != nil {
		br.log.Warn().Err(err).Str("name", c.Name).Msg("image upload failed")
		br.board.Show(status.UploadFail)
		return
	}
	if _, _, err := br.ins.InsertEntity(document.EntityImage, map[string]any{"src": url}, " "); err != nil {
		br.log.Error().Err(err).Str("url", url).Msg("embed uploaded image")
		br.board.Show(status.UploadFail)
		return
	}
	br.log.Debug().Str("url", url).Msg("image embedded")
	br.board.Show(status.UploadSuccess)
}

// Wait blocks until all accepted uploads have finished.
func (br *Bridge) Wait() {
	br.wg.Wait()
}

// Close stops accepting candidates and waits for running uploads.
func (br *Bridge) Close() {
	br.mu.Lock()
	br.closed = true
	br.mu.Unlock()
	br.wg.Wait()
}
