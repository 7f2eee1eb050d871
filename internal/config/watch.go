package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads a config file when it changes on disk.
type Watcher struct {
	path     string
	log      zerolog.Logger
	delay    time.Duration
	mu       sync.Mutex
	current  *Config
	onChange []func(*Config)
}

// NewWatcher watches path, starting from the already loaded cfg.
func NewWatcher(path string, cfg *Config, log zerolog.Logger) *Watcher {
	return &Watcher{
		path:    path,
		log:     log,
		delay:   100 * time.Millisecond,
		current: cfg,
	}
}

// OnChange registers a callback invoked with every successfully reloaded
// configuration. Register callbacks before calling Run.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.onChange = append(w.onChange, fn)
}

// Config returns the latest valid configuration.
func (w *Watcher) Config() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Run watches until ctx is done. Invalid files are logged and ignored.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}

	debounced := debounce.New(w.delay)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != filepath.Base(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			debounced(w.reload)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Str("path", w.path).Msg("config watch error")
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn().Err(err).Str("path", w.path).Msg("config reload rejected")
		return
	}
	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()
	w.log.Info().Str("path", w.path).Msg("config reloaded")
	for _, fn := range w.onChange {
		fn(cfg)
	}
}
