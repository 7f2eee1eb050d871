package pubdraft

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/eringen/pubdraft/session"
)

// Config holds all configuration for a pubdraft server.
type Config struct {
	Name        string // Site name (default "pubdraft")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for the feed and meta tags

	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path (default "data/pubdraft.db")
	UploadDir    string // Where uploaded images are written (default "uploads")

	SessionSecret string // Required: session cookie secret
	CookieSecure  bool   // Set true for HTTPS

	AutosaveSchedule string        // robfig/cron spec (default "@every 1m")
	HistoryLimit     int           // Undo entries per editor (default 100)
	StatusTTL        time.Duration // Status message lifetime (default 3s)
	IdleTimeout      time.Duration // Evict editor sessions idle this long (default 30min)
	PasteSizeLimit   bool          // Size-check pasted images too

	UploadsPerMinute int           // Per-IP upload limit (default 20)
	ArticleCacheTTL  time.Duration // Article list cache TTL (default 1min)
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "pubdraft"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/pubdraft.db"
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.AutosaveSchedule == "" {
		c.AutosaveSchedule = "@every 1m"
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = 100
	}
	if c.StatusTTL == 0 {
		c.StatusTTL = 3 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 30 * time.Minute
	}
	if c.UploadsPerMinute == 0 {
		c.UploadsPerMinute = 20
	}
	if c.ArticleCacheTTL == 0 {
		c.ArticleCacheTTL = time.Minute
	}
}

// sessionOptions returns the editor session settings derived from c.
func (c *Config) sessionOptions() []session.Option {
	opts := []session.Option{
		session.WithSchedule(c.AutosaveSchedule),
		session.WithHistoryLimit(c.HistoryLimit),
		session.WithStatusTTL(c.StatusTTL),
	}
	if c.PasteSizeLimit {
		opts = append(opts, session.WithPasteSizeLimit())
	}
	return opts
}

// Option configures additional App behavior.
type Option func(*App)

// WithLogger sets the application logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *App) {
		a.log = l
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory served under /public (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}
