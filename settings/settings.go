// Package settings keeps a client's appearance and language preferences and
// tells every registered listener when the effective settings change.
//
// A Hub is created once per client and handed to whatever needs it.
// Listeners subscribe when they start and call the returned function when
// they go away.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

// Storage keys.
const (
	KeyLanguage   = "lang"
	KeyDarkMode   = "darkmode"
	KeyBackground = "bg"
	KeyDarken     = "darkenImage"
	KeyThemeColor = "themeColor"
)

// DefaultBackground is used when no background is chosen.
const DefaultBackground = "/bg.png"

// ThemeColors is the palette a theme color index points into.
var ThemeColors = []string{
	"#1677ff",
	"#722ed1",
	"#13c2c2",
	"#52c41a",
	"#eb2f96",
	"#fa541c",
}

// ErrInvalid is returned for out-of-range preference values.
var ErrInvalid = errors.New("settings: invalid value")

// Storage is the key/value store preferences persist to.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Preferences are the explicit choices of a client. Zero values mean
// "use the default".
type Preferences struct {
	Language         Language `json:"language"`
	DarkMode         *bool    `json:"darkMode"`
	Background       string   `json:"background"`
	DarkenBackground bool     `json:"darkenBackground"`
	ThemeColor       int      `json:"themeColor"`
}

// DefaultPreferences returns the preferences of a new client.
func DefaultPreferences() Preferences {
	return Preferences{DarkenBackground: true}
}

// Environment is what the client reports about itself.
type Environment struct {
	AcceptLanguage string `json:"acceptLanguage"`
	PrefersDark    bool   `json:"prefersDark"`
}

// Effective is the resolved appearance to apply.
type Effective struct {
	Language         Language `json:"language"`
	Dark             bool     `json:"dark"`
	Background       string   `json:"background"`
	DarkenBackground bool     `json:"darkenBackground"`
	ThemeColor       int      `json:"themeColor"`
	Color            string   `json:"color"`
}

// Resolve combines preferences with the environment.
func Resolve(p Preferences, env Environment) Effective {
	eff := Effective{
		Language:         p.Language,
		Dark:             env.PrefersDark,
		Background:       p.Background,
		DarkenBackground: p.DarkenBackground,
		ThemeColor:       p.ThemeColor,
	}
	if eff.Language == Auto {
		eff.Language = Detect(env.AcceptLanguage)
	}
	if p.DarkMode != nil {
		eff.Dark = *p.DarkMode
	}
	if eff.Background == "" {
		eff.Background = DefaultBackground
	}
	if eff.ThemeColor < 0 || eff.ThemeColor >= len(ThemeColors) {
		eff.ThemeColor = 0
	}
	eff.Color = ThemeColors[eff.ThemeColor]
	return eff
}

// Listener receives the effective settings after every change.
type Listener func(Effective)

// Hub owns one client's preferences and their listeners.
type Hub struct {
	mu    sync.Mutex
	store Storage
	log   zerolog.Logger
	prefs Preferences
	env   Environment
	subs  map[uint64]Listener
	next  uint64
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Hub) { h.log = l }
}

// WithEnvironment sets the initial client environment.
func WithEnvironment(env Environment) Option {
	return func(h *Hub) { h.env = env }
}

// NewHub creates a hub with default preferences. Call Load to read saved
// ones.
func NewHub(store Storage, opts ...Option) *Hub {
	h := &Hub{
		store: store,
		log:   zerolog.Nop(),
		prefs: DefaultPreferences(),
		subs:  make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Load reads persisted preferences. Unparseable values fall back to
// defaults.
func (h *Hub) Load(ctx context.Context) error {
	p := DefaultPreferences()
	get := func(key string) (string, bool, error) {
		v, ok, err := h.store.Get(ctx, key)
		if err != nil {
			return "", false, fmt.Errorf("settings: read %s: %w", key, err)
		}
		return v, ok, nil
	}

	if v, ok, err := get(KeyLanguage); err != nil {
		return err
	} else if ok && Language(v).Valid() {
		p.Language = Language(v)
	}
	if v, ok, err := get(KeyDarkMode); err != nil {
		return err
	} else if ok && (v == "true" || v == "false") {
		dark := v == "true"
		p.DarkMode = &dark
	}
	if v, ok, err := get(KeyBackground); err != nil {
		return err
	} else if ok {
		p.Background = v
	}
	if v, ok, err := get(KeyDarken); err != nil {
		return err
	} else if ok {
		p.DarkenBackground = v != "false"
	}
	if v, ok, err := get(KeyThemeColor); err != nil {
		return err
	} else if ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n < len(ThemeColors) {
			p.ThemeColor = n
		}
	}

	h.mu.Lock()
	h.prefs = p
	h.mu.Unlock()
	h.publish()
	return nil
}

// Subscribe registers fn and immediately calls it with the current
// settings. The returned function deregisters it.
func (h *Hub) Subscribe(fn Listener) (unsubscribe func()) {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = fn
	eff := Resolve(h.prefs, h.env)
	h.mu.Unlock()

	fn(eff)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Listeners returns the number of registered listeners.
func (h *Hub) Listeners() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Preferences returns the explicit preferences.
func (h *Hub) Preferences() Preferences {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.prefs
}

// Effective returns the resolved settings.
func (h *Hub) Effective() Effective {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Resolve(h.prefs, h.env)
}

// SetEnvironment records a change reported by the client, such as a new
// preferred language or color scheme.
func (h *Hub) SetEnvironment(env Environment) {
	h.mu.Lock()
	changed := h.env != env
	h.env = env
	h.mu.Unlock()
	if changed {
		h.publish()
	}
}

// Apply validates, persists and publishes a full set of preferences.
func (h *Hub) Apply(ctx context.Context, p Preferences) error {
	if !p.Language.Valid() {
		return fmt.Errorf("%w: language %q", ErrInvalid, p.Language)
	}
	if p.ThemeColor < 0 || p.ThemeColor >= len(ThemeColors) {
		return fmt.Errorf("%w: theme color %d", ErrInvalid, p.ThemeColor)
	}
	if err := h.persist(ctx, p); err != nil {
		return err
	}
	h.mu.Lock()
	h.prefs = p
	h.mu.Unlock()
	h.publish()
	return nil
}

// SetLanguage sets the language; Auto follows the client.
func (h *Hub) SetLanguage(ctx context.Context, l Language) error {
	p := h.Preferences()
	p.Language = l
	return h.Apply(ctx, p)
}

// SetDarkMode forces dark or light mode; nil follows the client.
func (h *Hub) SetDarkMode(ctx context.Context, dark *bool) error {
	p := h.Preferences()
	p.DarkMode = dark
	return h.Apply(ctx, p)
}

// SetBackground sets the background image URL; empty restores the default.
func (h *Hub) SetBackground(ctx context.Context, url string) error {
	p := h.Preferences()
	p.Background = url
	return h.Apply(ctx, p)
}

// SetDarkenBackground toggles dimming of the background image.
func (h *Hub) SetDarkenBackground(ctx context.Context, on bool) error {
	p := h.Preferences()
	p.DarkenBackground = on
	return h.Apply(ctx, p)
}

// SetThemeColor selects a palette entry.
func (h *Hub) SetThemeColor(ctx context.Context, idx int) error {
	p := h.Preferences()
	p.ThemeColor = idx
	return h.Apply(ctx, p)
}

func (h *Hub) persist(ctx context.Context, p Preferences) error {
	setOrRemove := func(key, value string, set bool) error {
		if !set {
			return h.store.Remove(ctx, key)
		}
		return h.store.Set(ctx, key, value)
	}
	dark := ""
	if p.DarkMode != nil {
		dark = strconv.FormatBool(*p.DarkMode)
	}
	err := errors.Join(
		setOrRemove(KeyLanguage, string(p.Language), p.Language != Auto),
		setOrRemove(KeyDarkMode, dark, p.DarkMode != nil),
		setOrRemove(KeyBackground, p.Background, p.Background != ""),
		h.store.Set(ctx, KeyDarken, strconv.FormatBool(p.DarkenBackground)),
		h.store.Set(ctx, KeyThemeColor, strconv.Itoa(p.ThemeColor)),
	)
	if err != nil {
		h.log.Warn().Err(err).Msg("persist settings")
		return fmt.Errorf("settings: persist: %w", err)
	}
	return nil
}

func (h *Hub) publish() {
	h.mu.Lock()
	eff := Resolve(h.prefs, h.env)
	subs := make([]Listener, 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(eff)
	}
}
