package settings

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStorage struct {
	mu sync.Mutex
	m  map[string]string
}

func newMapStorage() *mapStorage {
	return &mapStorage{m: map[string]string{}}
}

func (s *mapStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *mapStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *mapStorage) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func TestDetect(t *testing.T) {
	tests := []struct {
		pref string
		want Language
	}{
		{"zh-TW", ZhHant},
		{"zh-HK", ZhHant},
		{"zh-Hant", ZhHant},
		{"zh-CN", ZhHans},
		{"zh", ZhHans},
		{"ja-JP", Ja},
		{"ja", Ja},
		{"en-US", En},
		{"fr-FR,zh-CN;q=0.8", En},
		{"zh-TW,en;q=0.5", ZhHant},
		{"", En},
		{"not a tag!!", En},
	}
	for _, tt := range tests {
		t.Run(tt.pref, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.pref))
		})
	}
}

func TestResolveDefaults(t *testing.T) {
	eff := Resolve(DefaultPreferences(), Environment{AcceptLanguage: "ja", PrefersDark: true})
	assert.Equal(t, Ja, eff.Language)
	assert.True(t, eff.Dark)
	assert.Equal(t, DefaultBackground, eff.Background)
	assert.True(t, eff.DarkenBackground)
	assert.Equal(t, ThemeColors[0], eff.Color)

	light := false
	eff = Resolve(Preferences{Language: ZhHans, DarkMode: &light, Background: "/mine.png", ThemeColor: 2}, Environment{PrefersDark: true})
	assert.Equal(t, ZhHans, eff.Language)
	assert.False(t, eff.Dark)
	assert.Equal(t, "/mine.png", eff.Background)
	assert.Equal(t, ThemeColors[2], eff.Color)
}

func TestSubscribeLifecycle(t *testing.T) {
	h := NewHub(newMapStorage())
	ctx := context.Background()

	var got []Effective
	unsubscribe := h.Subscribe(func(e Effective) { got = append(got, e) })
	require.Len(t, got, 1, "subscribers receive the current settings")
	assert.Equal(t, 1, h.Listeners())

	require.NoError(t, h.SetThemeColor(ctx, 3))
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[1].ThemeColor)

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, h.Listeners())

	require.NoError(t, h.SetThemeColor(ctx, 1))
	assert.Len(t, got, 2, "no delivery after unsubscribe")
}

func TestEveryListenerSeesChanges(t *testing.T) {
	h := NewHub(newMapStorage())
	var a, b Effective
	defer h.Subscribe(func(e Effective) { a = e })()
	defer h.Subscribe(func(e Effective) { b = e })()

	dark := true
	require.NoError(t, h.SetDarkMode(context.Background(), &dark))
	assert.True(t, a.Dark)
	assert.True(t, b.Dark)
}

func TestEnvironmentChangePublishes(t *testing.T) {
	h := NewHub(newMapStorage(), WithEnvironment(Environment{AcceptLanguage: "en-US"}))
	var last Effective
	calls := 0
	defer h.Subscribe(func(e Effective) { last = e; calls++ })()

	h.SetEnvironment(Environment{AcceptLanguage: "zh-TW"})
	assert.Equal(t, ZhHant, last.Language)
	assert.Equal(t, 2, calls)

	h.SetEnvironment(Environment{AcceptLanguage: "zh-TW"})
	assert.Equal(t, 2, calls, "unchanged environment is not republished")
}

func TestPersistAndLoad(t *testing.T) {
	ctx := context.Background()
	store := newMapStorage()
	h := NewHub(store)

	dark := false
	require.NoError(t, h.SetLanguage(ctx, Ja))
	require.NoError(t, h.SetDarkMode(ctx, &dark))
	require.NoError(t, h.SetBackground(ctx, "/uploads/bg.jpg"))
	require.NoError(t, h.SetDarkenBackground(ctx, false))
	require.NoError(t, h.SetThemeColor(ctx, 4))

	assert.Equal(t, "ja", store.m[KeyLanguage])
	assert.Equal(t, "false", store.m[KeyDarkMode])
	assert.Equal(t, "false", store.m[KeyDarken])

	loaded := NewHub(store)
	require.NoError(t, loaded.Load(ctx))
	assert.Equal(t, h.Preferences(), loaded.Preferences())

	require.NoError(t, h.SetDarkMode(ctx, nil))
	require.NoError(t, h.SetLanguage(ctx, Auto))
	_, ok := store.m[KeyDarkMode]
	assert.False(t, ok, "following the system removes the key")
	_, ok = store.m[KeyLanguage]
	assert.False(t, ok)
}

func TestApplyRejectsInvalid(t *testing.T) {
	h := NewHub(newMapStorage())
	ctx := context.Background()
	assert.ErrorIs(t, h.SetLanguage(ctx, "klingon"), ErrInvalid)
	assert.ErrorIs(t, h.SetThemeColor(ctx, len(ThemeColors)), ErrInvalid)
	assert.Equal(t, DefaultPreferences(), h.Preferences())
}
