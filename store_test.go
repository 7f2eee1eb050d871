package pubdraft

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReopenStoreKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestKVNamespaces(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	alice, bob := s.Namespace("alice"), s.Namespace("bob")

	_, ok, err := alice.Get(ctx, "articleTitle")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, alice.Set(ctx, "articleTitle", "first"))
	require.NoError(t, alice.Set(ctx, "articleTitle", "second"))
	require.NoError(t, bob.Set(ctx, "articleTitle", "bob's"))

	v, ok, err := alice.Get(ctx, "articleTitle")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", v)

	require.NoError(t, alice.Remove(ctx, "articleTitle"))
	require.NoError(t, alice.Remove(ctx, "articleTitle"))
	_, ok, _ = alice.Get(ctx, "articleTitle")
	assert.False(t, ok)

	v, _, _ = bob.Get(ctx, "articleTitle")
	assert.Equal(t, "bob's", v)
}

func TestArticles(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveArticle(ctx, Article{
			ID:          id,
			Owner:       "owner",
			Title:       "Title " + id,
			Content:     `{"blocks":[],"entityMap":{}}`,
			Summary:     "summary " + id,
			CharCount:   i + 1,
			Status:      StatusToBeReviewed,
			SubmittedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	got, err := s.GetArticle(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "Title b", got.Title)
	assert.Equal(t, "summary b", got.Summary)
	assert.Equal(t, 2, got.CharCount)
	assert.True(t, got.SubmittedAt.Equal(base.Add(time.Hour)))

	_, err = s.GetArticle(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	page, total, err := s.ListArticles(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].ID)
	assert.Equal(t, "b", page[1].ID)

	page, _, err = s.ListArticles(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a", page[0].ID)
}

func TestImages(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	ok, err := s.ImageExists(ctx, "cat.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveImage(ctx, Image{Filename: "cat.jpg", OriginalName: "Cat.png", Width: 10, Height: 5, Size: 100, UploadedAt: "2026-01-01T00:00:00Z"}))
	ok, err = s.ImageExists(ctx, "cat.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	images, err := s.ListImages(ctx)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "Cat.png", images[0].OriginalName)
}

func TestArticleCacheInvalidate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	cache := NewArticleCache(s, time.Hour)

	recent, err := cache.Recent(ctx)
	require.NoError(t, err)
	assert.Empty(t, recent)

	require.NoError(t, s.SaveArticle(ctx, Article{ID: "x", Title: "X", Content: "{}", Status: StatusToBeReviewed, SubmittedAt: time.Now()}))
	recent, _ = cache.Recent(ctx)
	assert.Empty(t, recent, "cached until invalidated")

	got, err := cache.GetArticle(ctx, "x")
	require.NoError(t, err, "falls back to the store")
	assert.Equal(t, "X", got.Title)

	cache.Invalidate()
	recent, _ = cache.Recent(ctx)
	assert.Len(t, recent, 1)
}
