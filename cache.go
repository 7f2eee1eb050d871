package pubdraft

import (
	"context"
	"sync"
	"time"
)

// feedSize is how many recent articles the cache keeps.
const feedSize = 50

// ArticleCache is an in-memory cache of the most recent articles with TTL.
// It serves the feed and article pages without a query per request.
type ArticleCache struct {
	mu       sync.RWMutex
	articles []Article
	fetched  time.Time
	ttl      time.Duration
	store    *Store
}

// NewArticleCache creates an ArticleCache backed by the given Store.
func NewArticleCache(s *Store, ttl time.Duration) *ArticleCache {
	return &ArticleCache{store: s, ttl: ttl}
}

func (c *ArticleCache) valid() bool {
	return c.articles != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *ArticleCache) Invalidate() {
	c.mu.Lock()
	c.articles = nil
	c.mu.Unlock()
}

// ensureLoaded returns cached articles after ensuring the cache is fresh.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *ArticleCache) ensureLoaded(ctx context.Context) ([]Article, error) {
	c.mu.RLock()
	if c.valid() {
		articles := c.articles
		c.mu.RUnlock()
		return articles, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.articles, nil
	}
	articles, _, err := c.store.ListArticles(ctx, feedSize, 0)
	if err != nil {
		return nil, err
	}
	if articles == nil {
		articles = []Article{}
	}
	c.articles = articles
	c.fetched = time.Now()
	return articles, nil
}

// Recent returns the most recent articles, newest first.
func (c *ArticleCache) Recent(ctx context.Context) ([]Article, error) {
	return c.ensureLoaded(ctx)
}

// GetArticle returns an article, from the cache when it is recent and
// from the store otherwise.
func (c *ArticleCache) GetArticle(ctx context.Context, id string) (Article, error) {
	articles, err := c.ensureLoaded(ctx)
	if err != nil {
		return Article{}, err
	}
	for _, a := range articles {
		if a.ID == id {
			return a, nil
		}
	}
	return c.store.GetArticle(ctx, id)
}
