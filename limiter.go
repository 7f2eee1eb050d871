package pubdraft

import (
	"sync"
	"time"
)

// RateLimiter allows at most max events per key within a sliding window.
type RateLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	max    int
	window time.Duration
	now    func() time.Time
	done   chan struct{}
	once   sync.Once
}

// NewRateLimiter creates a RateLimiter that allows max events per window.
// Call Stop to end its cleanup goroutine.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	l := &RateLimiter{
		hits:   make(map[string][]time.Time),
		max:    max,
		window: window,
		now:    time.Now,
		done:   make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *RateLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
		}
		cutoff := l.now().Add(-l.window)
		l.mu.Lock()
		for key, hits := range l.hits {
			kept := prune(hits, cutoff)
			if len(kept) == 0 {
				delete(l.hits, key)
			} else {
				l.hits[key] = kept
			}
		}
		l.mu.Unlock()
	}
}

func prune(hits []time.Time, cutoff time.Time) []time.Time {
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// Allow reports whether key is under the limit and, if so, records the
// event.
func (l *RateLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := prune(l.hits[key], now.Add(-l.window))
	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}
	l.hits[key] = append(kept, now)
	return true
}

// RetryAfter returns how long key has to wait until Allow can succeed.
func (l *RateLimiter) RetryAfter(key string) time.Duration {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := prune(l.hits[key], now.Add(-l.window))
	l.hits[key] = kept
	if len(kept) < l.max {
		return 0
	}
	return kept[len(kept)-l.max].Add(l.window).Sub(now)
}

// Stop ends the cleanup goroutine.
func (l *RateLimiter) Stop() {
	l.once.Do(func() { close(l.done) })
}
