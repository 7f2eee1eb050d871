package pubdraft

import (
	"testing"
	"time"
)

// steppedLimiter returns a limiter whose clock only moves when told to.
func steppedLimiter(t *testing.T, max int, window time.Duration) (*RateLimiter, func(time.Duration)) {
	t.Helper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l := NewRateLimiter(max, window)
	l.now = func() time.Time { return now }
	t.Cleanup(l.Stop)
	return l, func(d time.Duration) { now = now.Add(d) }
}

func TestRateLimiterWindow(t *testing.T) {
	l, advance := steppedLimiter(t, 2, time.Minute)
	ip := "198.51.100.7"

	steps := []struct {
		advance time.Duration
		allowed bool
	}{
		{0, true},
		{10 * time.Second, true},
		{10 * time.Second, false},
		{39 * time.Second, false},
		{2 * time.Second, true}, // first hit left the window
		{0, false},
	}
	for i, s := range steps {
		advance(s.advance)
		if got := l.Allow(ip); got != s.allowed {
			t.Fatalf("step %d: Allow = %v, want %v", i, got, s.allowed)
		}
	}
}

func TestRateLimiterRetryAfter(t *testing.T) {
	l, advance := steppedLimiter(t, 1, time.Minute)
	ip := "198.51.100.8"

	if d := l.RetryAfter(ip); d != 0 {
		t.Fatalf("RetryAfter before any upload = %v, want 0", d)
	}
	l.Allow(ip)
	advance(15 * time.Second)
	if d := l.RetryAfter(ip); d != 45*time.Second {
		t.Fatalf("RetryAfter = %v, want 45s", d)
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	l, _ := steppedLimiter(t, 1, time.Minute)

	for _, ip := range []string{"198.51.100.1", "198.51.100.2", "2001:db8::1"} {
		if !l.Allow(ip) {
			t.Fatalf("first upload from %s blocked", ip)
		}
	}
	if l.Allow("198.51.100.1") {
		t.Fatalf("second upload from 198.51.100.1 allowed")
	}
}

func TestRateLimiterStopTwice(t *testing.T) {
	l := NewRateLimiter(1, time.Minute)
	l.Stop()
	l.Stop()
}
