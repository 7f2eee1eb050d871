package pubdraft

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eringen/pubdraft/session"
	"github.com/eringen/pubdraft/settings"
)

// ErrClosed is returned by Registry.Get after Close.
var ErrClosed = errors.New("pubdraft: session registry closed")

// sessionFactory builds an unopened editor session for an owner.
type sessionFactory func(owner string, env settings.Environment) *session.Session

type sessionEntry struct {
	sess     *session.Session
	lastSeen time.Time
	// conns counts open event streams; connected sessions are never idle.
	conns int
}

// Registry holds one editor session per owner and evicts idle ones.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	factory  sessionFactory
	idle     time.Duration
	log      zerolog.Logger
	now      func() time.Time
	closed   bool
}

// NewRegistry creates an empty registry.
func NewRegistry(factory sessionFactory, idle time.Duration, log zerolog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*sessionEntry),
		factory:  factory,
		idle:     idle,
		log:      log,
		now:      time.Now,
	}
}

// Get returns the owner's session, opening it on first use.
func (r *Registry) Get(ctx context.Context, owner string, env settings.Environment) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if e, ok := r.sessions[owner]; ok {
		e.lastSeen = r.now()
		return e.sess, nil
	}
	s := r.factory(owner, env)
	if err := s.Open(ctx); err != nil {
		s.Close(ctx)
		return nil, err
	}
	r.sessions[owner] = &sessionEntry{sess: s, lastSeen: r.now()}
	r.log.Debug().Str("owner", owner).Msg("editor session opened")
	return s, nil
}

// Attach marks an event stream as open for owner; the returned function
// detaches it.
func (r *Registry) Attach(owner string) (detach func()) {
	r.mu.Lock()
	if e, ok := r.sessions[owner]; ok {
		e.conns++
	}
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			if e, ok := r.sessions[owner]; ok {
				e.conns--
				e.lastSeen = r.now()
			}
			r.mu.Unlock()
		})
	}
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Evict closes sessions idle for longer than the idle timeout.
func (r *Registry) Evict(ctx context.Context) int {
	cutoff := r.now().Add(-r.idle)
	var idle []*session.Session

	r.mu.Lock()
	for owner, e := range r.sessions {
		if e.conns == 0 && e.lastSeen.Before(cutoff) {
			idle = append(idle, e.sess)
			delete(r.sessions, owner)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.Close(ctx)
		r.log.Debug().Str("owner", s.ID).Msg("idle editor session closed")
	}
	return len(idle)
}

// Run evicts idle sessions periodically until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	interval := max(r.idle/4, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Evict(context.WithoutCancel(ctx)); n > 0 {
				r.log.Info().Int("evicted", n).Msg("idle editor sessions closed")
			}
		}
	}
}

// Close saves and closes every session. Later Gets fail.
func (r *Registry) Close(ctx context.Context) {
	r.mu.Lock()
	r.closed = true
	all := make([]*session.Session, 0, len(r.sessions))
	for _, e := range r.sessions {
		all = append(all, e.sess)
	}
	r.sessions = make(map[string]*sessionEntry)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range all {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Close(ctx)
		}()
	}
	wg.Wait()
}
