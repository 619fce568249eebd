package voting

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ideavote/internal/platform/clock"
)

const (
	DefaultTick    = time.Second
	DefaultIdleTTL = 30 * time.Minute
)

type Option func(*Registry)

func WithClock(c clock.Clock) Option {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

func WithWindow(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.window = d
		}
	}
}

func WithTick(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.tick = d
		}
	}
}

func WithIdleTTL(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.idleTTL = d
		}
	}
}

func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// Registry keeps one server-side session per voter and drives their
// deadlines from a single ticker.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ledger   Ledger
	clock    clock.Clock
	observer Observer
	window   time.Duration
	tick     time.Duration
	idleTTL  time.Duration

	// beforeEvict runs between the idle scan and eviction; tests use it to
	// interleave requests
	beforeEvict func()
}

func NewRegistry(l Ledger, opts ...Option) *Registry {
	r := &Registry{
		sessions: map[string]*Session{},
		ledger:   l,
		clock:    clock.Real(),
		window:   DefaultWindow,
		tick:     DefaultTick,
		idleTTL:  DefaultIdleTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Session returns the voter's session, creating an idle one if needed.
func (r *Registry) Session(voterID string) *Session {
	voterID = strings.TrimSpace(voterID)
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[voterID]; ok {
		s.touch(r.clock.Now())
		return s
	}
	s := NewSession(voterID, r.ledger, r.clock, r.window)
	s.observer = r.observer
	r.sessions[voterID] = s
	return s
}

func (r *Registry) lookup(voterID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[strings.TrimSpace(voterID)]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) Window() time.Duration {
	return r.window
}

// Sweep ticks every session, then drops sessions that are not armed and have
// been untouched for longer than the idle TTL. Handing out a session touches
// it under the registry lock, and eviction re-checks idleness under the same
// lock, so a session returned by Session is never evicted before it is used.
func (r *Registry) Sweep() (expired, evicted int) {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	now := r.clock.Now()
	var stale []*Session
	for _, s := range sessions {
		if s.Tick() {
			expired++
		}
		idle, armed := s.idleSince(now)
		if !armed && idle > r.idleTTL {
			stale = append(stale, s)
		}
	}

	if len(stale) > 0 {
		if r.beforeEvict != nil {
			r.beforeEvict()
		}
		r.mu.Lock()
		now = r.clock.Now()
		for _, s := range stale {
			if r.sessions[s.voterID] != s {
				continue
			}
			if idle, armed := s.idleSince(now); armed || idle <= r.idleTTL {
				continue
			}
			delete(r.sessions, s.voterID)
			evicted++
		}
		r.mu.Unlock()
	}
	return expired, evicted
}

// Run ticks sessions until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(r.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			expired, evicted := r.Sweep()
			if expired > 0 || evicted > 0 {
				slog.Debug("voting sessions swept", "expired", expired, "evicted", evicted)
			}
		}
	}
}
