// Package registry is the process-wide session registry (spec.md
// §4.11): a capacity-bounded map from session ID to [session.Session]
// with TTL-based idle eviction.
//
// The periodic-ticker eviction loop is grounded on
// haivivi-giztoy's chatgear.Listener.checkTimeouts janitor goroutine,
// adapted from releasing inactive gear ports to destroying idle
// sessions.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wildmatch/callecho/pkg/session"
)

// ErrCapacity is returned by Add when the registry is at
// MaxSessions.
var ErrCapacity = errors.New("registry: session capacity reached")

// ErrNotFound is returned by Get/Destroy for an unknown session ID.
var ErrNotFound = errors.New("registry: unknown session")

// Config controls capacity and idle eviction.
type Config struct {
	MaxSessions     int
	SessionTTL      time.Duration
	JanitorInterval time.Duration
}

// DefaultConfig returns reasonable process-wide defaults.
func DefaultConfig() Config {
	return Config{MaxSessions: 512, SessionTTL: 5 * time.Minute, JanitorInterval: 10 * time.Second}
}

// Registry is the process-wide session map. The registry lock is held
// only for map mutation and lookup, never across a session's own
// operations (spec.md §5).
type Registry struct {
	cfg Config
	log *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session.Session

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Registry and starts its janitor goroutine. Call Close
// to stop the janitor.
func New(cfg Config, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		cfg:      cfg,
		log:      log,
		sessions: make(map[string]*session.Session),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go r.runJanitor(ctx)
	return r
}

// Add registers a newly created session, failing with ErrCapacity if
// the registry is full.
func (r *Registry) Add(s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.cfg.MaxSessions {
		return ErrCapacity
	}
	r.sessions[s.ID()] = s
	return nil
}

// Get looks up a session by ID under the registry lock, then returns
// it for the caller to operate on under the session's own lock.
func (r *Registry) Get(id string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Destroy removes and destroys a session.
func (r *Registry) Destroy(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.Destroy()
	return nil
}

// Len returns the current session count.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close stops the janitor goroutine and blocks until it exits.
func (r *Registry) Close() {
	r.cancel()
	<-r.done
}

func (r *Registry) runJanitor(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.cfg.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.evictIdle()
		}
	}
}

func (r *Registry) evictIdle() {
	now := time.Now()

	r.mu.Lock()
	expired := make([]*session.Session, 0)
	for id, s := range r.sessions {
		if now.Sub(s.LastActivity()) > r.cfg.SessionTTL {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Destroy()
		r.log.Debug("session evicted on idle TTL", "sessionId", s.ID())
	}
}
