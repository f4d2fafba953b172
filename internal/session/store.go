package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/cartoway/router-demo/internal/routing"
	"github.com/cartoway/router-demo/internal/trace"
)

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session not found")

// DefaultModes is the selection of a session created without one.
var DefaultModes = []routing.TransportMode{"car", "cargo_bike"}

// Session is one user's comparison: a Reconciler plus its request trace.
type Session struct {
	ID        string
	CreatedAt time.Time

	rec   *Reconciler
	trace *trace.Log
	calc  Calculator

	mu       sync.Mutex
	lastSeen time.Time
}

// Reconciler returns the session's reconciler.
func (s *Session) Reconciler() *Reconciler { return s.rec }

// Trace returns the session's request trace.
func (s *Session) Trace() *trace.Log { return s.trace }

// Do applies change to the reconciler, runs the batch it returns, and
// returns the resulting state. Requests are recorded in the session trace.
func (s *Session) Do(ctx context.Context, change func(*Reconciler) *Batch) Snapshot {
	if b := change(s.rec); b != nil {
		s.rec.Run(routing.WithTrace(ctx, s.trace.Record), s.calc, b)
	}
	return s.rec.Snapshot()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Store keeps sessions in memory and expires idle ones.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	calc     Calculator
	ttl      time.Duration
	traceCap int
	logger   *zap.Logger
	now      func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTraceCapacity sets the number of trace entries kept per session.
func WithTraceCapacity(n int) StoreOption {
	return func(s *Store) { s.traceCap = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store whose sessions compute routes with calc and expire
// after ttl without access.
func NewStore(calc Calculator, ttl time.Duration, logger *zap.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		sessions: make(map[string]*Session),
		calc:     calc,
		ttl:      ttl,
		traceCap: trace.DefaultCapacity,
		logger:   logger,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create starts a session with the given selection.
func (s *Store) Create(modes []routing.TransportMode) *Session {
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		rec:       NewReconciler(modes, s.logger),
		trace:     trace.NewLog(s.traceCap),
		calc:      s.calc,
		lastSeen:  now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Debug("session created", zap.String("session_id", sess.ID))
	return sess
}

// Get returns the session and marks it as used.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session: get %q: %w", id, ErrNotFound)
	}
	sess.touch(s.now())
	return sess, nil
}

// Delete removes a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("session: delete %q: %w", id, ErrNotFound)
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed. A non-positive TTL disables expiry.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", zap.Int("count", n), zap.Int("remaining", len(s.sessions)))
	}
	return n
}

// ScheduleSweep registers Sweep on c.
func (s *Store) ScheduleSweep(c *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() { s.Sweep() })
	if err != nil {
		return 0, fmt.Errorf("session: schedule sweep %q: %w", spec, err)
	}
	return id, nil
}
