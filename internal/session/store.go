// Package session keeps processed statement sessions in memory with a
// bounded lifetime. Sessions are published atomically under a write
// lock and reaped by a background sweeper once their TTL lapses.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"finsight/statement-hub/internal/logging"
	"finsight/statement-hub/internal/models"
	"finsight/statement-hub/internal/procerr"
)

const (
	// DefaultTTL is how long a session stays queryable.
	DefaultTTL = 30 * time.Minute
	// DefaultSweepInterval is how often the sweeper looks for expired
	// sessions.
	DefaultSweepInterval = 1 * time.Minute
)

// Store is an in-memory TTL session store safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session

	ttl           time.Duration
	sweepInterval time.Duration
	logger        logging.Logger
	nowFn         func() time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewStore creates a session store. Non-positive durations fall back to
// the defaults. The sweeper does not run until Start is called.
func NewStore(ttl, sweepInterval time.Duration, logger logging.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Store{
		sessions:      make(map[string]*models.Session),
		ttl:           ttl,
		sweepInterval: sweepInterval,
		logger:        logger,
		nowFn:         time.Now,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Create stores a fully built session under a fresh identifier and
// returns the identifier. The session is visible to readers only after
// this returns.
func (s *Store) Create(session *models.Session) string {
	id := uuid.New().String()
	session.SessionID = id
	session.CreatedAt = s.nowFn()

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	s.logger.Info("session created",
		logging.Field{Key: "session_id", Value: id},
		logging.Field{Key: "transactions", Value: len(session.Transactions)})
	return id
}

// Get returns the session for an identifier. Expired sessions are
// reported as not found even before the sweeper reaps them.
func (s *Store) Get(id string) (*models.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || s.nowFn().Sub(session.CreatedAt) > s.ttl {
		return nil, &procerr.SessionNotFoundError{SessionID: id}
	}
	return session, nil
}

// Delete removes a session. Deleting an absent session is a no-op; the
// second return reports whether anything was removed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	_, existed := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if existed {
		s.logger.Info("session deleted",
			logging.Field{Key: "session_id", Value: id})
	}
	return existed
}

// Count reports how many sessions are currently held, expired ones
// included until the sweeper runs.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Start launches the background sweeper. Repeated calls are no-ops.
func (s *Store) Start() {
	s.startOnce.Do(func() {
		s.started = true
		go s.sweepLoop()
	})
}

// Stop terminates the sweeper and waits for it to exit. Safe to call
// more than once, and without a prior Start.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	if s.started {
		<-s.doneCh
	}
}

func (s *Store) sweepLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep removes every session past its TTL.
func (s *Store) sweep() {
	cutoff := s.nowFn().Add(-s.ttl)

	s.mu.Lock()
	var reaped int
	for id, session := range s.sessions {
		if session.CreatedAt.Before(cutoff) {
			delete(s.sessions, id)
			reaped++
		}
	}
	s.mu.Unlock()

	if reaped > 0 {
		s.logger.Info("expired sessions reaped",
			logging.Field{Key: "count", Value: reaped})
	}
}
