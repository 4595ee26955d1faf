package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrNotFound is returned when no session exists for an id.
	ErrNotFound = errors.New("session not found")
	// ErrExpired is returned for a session whose TTL has elapsed.
	ErrExpired = errors.New("session expired")
	// ErrCapacity is returned by Create when the store is full.
	ErrCapacity = errors.New("session store is full")
)

// Session is the per-visitor state. The API key never leaves process memory.
type Session struct {
	ID        string
	APIKey    string
	ExpiresAt time.Time
}

// HasKey reports whether the visitor has entered an API key.
func (s Session) HasKey() bool {
	return s.APIKey != ""
}

// SessionStore is a concurrency-safe in-memory session map with a sliding TTL.
type SessionStore struct {
	mu sync.RWMutex

	// key: session id
	data map[string]*Session

	ttl         time.Duration
	maxSessions int // 0 = unlimited
	clock       clockwork.Clock
}

// NewSessionStore creates a store. A nil clock uses real time.
func NewSessionStore(ttl time.Duration, maxSessions int, clock clockwork.Clock) *SessionStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionStore{
		data:        make(map[string]*Session),
		ttl:         ttl,
		maxSessions: maxSessions,
		clock:       clock,
	}
}

// Create starts a new empty session. Expired entries are reclaimed before
// reporting ErrCapacity.
func (s *SessionStore) Create() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if s.maxSessions > 0 && len(s.data) >= s.maxSessions {
		s.purgeLocked(now)
		if len(s.data) >= s.maxSessions {
			return Session{}, ErrCapacity
		}
	}

	sess := &Session{
		ID:        uuid.NewString(),
		ExpiresAt: now.Add(s.ttl),
	}
	s.data[sess.ID] = sess
	return *sess, nil
}

// Get returns the session and extends its expiry.
func (s *SessionStore) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.liveLocked(id)
	if err != nil {
		return Session{}, err
	}
	sess.ExpiresAt = s.clock.Now().Add(s.ttl)
	return *sess, nil
}

// SetAPIKey stores key on an existing session.
func (s *SessionStore) SetAPIKey(id, key string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.liveLocked(id)
	if err != nil {
		return Session{}, err
	}
	sess.APIKey = key
	sess.ExpiresAt = s.clock.Now().Add(s.ttl)
	return *sess, nil
}

// Delete removes a session. Deleting an unknown id is a no-op.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
}

// PurgeExpired drops every expired session and returns how many were removed.
func (s *SessionStore) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purgeLocked(s.clock.Now())
}

// Len returns the number of stored sessions, expired ones included until purged.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *SessionStore) liveLocked(id string) (*Session, error) {
	sess, ok := s.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.expired(sess, s.clock.Now()) {
		delete(s.data, id)
		return nil, ErrExpired
	}
	return sess, nil
}

func (s *SessionStore) purgeLocked(now time.Time) int {
	removed := 0
	for id, sess := range s.data {
		if s.expired(sess, now) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

func (s *SessionStore) expired(sess *Session, now time.Time) bool {
	return s.ttl > 0 && !now.Before(sess.ExpiresAt)
}
