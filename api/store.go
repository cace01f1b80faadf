package api

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meikuraledutech/pipeline"
)

// Session is one independent editor.
type Session struct {
	ID         string
	Editor     *pipeline.Editor
	CreatedAt  time.Time
	lastAccess time.Time
}

// Store keeps editor sessions in memory with a capacity limit and TTL.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	maxSessions int
	ttl         time.Duration
	newEditor   func() *pipeline.Editor
	now         func() time.Time
}

// NewStore returns an empty store. newEditor builds the editor of each new session.
func NewStore(maxSessions int, ttl time.Duration, newEditor func() *pipeline.Editor) *Store {
	return &Store{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		ttl:         ttl,
		newEditor:   newEditor,
		now:         time.Now,
	}
}

// Create adds a session, evicting the least recently used one when full.
func (s *Store) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.maxSessions {
		var oldestID string
		var oldest time.Time
		for id, sess := range s.sessions {
			if oldest.IsZero() || sess.lastAccess.Before(oldest) {
				oldestID = id
				oldest = sess.lastAccess
			}
		}
		delete(s.sessions, oldestID)
	}

	now := s.now()
	sess := &Session{
		ID:         uuid.NewString(),
		Editor:     s.newEditor(),
		CreatedAt:  now,
		lastAccess: now,
	}
	s.sessions[sess.ID] = sess
	return sess
}

// Get returns a session and marks it used.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.lastAccess = s.now()
	return sess, true
}

// Delete removes a session.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Cleanup removes sessions idle for longer than the TTL and returns how many.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	n := 0
	for id, sess := range s.sessions {
		if sess.lastAccess.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// StartCleanup runs Cleanup every interval until the returned stop func is called.
func (s *Store) StartCleanup(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
