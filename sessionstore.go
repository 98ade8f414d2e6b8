package main

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type storedSession struct {
	sess     *Session
	lastSeen time.Time
}

// SessionStore keeps one Session per browser. Sessions idle for longer than
// ttl are dropped by Expire. With a positive limit, Create drops the least
// recently seen session once the store is full.
type SessionStore struct {
	sessions map[string]*storedSession
	ttl      time.Duration
	limit    int
	rwlock   sync.RWMutex
	now      func() time.Time
	log      *slog.Logger
}

func NewSessionStore(ttl time.Duration, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		sessions: make(map[string]*storedSession),
		ttl:      ttl,
		now:      time.Now,
		log:      logger,
	}
}

func (s *SessionStore) Get(id string) (*Session, bool) {
	s.rwlock.Lock()
	defer s.rwlock.Unlock()
	st, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	st.lastSeen = s.now()
	return st.sess, true
}

func (s *SessionStore) SetLimit(limit int) {
	s.rwlock.Lock()
	defer s.rwlock.Unlock()
	s.limit = limit
}

func (s *SessionStore) Create() (string, *Session) {
	id := uuid.NewString()
	sess := NewSession(s.log.With("session", id))
	s.rwlock.Lock()
	defer s.rwlock.Unlock()
	for s.limit > 0 && len(s.sessions) >= s.limit {
		s.evictOldest()
	}
	s.sessions[id] = &storedSession{sess: sess, lastSeen: s.now()}
	ActiveSessions.Set(float64(len(s.sessions)))
	return id, sess
}

// evictOldest must be called with the write lock held.
func (s *SessionStore) evictOldest() {
	var oldest string
	var seen time.Time
	for id, st := range s.sessions {
		if oldest == "" || st.lastSeen.Before(seen) {
			oldest, seen = id, st.lastSeen
		}
	}
	delete(s.sessions, oldest)
	s.log.Info("evicted session", "id", oldest, "last-seen", seen)
}

func (s *SessionStore) Len() int {
	s.rwlock.RLock()
	defer s.rwlock.RUnlock()
	return len(s.sessions)
}

// Expire removes sessions not seen within ttl and returns how many were
// removed. A zero ttl keeps everything.
func (s *SessionStore) Expire() int {
	if s.ttl <= 0 {
		return 0
	}
	limit := s.now().Add(-s.ttl)
	s.rwlock.Lock()
	defer s.rwlock.Unlock()
	removed := 0
	for id, st := range s.sessions {
		if st.lastSeen.Before(limit) {
			delete(s.sessions, id)
			removed++
		}
	}
	ActiveSessions.Set(float64(len(s.sessions)))
	if removed != 0 {
		s.log.Info("expired sessions", "removed", removed, "remain", len(s.sessions))
	}
	return removed
}
