package storage

import (
	"sync"
	"time"
)

// MemoryStore implements Store with in-process maps. Suitable for a single
// server instance; the interfaces in storage.go are the seam for a durable
// backend.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*User
	sessions map[string]*LoginSession
	denylist map[string]bool

	sessionTTL time.Duration
	stop       chan struct{}
}

// NewMemoryStore creates an in-memory store. sessionTTL bounds the lifetime
// of interactive login sessions; the background sweep is advisory garbage
// collection, expiry is always re-checked on access.
func NewMemoryStore(sessionTTL time.Duration) *MemoryStore {
	s := &MemoryStore{
		users:      make(map[string]*User),
		sessions:   make(map[string]*LoginSession),
		denylist:   make(map[string]bool),
		sessionTTL: sessionTTL,
		stop:       make(chan struct{}),
	}

	go s.sweepLoop()

	return s
}

func (s *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.CleanupExpiredSessions()
		case <-s.stop:
			return
		}
	}
}

// SessionTTL returns the configured session lifetime.
func (s *MemoryStore) SessionTTL() time.Duration {
	return s.sessionTTL
}

// CreateUser registers a new commitment pair.
func (s *MemoryStore) CreateUser(user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Username]; exists {
		return ErrUserExists
	}

	u := *user
	u.CreatedAt = time.Now()
	s.users[user.Username] = &u

	return nil
}

// GetUser retrieves a user by username.
func (s *MemoryStore) GetUser(username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[username]
	if !exists {
		return nil, ErrUserNotFound
	}

	u := *user
	return &u, nil
}

// DeleteUser removes a registration.
func (s *MemoryStore) DeleteUser(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; !exists {
		return ErrUserNotFound
	}

	delete(s.users, username)
	return nil
}

// ListUsers returns all users.
func (s *MemoryStore) ListUsers() ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, *user)
	}

	return users, nil
}

// CreateSession records a new login attempt.
func (s *MemoryStore) CreateSession(session *LoginSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := *session
	sess.CreatedAt = time.Now()
	if sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = sess.CreatedAt.Add(s.sessionTTL)
	}
	s.sessions[session.ID] = &sess

	return nil
}

// GetSession retrieves a live session.
func (s *MemoryStore) GetSession(sessionID string) (*LoginSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	if time.Now().After(session.ExpiresAt) {
		return nil, ErrSessionExpired
	}

	sess := *session
	return &sess, nil
}

// ClaimSession atomically marks a session used and returns it. The expiry
// re-check happens here, under the same lock as the Used flip, so an expired
// session can never be claimed even if the sweep is behind.
func (s *MemoryStore) ClaimSession(sessionID string) (*LoginSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	if time.Now().After(session.ExpiresAt) {
		delete(s.sessions, sessionID)
		return nil, ErrSessionExpired
	}

	if session.Used {
		return nil, ErrSessionUsed
	}

	session.Used = true
	sess := *session
	return &sess, nil
}

// DeleteSession discards a session.
func (s *MemoryStore) DeleteSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// CleanupExpiredSessions removes sessions past their deadline.
func (s *MemoryStore) CleanupExpiredSessions() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, id)
		}
	}

	return nil
}

// AddToDenylist bars a username.
func (s *MemoryStore) AddToDenylist(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.denylist[username] = true
	return nil
}

// IsInDenylist checks whether a username is barred.
func (s *MemoryStore) IsInDenylist(username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.denylist[username], nil
}

// RemoveFromDenylist unbars a username.
func (s *MemoryStore) RemoveFromDenylist(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.denylist, username)
	return nil
}

// ListDenylist returns all barred usernames.
func (s *MemoryStore) ListDenylist() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.denylist))
	for name := range s.denylist {
		names = append(names, name)
	}

	return names, nil
}

// Close stops the sweep goroutine.
func (s *MemoryStore) Close() error {
	close(s.stop)
	return nil
}

// Ping reports storage health; always healthy for the in-memory backend.
func (s *MemoryStore) Ping() error {
	return nil
}

// Stats returns storage counters for the admin endpoint.
func (s *MemoryStore) Stats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]int{
		"users":    len(s.users),
		"sessions": len(s.sessions),
		"denylist": len(s.denylist),
	}
}
