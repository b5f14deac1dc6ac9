package storage

import (
	"fmt"
	"time"
)

// User is a registered account: a username bound to the public commitment
// pair (y1, y2) produced at registration. The password-derived secret never
// reaches the server, so this record is all the server ever holds.
type User struct {
	Username  string    `json:"username"`
	Group     string    `json:"group"` // group backend the commitments live in
	Y1        []byte    `json:"y1"`
	Y2        []byte    `json:"y2"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginSession tracks one interactive login attempt between the commitment
// and the response. It is single-use: ClaimSession flips Used exactly once,
// which is what prevents two concurrent responses from both being verified.
type LoginSession struct {
	ID        string    `json:"id"`       // session id (UUID)
	Username  string    `json:"username"` // account being proven
	R1        []byte    `json:"r1"`       // proof commitment g^k
	R2        []byte    `json:"r2"`       // proof commitment h^k
	C         []byte    `json:"c"`        // server-issued challenge
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserStore is the user registry boundary.
type UserStore interface {
	// CreateUser registers a new commitment pair. ErrUserExists if the
	// username is taken; re-registration requires an explicit delete.
	CreateUser(user *User) error

	// GetUser retrieves a user by username.
	GetUser(username string) (*User, error)

	// DeleteUser removes a registration.
	DeleteUser(username string) error

	// ListUsers returns all users (admin surface).
	ListUsers() ([]User, error)
}

// SessionStore tracks in-flight interactive login attempts.
type SessionStore interface {
	// CreateSession records a new login attempt.
	CreateSession(session *LoginSession) error

	// GetSession retrieves a live session. ErrSessionExpired for sessions
	// past their deadline even if the sweep has not collected them yet.
	GetSession(sessionID string) (*LoginSession, error)

	// ClaimSession atomically marks a session used and returns it.
	// ErrSessionUsed if it was already claimed; at most one caller ever
	// succeeds for a given id.
	ClaimSession(sessionID string) (*LoginSession, error)

	// DeleteSession discards a session, e.g. after a failed verification.
	DeleteSession(sessionID string) error

	// CleanupExpiredSessions removes sessions past their deadline.
	CleanupExpiredSessions() error
}

// DenylistStore tracks usernames barred from registering or logging in.
type DenylistStore interface {
	AddToDenylist(username string) error
	IsInDenylist(username string) (bool, error)
	RemoveFromDenylist(username string) error
	ListDenylist() ([]string, error)
}

// Store combines all storage interfaces.
type Store interface {
	UserStore
	SessionStore
	DenylistStore

	// Close releases the storage backend.
	Close() error

	// Ping checks storage health.
	Ping() error
}

var (
	// ErrUserNotFound indicates an unknown username.
	ErrUserNotFound = fmt.Errorf("user not found")

	// ErrUserExists indicates the username is already registered.
	ErrUserExists = fmt.Errorf("user already exists")

	// ErrSessionNotFound indicates an unknown session id.
	ErrSessionNotFound = fmt.Errorf("session not found")

	// ErrSessionExpired indicates a session past its deadline.
	ErrSessionExpired = fmt.Errorf("session expired")

	// ErrSessionUsed indicates a session that was already claimed.
	ErrSessionUsed = fmt.Errorf("session already used")
)
