// Package session implements server-side sessions keyed by an opaque token
// delivered in a signed cookie. A session stores at minimum the authenticated
// email; anonymous requests simply carry no session.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Session represents a server-side session record.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Token     string    `json:"token"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSession creates a session with the given token and TTL.
func NewSession(token, email string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New(),
		Token:     token,
		Email:     email,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

// IsAuthenticated returns true if the session carries an email.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Email != ""
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return s != nil && time.Now().After(s.ExpiresAt)
}
