package session

import "context"

// Store defines the interface for session persistence.
type Store interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// Get retrieves a session by token.
	Get(ctx context.Context, token string) (*Session, error)

	// Delete removes a session by token.
	Delete(ctx context.Context, token string) error

	// DeleteExpired removes all expired sessions. Stores with native TTL
	// support (e.g. Redis) may implement this as a no-op.
	DeleteExpired(ctx context.Context) error
}
