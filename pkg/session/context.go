package session

import "context"

type sessionContextKey struct{}

// WithSession adds a session to the context.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// FromContext retrieves a session from the context.
func FromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(*Session)
	return session, ok
}

// EmailFromContext retrieves the authenticated email from the session in
// context, if any.
func EmailFromContext(ctx context.Context) (string, bool) {
	session, ok := FromContext(ctx)
	if !ok || !session.IsAuthenticated() {
		return "", false
	}
	return session.Email, true
}
