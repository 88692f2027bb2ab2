package user

import (
	"context"
	"log/slog"
)

// contextKey prevents collisions with other packages using context values
type contextKey struct{}

func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

func FromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(contextKey{}).(*User)
	return u, ok && u != nil
}

// EmailFromContext provides fast access to the user's email without exposing
// the full record.
func EmailFromContext(ctx context.Context) (string, bool) {
	u, ok := FromContext(ctx)
	if !ok {
		return "", false
	}
	return u.Email, true
}

// LoggerExtractor returns a function that enriches log records with the
// current user's email.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if email, ok := EmailFromContext(ctx); ok {
			return slog.String("user_email", email), true
		}
		return slog.Attr{}, false
	}
}
