package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/planfence/planfence/pkg/cookie"
)

// Manager handles session operations.
type Manager struct {
	store         Store
	transport     Transport
	config        Config
	cookieManager *cookie.Manager
}

// Option configures the Manager.
type Option func(*Manager)

// WithStore sets the session store.
func WithStore(store Store) Option {
	return func(m *Manager) { m.store = store }
}

// WithTransport sets a custom token transport.
func WithTransport(transport Transport) Option {
	return func(m *Manager) { m.transport = transport }
}

// WithCookieManager sets the cookie manager used by the default transport.
func WithCookieManager(cm *cookie.Manager) Option {
	return func(m *Manager) { m.cookieManager = cm }
}

// WithConfig sets the session configuration.
func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.config = cfg }
}

// New creates a session manager. Without an explicit store it falls back to
// an in-memory store; the default transport requires a cookie manager and
// panics without one to prevent insecure runtime behavior.
func New(opts ...Option) *Manager {
	m := &Manager{config: DefaultConfig()}

	for _, opt := range opts {
		opt(m)
	}

	if m.store == nil {
		m.store = NewMemoryStore(m.config.CleanupInterval)
	}

	if m.transport == nil {
		if m.cookieManager == nil {
			panic("session: cookie manager is required when using default cookie transport")
		}
		m.transport = NewCookieTransport(m.cookieManager, m.config.CookieName, m.config.SecureCookies)
	}

	return m
}

// Get retrieves the session for the request, if any.
func (m *Manager) Get(ctx context.Context, r *http.Request) (*Session, error) {
	token, err := m.transport.GetToken(r)
	if err != nil {
		return nil, err
	}

	session, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	if session.IsExpired() {
		_ = m.store.Delete(ctx, token)
		return nil, ErrSessionExpired
	}

	return session, nil
}

// Authenticate starts an authenticated session for the given email. Any
// existing session is discarded and a fresh token issued, which prevents
// session fixation.
func (m *Manager) Authenticate(ctx context.Context, w http.ResponseWriter, r *http.Request, email string) error {
	if token, err := m.transport.GetToken(r); err == nil {
		_ = m.store.Delete(ctx, token)
	}

	token, err := generateToken()
	if err != nil {
		return err
	}

	session := NewSession(token, email, m.config.TTL)
	if err := m.store.Create(ctx, session); err != nil {
		return err
	}

	if err := m.transport.SetToken(w, token, m.config.TTL); err != nil {
		_ = m.store.Delete(ctx, token)
		return err
	}

	return nil
}

// Destroy deletes the session and clears the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if token, err := m.transport.GetToken(r); err == nil && token != "" {
		_ = m.store.Delete(ctx, token)
	}
	return m.transport.ClearToken(w)
}

// Middleware attaches the request's session, when present, to the context.
// Requests without a valid session proceed unauthenticated.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.Get(r.Context(), r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

// generateToken creates a cryptographically secure opaque token.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
