package user

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/planfence/planfence/core"
	"github.com/planfence/planfence/pkg/session"
)

// CurrentUser resolves the session's email into a full user record and
// attaches it to the request context. Anonymous requests pass through
// untouched; a session pointing at a deleted account is treated as anonymous.
func CurrentUser(store Store, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, ok := session.EmailFromContext(r.Context())
			if !ok || email == "" {
				next.ServeHTTP(w, r)
				return
			}

			u, err := store.GetByEmail(r.Context(), email)
			if err != nil {
				if !errors.Is(err, ErrUserNotFound) {
					log.ErrorContext(r.Context(), "failed to load current user",
						slog.String("email", email),
						slog.Any("error", err))
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequirePlan gates a route on the user's effective plan at request time.
// Expiry is evaluated on every request, so a lapsed trial loses access the
// moment its end date passes even if no webhook arrived yet. Denied requests
// are redirected to redirectURL.
func RequirePlan(required Plan, redirectURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := FromContext(r.Context())
			if !ok {
				http.Redirect(w, r, redirectURL, http.StatusSeeOther)
				return
			}

			if !u.EffectivePlan(time.Now().UTC()).Allows(required) {
				http.Redirect(w, r, redirectURL, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects anonymous requests with a JSON 401.
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := FromContext(r.Context()); !ok {
				core.JSONError(w, core.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole guards administrative routes. Anonymous requests get 401,
// authenticated users without the role get 403.
func RequireRole(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := FromContext(r.Context())
			if !ok {
				core.JSONError(w, core.ErrUnauthorized)
				return
			}
			if u.Role != role {
				core.JSONError(w, core.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
