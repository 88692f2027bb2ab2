package mailer_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planfence/planfence/modules/mailer"
	"github.com/planfence/planfence/pkg/email"
	"github.com/planfence/planfence/svc/user"
)

type fakeSender struct {
	sent []email.SendEmailParams
	err  error
}

func (s *fakeSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, params)
	return nil
}

func newTestEnv(t *testing.T) (chi.Router, *fakeSender) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sender := &fakeSender{}

	r := chi.NewRouter()
	mailer.NewModule(sender, log).Register(r)
	return r, sender
}

func send(router chi.Router, authed bool, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/send-email", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if authed {
		r = r.WithContext(user.WithUser(r.Context(), &user.User{Email: "ada@example.com"}))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestSendEmail(t *testing.T) {
	t.Parallel()

	t.Run("delivers through sender", func(t *testing.T) {
		t.Parallel()

		router, sender := newTestEnv(t)
		w := send(router, true, `{"to":"bob@example.com","subject":"Hello","body":"<p>Hi Bob</p>"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "bob@example.com", sender.sent[0].SendTo)
		assert.Equal(t, "Hello", sender.sent[0].Subject)
	})

	t.Run("anonymous gets 401", func(t *testing.T) {
		t.Parallel()

		router, sender := newTestEnv(t)
		w := send(router, false, `{"to":"bob@example.com","subject":"Hello","body":"hi"}`)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, sender.sent)
	})

	t.Run("invalid recipient rejected", func(t *testing.T) {
		t.Parallel()

		router, sender := newTestEnv(t)
		w := send(router, true, `{"to":"not-an-address","subject":"Hello","body":"hi"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Empty(t, sender.sent)
	})

	t.Run("missing subject rejected", func(t *testing.T) {
		t.Parallel()

		router, _ := newTestEnv(t)
		w := send(router, true, `{"to":"bob@example.com","body":"hi"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("transport failure surfaces as 500", func(t *testing.T) {
		t.Parallel()

		router, sender := newTestEnv(t)
		sender.err = errors.New("postmark unavailable")

		w := send(router, true, `{"to":"bob@example.com","subject":"Hello","body":"hi"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
