package httpserver_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/planfence/planfence/pkg/httpserver"
	"github.com/planfence/planfence/pkg/logger"
)

func TestHealthCheckHandler(t *testing.T) {
	log := logger.New()

	t.Run("liveness without checks", func(t *testing.T) {
		rec := httptest.NewRecorder()
		httpserver.HealthCheckHandler(log).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ALIVE", rec.Body.String())
	})

	t.Run("ready when all checks pass", func(t *testing.T) {
		ok := func(context.Context) error { return nil }

		rec := httptest.NewRecorder()
		httpserver.HealthCheckHandler(log, ok, ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "READY", rec.Body.String())
	})

	t.Run("not ready when a check fails", func(t *testing.T) {
		ok := func(context.Context) error { return nil }
		fail := func(context.Context) error { return errors.New("down") }

		rec := httptest.NewRecorder()
		httpserver.HealthCheckHandler(log, ok, fail).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "NOT_READY", rec.Body.String())
	})
}
