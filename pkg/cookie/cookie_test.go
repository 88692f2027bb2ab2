package cookie_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planfence/planfence/pkg/cookie"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newManager(t *testing.T, secrets ...string) *cookie.Manager {
	t.Helper()
	if len(secrets) == 0 {
		secrets = []string{testSecret}
	}
	m, err := cookie.New(secrets)
	require.NoError(t, err)
	return m
}

func requestWithCookies(rec *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestNew(t *testing.T) {
	t.Run("requires a secret", func(t *testing.T) {
		_, err := cookie.New(nil)
		assert.ErrorIs(t, err, cookie.ErrNoSecret)
	})

	t.Run("rejects short secrets", func(t *testing.T) {
		_, err := cookie.New([]string{"short"})
		assert.ErrorIs(t, err, cookie.ErrSecretTooShort)
	})
}

func TestSignedRoundTrip(t *testing.T) {
	m := newManager(t)

	rec := httptest.NewRecorder()
	m.SetSigned(rec, "sid", "token-value")

	got, err := m.GetSigned(requestWithCookies(rec), "sid")
	require.NoError(t, err)
	assert.Equal(t, "token-value", got)
}

func TestTamperedValueRejected(t *testing.T) {
	m := newManager(t)

	rec := httptest.NewRecorder()
	m.SetSigned(rec, "sid", "token-value")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		c.Value = strings.Replace(c.Value, ".", "x.", 1)
		r.AddCookie(c)
	}

	_, err := m.GetSigned(r, "sid")
	assert.ErrorIs(t, err, cookie.ErrInvalidSignature)
}

func TestSecretRotation(t *testing.T) {
	old := newManager(t, testSecret)

	rec := httptest.NewRecorder()
	old.SetSigned(rec, "sid", "token-value")

	// New primary secret, old secret kept as fallback.
	rotated := newManager(t, "fedcba9876543210fedcba9876543210", testSecret)

	got, err := rotated.GetSigned(requestWithCookies(rec), "sid")
	require.NoError(t, err)
	assert.Equal(t, "token-value", got)
}

func TestDelete(t *testing.T) {
	m := newManager(t)

	rec := httptest.NewRecorder()
	m.Delete(rec, "sid")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
	assert.Empty(t, cookies[0].Value)
}
