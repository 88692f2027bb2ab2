package billing_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billingmod "github.com/planfence/planfence/modules/billing"
	"github.com/planfence/planfence/svc/billing"
	"github.com/planfence/planfence/svc/user"
)

var testPrices = billing.PriceMap{Basic: "price_basic", Pro: "price_pro"}

type stubGateway struct {
	checkoutErr error
	portalErr   error
	lastPriceID string
}

func (g *stubGateway) CreateCheckoutSession(ctx context.Context, billingID, priceID string) (*billing.CheckoutSession, error) {
	if g.checkoutErr != nil {
		return nil, g.checkoutErr
	}
	g.lastPriceID = priceID
	return &billing.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.example.com/cs_test_1"}, nil
}

func (g *stubGateway) CreateBillingPortalSession(ctx context.Context, billingID string) (*billing.PortalSession, error) {
	if g.portalErr != nil {
		return nil, g.portalErr
	}
	return &billing.PortalSession{URL: "https://portal.example.com/ps_test_1"}, nil
}

func (g *stubGateway) Prices() billing.PriceMap { return testPrices }
func (g *stubGateway) TrialDays() int64         { return 7 }

type stubVerifier struct {
	event *billing.Event
	err   error
}

func (v *stubVerifier) VerifyWebhook(payload []byte, sigHeader string) (*billing.Event, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.event, nil
}

type stubReconciler struct {
	applied []*billing.Event
	err     error
}

func (r *stubReconciler) Apply(ctx context.Context, event *billing.Event) error {
	r.applied = append(r.applied, event)
	return r.err
}

type testEnv struct {
	router     chi.Router
	store      *user.MemoryStore
	gateway    *stubGateway
	verifier   *stubVerifier
	reconciler *stubReconciler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:      user.NewMemoryStore(),
		gateway:    &stubGateway{},
		verifier:   &stubVerifier{},
		reconciler: &stubReconciler{},
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mod := billingmod.NewModule(env.store, env.gateway, env.verifier, env.reconciler, log)

	env.router = chi.NewRouter()
	mod.Register(env.router)
	return env
}

func seedUser(t *testing.T, env *testEnv) *user.User {
	t.Helper()

	u := &user.User{Email: "ada@example.com", BillingID: "cus_123"}
	require.NoError(t, env.store.Create(context.Background(), u))
	return u
}

func authedJSON(u *user.User, method, path, body string) *http.Request {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	if u != nil {
		r = r.WithContext(user.WithUser(r.Context(), u))
	}
	return r
}

func TestCheckout(t *testing.T) {
	t.Parallel()

	t.Run("starts session and grants optimistic trial", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		u := seedUser(t, env)

		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, authedJSON(u, http.MethodPost, "/billing/checkout", `{"plan":"basic"}`))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "cs_test_1")
		assert.Equal(t, "price_basic", env.gateway.lastPriceID)

		stored, err := env.store.GetByEmail(context.Background(), "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.PlanBasic, stored.Plan)
		assert.True(t, stored.HasTrial)
		require.NotNil(t, stored.EndDate)
		assert.WithinDuration(t, time.Now().UTC().Add(7*24*time.Hour), *stored.EndDate, time.Minute)
	})

	t.Run("anonymous gets 401", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, authedJSON(nil, http.MethodPost, "/billing/checkout", `{"plan":"basic"}`))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid plan rejected", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		u := seedUser(t, env)

		for _, body := range []string{`{"plan":"enterprise"}`, `{"plan":"none"}`, `{"plan":""}`} {
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, authedJSON(u, http.MethodPost, "/billing/checkout", body))
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "body %s", body)
		}
	})

	t.Run("provider failure surfaces message as 400", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		u := seedUser(t, env)
		env.gateway.checkoutErr = errors.New("billing.provider_error: no such price")

		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, authedJSON(u, http.MethodPost, "/billing/checkout", `{"plan":"pro"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "no such price")

		// A failed checkout must not grant the trial.
		stored, err := env.store.GetByEmail(context.Background(), "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.PlanNone, stored.Plan)
	})
}

func TestPortal(t *testing.T) {
	t.Parallel()

	t.Run("returns portal url", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		u := seedUser(t, env)

		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, authedJSON(u, http.MethodPost, "/billing/portal", ""))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "https://portal.example.com/ps_test_1")
	})

	t.Run("stale customer surfaces as 400", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		u := seedUser(t, env)
		env.gateway.portalErr = billing.ErrCustomerNotFound

		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, authedJSON(u, http.MethodPost, "/billing/portal", ""))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestWebhook(t *testing.T) {
	t.Parallel()

	post := func(env *testEnv, body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/billing/webhook", strings.NewReader(body))
		r.Header.Set("Stripe-Signature", "t=1,v1=abc")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, r)
		return w
	}

	t.Run("verified event reaches reconciler and answers 200", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.verifier.event = &billing.Event{ID: "evt_1", Kind: billing.EventSubscriptionUpdated}

		w := post(env, `{"id":"evt_1"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		require.Len(t, env.reconciler.applied, 1)
		assert.Equal(t, "evt_1", env.reconciler.applied[0].ID)
	})

	t.Run("invalid signature answers 400 without reconciling", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.verifier.err = billing.ErrSignatureInvalid

		w := post(env, `{"id":"evt_1"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, env.reconciler.applied)
	})

	t.Run("persistence failure still answers 200", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.verifier.event = &billing.Event{ID: "evt_1", Kind: billing.EventSubscriptionUpdated}
		env.reconciler.err = billing.ErrPersistence

		w := post(env, `{"id":"evt_1"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unusable verified payload answers 200", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.verifier.err = billing.ErrInvalidEvent

		w := post(env, `{"id":"evt_1"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, env.reconciler.applied)
	})
}
