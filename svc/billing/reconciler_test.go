package billing_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planfence/planfence/svc/billing"
	"github.com/planfence/planfence/svc/user"
)

var testPrices = billing.PriceMap{Basic: "price_basic", Pro: "price_pro"}

func newReconciler(t *testing.T) (*billing.Reconciler, *user.MemoryStore) {
	t.Helper()

	store := user.NewMemoryStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return billing.NewReconciler(store, testPrices, log), store
}

func seedUser(t *testing.T, store user.Store, billingID string) {
	t.Helper()

	require.NoError(t, store.Create(context.Background(), &user.User{
		Email:     "ada@example.com",
		BillingID: billingID,
	}))
}

func activeEvent(priceID string, periodEnd time.Time) *billing.Event {
	return &billing.Event{
		ID:   "evt_1",
		Kind: billing.EventSubscriptionUpdated,
		Subscription: &billing.SubscriptionData{
			Customer:         "cus_123",
			Status:           "active",
			PriceID:          priceID,
			CurrentPeriodEnd: &periodEnd,
		},
	}
}

func TestReconciler_Apply(t *testing.T) {
	t.Parallel()

	periodEnd := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	t.Run("active subscription grants plan until period end", func(t *testing.T) {
		t.Parallel()

		r, store := newReconciler(t)
		seedUser(t, store, "cus_123")

		require.NoError(t, r.Apply(context.Background(), activeEvent("price_basic", periodEnd)))

		u, err := store.GetByEmail(context.Background(), "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.PlanBasic, u.Plan)
		assert.False(t, u.HasTrial)
		require.NotNil(t, u.EndDate)
		assert.Equal(t, periodEnd, *u.EndDate)
	})

	t.Run("trialing subscription sets trial flag", func(t *testing.T) {
		t.Parallel()

		r, store := newReconciler(t)
		seedUser(t, store, "cus_123")

		event := activeEvent("price_pro", periodEnd)
		event.Subscription.Status = "trialing"
		require.NoError(t, r.Apply(context.Background(), event))

		u, err := store.GetByEmail(context.Background(), "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.PlanPro, u.Plan)
		assert.True(t, u.HasTrial)
	})

	t.Run("replaying the same event converges", func(t *testing.T) {
		t.Parallel()

		r, store := newReconciler(t)
		seedUser(t, store, "cus_123")

		event := activeEvent("price_basic", periodEnd)
		require.NoError(t, r.Apply(context.Background(), event))
		first, err := store.GetByEmail(context.Background(), "ada@example.com")
		require.NoError(t, err)

		require.NoError(t, r.Apply(context.Background(), event))
		second, err := store.GetByEmail(context.Background(), "ada@example.com")
		require.NoError(t, err)

		assert.Equal(t, first.Plan, second.Plan)
		assert.Equal(t, first.HasTrial, second.HasTrial)
		assert.Equal(t, first.EndDate, second.EndDate)
	})

	t.Run("cancellation wins over everything else in the payload", func(t *testing.T) {
		t.Parallel()

		r, store := newReconciler(t)
		seedUser(t, store, "cus_123")
		require.NoError(t, r.Apply(context.Background(), activeEvent("price_pro", periodEnd)))

		canceledAt := periodEnd.Add(-time.Hour)
		event := &billing.Event{
			ID:   "evt_2",
			Kind: billing.EventSubscriptionUpdated,
			Subscription: &billing.SubscriptionData{
				Customer:         "cus_123",
				Status:           "active",
				PriceID:          "price_pro",
				CurrentPeriodEnd: &periodEnd,
				CanceledAt:       &canceledAt,
			},
		}
		require.NoError(t, r.Apply(context.Background(), event))

		u, err := store.GetByEmail(context.Background(), "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.PlanNone, u.Plan)
		assert.False(t, u.HasTrial)
		assert.Nil(t, u.EndDate)
	})

	t.Run("deleted event revokes access", func(t *testing.T) {
		t.Parallel()

		r, store := newReconciler(t)
		seedUser(t, store, "cus_123")
		require.NoError(t, r.Apply(context.Background(), activeEvent("price_basic", periodEnd)))

		event := &billing.Event{
			ID:   "evt_3",
			Kind: billing.EventSubscriptionDeleted,
			Subscription: &billing.SubscriptionData{
				Customer: "cus_123",
				Status:   "canceled",
			},
		}
		require.NoError(t, r.Apply(context.Background(), event))

		u, err := store.GetByEmail(context.Background(), "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.PlanNone, u.Plan)
	})

	t.Run("unknown price keeps current plan", func(t *testing.T) {
		t.Parallel()

		r, store := newReconciler(t)
		seedUser(t, store, "cus_123")
		require.NoError(t, r.Apply(context.Background(), activeEvent("price_basic", periodEnd)))

		later := periodEnd.Add(30 * 24 * time.Hour)
		require.NoError(t, r.Apply(context.Background(), activeEvent("price_enterprise", later)))

		u, err := store.GetByEmail(context.Background(), "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.PlanBasic, u.Plan)
		require.NotNil(t, u.EndDate)
		assert.Equal(t, later, *u.EndDate)
	})

	t.Run("past_due status keeps earned end date", func(t *testing.T) {
		t.Parallel()

		r, store := newReconciler(t)
		seedUser(t, store, "cus_123")
		require.NoError(t, r.Apply(context.Background(), activeEvent("price_basic", periodEnd)))

		later := periodEnd.Add(30 * 24 * time.Hour)
		event := activeEvent("price_basic", later)
		event.Subscription.Status = "past_due"
		require.NoError(t, r.Apply(context.Background(), event))

		u, err := store.GetByEmail(context.Background(), "ada@example.com")
		require.NoError(t, err)
		require.NotNil(t, u.EndDate)
		assert.Equal(t, periodEnd, *u.EndDate)
	})

	t.Run("unknown customer dropped without error", func(t *testing.T) {
		t.Parallel()

		r, store := newReconciler(t)

		require.NoError(t, r.Apply(context.Background(), activeEvent("price_basic", periodEnd)))

		_, err := store.GetByBillingID(context.Background(), "cus_123")
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})

	t.Run("nil subscription ignored", func(t *testing.T) {
		t.Parallel()

		r, _ := newReconciler(t)
		assert.NoError(t, r.Apply(context.Background(), &billing.Event{ID: "evt_4", Kind: "invoice.paid"}))
		assert.NoError(t, r.Apply(context.Background(), nil))
	})
}
