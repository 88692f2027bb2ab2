package billing_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/planfence/planfence/svc/billing"
)

const webhookSecret = "whsec_test_secret"

func newTestGateway(t *testing.T) *billing.Gateway {
	t.Helper()

	gw, err := billing.NewGateway(billing.Config{
		SecretKey:     "sk_test_123",
		WebhookSecret: webhookSecret,
		BasicPriceID:  "price_basic",
		ProPriceID:    "price_pro",
		TrialDays:     7,
	})
	require.NoError(t, err)
	return gw
}

// signPayload builds a Stripe-Signature header for the given payload, the
// same scheme the provider uses: HMAC-SHA256 over "<timestamp>.<payload>".
func signPayload(secret string, payload []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestGateway_VerifyWebhook(t *testing.T) {
	t.Parallel()

	payload := []byte(`{
		"id": "evt_1",
		"api_version": "` + stripe.APIVersion + `",
		"type": "customer.subscription.updated",
		"data": {
			"object": {
				"customer": "cus_123",
				"status": "active",
				"items": {"data": [{"current_period_end": 1751328000, "price": {"id": "price_basic"}}]}
			}
		}
	}`)

	t.Run("valid signature", func(t *testing.T) {
		t.Parallel()

		gw := newTestGateway(t)
		header := signPayload(webhookSecret, payload, time.Now())

		event, err := gw.VerifyWebhook(payload, header)
		require.NoError(t, err)
		assert.Equal(t, "evt_1", event.ID)
		assert.Equal(t, billing.EventSubscriptionUpdated, event.Kind)
		require.NotNil(t, event.Subscription)
		assert.Equal(t, "cus_123", event.Subscription.Customer)
		assert.Equal(t, "price_basic", event.Subscription.PriceID)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		t.Parallel()

		gw := newTestGateway(t)
		header := signPayload("whsec_wrong", payload, time.Now())

		_, err := gw.VerifyWebhook(payload, header)
		assert.ErrorIs(t, err, billing.ErrSignatureInvalid)
	})

	t.Run("tampered payload rejected", func(t *testing.T) {
		t.Parallel()

		gw := newTestGateway(t)
		header := signPayload(webhookSecret, payload, time.Now())
		tampered := append([]byte(nil), payload...)
		tampered[len(tampered)-2] = ' '

		_, err := gw.VerifyWebhook(tampered, header)
		assert.ErrorIs(t, err, billing.ErrSignatureInvalid)
	})

	t.Run("stale timestamp rejected", func(t *testing.T) {
		t.Parallel()

		gw := newTestGateway(t)
		header := signPayload(webhookSecret, payload, time.Now().Add(-time.Hour))

		_, err := gw.VerifyWebhook(payload, header)
		assert.ErrorIs(t, err, billing.ErrSignatureInvalid)
	})

	t.Run("garbage header rejected", func(t *testing.T) {
		t.Parallel()

		gw := newTestGateway(t)
		_, err := gw.VerifyWebhook(payload, "not-a-signature")
		assert.ErrorIs(t, err, billing.ErrSignatureInvalid)
	})
}

func TestGateway_Config(t *testing.T) {
	t.Parallel()

	t.Run("missing secret key", func(t *testing.T) {
		t.Parallel()

		_, err := billing.NewGateway(billing.Config{WebhookSecret: "whsec"})
		assert.ErrorIs(t, err, billing.ErrMissingConfig)
	})

	t.Run("missing webhook secret", func(t *testing.T) {
		t.Parallel()

		_, err := billing.NewGateway(billing.Config{SecretKey: "sk"})
		assert.ErrorIs(t, err, billing.ErrMissingConfig)
	})

	t.Run("price catalog round trip", func(t *testing.T) {
		t.Parallel()

		gw := newTestGateway(t)
		prices := gw.Prices()

		priceID, ok := prices.PriceFor("basic")
		require.True(t, ok)
		assert.Equal(t, "price_basic", priceID)

		plan, ok := prices.PlanFor("price_pro")
		require.True(t, ok)
		assert.Equal(t, "pro", plan.String())

		_, ok = prices.PlanFor("price_unknown")
		assert.False(t, ok)

		_, ok = prices.PriceFor("none")
		assert.False(t, ok)
	})
}
