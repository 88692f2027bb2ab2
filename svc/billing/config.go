package billing

import (
	"github.com/planfence/planfence/svc/user"
)

// Config holds the payment provider credentials and the price catalog.
type Config struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY,required"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"`

	BasicPriceID string `env:"STRIPE_BASIC_PRICE_ID,required"`
	ProPriceID   string `env:"STRIPE_PRO_PRICE_ID,required"`

	TrialDays int64 `env:"BILLING_TRIAL_DAYS" envDefault:"7"`

	// Browser return targets for hosted checkout and the billing portal.
	CheckoutSuccessURL string `env:"BILLING_CHECKOUT_SUCCESS_URL" envDefault:"http://localhost:8080/account"`
	CheckoutCancelURL  string `env:"BILLING_CHECKOUT_CANCEL_URL" envDefault:"http://localhost:8080/account"`
	PortalReturnURL    string `env:"BILLING_PORTAL_RETURN_URL" envDefault:"http://localhost:8080/account"`
}

// PriceMap translates between provider price IDs and plans.
type PriceMap struct {
	Basic string
	Pro   string
}

// Prices builds the price map from config.
func (c Config) Prices() PriceMap {
	return PriceMap{Basic: c.BasicPriceID, Pro: c.ProPriceID}
}

// PlanFor maps a provider price ID to a plan. Unknown prices return false so
// callers can decide whether to keep the existing plan or reject the request.
func (m PriceMap) PlanFor(priceID string) (user.Plan, bool) {
	if priceID == "" {
		return "", false
	}
	switch priceID {
	case m.Basic:
		return user.PlanBasic, true
	case m.Pro:
		return user.PlanPro, true
	default:
		return "", false
	}
}

// PriceFor maps a paid plan to its provider price ID.
func (m PriceMap) PriceFor(plan user.Plan) (string, bool) {
	switch plan {
	case user.PlanBasic:
		return m.Basic, true
	case user.PlanPro:
		return m.Pro, true
	default:
		return "", false
	}
}
