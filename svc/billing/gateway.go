package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Customer is the slice of a provider customer record the application uses.
type Customer struct {
	ID    string
	Email string
}

// CheckoutSession is a started hosted-checkout session. The browser redirects
// to URL; ID is handed to the provider's JS redirect helper.
type CheckoutSession struct {
	ID  string
	URL string
}

// PortalSession is a started billing-portal session.
type PortalSession struct {
	URL string
}

// Gateway wraps the Stripe API behind the handful of calls the application
// makes. All card and payment-method data stays on the provider's side; the
// application only ever holds customer and session identifiers.
type Gateway struct {
	api           *client.API
	webhookSecret string
	prices        PriceMap
	trialDays     int64

	successURL string
	cancelURL  string
	returnURL  string
}

// NewGateway creates a Gateway from config.
func NewGateway(cfg Config) (*Gateway, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: secret key", ErrMissingConfig)
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook secret", ErrMissingConfig)
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &Gateway{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		prices:        cfg.Prices(),
		trialDays:     cfg.TrialDays,
		successURL:    cfg.CheckoutSuccessURL,
		cancelURL:     cfg.CheckoutCancelURL,
		returnURL:     cfg.PortalReturnURL,
	}, nil
}

// Prices exposes the configured price catalog.
func (g *Gateway) Prices() PriceMap { return g.prices }

// TrialDays exposes the configured trial length.
func (g *Gateway) TrialDays() int64 { return g.trialDays }

// CreateCustomer registers a new customer with the provider and returns its
// billing ID.
func (g *Gateway) CreateCustomer(ctx context.Context, email string) (*Customer, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.Context = ctx

	c, err := g.api.Customers.New(params)
	if err != nil {
		return nil, wrapProviderErr(err)
	}
	return &Customer{ID: c.ID, Email: c.Email}, nil
}

// GetCustomer fetches an existing customer by billing ID.
func (g *Gateway) GetCustomer(ctx context.Context, billingID string) (*Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	c, err := g.api.Customers.Get(billingID, params)
	if err != nil {
		return nil, wrapProviderErr(err)
	}
	return &Customer{ID: c.ID, Email: c.Email}, nil
}

// CreateCheckoutSession starts a hosted subscription checkout for the given
// customer and price. The subscription begins with the configured trial.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, billingID, priceID string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:   stripe.String(billingID),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	if g.trialDays > 0 {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(g.trialDays),
		}
	}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, wrapProviderErr(err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// CreateBillingPortalSession starts a billing-portal session where the
// customer manages payment methods and cancellation on the provider's pages.
func (g *Gateway) CreateBillingPortalSession(ctx context.Context, billingID string) (*PortalSession, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(billingID),
		ReturnURL: stripe.String(g.returnURL),
	}
	params.Context = ctx

	s, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return nil, wrapProviderErr(err)
	}
	return &PortalSession{URL: s.URL}, nil
}

// VerifyWebhook checks the signature header against the raw request body and
// returns the parsed event. The payload must be the exact bytes the provider
// sent; any re-serialization breaks the signature.
func (g *Gateway) VerifyWebhook(payload []byte, sigHeader string) (*Event, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return ParseEvent(event)
}

// wrapProviderErr converts Stripe errors into package sentinels while
// preserving the provider's human-readable message.
func wrapProviderErr(err error) error {
	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		if sErr.Code == stripe.ErrorCodeResourceMissing || sErr.HTTPStatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrCustomerNotFound, sErr.Msg)
		}
		return fmt.Errorf("%w: %s", ErrProvider, sErr.Msg)
	}
	return fmt.Errorf("%w: %v", ErrProvider, err)
}
