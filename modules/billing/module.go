// Package billing exposes the checkout, billing-portal and webhook endpoints.
package billing

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/planfence/planfence/svc/billing"
	"github.com/planfence/planfence/svc/user"
)

// checkoutGateway is the slice of the billing gateway the checkout and
// portal handlers need.
type checkoutGateway interface {
	CreateCheckoutSession(ctx context.Context, billingID, priceID string) (*billing.CheckoutSession, error)
	CreateBillingPortalSession(ctx context.Context, billingID string) (*billing.PortalSession, error)
	Prices() billing.PriceMap
	TrialDays() int64
}

// webhookVerifier verifies a raw webhook payload and returns the parsed
// event.
type webhookVerifier interface {
	VerifyWebhook(payload []byte, sigHeader string) (*billing.Event, error)
}

// eventApplier folds a verified event into the user store.
type eventApplier interface {
	Apply(ctx context.Context, event *billing.Event) error
}

type Module struct {
	store      user.Store
	gateway    checkoutGateway
	verifier   webhookVerifier
	reconciler eventApplier
	log        *slog.Logger
}

func NewModule(store user.Store, gateway checkoutGateway, verifier webhookVerifier, reconciler eventApplier, log *slog.Logger) *Module {
	return &Module{
		store:      store,
		gateway:    gateway,
		verifier:   verifier,
		reconciler: reconciler,
		log:        log,
	}
}

// Register mounts the billing routes. The webhook route must stay outside
// any middleware that consumes or rewrites the request body.
func (m *Module) Register(r chi.Router) {
	r.Route("/billing", func(r chi.Router) {
		r.With(user.RequireAuth()).Post("/checkout", m.handleCheckout)
		r.With(user.RequireAuth()).Post("/portal", m.handlePortal)
		r.Post("/webhook", m.handleWebhook)
	})
}
