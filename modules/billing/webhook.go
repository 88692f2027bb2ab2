package billing

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/planfence/planfence/core"
	"github.com/planfence/planfence/svc/billing"
)

// maxWebhookBody caps how much of a webhook payload is read. Provider events
// are small; anything larger is hostile.
const maxWebhookBody = 1 << 20

// handleWebhook verifies and reconciles a provider event. The body is read
// raw, byte-for-byte, before any parsing: the signature covers the exact
// bytes the provider sent. Only a signature failure answers 400; every other
// outcome answers 200 so the provider's at-least-once delivery retries only
// what a retry can fix.
func (m *Module) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		m.log.ErrorContext(r.Context(), "failed to read webhook body", slog.Any("error", err))
		core.JSONError(w, core.ErrBadRequest)
		return
	}

	event, err := m.verifier.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, billing.ErrSignatureInvalid) {
			m.log.WarnContext(r.Context(), "webhook signature rejected", slog.Any("error", err))
			core.JSONError(w, core.NewHTTPError(http.StatusBadRequest, "signature_invalid"))
			return
		}
		// Verified but malformed payload: answer 200, a redelivery of the
		// same bytes cannot parse any better.
		m.log.ErrorContext(r.Context(), "verified webhook payload unusable", slog.Any("error", err))
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := m.reconciler.Apply(r.Context(), event); err != nil {
		m.log.ErrorContext(r.Context(), "webhook reconciliation failed",
			slog.String("event_id", event.ID),
			slog.Any("error", err))
	}

	w.WriteHeader(http.StatusOK)
}
