package billing

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/planfence/planfence/core"
	"github.com/planfence/planfence/pkg/binder"
	"github.com/planfence/planfence/svc/billing"
	"github.com/planfence/planfence/svc/user"
)

type checkoutRequest struct {
	Plan string `json:"plan" form:"plan"`
}

type checkoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url,omitempty"`
}

type portalResponse struct {
	URL string `json:"url"`
}

// handleCheckout starts a hosted checkout and optimistically grants the
// trial locally. The webhook later confirms or corrects this state; until
// then local state may run briefly ahead of provider truth.
func (m *Module) handleCheckout(w http.ResponseWriter, r *http.Request) {
	u, _ := user.FromContext(r.Context())

	var req checkoutRequest
	if err := binder.Bind(r, &req); err != nil {
		core.JSONError(w, core.ErrBadRequest)
		return
	}

	plan, err := user.ParsePlan(req.Plan)
	if err != nil || plan == user.PlanNone {
		verr := core.ValidationError{}
		verr.Add("plan", "plan must be basic or pro")
		core.JSONError(w, verr)
		return
	}

	priceID, ok := m.gateway.Prices().PriceFor(plan)
	if !ok {
		core.JSONError(w, core.ErrBadRequest)
		return
	}

	sess, err := m.gateway.CreateCheckoutSession(r.Context(), u.BillingID, priceID)
	if err != nil {
		m.respondProviderError(w, r, err)
		return
	}

	endDate := time.Now().UTC().Add(time.Duration(m.gateway.TrialDays()) * 24 * time.Hour)
	if err := m.store.SetSubscriptionByEmail(r.Context(), u.Email, user.SubscriptionState{
		Plan:     plan,
		HasTrial: true,
		EndDate:  &endDate,
	}); err != nil {
		m.log.ErrorContext(r.Context(), "failed to apply optimistic trial state",
			slog.String("email", u.Email),
			slog.Any("error", err))
	}

	core.JSON(w, http.StatusOK, checkoutResponse{SessionID: sess.ID, URL: sess.URL})
}

func (m *Module) handlePortal(w http.ResponseWriter, r *http.Request) {
	u, _ := user.FromContext(r.Context())

	sess, err := m.gateway.CreateBillingPortalSession(r.Context(), u.BillingID)
	if err != nil {
		m.respondProviderError(w, r, err)
		return
	}

	core.JSON(w, http.StatusOK, portalResponse{URL: sess.URL})
}

// respondProviderError surfaces the provider's message to the caller as a
// 400, which this domain accepts for checkout and portal creation.
func (m *Module) respondProviderError(w http.ResponseWriter, r *http.Request, err error) {
	m.log.ErrorContext(r.Context(), "billing provider call failed", slog.Any("error", err))

	if errors.Is(err, billing.ErrCustomerNotFound) {
		core.JSONErrorMessage(w, http.StatusBadRequest, "customer_not_found", err.Error())
		return
	}
	core.JSONErrorMessage(w, http.StatusBadRequest, "provider_error", err.Error())
}
