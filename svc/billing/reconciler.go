package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/planfence/planfence/svc/user"
)

// subscriptionStore is the slice of the user store the reconciler needs.
type subscriptionStore interface {
	GetByBillingID(ctx context.Context, billingID string) (*user.User, error)
	SetSubscriptionByBillingID(ctx context.Context, billingID string, state user.SubscriptionState) error
}

// Reconciler folds verified subscription events into user records. Every
// event is treated as a full statement of the subscription's current state,
// so replaying an event or receiving duplicates converges on the same stored
// record.
type Reconciler struct {
	store  subscriptionStore
	prices PriceMap
	log    *slog.Logger
}

func NewReconciler(store subscriptionStore, prices PriceMap, log *slog.Logger) *Reconciler {
	return &Reconciler{store: store, prices: prices, log: log}
}

// Apply reconciles one event. Events for unknown customers are logged and
// dropped without error: the provider retries failed deliveries, and a
// customer that does not exist locally will not appear by retrying.
func (r *Reconciler) Apply(ctx context.Context, event *Event) error {
	if event == nil || event.Subscription == nil {
		return nil
	}
	sub := event.Subscription

	u, err := r.store.GetByBillingID(ctx, sub.Customer)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			r.log.WarnContext(ctx, "webhook event for unknown customer dropped",
				slog.String("event_id", event.ID),
				slog.String("customer", sub.Customer))
			return nil
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	state := r.nextState(ctx, event, u)

	if err := r.store.SetSubscriptionByBillingID(ctx, sub.Customer, state); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	r.log.InfoContext(ctx, "subscription reconciled",
		slog.String("event_id", event.ID),
		slog.String("kind", string(event.Kind)),
		slog.String("customer", sub.Customer),
		slog.String("plan", state.Plan.String()))
	return nil
}

// nextState derives the stored subscription state from an event and the
// user's current record. Cancellation takes precedence over everything else
// in the payload.
func (r *Reconciler) nextState(ctx context.Context, event *Event, u *user.User) user.SubscriptionState {
	sub := event.Subscription

	if sub.CanceledAt != nil || event.Kind == EventSubscriptionDeleted {
		return user.SubscriptionState{Plan: user.PlanNone, HasTrial: false, EndDate: nil}
	}

	state := user.SubscriptionState{
		Plan:     u.Plan,
		HasTrial: sub.Status == "trialing",
		EndDate:  u.EndDate,
	}

	if plan, ok := r.prices.PlanFor(sub.PriceID); ok {
		state.Plan = plan
	} else if sub.PriceID != "" {
		r.log.WarnContext(ctx, "event price not in catalog, keeping current plan",
			slog.String("event_id", event.ID),
			slog.String("price_id", sub.PriceID))
	}

	// Only a live subscription moves the paid-until date forward. Other
	// statuses (past_due, unpaid, incomplete) keep the date already earned.
	if sub.CurrentPeriodEnd != nil && (sub.Status == "trialing" || sub.Status == "active") {
		state.EndDate = sub.CurrentPeriodEnd
	}

	return state
}
