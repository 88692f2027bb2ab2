package billing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
)

// EventKind is the provider event type, e.g. "customer.subscription.updated".
type EventKind string

const (
	EventSubscriptionCreated EventKind = "customer.subscription.created"
	EventSubscriptionUpdated EventKind = "customer.subscription.updated"
	EventSubscriptionDeleted EventKind = "customer.subscription.deleted"
)

// IsSubscriptionEvent reports whether the event carries a subscription
// payload the reconciler should act on.
func (k EventKind) IsSubscriptionEvent() bool {
	switch k {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		return true
	default:
		return false
	}
}

// SubscriptionData is the subscription state extracted from a webhook event.
type SubscriptionData struct {
	Customer         string
	Status           string
	PriceID          string
	CurrentPeriodEnd *time.Time
	CanceledAt       *time.Time
}

// Event is a verified webhook event. Subscription is nil for event kinds the
// application does not act on.
type Event struct {
	ID           string
	Kind         EventKind
	Subscription *SubscriptionData
}

// subscriptionPayload mirrors the provider's subscription object wire shape.
// The period end lives at the top level in older API versions and on the
// subscription items in newer ones, so both are read.
type subscriptionPayload struct {
	Customer         string `json:"customer"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
	CanceledAt       int64  `json:"canceled_at"`
	Items            struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
			Price            struct {
				ID string `json:"id"`
			} `json:"price"`
			Plan struct {
				ID string `json:"id"`
			} `json:"plan"`
		} `json:"data"`
	} `json:"items"`
}

// ParseEvent extracts the application's view of a verified provider event.
func ParseEvent(event stripe.Event) (*Event, error) {
	e := &Event{
		ID:   event.ID,
		Kind: EventKind(event.Type),
	}
	if !e.Kind.IsSubscriptionEvent() {
		return e, nil
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, fmt.Errorf("%w: event %s has no payload", ErrInvalidEvent, event.ID)
	}

	var payload subscriptionPayload
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: event %s: %v", ErrInvalidEvent, event.ID, err)
	}
	if payload.Customer == "" {
		return nil, fmt.Errorf("%w: event %s has no customer", ErrInvalidEvent, event.ID)
	}

	sub := &SubscriptionData{
		Customer: payload.Customer,
		Status:   payload.Status,
	}

	periodEnd := payload.CurrentPeriodEnd
	if len(payload.Items.Data) > 0 {
		item := payload.Items.Data[0]
		if periodEnd == 0 {
			periodEnd = item.CurrentPeriodEnd
		}
		if item.Price.ID != "" {
			sub.PriceID = item.Price.ID
		} else {
			sub.PriceID = item.Plan.ID
		}
	}
	if periodEnd > 0 {
		t := time.Unix(periodEnd, 0).UTC()
		sub.CurrentPeriodEnd = &t
	}
	if payload.CanceledAt > 0 {
		t := time.Unix(payload.CanceledAt, 0).UTC()
		sub.CanceledAt = &t
	}

	e.Subscription = sub
	return e, nil
}
