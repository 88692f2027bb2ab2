package user

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// SubscriptionState is the subscription-owned slice of a user record. It is
// written as a single atomic update so concurrent webhook deliveries cannot
// interleave partial states.
type SubscriptionState struct {
	Plan     Plan
	HasTrial bool
	EndDate  *time.Time
}

// UpdateFields carries the mutable profile fields for admin edits. Nil
// pointers leave the stored value untouched.
type UpdateFields struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Company   *string
	Role      *Role
}

// Store persists user records. Subscription mutations are atomic single-field
// updates keyed by billing ID or email.
type Store interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id bson.ObjectID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByBillingID(ctx context.Context, billingID string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, id bson.ObjectID, fields UpdateFields) (*User, error)
	Delete(ctx context.Context, id bson.ObjectID) error

	// SetSubscriptionByBillingID applies a reconciled subscription state.
	SetSubscriptionByBillingID(ctx context.Context, billingID string, state SubscriptionState) error
	// SetSubscriptionByEmail applies an optimistic subscription state, used
	// when checkout starts before the first webhook arrives.
	SetSubscriptionByEmail(ctx context.Context, email string, state SubscriptionState) error
	// ClearTrialByEmail persists the downgrade of a lapsed trial.
	ClearTrialByEmail(ctx context.Context, email string) error
	// SetPaymentMethodByEmail records the provider's tokenized payment
	// method reference. Raw card data never reaches the store.
	SetPaymentMethodByEmail(ctx context.Context, email, token string) error
	// AddFile appends an uploaded file reference to the user's record.
	AddFile(ctx context.Context, email string, file FileRef) error
}
