package user

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Plan is a subscription tier. Tiers are ordered: none < basic < pro.
type Plan string

const (
	PlanNone  Plan = "none"
	PlanBasic Plan = "basic"
	PlanPro   Plan = "pro"
)

var planRank = map[Plan]int{
	PlanNone:  0,
	PlanBasic: 1,
	PlanPro:   2,
}

// ParsePlan validates a raw plan string.
func ParsePlan(s string) (Plan, error) {
	p := Plan(s)
	if _, ok := planRank[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPlan, s)
	}
	return p, nil
}

// Allows reports whether a user holding plan p may access content that
// requires the given plan. A higher tier always covers the lower ones.
func (p Plan) Allows(required Plan) bool {
	return planRank[p] >= planRank[required]
}

func (p Plan) String() string { return string(p) }

// Role controls access to the administrative endpoints.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleUser, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// FileRef links a stored document to the user who uploaded it.
type FileRef struct {
	ID   uuid.UUID `bson:"id" json:"id"`
	Name string    `bson:"name" json:"name"`
	Path string    `bson:"path" json:"path"`
}

// User is an account record. Passwords are stored only as bcrypt hashes and
// payment methods only as provider token references.
type User struct {
	ID                  bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Email               string        `bson:"email" json:"email"`
	FirstName           string        `bson:"first_name" json:"first_name"`
	LastName            string        `bson:"last_name" json:"last_name"`
	PasswordHash        string        `bson:"password_hash" json:"-"`
	Phone               string        `bson:"phone,omitempty" json:"phone,omitempty"`
	Company             string        `bson:"company,omitempty" json:"company,omitempty"`
	Role                Role          `bson:"role" json:"role"`
	BillingID           string        `bson:"billing_id,omitempty" json:"-"`
	Plan                Plan          `bson:"plan" json:"plan"`
	HasTrial            bool          `bson:"has_trial" json:"has_trial"`
	EndDate             *time.Time    `bson:"end_date,omitempty" json:"end_date,omitempty"`
	PaymentMethodToken  string        `bson:"payment_method_token,omitempty" json:"-"`
	Files               []FileRef     `bson:"files,omitempty" json:"files,omitempty"`
	CreatedAt           time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time     `bson:"updated_at" json:"updated_at"`
}

// EffectivePlan returns the plan the user actually holds at the given time.
// A paid-until date in the past downgrades the user to none regardless of
// what the stored plan field says.
func (u *User) EffectivePlan(now time.Time) Plan {
	if u.Plan == PlanNone || u.Plan == "" {
		return PlanNone
	}
	if u.EndDate != nil && now.After(*u.EndDate) {
		return PlanNone
	}
	return u.Plan
}

// IsExpired reports whether the user's paid period has lapsed.
func (u *User) IsExpired(now time.Time) bool {
	return u.EndDate != nil && now.After(*u.EndDate)
}

// IsAdmin reports whether the user may manage other accounts.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// FullName joins the user's first and last name for display.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
