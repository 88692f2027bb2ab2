package user

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MemoryStore is an in-memory Store used in tests and local development.
// Records are copied on read and write so callers cannot mutate shared state.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User // keyed by hex object ID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*User)}
}

func (s *MemoryStore) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrEmailTaken
		}
	}

	now := time.Now().UTC()
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Plan == "" {
		u.Plan = PlanNone
	}

	s.users[u.ID.Hex()] = copyUser(u)
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id bson.ObjectID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id.Hex()]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyUser(u), nil
}

func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(func(u *User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *MemoryStore) GetByBillingID(ctx context.Context, billingID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(func(u *User) bool { return u.BillingID != "" && u.BillingID == billingID })
}

func (s *MemoryStore) findLocked(match func(*User) bool) (*User, error) {
	for _, u := range s.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *MemoryStore) List(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, copyUser(u))
	}
	slices.SortFunc(users, func(a, b *User) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return users, nil
}

func (s *MemoryStore) Update(ctx context.Context, id bson.ObjectID, fields UpdateFields) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id.Hex()]
	if !ok {
		return nil, ErrUserNotFound
	}

	if fields.FirstName != nil {
		u.FirstName = *fields.FirstName
	}
	if fields.LastName != nil {
		u.LastName = *fields.LastName
	}
	if fields.Phone != nil {
		u.Phone = *fields.Phone
	}
	if fields.Company != nil {
		u.Company = *fields.Company
	}
	if fields.Role != nil {
		u.Role = *fields.Role
	}
	u.UpdatedAt = time.Now().UTC()

	return copyUser(u), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id.Hex()]; !ok {
		return ErrUserNotFound
	}
	delete(s.users, id.Hex())
	return nil
}

func (s *MemoryStore) SetSubscriptionByBillingID(ctx context.Context, billingID string, state SubscriptionState) error {
	return s.mutate(func(u *User) bool { return u.BillingID != "" && u.BillingID == billingID }, func(u *User) {
		applySubscription(u, state)
	})
}

func (s *MemoryStore) SetSubscriptionByEmail(ctx context.Context, email string, state SubscriptionState) error {
	return s.mutate(func(u *User) bool { return strings.EqualFold(u.Email, email) }, func(u *User) {
		applySubscription(u, state)
	})
}

func (s *MemoryStore) ClearTrialByEmail(ctx context.Context, email string) error {
	return s.mutate(func(u *User) bool { return strings.EqualFold(u.Email, email) }, func(u *User) {
		u.Plan = PlanNone
		u.HasTrial = false
		u.EndDate = nil
	})
}

func (s *MemoryStore) SetPaymentMethodByEmail(ctx context.Context, email, token string) error {
	return s.mutate(func(u *User) bool { return strings.EqualFold(u.Email, email) }, func(u *User) {
		u.PaymentMethodToken = token
	})
}

func (s *MemoryStore) AddFile(ctx context.Context, email string, file FileRef) error {
	return s.mutate(func(u *User) bool { return strings.EqualFold(u.Email, email) }, func(u *User) {
		u.Files = append(u.Files, file)
	})
}

func (s *MemoryStore) mutate(match func(*User) bool, apply func(*User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if match(u) {
			apply(u)
			u.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrUserNotFound
}

func applySubscription(u *User, state SubscriptionState) {
	u.Plan = state.Plan
	u.HasTrial = state.HasTrial
	if state.EndDate != nil {
		end := *state.EndDate
		u.EndDate = &end
	} else {
		u.EndDate = nil
	}
}

func copyUser(u *User) *User {
	cp := *u
	if u.EndDate != nil {
		end := *u.EndDate
		cp.EndDate = &end
	}
	cp.Files = slices.Clone(u.Files)
	return &cp
}
