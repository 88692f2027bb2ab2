package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const usersCollection = "users"

// MongoStore implements Store backed by a MongoDB collection.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a Store on the "users" collection of the given
// database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique email index and the billing ID lookup
// index. Safe to call repeatedly.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "billing_id", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, u *User) error {
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

	if _, err := s.coll.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *MongoStore) GetByID(ctx context.Context, id bson.ObjectID) (*User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoStore) GetByBillingID(ctx context.Context, billingID string) (*User, error) {
	return s.findOne(ctx, bson.M{"billing_id": billingID})
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var u User
	if err := s.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &u, nil
}

func (s *MongoStore) List(ctx context.Context) ([]*User, error) {
	cursor, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var users []*User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return users, nil
}

func (s *MongoStore) Update(ctx context.Context, id bson.ObjectID, fields UpdateFields) (*User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if fields.FirstName != nil {
		set["first_name"] = *fields.FirstName
	}
	if fields.LastName != nil {
		set["last_name"] = *fields.LastName
	}
	if fields.Phone != nil {
		set["phone"] = *fields.Phone
	}
	if fields.Company != nil {
		set["company"] = *fields.Company
	}
	if fields.Role != nil {
		set["role"] = *fields.Role
	}

	var u User
	err := s.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &u, nil
}

func (s *MongoStore) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if res.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *MongoStore) SetSubscriptionByBillingID(ctx context.Context, billingID string, state SubscriptionState) error {
	return s.setSubscription(ctx, bson.M{"billing_id": billingID}, state)
}

func (s *MongoStore) SetSubscriptionByEmail(ctx context.Context, email string, state SubscriptionState) error {
	return s.setSubscription(ctx, bson.M{"email": email}, state)
}

func (s *MongoStore) setSubscription(ctx context.Context, filter bson.M, state SubscriptionState) error {
	set := bson.M{
		"plan":       state.Plan,
		"has_trial":  state.HasTrial,
		"updated_at": time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if state.EndDate != nil {
		set["end_date"] = *state.EndDate
	} else {
		update["$unset"] = bson.M{"end_date": ""}
	}

	return s.updateOne(ctx, filter, update)
}

func (s *MongoStore) ClearTrialByEmail(ctx context.Context, email string) error {
	update := bson.M{
		"$set": bson.M{
			"plan":       PlanNone,
			"has_trial":  false,
			"updated_at": time.Now().UTC(),
		},
		"$unset": bson.M{"end_date": ""},
	}
	return s.updateOne(ctx, bson.M{"email": email}, update)
}

func (s *MongoStore) SetPaymentMethodByEmail(ctx context.Context, email, token string) error {
	update := bson.M{"$set": bson.M{
		"payment_method_token": token,
		"updated_at":           time.Now().UTC(),
	}}
	return s.updateOne(ctx, bson.M{"email": email}, update)
}

func (s *MongoStore) AddFile(ctx context.Context, email string, file FileRef) error {
	update := bson.M{
		"$push": bson.M{"files": file},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	return s.updateOne(ctx, bson.M{"email": email}, update)
}

func (s *MongoStore) updateOne(ctx context.Context, filter, update bson.M) error {
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
