package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	accountsCollection = "accounts"
	invoicesCollection = "invoices"
	usersCollection    = "users"
	plansCollection    = "plans"

	maxCASAttempts = 8
)

// MongoStore persists accounts and their invoices.
type MongoStore struct {
	accounts *mongo.Collection
	invoices *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		accounts: db.Collection(accountsCollection),
		invoices: db.Collection(invoicesCollection),
	}
}

// EnsureIndexes creates the lookup indexes. Safe to call on every start.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "subscription.kind", Value: 1}, {Key: "subscription.id", Value: 1}},
	}); err != nil {
		return fmt.Errorf("accounts index: %w", err)
	}
	if _, err := s.invoices.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "accountId", Value: 1}, {Key: "created", Value: -1}},
	}); err != nil {
		return fmt.Errorf("invoices index: %w", err)
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, acc *Account) error {
	if acc == nil || acc.Name == "" {
		return ErrInvalidAccountArg
	}
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	if acc.CreationTime.IsZero() {
		acc.CreationTime = time.Now()
	}
	acc.Recount()
	acc.Version = 1
	if _, err := s.accounts.InsertOne(ctx, acc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrInvalidAccountArg
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (Account, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *MongoStore) FindBySubscription(ctx context.Context, ref SubscriptionRef) (Account, error) {
	if ref.IsZero() {
		return Account{}, ErrNotFound
	}
	return s.findOne(ctx, bson.D{
		{Key: "subscription.kind", Value: ref.Kind},
		{Key: "subscription.id", Value: ref.ID},
	})
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.D) (Account, error) {
	var acc Account
	if err := s.accounts.FindOne(ctx, filter).Decode(&acc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("find account: %w", err)
	}
	return acc, nil
}

// Update reads the account, applies fn and writes every field back with $set
// guarded by the version read. A concurrent writer makes the guard miss and
// the cycle starts over.
func (s *MongoStore) Update(ctx context.Context, id string, fn func(*Account) error) (Account, error) {
	for range maxCASAttempts {
		acc, err := s.Get(ctx, id)
		if err != nil {
			return Account{}, err
		}
		seen := acc.Version
		if err := fn(&acc); err != nil {
			return Account{}, err
		}
		acc.ID = id
		acc.Recount()
		acc.Version = seen + 1

		set, err := setFields(acc)
		if err != nil {
			return Account{}, err
		}
		res, err := s.accounts.UpdateOne(ctx, versionFilter(id, seen), bson.D{{Key: "$set", Value: set}})
		if err != nil {
			return Account{}, fmt.Errorf("update account: %w", err)
		}
		if res.MatchedCount == 1 {
			return acc, nil
		}
		if err := ctx.Err(); err != nil {
			return Account{}, err
		}
	}
	return Account{}, ErrConcurrentUpdate
}

// versionFilter matches documents written outside this store that carry no
// version field as version 0.
func versionFilter(id string, version int64) bson.D {
	if version == 0 {
		return bson.D{
			{Key: "_id", Value: id},
			{Key: "$or", Value: bson.A{
				bson.D{{Key: "version", Value: 0}},
				bson.D{{Key: "version", Value: bson.D{{Key: "$exists", Value: false}}}},
			}},
		}
	}
	return bson.D{{Key: "_id", Value: id}, {Key: "version", Value: version}}
}

// setFields renders v as a $set document without its _id.
func setFields(v any) (bson.D, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	out := doc[:0]
	for _, e := range doc {
		if e.Key != "_id" {
			out = append(out, e)
		}
	}
	return out, nil
}

// UpsertInvoice merges inv with $set and then recomputes invoicesColCount
// from the invoices collection. The recount runs on every delivery, so a
// redelivered event repairs a count whose earlier write failed.
func (s *MongoStore) UpsertInvoice(ctx context.Context, accountID string, inv Invoice) (bool, error) {
	inv.AccountID = accountID
	set, err := setFields(inv)
	if err != nil {
		return false, err
	}
	res, err := s.invoices.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: inv.ID}},
		bson.D{{Key: "$set", Value: set}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("upsert invoice: %w", err)
	}
	created := res.UpsertedCount > 0

	if _, err := s.Update(ctx, accountID, func(a *Account) error {
		n, err := s.invoices.CountDocuments(ctx, bson.D{{Key: "accountId", Value: accountID}})
		if err != nil {
			return fmt.Errorf("count invoices: %w", err)
		}
		a.InvoicesColCount = int(n)
		return nil
	}); err != nil {
		return created, err
	}
	return created, nil
}

// MongoUsers is the users collection.
type MongoUsers struct {
	users *mongo.Collection
}

func NewMongoUsers(db *mongo.Database) *MongoUsers {
	return &MongoUsers{users: db.Collection(usersCollection)}
}

func (m *MongoUsers) EnsureIndexes(ctx context.Context) error {
	_, err := m.users.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}})
	return err
}

func (m *MongoUsers) Get(ctx context.Context, id string) (User, error) {
	return m.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (m *MongoUsers) FindByEmail(ctx context.Context, email string) (User, error) {
	return m.findOne(ctx, bson.D{{Key: "email", Value: strings.ToLower(strings.TrimSpace(email))}})
}

func (m *MongoUsers) findOne(ctx context.Context, filter bson.D) (User, error) {
	var u User
	if err := m.users.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (m *MongoUsers) SetCustomerID(ctx context.Context, userID, customerID string) error {
	res, err := m.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "stripeCustomerId", Value: customerID}}}},
	)
	if err != nil {
		return fmt.Errorf("set customer id: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoUsers) Touch(ctx context.Context, id, email, displayName string) error {
	set := bson.D{{Key: "lastLoginTime", Value: time.Now()}}
	if email != "" {
		set = append(set, bson.E{Key: "email", Value: strings.ToLower(email)})
	}
	if displayName != "" {
		set = append(set, bson.E{Key: "displayName", Value: displayName})
	}
	_, err := m.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	return nil
}

// MongoPlans is the plans collection.
type MongoPlans struct {
	plans *mongo.Collection
}

func NewMongoPlans(db *mongo.Database) *MongoPlans {
	return &MongoPlans{plans: db.Collection(plansCollection)}
}

func (m *MongoPlans) Get(ctx context.Context, id string) (Plan, error) {
	var p Plan
	if err := m.plans.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Plan{}, ErrNotFound
		}
		return Plan{}, fmt.Errorf("find plan: %w", err)
	}
	return p, nil
}

// Put upserts a plan; used by the seed command.
func (m *MongoPlans) Put(ctx context.Context, p Plan) error {
	_, err := m.plans.ReplaceOne(ctx, bson.D{{Key: "_id", Value: p.ID}}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert plan %s: %w", p.ID, err)
	}
	return nil
}
