package invite

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/accountbilling/svc/account"
)

type Store interface {
	Create(ctx context.Context, inv Invite) error
	Get(ctx context.Context, id string) (Invite, error)
	Delete(ctx context.Context, id string) error
}

type MemoryStore struct {
	mu      sync.RWMutex
	invites map[string]Invite
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{invites: make(map[string]Invite)}
}

func (s *MemoryStore) Create(_ context.Context, inv Invite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invites[inv.ID] = inv
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invites[id]
	if !ok {
		return Invite{}, account.ErrNotFound
	}
	return inv, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.invites, id)
	return nil
}

const invitesCollection = "invites"

type MongoStore struct {
	invites *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{invites: db.Collection(invitesCollection)}
}

func (s *MongoStore) Create(ctx context.Context, inv Invite) error {
	if _, err := s.invites.InsertOne(ctx, inv); err != nil {
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (Invite, error) {
	var inv Invite
	if err := s.invites.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&inv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Invite{}, account.ErrNotFound
		}
		return Invite{}, fmt.Errorf("find invite: %w", err)
	}
	return inv, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if _, err := s.invites.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return fmt.Errorf("delete invite: %w", err)
	}
	return nil
}
