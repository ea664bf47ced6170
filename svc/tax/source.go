package tax

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Source lists every configured tax rate ordered by id.
type Source interface {
	List(ctx context.Context) ([]Rate, error)
}

type MemorySource struct {
	mu    sync.RWMutex
	rates map[string]Rate
}

func NewMemorySource(rates ...Rate) *MemorySource {
	s := &MemorySource{rates: make(map[string]Rate, len(rates))}
	for _, r := range rates {
		s.rates[r.ID] = r
	}
	return s
}

func (s *MemorySource) List(context.Context) ([]Rate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Rate, 0, len(s.rates))
	for _, r := range s.rates {
		r.Applicable = slices.Clone(r.Applicable)
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Rate) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

const taxesCollection = "taxes"

type MongoSource struct {
	taxes *mongo.Collection
}

func NewMongoSource(db *mongo.Database) *MongoSource {
	return &MongoSource{taxes: db.Collection(taxesCollection)}
}

func (s *MongoSource) List(ctx context.Context) ([]Rate, error) {
	cur, err := s.taxes.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list tax rates: %w", err)
	}
	var rates []Rate
	if err := cur.All(ctx, &rates); err != nil {
		return nil, fmt.Errorf("decode tax rates: %w", err)
	}
	return rates, nil
}

// Put upserts a rate; used by the seed command.
func (s *MongoSource) Put(ctx context.Context, r Rate) error {
	_, err := s.taxes.ReplaceOne(ctx, bson.D{{Key: "_id", Value: r.ID}}, r, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert tax rate %s: %w", r.ID, err)
	}
	return nil
}
