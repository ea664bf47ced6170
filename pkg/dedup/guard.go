package dedup

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrDuplicate is returned by Acquire when the key was already claimed.
var ErrDuplicate = errors.New("dedup: delivery already processed")

// Config controls how long a processed delivery is remembered.
type Config struct {
	TTL    time.Duration `env:"DEDUP_TTL" envDefault:"72h"`
	Prefix string        `env:"DEDUP_PREFIX" envDefault:"billing:seen:"`
}

// Guard remembers which provider deliveries were already applied.
type Guard struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

func NewGuard(client redis.UniversalClient, cfg Config) *Guard {
	if cfg.TTL <= 0 {
		cfg.TTL = 72 * time.Hour
	}
	return &Guard{client: client, ttl: cfg.TTL, prefix: cfg.Prefix}
}

// Acquire claims key with SET NX. ErrDuplicate means another delivery with
// the same key was applied, or is being applied, within the TTL.
func (g *Guard) Acquire(ctx context.Context, key string) error {
	ok, err := g.client.SetNX(ctx, g.prefix+key, time.Now().Unix(), g.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

// Release forgets key so a redelivery is processed again. Call it when
// processing after Acquire failed.
func (g *Guard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, g.prefix+key).Err()
}
