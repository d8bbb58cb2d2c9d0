package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"coursepay/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// IdempotencyCache implements ports.IdempotencyCache using Redis. It
// caches finished ledger entries keyed by operation key so replays can
// be answered without touching Postgres.
type IdempotencyCache struct {
	client *goredis.Client
	prefix string
}

// NewIdempotencyCache creates a new Redis-backed idempotency cache.
func NewIdempotencyCache(client *goredis.Client) *IdempotencyCache {
	return &IdempotencyCache{
		client: client,
		prefix: "idempotency:",
	}
}

// Get retrieves a cached ledger entry by operation key.
// Returns nil, nil if the key does not exist.
func (c *IdempotencyCache) Get(ctx context.Context, key string) (*domain.LedgerEntry, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis idempotency get: %w", err)
	}
	entry := &domain.LedgerEntry{}
	if err := json.Unmarshal(val, entry); err != nil {
		return nil, fmt.Errorf("decode cached entry: %w", err)
	}
	return entry, nil
}

// Set stores a ledger entry in the idempotency cache with TTL.
func (c *IdempotencyCache) Set(ctx context.Context, key string, entry *domain.LedgerEntry, ttl time.Duration) error {
	val, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cached entry: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, val, ttl).Err(); err != nil {
		return fmt.Errorf("redis idempotency set: %w", err)
	}
	return nil
}
