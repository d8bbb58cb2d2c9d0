package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// NonceStore implements ports.NonceStore. Nonces are namespaced per
// gateway, so two gateways reusing the same nonce value do not collide.
type NonceStore struct {
	client *goredis.Client
	prefix string
}

// NewNonceStore creates a Redis-backed nonce store.
func NewNonceStore(client *goredis.Client) *NonceStore {
	return &NonceStore{
		client: client,
		prefix: "nonce:",
	}
}

// CheckAndSet claims the nonce with a single SET NX. Returns true when
// the nonce is fresh, false when a previous callback already used it.
func (s *NonceStore) CheckAndSet(ctx context.Context, gateway string, nonce string, ttl time.Duration) (bool, error) {
	key := s.prefix + gateway + ":" + nonce
	result, err := s.client.SetArgs(ctx, key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			// SET NX lost: the nonce is already claimed.
			return false, nil
		}
		return false, fmt.Errorf("redis nonce check: %w", err)
	}
	return result == "OK", nil
}
