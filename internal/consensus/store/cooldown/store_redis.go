package cooldown

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"knomee/internal/consensus/ports"
	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
)

// Key layout: cd:<kind>:<address> -> RFC3339Nano failure instant. Entries
// expire from Redis on their own once the longest configurable cooldown has
// safely elapsed.
const redisKeyPrefix = "cd:"

// RedisStore is a Redis-backed cooldown store for multi-instance deployments.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis constructs a Redis-backed cooldown store. The ttl should exceed
// the longest cooldown in use; expired keys simply read as no cooldown.
func NewRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(kind ports.CooldownKind, addr domain.Address) string {
	return fmt.Sprintf("%s%s:%s", redisKeyPrefix, kind, addr)
}

func (s *RedisStore) Set(ctx context.Context, kind ports.CooldownKind, addr domain.Address, at time.Time) error {
	err := s.client.Set(ctx, redisKey(kind, addr), at.UTC().Format(time.RFC3339Nano), s.ttl).Err()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "set cooldown")
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, kind ports.CooldownKind, addr domain.Address) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, redisKey(kind, addr)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "get cooldown")
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "parse cooldown timestamp")
	}
	return at, true, nil
}
