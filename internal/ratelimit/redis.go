package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "otp_rate:"

// RedisStore shares cooldowns across processes and sessions, keyed by
// identity rather than by requester. The key's TTL is the cooldown, so a
// live key means a live window.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Reserve(ctx context.Context, key string, at time.Time, ttl time.Duration) (time.Time, bool, error) {
	key = redisPrefix + key
	val := strconv.FormatInt(at.UnixNano(), 10)

	// The holder can expire between SET NX and GET; one retry covers that.
	for range 2 {
		err := s.client.SetArgs(ctx, key, val, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
		if err == nil {
			return at, true, nil
		}
		if !errors.Is(err, redis.Nil) {
			return time.Time{}, false, fmt.Errorf("redis set nx: %w", err)
		}

		held, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return time.Time{}, false, fmt.Errorf("redis get: %w", err)
		}
		nanos, err := strconv.ParseInt(held, 10, 64)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("parse rate limit value %q: %w", held, err)
		}
		return time.Unix(0, nanos).UTC(), false, nil
	}
	return time.Time{}, false, fmt.Errorf("redis reserve %s: key churned", key)
}
