package middlewares

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/hero/pkg/id"
)

// RedisLimiter keeps each sliding window in a Redis sorted set scored by
// timestamp, so limits hold across application instances.
type RedisLimiter struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisLimiter creates a limiter backed by client.
func NewRedisLimiter(client redis.UniversalClient) *RedisLimiter {
	return &RedisLimiter{client: client, now: time.Now}
}

// Allow records the action, drops entries older than window, refreshes the
// key's TTL to window plus one second and counts what is left. The four
// commands run in one MULTI/EXEC transaction.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	now := l.now()
	cutoff := strconv.FormatInt(now.Add(-window).UnixMicro(), 10)

	var card *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMicro()), Member: id.NewULID()})
		p.ZRemRangeByScore(ctx, key, "0", cutoff)
		p.Expire(ctx, key, window+time.Second)
		card = p.ZCard(ctx, key)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit %s: %w", key, err)
	}

	n := int(card.Val())
	return Decision{Count: n, Limit: limit, Allowed: n <= limit}, nil
}
