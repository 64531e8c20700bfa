package gate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedSource remembers completed payments in Redis. Only positive answers are
// cached since a completed payment never reverts. Redis errors fall through to the
// inner source.
type CachedSource struct {
	inner  Source
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

func NewCachedSource(inner Source, rdb redis.Cmdable, ttl time.Duration, logger *slog.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSource{inner: inner, rdb: rdb, ttl: ttl, prefix: "biometrics:payment:", logger: logger}
}

func (c *CachedSource) HasCompletedPayment(ctx context.Context, userID string) (bool, error) {
	key := c.prefix + userID
	val, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil && val == "1":
		return true, nil
	case err != nil && !errors.Is(err, redis.Nil):
		c.logger.Warn("payment cache read failed", "user_id", userID, "err", err)
	}

	completed, err := c.inner.HasCompletedPayment(ctx, userID)
	if err != nil {
		return false, err
	}
	if completed {
		if err := c.rdb.Set(ctx, key, "1", c.ttl).Err(); err != nil {
			c.logger.Warn("payment cache write failed", "user_id", userID, "err", err)
		}
	}
	return completed, nil
}
