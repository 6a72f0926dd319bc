package messaging

import (
	"context"
	"errors"
	"time"

	"leadpipe/pkg/storage"

	"github.com/redis/go-redis/v9"
)

var ErrBusy = errors.New("messaging: too many bulk sends in progress")

// Limiter caps concurrent bulk runs. Release must be called exactly once.
type Limiter interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// RedisLimiter shares a slot counter across API instances.
type RedisLimiter struct {
	rdb   *redis.Client
	key   string
	limit int
	ttl   time.Duration
}

func NewRedisLimiter(rdb *redis.Client, key string, limit int, ttl time.Duration) *RedisLimiter {
	if key == "" {
		key = "leadpipe:bulk_send:slots"
	}
	if limit <= 0 {
		limit = 2
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisLimiter{rdb: rdb, key: key, limit: limit, ttl: ttl}
}

func (l *RedisLimiter) Acquire(ctx context.Context) (func(), error) {
	ok, err := storage.AcquireSlot(ctx, l.rdb, l.key, l.limit, l.ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBusy
	}
	return func() {
		// The run may have been cancelled; release on a fresh context.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = storage.ReleaseSlot(ctx, l.rdb, l.key)
	}, nil
}

// LocalLimiter is the single-process fallback when Redis is not configured.
type LocalLimiter struct {
	slots chan struct{}
}

func NewLocalLimiter(limit int) *LocalLimiter {
	if limit <= 0 {
		limit = 2
	}
	return &LocalLimiter{slots: make(chan struct{}, limit)}
}

func (l *LocalLimiter) Acquire(ctx context.Context) (func(), error) {
	select {
	case l.slots <- struct{}{}:
		return func() { <-l.slots }, nil
	default:
		return nil, ErrBusy
	}
}
