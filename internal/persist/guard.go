package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
)

var ErrWriterBusy = errors.New("another writer holds the snapshot lock")

// Guard serializes writers that share one backend across processes.
type Guard interface {
	Acquire(ctx context.Context) (release func(context.Context) error, err error)
}

type NoopGuard struct{}

func (NoopGuard) Acquire(context.Context) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

type RedisGuard struct {
	locker *redislock.Client
	key    string
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisGuard locks key for at most ttl per transaction, retrying for up to
// wait before giving up with ErrWriterBusy.
func NewRedisGuard(client redislock.RedisClient, key string, ttl time.Duration, wait time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisGuard{locker: redislock.New(client), key: key, ttl: ttl, wait: wait}
}

func (g *RedisGuard) Acquire(ctx context.Context) (func(context.Context) error, error) {
	var opts *redislock.Options
	if g.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.wait)
		defer cancel()
		opts = &redislock.Options{RetryStrategy: redislock.LinearBackoff(100 * time.Millisecond)}
	}
	lock, err := g.locker.Obtain(ctx, g.key, g.ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s", ErrWriterBusy, g.key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", g.key, err)
	}
	return func(ctx context.Context) error {
		err := lock.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			return nil
		}
		return err
	}, nil
}
