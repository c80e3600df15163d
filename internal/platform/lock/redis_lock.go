// Package lock provides a Redis-backed mutex for work that must run on one replica at a time.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

var ErrNotHeld = errors.New("lock is no longer held")

// RedisLock hands out leases with SET NX PX
type RedisLock struct {
	client   redis.Cmdable
	logger   *slog.Logger
	newToken func() string
}

// Lease is a held lock
type Lease struct {
	client redis.Cmdable
	key    string
	token  string
}

func NewRedisLock(client redis.Cmdable, logger *slog.Logger) *RedisLock {
	return &RedisLock{
		client:   client,
		logger:   logger,
		newToken: func() string { return uuid.NewString() },
	}
}

// TryAcquire takes the lock for ttl. It reports false without error when another holder has it.
func (l *RedisLock) TryAcquire(ctx context.Context, key string, ttl time.Duration) (*Lease, bool, error) {
	token := l.newToken()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		l.logger.Debug("Lock held elsewhere", "key", key)
		return nil, false, nil
	}
	return &Lease{client: l.client, key: key, token: token}, true, nil
}

// Release frees the lock if it was not taken over after expiry
func (s *Lease) Release(ctx context.Context) error {
	deleted, err := s.client.Eval(ctx, releaseScript, []string{s.key}, s.token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", s.key, err)
	}
	if deleted == 0 {
		return ErrNotHeld
	}
	return nil
}

// WithLock runs fn while holding key. It reports false, without running fn, when the lock is held
// elsewhere. A failed release is logged, since the lease expires on its own.
func (l *RedisLock) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) (bool, error) {
	lease, ok, err := l.TryAcquire(ctx, key, ttl)
	if err != nil || !ok {
		return false, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			l.logger.Warn("Failed to release lock", "key", key, "error", err)
		}
	}()

	return true, fn(ctx)
}
