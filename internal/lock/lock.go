// Package lock serializes booking attempts on one vehicle across server
// replicas. The database row lock stays authoritative; this only keeps
// competing requests from piling up on it.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/NinePK/back-car/internal/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the wait timeout passes before the key
// becomes free.
var ErrNotAcquired = errors.New("lock not acquired")

type Locker interface {
	// Acquire blocks until key is held or the wait timeout passes. The
	// returned release func is safe to call once the caller is done.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type nopLocker struct{}

// Nop returns a Locker that never blocks.
func Nop() Locker { return nopLocker{} }

func (nopLocker) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

// releaseScript deletes the key only if it still carries our token, so an
// expired lock taken over by another holder is left alone.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

type RedisLocker struct {
	client  *redis.Client
	ttl     time.Duration
	wait    time.Duration
	retry   time.Duration
	keyBase string
}

func NewRedisLocker(client *redis.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{
		client:  client,
		ttl:     ttl,
		wait:    wait,
		retry:   25 * time.Millisecond,
		keyBase: "backcar:lock:",
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	fullKey := l.keyBase + key
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// The caller's context may already be done by now.
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := releaseScript.Run(releaseCtx, l.client, []string{fullKey}, token).Err(); err != nil {
					logger.Warn("Failed to release lock", "key", fullKey, "error", err)
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

// NewRedisClient connects to Redis and returns nil if the server does not
// answer a ping, so callers can fall back to Nop.
func NewRedisClient(addr, password string, db int) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unavailable, vehicle locks disabled", "addr", addr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}
