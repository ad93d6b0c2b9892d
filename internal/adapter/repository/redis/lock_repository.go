package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/milestone-notifier/internal/adapter/metrics"
	"github.com/V4T54L/milestone-notifier/internal/domain"
)

const (
	lockKeyPrefix        = "milestone-notifier:lock:"
	defaultRetryInterval = 25 * time.Millisecond
	releaseTimeout       = 2 * time.Second
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// KeyLocker implements domain.KeyLocker with SET NX PX locks so several notifier
// instances never send the same (shipment, attribute) concurrently. While Redis is
// unreachable it hands out locks from the in-process fallback.
type KeyLocker struct {
	client        *redis.Client
	logger        *slog.Logger
	fallback      domain.KeyLocker
	metrics       *metrics.NotifierMetrics
	ttl           time.Duration
	retryInterval time.Duration
	isAvailable   atomic.Bool
}

// NewKeyLocker creates a Redis-backed locker. ttl bounds how long a crashed holder
// can block a key. m may be nil.
func NewKeyLocker(client *redis.Client, logger *slog.Logger, ttl time.Duration, fallback domain.KeyLocker, m *metrics.NotifierMetrics) *KeyLocker {
	l := &KeyLocker{
		client:        client,
		logger:        logger.With("component", "redis_key_locker"),
		fallback:      fallback,
		metrics:       m,
		ttl:           ttl,
		retryInterval: defaultRetryInterval,
	}
	l.isAvailable.Store(true) // Assume available initially
	return l
}

// MarkUnavailable switches to the fallback until the health check sees Redis again.
func (l *KeyLocker) MarkUnavailable(err error) {
	if l.isAvailable.CompareAndSwap(true, false) {
		l.logger.Warn("Redis unavailable, using in-process locks", "error", err)
	}
}

// IsAvailable reports whether locks are currently taken in Redis.
func (l *KeyLocker) IsAvailable() bool {
	return l.isAvailable.Load()
}

// StartHealthCheck pings Redis every interval and flips availability.
func (l *KeyLocker) StartHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping Redis health check")
			return
		case <-ticker.C:
			if err := l.client.Ping(ctx).Err(); err != nil {
				if ctx.Err() == nil {
					l.MarkUnavailable(err)
				}
				continue
			}
			if l.isAvailable.CompareAndSwap(false, true) {
				l.logger.Info("Redis connection recovered, using distributed locks")
			}
		}
	}
}

// Lock acquires key, polling until it is free or ctx is done.
func (l *KeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	if !l.isAvailable.Load() {
		return l.lockFallback(ctx, key)
	}

	redisKey := lockKeyPrefix + key
	token := uuid.NewString()

	for {
		acquired, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if isNetworkError(err) {
				l.MarkUnavailable(err)
				return l.lockFallback(ctx, key)
			}
			return nil, fmt.Errorf("failed to SETNX lock %s: %w", redisKey, err)
		}
		if acquired {
			return l.releaser(redisKey, token), nil
		}

		timer := time.NewTimer(l.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *KeyLocker) lockFallback(ctx context.Context, key string) (func(), error) {
	if l.fallback == nil {
		return nil, errors.New("redis is unavailable and no fallback locker is configured")
	}
	if l.metrics != nil {
		l.metrics.LockFallbacks.Inc()
	}
	return l.fallback.Lock(ctx, key)
}

func (l *KeyLocker) releaser(redisKey, token string) func() {
	var released atomic.Bool
	return func() {
		if !released.CompareAndSwap(false, true) {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
			// The TTL frees the key eventually.
			l.logger.Warn("failed to release lock", "key", redisKey, "error", err)
		}
	}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed)
}
