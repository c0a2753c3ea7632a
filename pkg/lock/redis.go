package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisConfig tunes the distributed lock.
type RedisConfig struct {
	Prefix    string
	TTL       time.Duration
	Wait      time.Duration
	RetryStep time.Duration
	Logger    *zap.Logger
}

// RedisLocker implements Locker with SET NX PX and a token-checked release, so
// several API instances can share one booking store.
type RedisLocker struct {
	client    redisClient
	prefix    string
	ttl       time.Duration
	wait      time.Duration
	retryStep time.Duration
	logger    *zap.Logger
}

// NewRedisLocker builds a RedisLocker around client.
func NewRedisLocker(client redisClient, cfg RedisConfig) *RedisLocker {
	if cfg.Prefix == "" {
		cfg.Prefix = "lock:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 5 * time.Second
	}
	if cfg.RetryStep <= 0 {
		cfg.RetryStep = 25 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &RedisLocker{
		client:    client,
		prefix:    cfg.Prefix,
		ttl:       cfg.TTL,
		wait:      cfg.Wait,
		retryStep: cfg.RetryStep,
		logger:    cfg.Logger,
	}
}

// Lock polls until the key is acquired, the wait budget is spent or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", redisKey, err)
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrNotAcquired, redisKey)
		}

		timer := time.NewTimer(l.retryStep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *RedisLocker) releaser(key, token string) func() {
	return func() {
		// Release must run even when the request context is already cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.client.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
			l.logger.Warn("release lock failed", zap.String("key", key), zap.Error(err))
		}
	}
}
