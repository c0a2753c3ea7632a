package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerSerializesSameKey(t *testing.T) {
	locker := NewLocalLocker()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(context.Background(), "instructor-1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, locker.size())
}

func TestLocalLockerDifferentKeysDoNotBlock(t *testing.T) {
	locker := NewLocalLocker()
	releaseA, err := locker.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	releaseB, err := locker.Lock(ctx, "b")
	require.NoError(t, err)
	releaseB()
}

func TestLocalLockerHonoursContext(t *testing.T) {
	locker := NewLocalLocker()
	release, err := locker.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "a")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()
	assert.Equal(t, 0, locker.size())
}

type fakeRedis struct {
	mu      sync.Mutex
	owners  map[string]string
	evalErr error
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, taken := f.owners[key]; taken {
		return redis.NewBoolResult(false, nil)
	}
	f.owners[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.evalErr != nil {
		return redis.NewCmdResult(nil, f.evalErr)
	}
	if f.owners[keys[0]] == args[0].(string) {
		delete(f.owners, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func TestRedisLockerAcquireAndRelease(t *testing.T) {
	client := &fakeRedis{owners: map[string]string{}}
	locker := NewRedisLocker(client, RedisConfig{Prefix: "booking:", Wait: 30 * time.Millisecond, RetryStep: 5 * time.Millisecond})

	release, err := locker.Lock(context.Background(), "instructor-1")
	require.NoError(t, err)
	assert.Contains(t, client.owners, "booking:instructor-1")

	_, err = locker.Lock(context.Background(), "instructor-1")
	require.ErrorIs(t, err, ErrNotAcquired)

	release()
	assert.NotContains(t, client.owners, "booking:instructor-1")

	release2, err := locker.Lock(context.Background(), "instructor-1")
	require.NoError(t, err)
	release2()
}

func TestRedisLockerReleaseKeepsForeignOwner(t *testing.T) {
	client := &fakeRedis{owners: map[string]string{}}
	locker := NewRedisLocker(client, RedisConfig{})

	release, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	client.owners["lock:k"] = "someone-else"
	release()
	assert.Equal(t, "someone-else", client.owners["lock:k"])
}
