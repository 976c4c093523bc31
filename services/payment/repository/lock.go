package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/piresc/payrelay/internal/pkg/apperrors"
	"github.com/piresc/payrelay/internal/pkg/constants"
	"github.com/piresc/payrelay/internal/pkg/database"
	"github.com/piresc/payrelay/internal/pkg/logger"
)

const (
	defaultLockTTL   = 60 * time.Second
	lockPollInterval = 50 * time.Millisecond
)

// releaseScript deletes the lock only if it is still owned by the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker is a payment.Locker shared by every instance using the same Redis
type RedisLocker struct {
	client *database.RedisClient
	ttl    time.Duration
}

// NewRedisLocker creates a Redis backed locker. ttl bounds how long a crashed
// holder keeps a reference locked.
func NewRedisLocker(client *database.RedisClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl}
}

// Lock polls SET NX until the reference is acquired or ctx is done
func (l *RedisLocker) Lock(ctx context.Context, reference string) (func(), error) {
	key := fmt.Sprintf(constants.KeyPaymentLock, reference)
	token := uuid.New().String()

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock for %s: %w", reference, err)
		}
		if ok {
			return func() { l.release(key, token, reference) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrLockNotAcquired, reference, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) release(key, token, reference string) {
	// the caller's context may already be done
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client.GetClient(), []string{key}, token).Err(); err != nil && err != redis.Nil {
		logger.Warn("Failed to release payment lock",
			logger.Reference(reference),
			logger.Err(err))
	}
}

// LocalLocker is an in-process payment.Locker used when Redis is not configured
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	ch      chan struct{}
	waiters int
}

// NewLocalLocker creates an in-process keyed locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localLock)}
}

// Lock blocks until reference is free or ctx is done
func (l *LocalLocker) Lock(ctx context.Context, reference string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[reference]
	if !ok {
		lk = &localLock{ch: make(chan struct{}, 1)}
		l.locks[reference] = lk
	}
	lk.waiters++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-lk.ch
				l.done(reference, lk)
			})
		}, nil
	case <-ctx.Done():
		l.done(reference, lk)
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrLockNotAcquired, reference, ctx.Err())
	}
}

// done drops the entry once nobody holds or waits for it
func (l *LocalLocker) done(reference string, lk *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.waiters--
	if lk.waiters == 0 {
		delete(l.locks, reference)
	}
}
