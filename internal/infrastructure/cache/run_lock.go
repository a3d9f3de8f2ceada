package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mpoffice/backend/internal/domain/ingest"
)

// RedisRunLock serializes connector runs across instances. One lock
// key per connector, held for the lock TTL or until released.
// Suitable for horizontally scaled deployments; single-instance
// deployments can use LocalRunLock instead.
type RedisRunLock struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisRunLock creates a Redis-backed run lock. The TTL bounds how
// long a crashed holder can block the connector; it should exceed the
// scheduler's run timeout.
func NewRedisRunLock(client *redis.Client, ttl time.Duration) *RedisRunLock {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisRunLock{
		client:    client,
		keyPrefix: "sync:runlock:",
		ttl:       ttl,
	}
}

// TryAcquire takes the connector's lock if free. The release func
// deletes the key only when this holder still owns it.
func (l *RedisRunLock) TryAcquire(ctx context.Context, connector ingest.Source) (func(), bool, error) {
	key := l.keyPrefix + connector.String()
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}

	release := func() {
		// Compare-and-delete so a holder whose TTL expired cannot
		// release a lock someone else now owns.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		l.client.Eval(releaseCtx, redisCompareAndDelete, []string{key}, token)
	}
	return release, true, nil
}

// redisCompareAndDelete deletes the key only if it still holds the
// caller's token.
const redisCompareAndDelete = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// LocalRunLock is the in-process run lock for single-instance
// deployments.
type LocalRunLock struct {
	mu   sync.Mutex
	held map[ingest.Source]bool
}

// NewLocalRunLock creates an in-process run lock.
func NewLocalRunLock() *LocalRunLock {
	return &LocalRunLock{held: make(map[ingest.Source]bool)}
}

// TryAcquire takes the connector's lock if free.
func (l *LocalRunLock) TryAcquire(_ context.Context, connector ingest.Source) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[connector] {
		return nil, false, nil
	}
	l.held[connector] = true

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, connector)
	}
	return release, true, nil
}
