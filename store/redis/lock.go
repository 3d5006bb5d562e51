// Package redis guards execution across scanner processes sharing a wallet.
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/michaelpento.lv/arbscanner/config"
)

// unlockLua deletes the key only while it still holds our token
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// Locker is a single-key SETNX lock with a TTL
type Locker struct {
	rdb    *redis.Client
	key    string
	ttl    time.Duration
	unlock *redis.Script

	mu    sync.Mutex
	token string
}

// Dial connects to Redis and verifies the connection
func Dial(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}

// NewLocker creates a lock on key. The TTL bounds how long a crashed holder
// can block other processes.
func NewLocker(rdb *redis.Client, key string, ttl time.Duration) *Locker {
	return &Locker{
		rdb:    rdb,
		key:    key,
		ttl:    ttl,
		unlock: redis.NewScript(unlockLua),
	}
}

// TryLock takes the lock without waiting
func (l *Locker) TryLock(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: acquire lock %s: %w", l.key, err)
	}
	if !ok {
		return false, nil
	}

	l.mu.Lock()
	l.token = token
	l.mu.Unlock()
	return true, nil
}

// Unlock releases the lock if this Locker still holds it
func (l *Locker) Unlock(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()

	if token == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := l.unlock.Run(ctx, l.rdb, []string{l.key}, token).Err(); err != nil {
		return fmt.Errorf("redis: release lock %s: %w", l.key, err)
	}
	return nil
}
