// Package lock provides a redis mutex that keeps the expiry sweep to one
// replica at a time.
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token, so a
// holder whose lease ran out cannot drop a lock another replica now owns.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLock is a single-key lease.  The zero value is not usable.
type RedisLock struct {
	rdb redis.Cmdable
	key string
	ttl time.Duration
}

// NewRedisLock returns a lock on key whose lease lasts ttl.
func NewRedisLock(rdb redis.Cmdable, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{rdb: rdb, key: key, ttl: ttl}
}

// Acquire tries once to take the lease.  ok is false when another holder has
// it; the returned token must be passed to Release.
func (l *RedisLock) Acquire(ctx context.Context) (token string, ok bool, err error) {
	token = uuid.NewString()
	ok, err = l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// Release gives the lease back if token still owns it.
func (l *RedisLock) Release(ctx context.Context, token string) error {
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, token).Err()
}
