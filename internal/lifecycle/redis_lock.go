package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker holds job locks in Redis so that several scheduler processes
// never run the same job at once. Locks expire after ttl in case a holder dies.
type RedisLocker struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	token  func() string
}

// NewRedisLocker returns a locker storing keys as prefix + job name.
func NewRedisLocker(client redis.Cmdable, prefix string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl, token: uuid.NewString}
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, name string) (Lock, error) {
	key := l.prefix + name
	token := l.token()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &redisLock{client: l.client, key: key, token: token}, nil
}

type redisLock struct {
	client redis.Cmdable
	key    string
	token  string
}

func (l *redisLock) Release(ctx context.Context) error {
	deleted, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int64()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	if deleted == 0 {
		return ErrLockLost
	}
	return nil
}
