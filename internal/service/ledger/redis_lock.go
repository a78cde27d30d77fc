package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

const redisLockPoll = 100 * time.Millisecond

// RedisLocker shares the store-wide lock between service instances that write
// to the same spreadsheet.
type RedisLocker struct {
	client  redis.UniversalClient
	key     string
	timeout time.Duration
	lease   time.Duration
	logger  *zap.Logger
}

// NewRedisLocker builds a RedisLocker. The lease outlives the wait bound so a
// holder that is still working is not overtaken by the next waiter.
func NewRedisLocker(client redis.UniversalClient, key string, timeout time.Duration, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{
		client:  client,
		key:     key,
		timeout: timeout,
		lease:   2 * timeout,
		logger:  logger,
	}
}

func (l *RedisLocker) Lock(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.timeout)

	for {
		ok, err := l.client.SetNX(ctx, l.key, token, l.lease).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire redis lock %s: %w", l.key, err)
		}
		if ok {
			return func() { l.release(token) }, nil
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, ErrLockTimeout
		}
		if wait > redisLockPoll {
			wait = redisLockPoll
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *RedisLocker) release(token string) {
	// The caller's context may already be cancelled; release regardless.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
		l.logger.Warn("release redis lock failed, lease will expire", zap.String("key", l.key), zap.Error(err))
	}
}
