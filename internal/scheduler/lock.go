package scheduler

import (
	"context"
	"sync"
	"time"

	"jobmatch-workers/internal/common/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker grants short-lived exclusive ownership of a key. Acquire returns
// acquired=false without error when someone else holds the key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}

func alertLockKey(alertID string) string {
	return "alert:lock:" + alertID
}

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-acquired by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX, shared by all instances.
type RedisLocker struct {
	client *redis.Client
	logger logger.Logger
}

func NewRedisLocker(client *redis.Client, log logger.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "alert_lock"}),
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.New().String()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("lock release failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
	return release, true, nil
}

// LocalLocker serialises keys within one process. It is used when Redis is
// not configured; cross-instance safety then relies on the CAS advance.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return nil, false, nil
	}
	l.held[key] = struct{}{}

	release := func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}
	return release, true, nil
}
