package redisx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

var ErrLockTimeout = errors.New("lock wait timed out")

// Locker serializes work on one key. Lock blocks until the key is free or
// ctx is done; the returned func releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LocalLocker serializes within one process.
type LocalLocker struct {
	mu   sync.Mutex
	keys map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{keys: map[string]chan struct{}{}}
}

func (l *LocalLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.keys[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.keys[key] = ch
	}
	return ch
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serializes across processes with SET NX PX. The TTL bounds how
// long a crashed holder blocks the key.
type RedisLocker struct {
	rdb    goredis.UniversalClient
	log    *logger.Logger
	prefix string
	ttl    time.Duration
	poll   time.Duration
}

func NewRedisLocker(rdb goredis.UniversalClient, ttl time.Duration, baseLog *logger.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisLocker{
		rdb:    rdb,
		log:    baseLog.With("service", "RedisLocker"),
		prefix: "ahis:lock:",
		ttl:    ttl,
		poll:   250 * time.Millisecond,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	name := l.prefix + key
	token := uuid.NewString()
	for {
		ok, err := l.rdb.SetNX(ctx, name, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctx.Err())
		case <-time.After(l.poll):
		}
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.rdb, []string{name}, token).Err(); err != nil {
				l.log.Warn("redis unlock failed", "key", key, "error", err)
			}
		})
	}, nil
}
