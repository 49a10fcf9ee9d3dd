package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "smart-audio/internal/app/errors"
)

// JobLocker grants exclusive access to one job. TryLock never blocks: a held
// lock is reported as ConcurrentModification.
type JobLocker interface {
	TryLock(ctx context.Context, id string) (unlock func(), err error)
}

func lockHeld(id string) error {
	return apperrors.Wrapf(apperrors.ErrConcurrentModification, "a stage is already running for job %s", id)
}

// MemoryLocker is a process local JobLocker
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (l *MemoryLocker) TryLock(_ context.Context, id string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[id]; ok {
		return nil, lockHeld(id)
	}
	l.held[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, id)
			l.mu.Unlock()
		})
	}, nil
}

// unlockScript deletes the key only while it still holds our token
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// renewScript extends the key only while it still holds our token
var renewScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

const defaultLockTTL = time.Minute

// RedisLocker shares job locks between instances through SET NX PX. The
// holder renews the key every third of the TTL until it unlocks.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisLocker creates a locker whose keys expire after ttl without
// renewal, so a crashed instance frees its jobs within ttl
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{client: client, prefix: "smart-audio:job-lock:", ttl: ttl}
}

func (l *RedisLocker) TryLock(ctx context.Context, id string) (func(), error) {
	key := l.prefix + id
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, lockHeld(id)
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go l.keepAlive(key, token, done, stopped)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-stopped
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = unlockScript.Run(ctx, l.client, []string{key}, token).Err()
		})
	}, nil
}

// keepAlive renews key until done closes or the key stops holding token.
// Failed renewals are retried on the next tick.
func (l *RedisLocker) keepAlive(key, token string, done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	interval := l.ttl / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			n, err := renewScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
			cancel()
			if err == nil && n == 0 {
				return
			}
		}
	}
}
