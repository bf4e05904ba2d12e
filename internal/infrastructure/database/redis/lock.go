package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
)

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeConflict, "failed to acquire lock")
	ErrLockNotHeld     = errors.New(errors.ErrCodeConflict, "lock not held by this owner")
)

// Mutex is a single-owner lock held as a key with a random token.  Only the
// holder of the token can release or extend it.
type Mutex struct {
	client     *Client
	key        string
	token      string
	ttl        time.Duration
	retryDelay time.Duration
	retryCount int
	logger     logging.Logger
}

type LockOption func(*Mutex)

func WithLockTTL(ttl time.Duration) LockOption { return func(m *Mutex) { m.ttl = ttl } }

func WithRetry(count int, delay time.Duration) LockOption {
	return func(m *Mutex) { m.retryCount, m.retryDelay = count, delay }
}

// NewMutex builds an unlocked mutex named name.
func NewMutex(client *Client, name string, log logging.Logger, opts ...LockOption) *Mutex {
	if log == nil {
		log = logging.NewNopLogger()
	}
	m := &Mutex{
		client:     client,
		key:        "medkg:lock:" + name,
		token:      uuid.NewString(),
		ttl:        time.Minute,
		retryDelay: 200 * time.Millisecond,
		retryCount: 10,
		logger:     log.Named("lock"),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// TryLock makes one attempt.
func (m *Mutex) TryLock(ctx context.Context) (bool, error) {
	ok, err := m.client.SetNX(ctx, m.key, m.token, m.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "lock attempt failed")
	}
	return ok, nil
}

// Lock retries TryLock until it succeeds, the retries run out or ctx ends.
func (m *Mutex) Lock(ctx context.Context) error {
	for attempt := 0; ; attempt++ {
		ok, err := m.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if attempt >= m.retryCount {
			return ErrLockNotAcquired.WithDetail(m.key)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.retryDelay):
		}
	}
}

// Unlock releases the lock if this mutex still holds it.
func (m *Mutex) Unlock(ctx context.Context) error {
	n, err := m.client.runScript(ctx, unlockScript, []string{m.key}, m.token).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "unlock failed")
	}
	if n == 0 {
		m.logger.Warn("lock released by expiry before unlock", logging.String("key", m.key))
		return ErrLockNotHeld.WithDetail(m.key)
	}
	return nil
}

// Extend pushes the expiry to ttl from now.
func (m *Mutex) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	n, err := m.client.runScript(ctx, extendScript, []string{m.key}, m.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "extend failed")
	}
	return n == 1, nil
}

// TTL returns the remaining lifetime of the lock key.
func (m *Mutex) TTL(ctx context.Context) (time.Duration, error) {
	return m.client.PTTL(ctx, m.key).Result()
}

//Personal.AI order the ending
