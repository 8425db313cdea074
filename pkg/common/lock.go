package common

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/beam-cloud/onleads/pkg/types"
	"github.com/bsm/redislock"
	"github.com/rs/zerolog/log"
)

// Interval between attempts to obtain a held lock
const LockRetryInterval = 500 * time.Millisecond

// ErrLockNotHeld is reported once a lease expired or was released
var ErrLockNotHeld = redislock.ErrLockNotHeld

// RedisLockOptions bound how long a lock lives and how many times acquisition is
// retried. The lifetime is extended for as long as the lease is held.
type RedisLockOptions struct {
	TtlS    int
	Retries int
}

func (o RedisLockOptions) ttl() time.Duration {
	if o.TtlS <= 0 {
		return 10 * time.Second
	}
	return time.Duration(o.TtlS) * time.Second
}

// Locker is an advisory, keyed mutex
type Locker interface {
	Acquire(ctx context.Context, key string, opts RedisLockOptions) (Lease, error)
}

// Lease is one successful acquisition. Only the lease that obtained a lock can
// release it.
type Lease interface {
	// Held returns a LockError wrapping ErrLockNotHeld once the lock is lost
	Held(ctx context.Context) error
	Release() error
}

// RedisLock holds locks across processes sharing a Redis instance
type RedisLock struct {
	client          *redislock.Client
	refreshInterval time.Duration
}

type RedisLockOption func(*RedisLock)

// WithRefreshInterval sets how often a held lock has its TTL extended. The
// default is half the TTL; a negative interval disables the extension.
func WithRefreshInterval(d time.Duration) RedisLockOption {
	return func(l *RedisLock) { l.refreshInterval = d }
}

func NewRedisLock(client *RedisClient, opts ...RedisLockOption) *RedisLock {
	l := &RedisLock{client: redislock.New(client)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLock) Acquire(ctx context.Context, key string, opts RedisLockOptions) (Lease, error) {
	var retryStrategy redislock.RetryStrategy = redislock.NoRetry()
	if opts.Retries > 0 {
		retryStrategy = redislock.LimitRetry(redislock.LinearBackoff(LockRetryInterval), opts.Retries)
	}

	ttl := opts.ttl()
	lock, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: retryStrategy,
	})
	if err != nil {
		return nil, &types.LockError{Key: key, Err: err}
	}

	lease := &redisLease{
		key:  key,
		lock: lock,
		ttl:  ttl,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	interval := l.refreshInterval
	if interval == 0 {
		interval = ttl / 2
	}
	if interval > 0 {
		go lease.keepAlive(interval)
	} else {
		close(lease.done)
	}
	return lease, nil
}

type redisLease struct {
	key  string
	lock *redislock.Lock
	ttl  time.Duration

	lost     atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func (l *redisLease) keepAlive(interval time.Duration) {
	defer close(l.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			err := l.lock.Refresh(ctx, l.ttl, nil)
			cancel()

			if errors.Is(err, redislock.ErrNotObtained) {
				l.lost.Store(true)
				log.Warn().Str("lock_key", l.key).Msg("lock expired before it could be refreshed")
				return
			}
			if err != nil {
				log.Error().Str("lock_key", l.key).Err(err).Msg("failed to refresh lock")
			}
		}
	}
}

func (l *redisLease) Held(ctx context.Context) error {
	if l.lost.Load() {
		return &types.LockError{Key: l.key, Err: ErrLockNotHeld}
	}
	ttl, err := l.lock.TTL(ctx)
	if err != nil {
		return &types.LockError{Key: l.key, Err: err}
	}
	if ttl <= 0 {
		l.lost.Store(true)
		return &types.LockError{Key: l.key, Err: ErrLockNotHeld}
	}
	return nil
}

// Release stops the refresh and deletes the key if this lease still owns it
func (l *redisLease) Release() error {
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.done

	if err := l.lock.Release(context.Background()); err != nil {
		return &types.LockError{Key: l.key, Err: err}
	}
	return nil
}

// LocalLock holds locks within a single process
type LocalLock struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocalLock() *LocalLock {
	return &LocalLock{slots: make(map[string]chan struct{})}
}

func (l *LocalLock) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

// Acquire waits up to Retries retry intervals for the key. A local lease never
// expires.
func (l *LocalLock) Acquire(ctx context.Context, key string, opts RedisLockOptions) (Lease, error) {
	ch := l.slot(key)
	lease := &localLease{key: key, slot: ch}

	select {
	case ch <- struct{}{}:
		return lease, nil
	default:
	}
	if opts.Retries <= 0 {
		return nil, &types.LockError{Key: key, Err: redislock.ErrNotObtained}
	}

	timer := time.NewTimer(time.Duration(opts.Retries) * LockRetryInterval)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return lease, nil
	case <-timer.C:
		return nil, &types.LockError{Key: key, Err: redislock.ErrNotObtained}
	case <-ctx.Done():
		return nil, &types.LockError{Key: key, Err: ctx.Err()}
	}
}

type localLease struct {
	key      string
	slot     chan struct{}
	released atomic.Bool
}

func (l *localLease) Held(ctx context.Context) error {
	if l.released.Load() {
		return &types.LockError{Key: l.key, Err: ErrLockNotHeld}
	}
	return nil
}

func (l *localLease) Release() error {
	if !l.released.CompareAndSwap(false, true) {
		return &types.LockError{Key: l.key, Err: ErrLockNotHeld}
	}
	<-l.slot
	return nil
}
