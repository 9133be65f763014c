// Package lease provides short-lived mutual exclusion between processes.
// It guards background jobs so only one replica runs a sweep at a time;
// correctness of reservations never depends on it.
package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNotOwned = errors.New("lease: not held by this owner")

// ReleaseFunc gives a lease back.
type ReleaseFunc func(ctx context.Context) error

// Locker hands out named leases that expire after ttl.
// ok is false when another holder owns the key.
type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (release ReleaseFunc, ok bool, err error)
}

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// RedisLocker implements Locker with SET NX PX and a compare-and-delete release.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client, prefix: "lease:"}
}

func (l *RedisLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, bool, error) {
	lockKey := l.prefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		n, err := l.client.Eval(ctx, releaseScript, []string{lockKey}, token).Int()
		if err != nil {
			return fmt.Errorf("release lease %s: %w", key, err)
		}
		if n == 0 {
			return ErrNotOwned
		}
		return nil
	}
	return release, true, nil
}

// Local is an in-process Locker for single-replica deployments and tests.
type Local struct {
	mu     chan struct{}
	leases map[string]localLease
	now    func() time.Time
}

type localLease struct {
	token   string
	expires time.Time
}

func NewLocal() *Local {
	l := &Local{
		mu:     make(chan struct{}, 1),
		leases: make(map[string]localLease),
		now:    time.Now,
	}
	return l
}

func (l *Local) TryAcquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, bool, error) {
	select {
	case l.mu <- struct{}{}:
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
	defer func() { <-l.mu }()

	now := l.now()
	if cur, ok := l.leases[key]; ok && now.Before(cur.expires) {
		return nil, false, nil
	}

	token := uuid.NewString()
	l.leases[key] = localLease{token: token, expires: now.Add(ttl)}

	release := func(ctx context.Context) error {
		select {
		case l.mu <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
		defer func() { <-l.mu }()

		cur, ok := l.leases[key]
		if !ok || cur.token != token {
			return ErrNotOwned
		}
		delete(l.leases, key)
		return nil
	}
	return release, true, nil
}
