package tablelock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned by Release when the lock key no longer holds
// this acquisition's token (expired TTL or released twice).
var ErrNotHeld = lockErr("lock not held")

type lockErr string

func (e lockErr) Error() string { return string(e) }

// Client hands out named TTL-bound locks backed by a shared Redis.
// The TTL guarantees a crashed holder cannot wedge a table forever.
type Client struct {
	rdb        *redis.Client
	ttl        time.Duration
	retryEvery time.Duration
}

// New wires a lock client over an existing Redis connection. ttl bounds
// how long a holder may keep a lock before it auto-expires; retryEvery
// is the poll interval for blocking acquisitions.
func New(rdb *redis.Client, ttl, retryEvery time.Duration) *Client {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if retryEvery <= 0 {
		retryEvery = 50 * time.Millisecond
	}
	return &Client{rdb: rdb, ttl: ttl, retryEvery: retryEvery}
}

// TableLock returns the mutual-exclusion lock for one table. Each call
// carries a fresh fencing token, so two Lock values for the same table
// contend rather than alias.
func (c *Client) TableLock(tableID int64) *Lock {
	return &Lock{
		c:     c,
		key:   fmt.Sprintf("table:lock:%d", tableID),
		token: uuid.NewString(),
	}
}

// Lock is one acquisition attempt of a named lock. Not safe for
// concurrent use; create one per operation.
type Lock struct {
	c     *Client
	key   string
	token string
}

// Acquire takes the lock. With blocking=false it makes a single
// attempt; otherwise it retries until timeout elapses or ctx is done.
// It returns false, nil when the lock is held elsewhere: callers treat
// that as a transient, retryable condition.
func (l *Lock) Acquire(ctx context.Context, blocking bool, timeout time.Duration) (bool, error) {
	ok, err := l.tryOnce(ctx)
	if err != nil || ok || !blocking {
		return ok, err
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(l.c.retryEvery)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return false, nil
		case <-tick.C:
			ok, err := l.tryOnce(ctx)
			if err != nil || ok {
				return ok, err
			}
		}
	}
}

func (l *Lock) tryOnce(ctx context.Context) (bool, error) {
	ok, err := l.c.rdb.SetNX(ctx, l.key, l.token, l.c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("lock acquire %s: %w", l.key, err)
	}
	return ok, nil
}

// releaseScript deletes the key only while it still carries our token,
// so an expired-and-reacquired lock is never released out from under
// its new holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Release frees the lock. Safe to call with a background context after
// the operation's own context is cancelled: release must happen on
// every exit path.
func (l *Lock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.c.rdb, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("lock release %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}
