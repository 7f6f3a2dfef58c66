package tablelock

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil { t.Fatalf("miniredis: %v", err) }
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, time.Second, 5*time.Millisecond), mr
}

func TestAcquireRelease(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	l := c.TableLock(42)
	ok, err := l.Acquire(ctx, false, 0)
	if err != nil || !ok { t.Fatalf("first acquire: ok=%v err=%v", ok, err) }

	other := c.TableLock(42)
	ok, err = other.Acquire(ctx, false, 0)
	if err != nil { t.Fatalf("second acquire: %v", err) }
	if ok { t.Fatalf("second acquire should contend") }

	if err := l.Release(ctx); err != nil { t.Fatalf("release: %v", err) }

	ok, err = other.Acquire(ctx, false, 0)
	if err != nil || !ok { t.Fatalf("acquire after release: ok=%v err=%v", ok, err) }
}

func TestBlockingAcquireTimesOut(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	l := c.TableLock(7)
	if ok, _ := l.Acquire(ctx, false, 0); !ok { t.Fatalf("setup acquire failed") }

	start := time.Now()
	ok, err := c.TableLock(7).Acquire(ctx, true, 50*time.Millisecond)
	if err != nil { t.Fatalf("blocking acquire: %v", err) }
	if ok { t.Fatalf("expected timeout while lock held") }
	if time.Since(start) < 50*time.Millisecond {
		t.Fatalf("returned before timeout elapsed")
	}
}

func TestBlockingAcquireSucceedsWhenFreed(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	l := c.TableLock(9)
	if ok, _ := l.Acquire(ctx, false, 0); !ok { t.Fatalf("setup acquire failed") }

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = l.Release(context.Background())
	}()

	ok, err := c.TableLock(9).Acquire(ctx, true, time.Second)
	if err != nil || !ok { t.Fatalf("blocking acquire after free: ok=%v err=%v", ok, err) }
}

func TestReleaseAfterExpiryDoesNotStealNewHolder(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	stale := c.TableLock(3)
	if ok, _ := stale.Acquire(ctx, false, 0); !ok { t.Fatalf("setup acquire failed") }

	// TTL expiry simulates a crashed holder.
	mr.FastForward(2 * time.Second)

	fresh := c.TableLock(3)
	if ok, _ := fresh.Acquire(ctx, false, 0); !ok { t.Fatalf("acquire after expiry failed") }

	if err := stale.Release(ctx); err != ErrNotHeld {
		t.Fatalf("stale release: want ErrNotHeld, got %v", err)
	}
	// Fresh holder must still own the lock.
	if ok, _ := c.TableLock(3).Acquire(ctx, false, 0); ok {
		t.Fatalf("fresh holder lost the lock to a stale release")
	}
	if err := fresh.Release(ctx); err != nil { t.Fatalf("fresh release: %v", err) }
}

func TestIndependentTablesDoNotContend(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	for i := int64(0); i < 4; i++ {
		l := c.TableLock(i)
		ok, err := l.Acquire(ctx, false, 0)
		if err != nil || !ok {
			t.Fatalf("table %d acquire: ok=%v err=%v", i, ok, err)
		}
	}
}

func TestAcquireCancelled(t *testing.T) {
	c, _ := newTestClient(t)

	l := c.TableLock(11)
	if ok, _ := l.Acquire(context.Background(), false, 0); !ok { t.Fatalf("setup acquire failed") }

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.TableLock(11).Acquire(ctx, true, time.Minute)
	if err == nil { t.Fatalf("expected context error") }
	if fmt.Sprint(err) != context.DeadlineExceeded.Error() {
		t.Fatalf("unexpected error: %v", err)
	}
}
