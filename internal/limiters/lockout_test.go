package limiters

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg LockoutConfig) (*miniredis.Miniredis, *LockoutLimiter) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewLockoutLimiter(client, cfg)
}

func defaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		Enabled:   true,
		Threshold: 5,
		Window:    15 * time.Minute,
		Duration:  15 * time.Minute,
	}
}

func TestLockTriggersAtThreshold(t *testing.T) {
	_, lim := newTestLimiter(t, defaultLockoutConfig())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		locked, err := lim.RecordFailure(ctx, "a@b.com")
		if err != nil {
			t.Fatal(err)
		}
		if locked {
			t.Fatalf("locked after %d failures", i+1)
		}
	}

	locked, err := lim.RecordFailure(ctx, "a@b.com")
	if err != nil {
		t.Fatal(err)
	}
	if !locked {
		t.Fatal("not locked at threshold")
	}

	remaining, err := lim.Check(ctx, "a@b.com")
	if err != nil {
		t.Fatal(err)
	}
	if remaining <= 0 || remaining > 15*time.Minute {
		t.Fatalf("remaining lockout = %v", remaining)
	}
}

func TestLockExpires(t *testing.T) {
	mr, lim := newTestLimiter(t, defaultLockoutConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := lim.RecordFailure(ctx, "a@b.com"); err != nil {
			t.Fatal(err)
		}
	}

	mr.FastForward(16 * time.Minute)

	remaining, err := lim.Check(ctx, "a@b.com")
	if err != nil {
		t.Fatal(err)
	}
	if remaining != 0 {
		t.Fatalf("lock survived expiry: %v", remaining)
	}

	attempts, err := lim.Attempts(ctx, "a@b.com")
	if err != nil {
		t.Fatal(err)
	}
	if attempts != 0 {
		t.Fatalf("counter survived the quiet window: %d", attempts)
	}
}

func TestWindowSlidesOnEachFailure(t *testing.T) {
	mr, lim := newTestLimiter(t, defaultLockoutConfig())
	ctx := context.Background()

	// Failures spaced under the window keep the counter alive even though
	// the first failure is older than the window itself.
	for i := 0; i < 4; i++ {
		if _, err := lim.RecordFailure(ctx, "a@b.com"); err != nil {
			t.Fatal(err)
		}
		mr.FastForward(10 * time.Minute)
	}

	locked, err := lim.RecordFailure(ctx, "a@b.com")
	if err != nil {
		t.Fatal(err)
	}
	if !locked {
		t.Fatal("spaced failures under the window did not accumulate")
	}
}

func TestResetClearsCounterAndLock(t *testing.T) {
	_, lim := newTestLimiter(t, defaultLockoutConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := lim.RecordFailure(ctx, "a@b.com"); err != nil {
			t.Fatal(err)
		}
	}

	if err := lim.Reset(ctx, "a@b.com"); err != nil {
		t.Fatal(err)
	}

	remaining, err := lim.Check(ctx, "a@b.com")
	if err != nil {
		t.Fatal(err)
	}
	if remaining != 0 {
		t.Fatalf("lock survived Reset: %v", remaining)
	}

	attempts, err := lim.Attempts(ctx, "a@b.com")
	if err != nil {
		t.Fatal(err)
	}
	if attempts != 0 {
		t.Fatalf("counter survived Reset: %d", attempts)
	}
}

func TestEmailsAreIndependent(t *testing.T) {
	_, lim := newTestLimiter(t, defaultLockoutConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := lim.RecordFailure(ctx, "a@b.com"); err != nil {
			t.Fatal(err)
		}
	}

	remaining, err := lim.Check(ctx, "c@d.com")
	if err != nil {
		t.Fatal(err)
	}
	if remaining != 0 {
		t.Fatal("lock leaked across emails")
	}
}

func TestDisabledLimiterIsInert(t *testing.T) {
	_, lim := newTestLimiter(t, LockoutConfig{Enabled: false, Threshold: 1})
	ctx := context.Background()

	locked, err := lim.RecordFailure(ctx, "a@b.com")
	if err != nil {
		t.Fatal(err)
	}
	if locked {
		t.Fatal("disabled limiter locked")
	}

	remaining, err := lim.Check(ctx, "a@b.com")
	if err != nil {
		t.Fatal(err)
	}
	if remaining != 0 {
		t.Fatal("disabled limiter reported lock")
	}
}
