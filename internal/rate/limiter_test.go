package rate

import (
	"errors"
	"testing"
	"time"
)

func TestLimiterBurstThenRefill(t *testing.T) {
	l := New(Config{Every: time.Second, Burst: 2})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		if err := l.Check("s1", now); err != nil {
			t.Fatalf("attempt %d: unexpected %v", i, err)
		}
	}
	if err := l.Check("s1", now); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.Check("s2", now); err != nil {
		t.Fatalf("keys must not share buckets: %v", err)
	}
	if err := l.Check("s1", now.Add(time.Second)); err != nil {
		t.Fatalf("expected refill after one interval: %v", err)
	}
}

func TestLimiterDisabled(t *testing.T) {
	l := New(Config{})
	now := time.Now()
	for i := 0; i < 100; i++ {
		if err := l.Check("s1", now); err != nil {
			t.Fatalf("disabled limiter rejected call %d", i)
		}
	}
	if l.Len() != 0 {
		t.Fatal("disabled limiter should not track keys")
	}

	var nilLimiter *Limiter
	if err := nilLimiter.Check("s1", now); err != nil {
		t.Fatal("nil limiter should allow")
	}
}

func TestLimiterPruneAndForget(t *testing.T) {
	l := New(Config{Every: time.Second, Burst: 1})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_ = l.Check("old", now)
	_ = l.Check("new", now.Add(10*time.Minute))
	if n := l.Prune(now.Add(11*time.Minute), 5*time.Minute); n != 1 {
		t.Fatalf("expected 1 pruned, got %d", n)
	}
	if l.Len() != 1 {
		t.Fatalf("expected 1 key left, got %d", l.Len())
	}
	l.Forget("new")
	if l.Len() != 0 {
		t.Fatal("forget did not drop key")
	}
}
