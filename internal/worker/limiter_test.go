package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(1200 * time.Millisecond)
	if limiter.Interval() != 1200*time.Millisecond {
		t.Errorf("expected interval 1.2s, got %v", limiter.Interval())
	}

	l2 := NewLimiter(-time.Second)
	if l2.Interval() != 0 {
		t.Errorf("expected negative interval to clamp to 0, got %v", l2.Interval())
	}
}

func TestLimiter_WaitSpacing(t *testing.T) {
	interval := 60 * time.Millisecond
	limiter := NewLimiter(interval)
	ctx := context.Background()

	var starts []time.Time
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("wait failed: %v", err)
		}
		starts = append(starts, time.Now())
	}

	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		// rate.Limiter reservations are computed from its own clock reading,
		// allow a little scheduling slack
		if gap < interval-5*time.Millisecond {
			t.Errorf("gap %d = %v, want >= %v", i, gap, interval)
		}
	}
}

func TestLimiter_GlobalNotPerHost(t *testing.T) {
	limiter := NewLimiter(time.Hour)

	// First request consumes the only token
	if !limiter.allow() {
		t.Fatal("first request should pass")
	}

	// Any second request is held back, there is no per-host bucket
	if limiter.allow() {
		t.Error("second request should be held back by the shared queue")
	}
}

func TestLimiter_Raise(t *testing.T) {
	limiter := NewLimiter(100 * time.Millisecond)

	limiter.Raise(50 * time.Millisecond)
	if limiter.Interval() != 100*time.Millisecond {
		t.Errorf("Raise must not narrow spacing, got %v", limiter.Interval())
	}

	limiter.Raise(2 * time.Second)
	if limiter.Interval() != 2*time.Second {
		t.Errorf("expected 2s after Raise, got %v", limiter.Interval())
	}
}

func TestLimiter_ZeroIntervalUnlimited(t *testing.T) {
	limiter := NewLimiter(0)
	for i := 0; i < 10; i++ {
		if !limiter.allow() {
			t.Fatalf("request %d should pass with zero interval", i)
		}
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(time.Hour)
	_ = limiter.allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}
