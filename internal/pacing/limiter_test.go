package pacing

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_ZeroRPSDoesNotBlock(t *testing.T) {
	rl := NewRateLimiter(0)
	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 10*time.Millisecond {
		t.Error("zero RPS should not block")
	}
}

func TestRateLimiter_Wait(t *testing.T) {
	rl := NewRateLimiter(1000)
	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Errorf("wait took too long: %v", time.Since(start))
	}
}

func TestRateLimiter_SetRate(t *testing.T) {
	rl := NewRateLimiter(1)
	rl.SetRate(0)
	// After disabling, waits return immediately.
	for i := 0; i < 5; i++ {
		start := time.Now()
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if time.Since(start) > 10*time.Millisecond {
			t.Fatal("disabled limiter should not block")
		}
	}
}

func TestRateLimiter_ContextCancelled(t *testing.T) {
	rl := NewRateLimiter(1)
	ctx := context.Background()
	_ = rl.Wait(ctx) // drain the burst

	cancelled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := rl.Wait(cancelled); err == nil {
		t.Error("expected error from cancelled wait")
	}
}
