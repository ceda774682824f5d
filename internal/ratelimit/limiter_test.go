package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNewRateLimiter_ZeroRPS(t *testing.T) {
	rl := NewRateLimiter(0)

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("zero RPS should not block, took %v", elapsed)
	}
	if rl.Rate() != 0 {
		t.Errorf("expected rate 0, got %d", rl.Rate())
	}
}

func TestRateLimiter_Wait(t *testing.T) {
	rl := NewRateLimiter(1000)

	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("wait took too long: %v", elapsed)
	}
}

func TestRateLimiter_Throttles(t *testing.T) {
	rl := NewRateLimiter(20)
	ctx := context.Background()

	// The first 20 fit in the burst; the next 5 need ~250ms.
	start := time.Now()
	for i := 0; i < 25; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("expected throttling, 25 waits took %v", elapsed)
	}
}

func TestRateLimiter_ContextCancelled(t *testing.T) {
	rl := NewRateLimiter(1)
	_ = rl.Wait(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rl.Wait(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestRateLimiter_SetRate(t *testing.T) {
	rl := NewRateLimiter(100)

	rl.SetRate(200)
	if rl.Rate() != 200 {
		t.Errorf("expected 200, got %d", rl.Rate())
	}

	rl.SetRate(0)
	if rl.Rate() != 0 {
		t.Errorf("expected uncapped, got %d", rl.Rate())
	}
	start := time.Now()
	for i := 0; i < 500; i++ {
		_ = rl.Wait(context.Background())
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("uncapped limiter should not block, took %v", elapsed)
	}
}
