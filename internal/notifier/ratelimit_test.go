package notifier

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{
		MaxPerWindow: 3,
		Window:       time.Minute,
		Enabled:      true,
	})

	for i := 0; i < 3; i++ {
		if !limiter.Allow() {
			t.Errorf("allow %d should succeed", i)
		}
	}
	if limiter.Allow() {
		t.Error("allow over limit should fail")
	}
	if limiter.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", limiter.Dropped())
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{
		MaxPerWindow: 1,
		Window:       time.Minute,
		Enabled:      false,
	})

	for i := 0; i < 10; i++ {
		if !limiter.Allow() {
			t.Fatal("disabled limiter should always allow")
		}
	}
}

func TestRateLimiterRelease(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{
		MaxPerWindow: 1,
		Window:       time.Minute,
		Enabled:      true,
	})

	if !limiter.Allow() {
		t.Fatal("first allow should succeed")
	}
	limiter.Release()
	if !limiter.Allow() {
		t.Error("allow after release should succeed")
	}
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{
		MaxPerWindow: 2,
		Window:       50 * time.Millisecond,
		Enabled:      true,
	})

	limiter.Allow()
	limiter.Allow()
	if limiter.Allow() {
		t.Fatal("allow over limit should fail")
	}

	time.Sleep(60 * time.Millisecond)

	if !limiter.Allow() {
		t.Error("allow should succeed after window passes")
	}
}

func TestRateLimiterDefaults(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{Enabled: true})

	stats := limiter.Stats()
	if stats.MaxPerWindow != 30 {
		t.Errorf("max per window = %d, want default 30", stats.MaxPerWindow)
	}
	if stats.Window != time.Minute {
		t.Errorf("window = %v, want default 1m", stats.Window)
	}
}

func TestRateLimiterReset(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{
		MaxPerWindow: 1,
		Window:       time.Minute,
		Enabled:      true,
	})

	limiter.Allow()
	limiter.Allow() // dropped
	limiter.Reset()

	stats := limiter.Stats()
	if stats.CurrentCount != 0 || stats.Dropped != 0 {
		t.Errorf("stats after reset = %+v, want zeroed", stats)
	}
	if !limiter.Allow() {
		t.Error("allow after reset should succeed")
	}
}
