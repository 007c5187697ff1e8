package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_ZeroRateIsUnlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 20; i++ {
		if !limiter.Allow("https://vendor.com/pricing") {
			t.Fatalf("request %d was limited with rate 0", i)
		}
	}
}

func TestLimiter_NilNeverBlocks(t *testing.T) {
	var limiter *Limiter
	if err := limiter.Wait(context.Background(), "https://vendor.com"); err != nil {
		t.Errorf("nil limiter returned %v", err)
	}
	if !limiter.Allow("https://vendor.com") {
		t.Error("nil limiter must allow")
	}
}

func TestLimiter_PerHost(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://vendor.com/pricing"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	// www. and path differences map to the same bucket
	if limiter.Allow("https://www.vendor.com/docs") {
		t.Error("expected same host bucket to be exhausted")
	}
	if !limiter.Allow("https://www.g2.com/products/vendor/reviews") {
		t.Error("expected other host to be allowed")
	}
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	url := "https://slow.example"
	_ = limiter.Wait(context.Background(), url)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, url); err == nil {
		t.Error("expected wait to fail once the context deadline cannot be met")
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(100, 10)
	limiter.SetHostRate("www.Slow.com", 0.1, 1)

	if !limiter.Allow("http://slow.com/a") {
		t.Error("first request should pass")
	}
	if limiter.Allow("http://slow.com/b") {
		t.Error("second request should be limited")
	}
}

func TestHostKey_Invalid(t *testing.T) {
	if _, err := hostKey("::invalid"); err == nil {
		t.Error("expected error for invalid URL")
	}
	if _, err := hostKey("/relative/path"); err == nil {
		t.Error("expected error for URL without host")
	}
}
