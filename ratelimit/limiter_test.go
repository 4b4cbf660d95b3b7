package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllowUnlimited(t *testing.T) {
	l := New()
	for i := 0; i < 50; i++ {
		if !l.Allow("sub_a", 0) {
			t.Fatal("rate 0 must always allow")
		}
	}
}

func TestAllowExhaustsBurst(t *testing.T) {
	l := New()

	allowed := 0
	for i := 0; i < 10; i++ {
		if l.Allow("sub_b", 3) {
			allowed++
		}
	}
	if allowed != 3 {
		t.Fatalf("allowed = %d, want 3", allowed)
	}
}

func TestAllowIsolatesSubscriptions(t *testing.T) {
	l := New()

	for i := 0; i < 2; i++ {
		l.Allow("sub_c", 2)
	}
	if l.Allow("sub_c", 2) {
		t.Fatal("sub_c bucket should be empty")
	}
	if !l.Allow("sub_d", 2) {
		t.Fatal("sub_d bucket must be unaffected by sub_c")
	}
}

func TestWaitRecovers(t *testing.T) {
	l := New()

	// Drain the bucket, then Wait should succeed once it refills.
	for l.Allow("sub_e", 20) {
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := l.Wait(ctx, "sub_e", 20); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	l := New()

	for l.Allow("sub_f", 1) {
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, "sub_f", 1); err == nil {
		t.Fatal("Wait should fail when the context expires first")
	}
}

func TestForget(t *testing.T) {
	l := New()

	for l.Allow("sub_g", 2) {
	}
	l.Forget("sub_g")
	if !l.Allow("sub_g", 2) {
		t.Fatal("Forget should reset the bucket to full")
	}
}
