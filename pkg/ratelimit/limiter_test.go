package ratelimit

import (
	"testing"
	"time"
)

func TestSlidingWindowLimits(t *testing.T) {
	window := NewSlidingWindow(2, time.Hour)

	if !window.Allow() || !window.Allow() {
		t.Fatal("requests within limit denied")
	}
	if window.Allow() {
		t.Error("request allowed beyond window limit")
	}
}

func TestSlidingWindowSlides(t *testing.T) {
	window := NewSlidingWindow(1, 20*time.Millisecond)

	if !window.Allow() {
		t.Fatal("first request denied")
	}
	if window.Allow() {
		t.Fatal("second request allowed inside window")
	}

	time.Sleep(40 * time.Millisecond)
	if !window.Allow() {
		t.Error("request denied after window passed")
	}
}

func TestSlidingWindowReset(t *testing.T) {
	window := NewSlidingWindow(1, time.Hour)

	window.Allow()
	window.Reset()
	if !window.Allow() {
		t.Error("request denied after reset")
	}
}

func TestSlidingWindowWaitUnblocks(t *testing.T) {
	window := NewSlidingWindow(1, 20*time.Millisecond)

	window.Wait() // admitted immediately

	start := time.Now()
	window.Wait() // must wait for the first request to slide out
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("second Wait returned after %v, expected it to block", elapsed)
	}
}

func TestSlidingWindowNoBoundaryBurst(t *testing.T) {
	window := NewSlidingWindow(3, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		if !window.Allow() {
			t.Fatalf("request %d denied, want admitted", i+1)
		}
	}

	// Partway through the window the budget must still be exhausted;
	// a fixed-interval limiter would already have refilled here.
	time.Sleep(20 * time.Millisecond)
	if window.Allow() {
		t.Error("request admitted before any earlier request slid out")
	}
}
