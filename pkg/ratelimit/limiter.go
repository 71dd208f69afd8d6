// Package ratelimit paces outgoing VK API calls. VK enforces a
// per-token request budget, so every call the archiver makes goes
// through a single shared Limiter regardless of which worker issues it.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter admits or delays requests under a rate limit
type Limiter interface {
	// Allow reports whether a request may proceed right now
	Allow() bool
	// Wait blocks until a request is admitted
	Wait()
	// Reset forgets all recorded requests
	Reset()
}

// SlidingWindow admits at most maxRequests per rolling window. Unlike a
// fixed-interval bucket it never allows a burst of 2x the budget around
// a window boundary, which is what gets a VK token flood-banned.
type SlidingWindow struct {
	window time.Duration
	limit  int

	mu     sync.Mutex
	stamps []time.Time // admission times inside the current window, oldest first
}

// NewSlidingWindow creates a limiter admitting maxRequests per windowSize
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		window: windowSize,
		limit:  maxRequests,
		stamps: make([]time.Time, 0, maxRequests),
	}
}

// Allow admits the request if the window has room, recording it
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.prune(now)

	if len(sw.stamps) >= sw.limit {
		return false
	}
	sw.stamps = append(sw.stamps, now)
	return true
}

// Wait blocks until the request is admitted. With the window full, the
// earliest possible admission is when the oldest recorded request slides
// out, so that is how long it sleeps between attempts.
func (sw *SlidingWindow) Wait() {
	for !sw.Allow() {
		sw.mu.Lock()
		var delay time.Duration
		if len(sw.stamps) > 0 {
			delay = sw.window - time.Since(sw.stamps[0])
		}
		sw.mu.Unlock()

		if delay <= 0 {
			delay = 50 * time.Millisecond
		}
		time.Sleep(delay)
	}
}

// Reset forgets all recorded requests
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.stamps = sw.stamps[:0]
}

// prune drops stamps that have slid out of the window
func (sw *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-sw.window)
	expired := 0
	for expired < len(sw.stamps) && sw.stamps[expired].Before(cutoff) {
		expired++
	}
	if expired > 0 {
		sw.stamps = append(sw.stamps[:0], sw.stamps[expired:]...)
	}
}
