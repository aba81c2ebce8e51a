package http

import (
	"sync"
	"time"
)

const (
	writeLimitPerWindow = 60
	limitWindow         = time.Minute
	staleAfter          = 10 * time.Minute
	sweepEvery          = 5 * time.Minute
)

// rateLimiter caps write requests per client IP over a fixed window.
// Entries for idle clients are swept by a background goroutine.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	stopSweep sync.Once
	done      chan struct{}
}

type bucket struct {
	windowStart time.Time
	count       int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		buckets: make(map[string]*bucket),
		done:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[clientIP]
	if !ok || now.Sub(b.windowStart) >= limitWindow {
		rl.buckets[clientIP] = &bucket{windowStart: now, count: 1}
		return true
	}

	b.count++
	return b.count <= writeLimitPerWindow
}

func (rl *rateLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep(time.Now())
		case <-rl.done:
			return
		}
	}
}

func (rl *rateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, b := range rl.buckets {
		if now.Sub(b.windowStart) >= staleAfter {
			delete(rl.buckets, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopSweep.Do(func() { close(rl.done) })
}
