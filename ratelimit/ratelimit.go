package ratelimit

import (
	"sync"
	"time"
)

// SweepInterval is how often expired windows are purged from memory
const SweepInterval = 5 * time.Minute

// Config supplies the window policy for a check. Policies differ only in
// these two values, not in algorithm.
type Config struct {
	Window      time.Duration
	MaxRequests int
}

// Result is the outcome of a rate limit check
type Result struct {
	Success   bool
	Limit     int
	Remaining int
	// Reset is the epoch millisecond when the window resets
	Reset int64
}

// RetryAfter returns whole seconds until the window resets, rounded up
func (r Result) RetryAfter(now time.Time) int {
	ms := r.Reset - now.UnixMilli()
	if ms <= 0 {
		return 1
	}
	return int((ms + 999) / 1000)
}

type window struct {
	count     int
	resetTime int64 // epoch milliseconds
}

/* Limiter is a process-wide request counter keyed by (identifier, route).
 * Windows are created lazily, replaced once expired, and purged by a
 * background sweep. All map access is a critical section: independent
 * requests mutate the same key concurrently.
 */
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window

	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter creates a limiter and spawns its sweep goroutine.
// Call Close to stop the sweeper; correctness never depends on it running.
func NewLimiter() *Limiter {
	l := &Limiter{
		windows: make(map[string]*window),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

/* Check counts one request against the (identifier, route) window.
 * An expired or missing window restarts fresh before counting. The 20th
 * request of a 20-max window succeeds with remaining=0; the 21st fails.
 */
func (l *Limiter) Check(identifier, route string, cfg Config) Result {
	key := identifier + ":" + route
	now := l.now().UnixMilli()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || w.resetTime < now {
		w = &window{
			count:     0,
			resetTime: now + cfg.Window.Milliseconds(),
		}
		l.windows[key] = w
	}

	w.count++

	remaining := cfg.MaxRequests - w.count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Success:   w.count <= cfg.MaxRequests,
		Limit:     cfg.MaxRequests,
		Remaining: remaining,
		Reset:     w.resetTime,
	}
}

// Close stops the background sweep. Safe to call more than once.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

/* sweep removes expired windows to bound memory. Deleting a window that a
 * concurrent Check is about to recreate is safe: the check would have
 * replaced it anyway.
 */
func (l *Limiter) sweep() {
	now := l.now().UnixMilli()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.windows {
		if w.resetTime < now {
			delete(l.windows, key)
		}
	}
}
