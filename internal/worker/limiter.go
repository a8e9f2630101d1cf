package worker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces one global minimum spacing between request starts.
// It is shared by every request regardless of host or payload type.
type Limiter struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	interval time.Duration
}

// NewLimiter creates a limiter that admits one request per interval
func NewLimiter(interval time.Duration) *Limiter {
	if interval < 0 {
		interval = 0
	}

	return &Limiter{
		limiter:  rate.NewLimiter(limitFor(interval), 1),
		interval: interval,
	}
}

// Wait blocks until the next request may start
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// allow reports whether a request may start now without waiting
func (l *Limiter) allow() bool {
	return l.limiter.Allow()
}

// Interval returns the current minimum spacing
func (l *Limiter) Interval() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.interval
}

// Raise widens the spacing to at least d. It never narrows it, so a crawl
// delay announced by the remote host can only slow the queue down.
func (l *Limiter) Raise(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if d <= l.interval {
		return
	}
	l.interval = d
	l.limiter.SetLimit(limitFor(d))
}

func limitFor(interval time.Duration) rate.Limit {
	if interval == 0 {
		return rate.Inf
	}
	return rate.Every(interval)
}
