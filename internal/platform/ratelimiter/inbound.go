// Package ratelimiter provides admission control for the message server's
// accept loop: a token bucket per remote host with periodic eviction of
// idle hosts.
package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type InboundLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu        sync.Mutex
	byHost    map[string]*hostBucket
	nextSweep time.Time
}

type hostBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewInbound creates a per-host limiter; returns nil when rps or burst is
// not positive, which callers treat as admission control disabled.
func NewInbound(rps float64, burst int, idleTTL time.Duration) *InboundLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 5 * time.Minute
	}
	return &InboundLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		byHost:  make(map[string]*hostBucket),
	}
}

// Allow reports whether one more connection from host may be accepted now.
// A nil limiter always allows.
func (l *InboundLimiter) Allow(host string, now time.Time) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.byHost[host]
	if !ok {
		b = &hostBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byHost[host] = b
	}
	b.lastSeen = now

	if now.After(l.nextSweep) {
		cutoff := now.Add(-l.idleTTL)
		for h, bucket := range l.byHost {
			if bucket.lastSeen.Before(cutoff) {
				delete(l.byHost, h)
			}
		}
		l.nextSweep = now.Add(l.idleTTL / 2)
	}

	return b.limiter.AllowN(now, 1)
}
