package ingest

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an untouched tenant limiter survives.
const limiterIdleTTL = 10 * time.Minute

// tenantLimiter pairs a token bucket with its last-use time for eviction.
type tenantLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Admission applies per-tenant token-bucket admission to ingest batches.
// Tokens are records, not requests: a batch of n records costs n tokens.
type Admission struct {
	mu       sync.Mutex
	limiters map[string]*tenantLimiter
	rate     rate.Limit
	burst    int
}

// NewAdmission creates an Admission allowing ratePerSec records per second
// with the given burst, per tenant. The eviction loop stops when ctx is
// canceled.
func NewAdmission(ctx context.Context, ratePerSec float64, burst int) *Admission {
	a := &Admission{
		limiters: make(map[string]*tenantLimiter),
		rate:     rate.Limit(ratePerSec),
		burst:    burst,
	}

	go a.evictLoop(ctx)

	return a
}

// Allow reports whether a batch of n records is admitted for the tenant.
// Batches larger than the burst are always rejected; callers should split.
func (a *Admission) Allow(tenantID string, n int) bool {
	a.mu.Lock()

	tl, ok := a.limiters[tenantID]
	if !ok {
		tl = &tenantLimiter{lim: rate.NewLimiter(a.rate, a.burst)}
		a.limiters[tenantID] = tl
	}

	tl.lastSeen = time.Now()
	a.mu.Unlock()

	return tl.lim.AllowN(time.Now(), n)
}

// evictLoop drops limiters idle past the TTL.
func (a *Admission) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(limiterIdleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-limiterIdleTTL)

			a.mu.Lock()
			for id, tl := range a.limiters {
				if tl.lastSeen.Before(cutoff) {
					delete(a.limiters, id)
				}
			}
			a.mu.Unlock()
		}
	}
}
