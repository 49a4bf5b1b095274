package apikey

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	guardMaxFailures = 10
	guardWindow      = 1 * time.Second
	guardLockout     = 30 * time.Second
	guardCleanup     = 60 * time.Second
	guardMaxRecords  = 10000
)

type failureRecord struct {
	attempts  int
	firstFail time.Time
	lockedAt  time.Time
}

// FailureGuard tracks per-tenant verify failures and blocks tenants that
// exceed the failure rate within the tracking window.
type FailureGuard struct {
	mu      sync.Mutex
	records map[string]*failureRecord
	log     *logrus.Logger
}

// NewFailureGuard creates a guard and starts a background cleanup goroutine
// that stops when ctx is cancelled.
func NewFailureGuard(ctx context.Context, log *logrus.Logger) *FailureGuard {
	g := &FailureGuard{
		records: make(map[string]*failureRecord),
		log:     log,
	}
	go g.cleanupLoop(ctx)
	return g
}

// Blocked returns true if the tenant is currently locked out.
func (g *FailureGuard) Blocked(tenantID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[tenantID]
	if !ok {
		return false
	}

	return !rec.lockedAt.IsZero() && time.Since(rec.lockedAt) < guardLockout
}

// RecordFailure records a failed verification for the tenant.
func (g *FailureGuard) RecordFailure(tenantID string) {
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[tenantID]
	if !ok {
		g.records[tenantID] = &failureRecord{attempts: 1, firstFail: now}
		return
	}

	// Reset if outside the tracking window.
	if now.Sub(rec.firstFail) > guardWindow {
		rec.attempts = 1
		rec.firstFail = now
		rec.lockedAt = time.Time{}
		return
	}

	rec.attempts++
	if rec.attempts >= guardMaxFailures {
		rec.lockedAt = now
		g.log.WithField("tenant_id", tenantID).Warn("tenant locked out due to repeated verify failures")
	}
}

// Reset clears failure tracking for a tenant (call on successful verify).
func (g *FailureGuard) Reset(tenantID string) {
	g.mu.Lock()
	delete(g.records, tenantID)
	g.mu.Unlock()
}

func (g *FailureGuard) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(guardCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			g.mu.Lock()
			for k, rec := range g.records {
				if !rec.lockedAt.IsZero() && now.Sub(rec.lockedAt) >= guardLockout {
					delete(g.records, k)
				} else if now.Sub(rec.firstFail) >= guardWindow && rec.lockedAt.IsZero() {
					delete(g.records, k)
				}
			}
			if len(g.records) > guardMaxRecords {
				g.evictOldest(len(g.records) - guardMaxRecords)
			}
			g.mu.Unlock()
		}
	}
}

// evictOldest removes n entries with the oldest firstFail times.
// Caller must hold g.mu.
func (g *FailureGuard) evictOldest(n int) {
	type entry struct {
		key  string
		time time.Time
	}
	entries := make([]entry, 0, len(g.records))
	for k, rec := range g.records {
		entries = append(entries, entry{k, rec.firstFail})
	}
	for j := 0; j < n; j++ {
		oldestIdx := 0
		for i := 1; i < len(entries); i++ {
			if entries[i].time.Before(entries[oldestIdx].time) {
				oldestIdx = i
			}
		}
		delete(g.records, entries[oldestIdx].key)
		entries[oldestIdx] = entries[len(entries)-1]
		entries = entries[:len(entries)-1]
	}
}
