package logparse

import (
	"context"
	"sync"
	"time"
)

const (
	decisionTTL      = 24 * time.Hour
	resampleInterval = 1 * time.Hour
	cacheCleanup     = 10 * time.Minute
	maxDecisions     = 10000
)

// confidenceDropRatio triggers redetection when a resample scores the cached
// format below this fraction of its original confidence.
const confidenceDropRatio = 0.5

type decision struct {
	det       Detection
	decidedAt time.Time
	sampledAt time.Time
}

// DecisionCache remembers each tenant's detected format for the day so the
// detector only runs on the first packet, with hourly re-sampling.
type DecisionCache struct {
	mu        sync.Mutex
	bank      *Bank
	decisions map[string]*decision
}

// NewDecisionCache creates a cache bound to the given parser bank and starts
// a background eviction goroutine that stops when ctx is cancelled.
func NewDecisionCache(ctx context.Context, bank *Bank) *DecisionCache {
	c := &DecisionCache{
		bank:      bank,
		decisions: make(map[string]*decision),
	}
	go c.evictLoop(ctx)
	return c
}

// Resolve returns the format to parse this tenant's payload with. The first
// call of the day runs full detection; later calls reuse the cached decision,
// re-sampling at most hourly and redetecting on a confidence drop.
func (c *DecisionCache) Resolve(tenantID string, lines []string) Detection {
	now := time.Now()

	c.mu.Lock()
	d, ok := c.decisions[tenantID]
	if ok && now.Sub(d.decidedAt) < decisionTTL {
		if now.Sub(d.sampledAt) < resampleInterval {
			det := d.det
			c.mu.Unlock()
			return det
		}
		d.sampledAt = now
		cached := d.det
		c.mu.Unlock()

		return c.resample(tenantID, cached, lines)
	}
	c.mu.Unlock()

	det := c.bank.Detect(lines)

	c.mu.Lock()
	if len(c.decisions) >= maxDecisions {
		for k := range c.decisions {
			if len(c.decisions) < maxDecisions {
				break
			}
			delete(c.decisions, k)
		}
	}
	c.decisions[tenantID] = &decision{det: det, decidedAt: now, sampledAt: now}
	c.mu.Unlock()

	return det
}

// resample re-scores the cached format against the current sample and
// redetects when confidence has dropped.
func (c *DecisionCache) resample(tenantID string, cached Detection, lines []string) Detection {
	fresh := c.bank.Detect(lines)

	if fresh.Format == cached.Format && fresh.Confidence >= cached.Confidence*confidenceDropRatio {
		return cached
	}

	now := time.Now()
	c.mu.Lock()
	c.decisions[tenantID] = &decision{det: fresh, decidedAt: now, sampledAt: now}
	c.mu.Unlock()

	return fresh
}

// Invalidate drops a tenant's cached decision.
func (c *DecisionCache) Invalidate(tenantID string) {
	c.mu.Lock()
	delete(c.decisions, tenantID)
	c.mu.Unlock()
}

func (c *DecisionCache) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(cacheCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for k, d := range c.decisions {
				if now.Sub(d.decidedAt) >= decisionTTL {
					delete(c.decisions, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
