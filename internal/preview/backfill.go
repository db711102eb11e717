package preview

import (
	"context"
	"sync"
	"time"
)

// Backfiller tops a tenant's backing data up to the minimum the preview
// needs to render meaningfully.
type Backfiller interface {
	EnsureMinimum(ctx context.Context, tenantID string) error
}

// defaultBackfillCooldown limits how often one tenant is re-checked.
const defaultBackfillCooldown = 30 * time.Second

// cooldownGuard rate-limits backfill checks per tenant. The guard only
// tracks timestamps; the backfiller itself decides whether data is missing.
type cooldownGuard struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
}

func newCooldownGuard(interval time.Duration) *cooldownGuard {
	if interval <= 0 {
		interval = defaultBackfillCooldown
	}
	return &cooldownGuard{interval: interval, last: make(map[string]time.Time)}
}

// allow reports whether a backfill check may run for the tenant now, and
// marks the attempt when it may.
func (g *cooldownGuard) allow(tenantID string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if prev, ok := g.last[tenantID]; ok && now.Sub(prev) < g.interval {
		return false
	}
	g.last[tenantID] = now
	return true
}
