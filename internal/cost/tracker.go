// Package cost accumulates per-provider token and dollar usage across the
// process lifetime.
package cost

import (
	"sync"
)

// ProviderUsage is the running total for one provider.
type ProviderUsage struct {
	Requests int64   `json:"requests"`
	Tokens   int64   `json:"tokens"`
	Cost     float64 `json:"cost"`
}

// UsageStats is a point-in-time snapshot of all usage.
type UsageStats struct {
	PerProvider   map[string]ProviderUsage `json:"per_provider"`
	TotalRequests int64                    `json:"total_requests"`
	TotalTokens   int64                    `json:"total_tokens"`
	TotalCost     float64                  `json:"total_cost"`
}

// Tracker is safe for concurrent use by request handlers.
type Tracker struct {
	mu       sync.Mutex
	provider map[string]*ProviderUsage
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{provider: make(map[string]*ProviderUsage)}
}

// Record adds one request's usage to the provider's totals.
func (t *Tracker) Record(provider string, tokens int64, cost float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	u, ok := t.provider[provider]
	if !ok {
		u = &ProviderUsage{}
		t.provider[provider] = u
	}
	u.Requests++
	u.Tokens += tokens
	u.Cost += cost
}

// Snapshot returns a copy of the current totals. The copy does not change as
// further requests are recorded.
func (t *Tracker) Snapshot() UsageStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := UsageStats{PerProvider: make(map[string]ProviderUsage, len(t.provider))}
	for name, u := range t.provider {
		stats.PerProvider[name] = *u
		stats.TotalRequests += u.Requests
		stats.TotalTokens += u.Tokens
		stats.TotalCost += u.Cost
	}
	return stats
}

// TotalCost returns the accumulated dollar cost across all providers.
func (t *Tracker) TotalCost() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var total float64
	for _, u := range t.provider {
		total += u.Cost
	}
	return total
}
