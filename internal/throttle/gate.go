// Package throttle guards outbound HTTP traffic with a sliding-window quota.
// The gate waits rather than rejecting: a caller that would exceed the window
// sleeps until the oldest request ages out, then proceeds.
package throttle

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/rcallahan/dispatch-relay-service/internal/observability"
)

// Permissive fallback when no quota file is configured: the gate degrades to
// a no-op instead of blocking services that declared no quota.
const (
	defaultLimit  = 1_000_000
	defaultPeriod = time.Second
)

// QuotaConfig is the on-disk quota document: the maximum number of requests
// per period. Period is in seconds.
type QuotaConfig struct {
	Limit  int     `json:"limit"`
	Period float64 `json:"period"`
}

// LoadQuota reads a quota file. A missing or malformed file yields the
// permissive default rather than an error.
func LoadQuota(path string) QuotaConfig {
	fallback := QuotaConfig{Limit: defaultLimit, Period: defaultPeriod.Seconds()}
	data, err := os.ReadFile(path)
	if err != nil {
		return fallback
	}
	var qc QuotaConfig
	if err := json.Unmarshal(data, &qc); err != nil {
		return fallback
	}
	if qc.Limit <= 0 {
		qc.Limit = defaultLimit
	}
	if qc.Period <= 0 {
		qc.Period = defaultPeriod.Seconds()
	}
	return qc
}

// Gate is a sliding-window throttle. The evict-check-wait-append sequence
// runs under one mutex, so concurrent callers are serialized through the gate
// and a waiting caller holds the lock for the duration of its sleep. That
// keeps the window exact at the cost of latency under contention, which is
// acceptable at this service's call rates.
type Gate struct {
	mu     sync.Mutex
	limit  int
	period time.Duration
	times  []time.Time

	now func() time.Time
}

// NewGate returns a gate allowing limit requests per period. Non-positive
// values fall back to the permissive default.
func NewGate(limit int, period time.Duration) *Gate {
	if limit <= 0 {
		limit = defaultLimit
	}
	if period <= 0 {
		period = defaultPeriod
	}
	return &Gate{
		limit:  limit,
		period: period,
		now:    time.Now,
	}
}

// NewGateFromFile builds a gate from a quota file, degrading to the
// permissive default when the file is missing or malformed.
func NewGateFromFile(path string) *Gate {
	qc := LoadQuota(path)
	return NewGate(qc.Limit, time.Duration(qc.Period*float64(time.Second)))
}

// Limit returns the configured window limit.
func (g *Gate) Limit() int { return g.limit }

// Period returns the configured window length.
func (g *Gate) Period() time.Duration { return g.period }

// Wait blocks until dispatching one more request stays within the quota, then
// claims a slot in the window. The wait is context-aware: a cancelled caller
// abandons its slot without appending to the window. Wait never fails for
// configuration reasons.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.evict(now)

	if len(g.times) >= g.limit {
		wait := g.period - now.Sub(g.times[0])
		if wait > 0 {
			observability.ThrottleWaitsTotal.Inc()
			observability.ThrottleWaitSeconds.Observe(wait.Seconds())
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		g.evict(g.now())
	}

	g.times = append(g.times, g.now())
	return nil
}

// Pending returns the number of unexpired timestamps in the window.
func (g *Gate) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.evict(g.now())
	return len(g.times)
}

// evict drops timestamps that have aged out of the window. Must be called
// with the mutex held.
func (g *Gate) evict(now time.Time) {
	cutoff := now.Add(-g.period)
	i := 0
	for ; i < len(g.times) && !g.times[i].After(cutoff); i++ {
	}
	if i > 0 {
		g.times = append(g.times[:0], g.times[i:]...)
	}
}
