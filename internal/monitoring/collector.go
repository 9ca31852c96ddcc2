// Package monitoring watches verification run health and pushes webhook
// alerts when run failures climb or result quality sags.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/rxscan/verify-cli/internal/model"
	"github.com/rxscan/verify-cli/internal/store"
)

// Snapshot is a point-in-time view of verification health.
type Snapshot struct {
	// Run counts within the lookback window.
	RunsTotal     int     `json:"runs_total"`
	RunsCompleted int     `json:"runs_completed"`
	RunsFailed    int     `json:"runs_failed"`
	RunsQueued    int     `json:"runs_queued"`
	FailureRate   float64 `json:"failure_rate"`

	// Quality over completed runs.
	AvgQuality float64        `json:"avg_quality"`
	TierCounts map[string]int `json:"tier_counts"`

	// Breaker states by provider name, when a breaker set is attached.
	Breakers map[string]string `json:"breakers,omitempty"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// BreakerReader exposes the breaker snapshot without importing the
// concrete set.
type BreakerReader interface {
	States() map[string]string
}

// Collector builds snapshots from stored runs.
type Collector struct {
	store    store.Store
	breakers BreakerReader
}

// NewCollector creates a collector. breakers may be nil.
func NewCollector(st store.Store, breakers BreakerReader) *Collector {
	return &Collector{store: st, breakers: breakers}
}

// Collect summarizes runs created within the lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	if lookbackHours <= 0 {
		lookbackHours = 24
	}
	snap := &Snapshot{
		TierCounts:    make(map[string]int),
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}
	cutoff := snap.CollectedAt.Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.store.ListRuns(ctx, store.RunFilter{Limit: 1000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	var qualitySum float64
	var scored int
	for _, r := range runs {
		if r.CreatedAt.Before(cutoff) {
			continue
		}
		snap.RunsTotal++
		switch r.Status {
		case model.RunStatusCompleted:
			snap.RunsCompleted++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusQueued:
			snap.RunsQueued++
		}
		if r.Profile != nil {
			snap.TierCounts[string(r.Profile.Quality.Tier)]++
			qualitySum += r.Profile.Quality.OverallQuality
			scored++
		}
	}

	finished := snap.RunsCompleted + snap.RunsFailed
	if finished > 0 {
		snap.FailureRate = float64(snap.RunsFailed) / float64(finished)
	}
	if scored > 0 {
		snap.AvgQuality = qualitySum / float64(scored)
	}

	if c.breakers != nil {
		snap.Breakers = c.breakers.States()
	}
	return snap, nil
}
