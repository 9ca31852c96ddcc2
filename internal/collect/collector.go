// Package collect fans a strategy list out to every registered
// provider concurrently and gathers all results, tolerating individual
// failures. One slow or broken provider never blocks the others; total
// wall clock is bounded by the slowest provider's own timeout.
package collect

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rxscan/verify-cli/internal/model"
	"github.com/rxscan/verify-cli/internal/provider"
	"github.com/rxscan/verify-cli/internal/resilience"
)

// Collector runs the provider fan-out. The optional breaker set skips
// providers that have been failing consistently across recent runs.
type Collector struct {
	registry *provider.Registry
	breakers *resilience.BreakerSet
}

// New creates a Collector. breakers may be nil to disable circuit
// breaking (single-shot CLI runs).
func New(registry *provider.Registry, breakers *resilience.BreakerSet) *Collector {
	return &Collector{registry: registry, breakers: breakers}
}

// Collect invokes every registered provider with the same strategy
// list. Results (explicit failures included) land in a map keyed by
// provider name. Providers that found nothing are recorded as no_match.
// A canceled request context degrades outstanding providers to failed
// entries rather than erroring the collection.
func (cl *Collector) Collect(ctx context.Context, strategies []model.SearchStrategy) *model.CollectionResult {
	clients := cl.registry.List()
	result := &model.CollectionResult{
		Sources: make(map[string]model.SourceResult, len(clients)),
	}
	if len(clients) == 0 {
		return result
	}

	var mu sync.Mutex
	var g errgroup.Group

	start := time.Now()
	for _, c := range clients {
		g.Go(func() error {
			sr := cl.search(ctx, c, strategies)

			mu.Lock()
			result.Sources[c.Name()] = *sr
			mu.Unlock()
			// Individual provider outcomes never fail the group.
			return nil
		})
	}
	_ = g.Wait()

	for _, sr := range result.Sources {
		switch sr.Status {
		case model.SourceSuccess:
			result.Successful++
			result.TotalDataPoints += sr.DataPoints
		case model.SourceFailed:
			result.Failed++
		}
	}

	zap.L().Info("collect: provider fan-out complete",
		zap.Int("providers", len(clients)),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed),
		zap.Int("data_points", result.TotalDataPoints),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result
}

func (cl *Collector) search(ctx context.Context, c provider.Client, strategies []model.SearchStrategy) *model.SourceResult {
	var breaker *resilience.Breaker
	if cl.breakers != nil {
		breaker = cl.breakers.Get(c.Name())
		if err := breaker.Allow(); err != nil {
			zap.L().Warn("collect: provider skipped, circuit open",
				zap.String("provider", c.Name()))
			return &model.SourceResult{
				Provider:    c.Name(),
				Status:      model.SourceFailed,
				Reliability: c.Reliability(),
				Error:       err.Error(),
			}
		}
	}

	sr := c.Search(ctx, strategies)
	if sr == nil {
		sr = &model.SourceResult{
			Provider:    c.Name(),
			Status:      model.SourceNoMatch,
			Reliability: c.Reliability(),
		}
	}
	if breaker != nil {
		// no_match counts as a working provider; only hard failures trip.
		breaker.Record(sr.Status != model.SourceFailed)
	}
	return sr
}
