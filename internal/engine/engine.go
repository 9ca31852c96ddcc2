// Package engine orchestrates a verification run: plan strategies,
// collect provider results in parallel, normalize, cross-reference,
// resolve conflicts, and compile the verified profile. The pipeline is
// fail-soft end to end: the caller always receives a well-formed
// profile, never an error or a panic.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rxscan/verify-cli/internal/collect"
	"github.com/rxscan/verify-cli/internal/crossref"
	"github.com/rxscan/verify-cli/internal/extract"
	"github.com/rxscan/verify-cli/internal/model"
	"github.com/rxscan/verify-cli/internal/normalize"
	"github.com/rxscan/verify-cli/internal/plan"
	"github.com/rxscan/verify-cli/internal/provider"
	"github.com/rxscan/verify-cli/internal/quality"
	"github.com/rxscan/verify-cli/internal/resolve"
)

// CacheWriter is the slice of the store the engine writes successful
// verifications back to, so the local cache provider can serve them on
// later runs.
type CacheWriter interface {
	SetCachedProfile(ctx context.Context, key string, profile *model.VerifiedProfile) error
}

// Engine runs verification requests. Safe for concurrent use: requests
// share no mutable state.
type Engine struct {
	collector *collect.Collector
	weights   crossref.Weights
	cache     CacheWriter
	timeout   time.Duration
	now       func() time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithCacheWriter enables write-back of verified profiles.
func WithCacheWriter(cw CacheWriter) Option {
	return func(e *Engine) { e.cache = cw }
}

// WithRequestTimeout bounds a whole verification request.
func WithRequestTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithNow fixes the clock for testing.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine over a collector.
func New(collector *collect.Collector, weights crossref.Weights, opts ...Option) *Engine {
	e := &Engine{
		collector: collector,
		weights:   weights,
		timeout:   45 * time.Second,
		now:       time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// VerifyVision runs the full pipeline from a raw vision-analysis
// result.
func (e *Engine) VerifyVision(ctx context.Context, va model.VisionAnalysis) *model.VerifiedProfile {
	return e.Verify(ctx, extract.Seed(va))
}

// Verify reconciles a seed identifier set into a verified profile.
// A request-level deadline past the collector behaves like additional
// provider failures, and any fault in the back half of the pipeline
// degrades to a minimal basic-tier profile.
func (e *Engine) Verify(ctx context.Context, seed model.SeedIdentifiers) *model.VerifiedProfile {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	strategies := plan.Strategies(seed)
	zap.L().Info("engine: verification started",
		zap.String("brand", seed.BrandName),
		zap.String("ndc", seed.NDC),
		zap.Int("strategies", len(strategies)),
		zap.Int("seed_quality", seed.DataQualityScore),
	)

	collection := e.collector.Collect(ctx, strategies)

	profile := e.reconcile(seed, collection)
	if profile.Kind == model.ProfileVerified && profile.Quality.Tier != model.TierBasic {
		e.writeCache(ctx, strategies, profile)
	}

	zap.L().Info("engine: verification complete",
		zap.String("tier", string(profile.Quality.Tier)),
		zap.Float64("overall_quality", profile.Quality.OverallQuality),
		zap.Int("discrepancies", len(profile.Discrepancies)),
	)
	return profile
}

// reconcile runs the sequential back half under a panic guard.
func (e *Engine) reconcile(seed model.SeedIdentifiers, collection *model.CollectionResult) (profile *model.VerifiedProfile) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("engine: reconciliation panic, returning minimal profile",
				zap.Any("panic", r),
			)
			profile = quality.Minimal(seed, e.now())
		}
	}()

	xrefs := crossref.Build(func(field string) []model.Observation {
		return normalize.Observations(field, collection.Sources)
	}, e.weights)
	resolutions := resolve.All(xrefs)

	return quality.Compile(seed, collection, xrefs, resolutions, e.now())
}

// writeCache stores the profile under each identifier strategy key so
// the local cache provider can serve subsequent lookups. Failures are
// logged and ignored.
func (e *Engine) writeCache(ctx context.Context, strategies []model.SearchStrategy, profile *model.VerifiedProfile) {
	if e.cache == nil {
		return
	}
	for _, s := range strategies {
		switch s.Kind {
		case model.StrategyNDC, model.StrategyBrandName, model.StrategyGenericName:
		default:
			continue
		}
		if err := e.cache.SetCachedProfile(ctx, provider.CacheKey(s), profile); err != nil {
			zap.L().Warn("engine: cache write failed",
				zap.String("key", provider.CacheKey(s)),
				zap.Error(err),
			)
		}
	}
}
