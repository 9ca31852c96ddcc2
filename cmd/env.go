package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rxscan/verify-cli/internal/collect"
	"github.com/rxscan/verify-cli/internal/crossref"
	"github.com/rxscan/verify-cli/internal/engine"
	"github.com/rxscan/verify-cli/internal/provider"
	"github.com/rxscan/verify-cli/internal/resilience"
	"github.com/rxscan/verify-cli/internal/store"
	"github.com/rxscan/verify-cli/pkg/ctgov"
	"github.com/rxscan/verify-cli/pkg/dailymed"
	"github.com/rxscan/verify-cli/pkg/openfda"
	"github.com/rxscan/verify-cli/pkg/pubmed"
	"github.com/rxscan/verify-cli/pkg/rxnorm"
	"github.com/rxscan/verify-cli/pkg/webref"
)

// env bundles the wired components a command needs.
type env struct {
	Store    store.Store
	Registry *provider.Registry
	Breakers *resilience.BreakerSet
	Engine   *engine.Engine
}

func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	ttl := cfg.Store.CacheTTLDuration()
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "verify.db"
		}
		return store.NewSQLite(dsn, ttl)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, ttl)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func secs(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

// initRegistry builds the full provider set in priority order.
func initRegistry(st store.Store) *provider.Registry {
	fdaClient := openfda.NewClient(cfg.OpenFDA.Key,
		openfda.WithBaseURL(cfg.OpenFDA.BaseURL),
		openfda.WithRateLimit(cfg.OpenFDA.RatePerMinute),
	)
	fdaTimeout := secs(cfg.OpenFDA.TimeoutSecs, 15*time.Second)

	rxClient := rxnorm.NewClient(rxnorm.WithBaseURL(cfg.RxNorm.BaseURL))
	dmClient := dailymed.NewClient(dailymed.WithBaseURL(cfg.DailyMed.BaseURL))
	ctClient := ctgov.NewClient(ctgov.WithBaseURL(cfg.CTGov.BaseURL))
	pmOpts := []pubmed.Option{pubmed.WithBaseURL(cfg.PubMed.BaseURL)}
	if cfg.PubMed.Key != "" {
		pmOpts = append(pmOpts, pubmed.WithAPIKey(cfg.PubMed.Key))
	}
	pmClient := pubmed.NewClient(pmOpts...)
	wrClient := webref.NewClient(webref.WithBaseURL(cfg.WebRef.BaseURL))

	reg := provider.NewRegistry()
	reg.Register(provider.NewNDCDirectory(fdaClient, fdaTimeout))
	reg.Register(provider.NewLabelRegistry(fdaClient, fdaTimeout))
	reg.Register(provider.NewAdverseEvents(fdaClient, fdaTimeout))
	reg.Register(provider.NewNomenclature(rxClient, secs(cfg.RxNorm.TimeoutSecs, 10*time.Second)))
	reg.Register(provider.NewLabelDocuments(dmClient, secs(cfg.DailyMed.TimeoutSecs, 15*time.Second)))
	reg.Register(provider.NewEnforcementRegistry(fdaClient, fdaTimeout))
	reg.Register(provider.NewClinicalTrials(ctClient, secs(cfg.CTGov.TimeoutSecs, 20*time.Second)))
	reg.Register(provider.NewLiterature(pmClient, secs(cfg.PubMed.TimeoutSecs, 20*time.Second)))
	reg.Register(provider.NewLocalCache(st, 5*time.Second))
	reg.Register(provider.NewWebLookup(wrClient, secs(cfg.WebRef.TimeoutSecs, 10*time.Second)))
	return reg
}

func loadWeights() crossref.Weights {
	if cfg.Engine.WeightsFile == "" {
		return crossref.DefaultWeights()
	}
	w, err := crossref.LoadWeights(cfg.Engine.WeightsFile)
	if err != nil {
		zap.L().Warn("falling back to default scoring weights",
			zap.String("file", cfg.Engine.WeightsFile),
			zap.Error(err),
		)
		return crossref.DefaultWeights()
	}
	return w
}

// initEnv wires store, providers, breakers, and engine for a command.
func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	reg := initRegistry(st)
	breakers := resilience.NewBreakerSet(3, 60*time.Second)
	collector := collect.New(reg, breakers)

	eng := engine.New(collector, loadWeights(),
		engine.WithCacheWriter(st),
		engine.WithRequestTimeout(secs(cfg.Engine.RequestTimeoutSecs, 45*time.Second)),
	)

	return &env{
		Store:    st,
		Registry: reg,
		Breakers: breakers,
		Engine:   eng,
	}, nil
}
