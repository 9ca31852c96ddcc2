// Package provider defines the uniform client contract for external
// medication data sources and the registry that holds them. Each client
// tries the planned strategies strictly in order and returns on the
// first one that yields data; provider-local errors never escape.
package provider

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rxscan/verify-cli/internal/model"
)

// Provider names. These are the keys of the collector's result map and
// the normalizer's dispatch table.
const (
	NameFDANDC         = "fda_ndc"
	NameFDALabel       = "fda_label"
	NameFDAFAERS       = "fda_faers"
	NameRxNorm         = "rxnorm"
	NameDailyMed       = "dailymed"
	NameFDAEnforcement = "fda_enforcement"
	NameClinicalTrials = "clinicaltrials"
	NamePubMed         = "pubmed"
	NameLocalCache     = "local_cache"
	NameWebRef         = "webref"
)

// Reliability is the fixed authoritativeness weight (1-10) per
// provider. Regulatory and primary registries weigh highest; cached and
// unstructured web data weigh lowest.
var Reliability = map[string]int{
	NameFDANDC:         10,
	NameFDALabel:       9,
	NameFDAFAERS:       8,
	NameRxNorm:         9,
	NameDailyMed:       8,
	NameFDAEnforcement: 9,
	NameClinicalTrials: 7,
	NamePubMed:         6,
	NameLocalCache:     4,
	NameWebRef:         3,
}

// PriorityOrder is the fixed provider ranking used by the conflict
// resolver: regulatory primary registry first, web-scraped data last.
var PriorityOrder = []string{
	NameFDANDC,
	NameFDALabel,
	NameFDAFAERS,
	NameRxNorm,
	NameDailyMed,
	NameFDAEnforcement,
	NameClinicalTrials,
	NamePubMed,
	NameLocalCache,
	NameWebRef,
}

// Rank returns a provider's position in the priority order, or a rank
// below every known provider for unknown names.
func Rank(name string) int {
	for i, n := range PriorityOrder {
		if n == name {
			return i
		}
	}
	return len(PriorityOrder)
}

// Client is the single extension point for adding a data source. Search
// tries strategies in priority order and returns the first non-empty
// result, nil when every strategy came back empty, or a failed
// SourceResult when the provider itself broke. Implementations must
// never return an error to the collector.
type Client interface {
	Name() string
	Reliability() int
	Search(ctx context.Context, strategies []model.SearchStrategy) *model.SourceResult
}

// Registry manages the active provider clients.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// Register adds a client to the registry.
func (r *Registry) Register(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.Name()] = c
}

// Get returns a client by name, or nil if not registered.
func (r *Registry) Get(name string) Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[name]
}

// List returns all registered clients in priority order.
func (r *Registry) List() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return Rank(out[i].Name()) < Rank(out[j].Name())
	})
	return out
}

// searcher runs one provider's strategy loop with a provider-level
// timeout budget. attempt returns (payload, dataPoints, matched, err);
// a nil error with matched=false means the strategy found nothing.
func search(
	ctx context.Context,
	name string,
	timeout time.Duration,
	strategies []model.SearchStrategy,
	attempt func(ctx context.Context, s model.SearchStrategy) (any, int, bool, error),
) *model.SourceResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	for i := range strategies {
		s := strategies[i]

		payload, points, matched, err := attempt(ctx, s)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if !matched {
			continue
		}

		return &model.SourceResult{
			Provider:    name,
			Status:      model.SourceSuccess,
			Raw:         payload,
			DataPoints:  points,
			Reliability: Reliability[name],
			Strategy:    &s,
		}
	}

	if lastErr != nil {
		return &model.SourceResult{
			Provider:    name,
			Status:      model.SourceFailed,
			Reliability: Reliability[name],
			Error:       lastErr.Error(),
		}
	}
	return nil
}
