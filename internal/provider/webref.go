package provider

import (
	"context"
	"strings"
	"time"

	"github.com/rxscan/verify-cli/internal/model"
	"github.com/rxscan/verify-cli/pkg/webref"
)

// WebLookup is the generic, lowest-trust web corroboration source.
type WebLookup struct {
	client  webref.Client
	timeout time.Duration
}

// NewWebLookup creates the web reference provider.
func NewWebLookup(client webref.Client, timeout time.Duration) *WebLookup {
	return &WebLookup{client: client, timeout: timeout}
}

func (p *WebLookup) Name() string     { return NameWebRef }
func (p *WebLookup) Reliability() int { return Reliability[NameWebRef] }

func (p *WebLookup) Search(ctx context.Context, strategies []model.SearchStrategy) *model.SourceResult {
	return search(ctx, p.Name(), p.timeout, strategies,
		func(ctx context.Context, s model.SearchStrategy) (any, int, bool, error) {
			switch s.Kind {
			case model.StrategyBrandName, model.StrategyGenericName,
				model.StrategyActiveIngredient:
			default:
				return nil, 0, false, nil
			}

			summary, err := p.client.Summary(ctx, s.Value)
			if err != nil {
				return nil, 0, false, err
			}
			if summary == nil || summary.Extract == "" {
				return nil, 0, false, nil
			}
			// Only accept pages that look pharmacological; the lookup
			// is by bare title and can land anywhere.
			desc := strings.ToLower(summary.Description + " " + summary.Extract)
			if !strings.Contains(desc, "medication") && !strings.Contains(desc, "drug") &&
				!strings.Contains(desc, "pharmaceutical") {
				return nil, 0, false, nil
			}

			points := 1
			if summary.Description != "" {
				points++
			}
			return *summary, points, true, nil
		})
}
