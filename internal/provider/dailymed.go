package provider

import (
	"context"
	"time"

	"github.com/rxscan/verify-cli/internal/model"
	"github.com/rxscan/verify-cli/pkg/dailymed"
)

// SPLPayload holds the structured product label documents found for a
// drug.
type SPLPayload struct {
	SPLs []dailymed.SPL `json:"spls"`
}

// LabelDocuments queries the DailyMed structured-label registry.
type LabelDocuments struct {
	client  dailymed.Client
	timeout time.Duration
}

// NewLabelDocuments creates the DailyMed provider.
func NewLabelDocuments(client dailymed.Client, timeout time.Duration) *LabelDocuments {
	return &LabelDocuments{client: client, timeout: timeout}
}

func (p *LabelDocuments) Name() string     { return NameDailyMed }
func (p *LabelDocuments) Reliability() int { return Reliability[NameDailyMed] }

func (p *LabelDocuments) Search(ctx context.Context, strategies []model.SearchStrategy) *model.SourceResult {
	return search(ctx, p.Name(), p.timeout, strategies,
		func(ctx context.Context, s model.SearchStrategy) (any, int, bool, error) {
			var params dailymed.SearchParams
			switch s.Kind {
			case model.StrategyNDC:
				params.NDC = s.Value
			case model.StrategyBrandName, model.StrategyGenericName,
				model.StrategyActiveIngredient:
				params.DrugName = s.Value
			default:
				return nil, 0, false, nil
			}

			spls, err := p.client.SearchSPLs(ctx, params)
			if err != nil {
				return nil, 0, false, err
			}
			if len(spls) == 0 {
				return nil, 0, false, nil
			}
			return SPLPayload{SPLs: spls}, len(spls), true, nil
		})
}
