package provider

import (
	"context"
	"time"

	"github.com/rxscan/verify-cli/internal/model"
	"github.com/rxscan/verify-cli/pkg/ctgov"
	"github.com/rxscan/verify-cli/pkg/pubmed"
)

// TrialsPayload holds registered studies mentioning the drug.
type TrialsPayload struct {
	Studies []ctgov.Study `json:"studies"`
}

// ClinicalTrials queries the ClinicalTrials.gov study registry.
type ClinicalTrials struct {
	client  ctgov.Client
	timeout time.Duration
}

// NewClinicalTrials creates the clinical-trial provider.
func NewClinicalTrials(client ctgov.Client, timeout time.Duration) *ClinicalTrials {
	return &ClinicalTrials{client: client, timeout: timeout}
}

func (p *ClinicalTrials) Name() string     { return NameClinicalTrials }
func (p *ClinicalTrials) Reliability() int { return Reliability[NameClinicalTrials] }

func (p *ClinicalTrials) Search(ctx context.Context, strategies []model.SearchStrategy) *model.SourceResult {
	return search(ctx, p.Name(), p.timeout, strategies,
		func(ctx context.Context, s model.SearchStrategy) (any, int, bool, error) {
			switch s.Kind {
			case model.StrategyBrandName, model.StrategyGenericName,
				model.StrategyActiveIngredient:
			default:
				// Trial records are name-indexed; NDC and combined
				// strategies find nothing here.
				return nil, 0, false, nil
			}

			studies, err := p.client.SearchStudies(ctx, s.Value, 10)
			if err != nil {
				return nil, 0, false, err
			}
			if len(studies) == 0 {
				return nil, 0, false, nil
			}
			return TrialsPayload{Studies: studies}, len(studies), true, nil
		})
}

// LiteraturePayload holds the PubMed corroboration for the drug.
type LiteraturePayload struct {
	Result pubmed.SearchResult `json:"result"`
}

// Literature queries the PubMed citation index.
type Literature struct {
	client  pubmed.Client
	timeout time.Duration
}

// NewLiterature creates the literature provider.
func NewLiterature(client pubmed.Client, timeout time.Duration) *Literature {
	return &Literature{client: client, timeout: timeout}
}

func (p *Literature) Name() string     { return NamePubMed }
func (p *Literature) Reliability() int { return Reliability[NamePubMed] }

func (p *Literature) Search(ctx context.Context, strategies []model.SearchStrategy) *model.SourceResult {
	return search(ctx, p.Name(), p.timeout, strategies,
		func(ctx context.Context, s model.SearchStrategy) (any, int, bool, error) {
			switch s.Kind {
			case model.StrategyBrandName, model.StrategyGenericName,
				model.StrategyActiveIngredient:
			default:
				return nil, 0, false, nil
			}

			result, err := p.client.Search(ctx, s.Value+"[Title/Abstract]", 5)
			if err != nil {
				return nil, 0, false, err
			}
			if result == nil || result.Count == 0 {
				return nil, 0, false, nil
			}
			return LiteraturePayload{Result: *result}, result.Count, true, nil
		})
}
