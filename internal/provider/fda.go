package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rxscan/verify-cli/internal/model"
	"github.com/rxscan/verify-cli/pkg/openfda"
)

// productNDC reduces a full package NDC (labeler-product-package) to
// the labeler-product prefix the NDC directory indexes on.
func productNDC(ndc string) string {
	parts := strings.Split(ndc, "-")
	if len(parts) == 3 {
		return parts[0] + "-" + parts[1]
	}
	return ndc
}

// NDCDirectory queries the openFDA NDC directory, the regulatory
// primary registry.
type NDCDirectory struct {
	client  openfda.Client
	timeout time.Duration
}

// NewNDCDirectory creates the NDC directory provider.
func NewNDCDirectory(client openfda.Client, timeout time.Duration) *NDCDirectory {
	return &NDCDirectory{client: client, timeout: timeout}
}

func (p *NDCDirectory) Name() string     { return NameFDANDC }
func (p *NDCDirectory) Reliability() int { return Reliability[NameFDANDC] }

func (p *NDCDirectory) Search(ctx context.Context, strategies []model.SearchStrategy) *model.SourceResult {
	return search(ctx, p.Name(), p.timeout, strategies,
		func(ctx context.Context, s model.SearchStrategy) (any, int, bool, error) {
			var query string
			switch s.Kind {
			case model.StrategyNDC:
				query = fmt.Sprintf("product_ndc:%q", productNDC(s.Value))
			case model.StrategyBrandName, model.StrategyBrandNameStrength, model.StrategyManufacturerBrand:
				query = fmt.Sprintf("brand_name:%q", s.Value)
			case model.StrategyGenericName, model.StrategyGenericNameStrength:
				query = fmt.Sprintf("generic_name:%q", s.Value)
			case model.StrategyActiveIngredient:
				query = fmt.Sprintf("active_ingredients.name:%q", s.Value)
			default:
				return nil, 0, false, nil
			}

			products, err := p.client.SearchNDC(ctx, query, 1)
			if err != nil {
				return nil, 0, false, err
			}
			if len(products) == 0 {
				return nil, 0, false, nil
			}

			prod := products[0]
			return prod, countNDCPoints(prod), true, nil
		})
}

func countNDCPoints(p openfda.NDCProduct) int {
	points := 0
	for _, s := range []string{p.ProductNDC, p.BrandName, p.GenericName, p.LabelerName, p.DosageForm} {
		if s != "" {
			points++
		}
	}
	points += len(p.Route) + len(p.ActiveIngreds) + len(p.Packaging)
	return points
}

// LabelRegistry queries openFDA structured product labels.
type LabelRegistry struct {
	client  openfda.Client
	timeout time.Duration
}

// NewLabelRegistry creates the drug label provider.
func NewLabelRegistry(client openfda.Client, timeout time.Duration) *LabelRegistry {
	return &LabelRegistry{client: client, timeout: timeout}
}

func (p *LabelRegistry) Name() string     { return NameFDALabel }
func (p *LabelRegistry) Reliability() int { return Reliability[NameFDALabel] }

func (p *LabelRegistry) Search(ctx context.Context, strategies []model.SearchStrategy) *model.SourceResult {
	return search(ctx, p.Name(), p.timeout, strategies,
		func(ctx context.Context, s model.SearchStrategy) (any, int, bool, error) {
			var query string
			switch s.Kind {
			case model.StrategyNDC:
				query = fmt.Sprintf("openfda.product_ndc:%q", productNDC(s.Value))
			case model.StrategyBrandName, model.StrategyBrandNameStrength, model.StrategyManufacturerBrand:
				query = fmt.Sprintf("openfda.brand_name:%q", s.Value)
			case model.StrategyGenericName, model.StrategyGenericNameStrength:
				query = fmt.Sprintf("openfda.generic_name:%q", s.Value)
			case model.StrategyActiveIngredient:
				query = fmt.Sprintf("openfda.substance_name:%q", s.Value)
			default:
				return nil, 0, false, nil
			}

			labels, err := p.client.SearchLabel(ctx, query, 1)
			if err != nil {
				return nil, 0, false, err
			}
			if len(labels) == 0 {
				return nil, 0, false, nil
			}

			label := labels[0]
			return label, countLabelPoints(label), true, nil
		})
}

func countLabelPoints(l openfda.Label) int {
	points := 0
	for _, arr := range [][]string{
		l.IndicationsAndUsage, l.Contraindications, l.Warnings,
		l.AdverseReactions, l.DrugInteractions,
		l.OpenFDA.BrandName, l.OpenFDA.GenericName, l.OpenFDA.Manufacturer,
		l.OpenFDA.ProductNDC, l.OpenFDA.SubstanceName,
	} {
		points += len(arr)
	}
	return points
}

// FAERSPayload is the aggregated adverse-event picture for a drug,
// derived deterministically from the raw reports.
type FAERSPayload struct {
	ReportCount  int      `json:"report_count"`
	SeriousCount int      `json:"serious_count"`
	TopReactions []string `json:"top_reactions"`
}

// AdverseEvents queries the openFDA FAERS adverse event reports.
type AdverseEvents struct {
	client  openfda.Client
	timeout time.Duration
}

// NewAdverseEvents creates the adverse-event provider.
func NewAdverseEvents(client openfda.Client, timeout time.Duration) *AdverseEvents {
	return &AdverseEvents{client: client, timeout: timeout}
}

func (p *AdverseEvents) Name() string     { return NameFDAFAERS }
func (p *AdverseEvents) Reliability() int { return Reliability[NameFDAFAERS] }

func (p *AdverseEvents) Search(ctx context.Context, strategies []model.SearchStrategy) *model.SourceResult {
	return search(ctx, p.Name(), p.timeout, strategies,
		func(ctx context.Context, s model.SearchStrategy) (any, int, bool, error) {
			var query string
			switch s.Kind {
			case model.StrategyNDC:
				query = fmt.Sprintf("patient.drug.openfda.product_ndc:%q", productNDC(s.Value))
			case model.StrategyBrandName, model.StrategyGenericName,
				model.StrategyBrandNameStrength, model.StrategyGenericNameStrength,
				model.StrategyActiveIngredient:
				query = fmt.Sprintf("patient.drug.medicinalproduct:%q", s.Value)
			default:
				return nil, 0, false, nil
			}

			events, err := p.client.SearchEvents(ctx, query, 25)
			if err != nil {
				return nil, 0, false, err
			}
			if len(events) == 0 {
				return nil, 0, false, nil
			}

			payload := aggregateEvents(events)
			return payload, payload.ReportCount + len(payload.TopReactions), true, nil
		})
}

// aggregateEvents folds raw reports into reaction frequencies. Ties
// break alphabetically so the output is stable.
func aggregateEvents(events []openfda.Event) FAERSPayload {
	payload := FAERSPayload{ReportCount: len(events)}
	freq := make(map[string]int)
	for _, e := range events {
		if e.Serious == "1" {
			payload.SeriousCount++
		}
		for _, r := range e.Patient.Reactions {
			name := strings.TrimSpace(r.ReactionMedDRAPT)
			if name != "" {
				freq[name]++
			}
		}
	}

	reactions := make([]string, 0, len(freq))
	for name := range freq {
		reactions = append(reactions, name)
	}
	sort.Slice(reactions, func(i, j int) bool {
		if freq[reactions[i]] != freq[reactions[j]] {
			return freq[reactions[i]] > freq[reactions[j]]
		}
		return reactions[i] < reactions[j]
	})
	if len(reactions) > 10 {
		reactions = reactions[:10]
	}
	payload.TopReactions = reactions
	return payload
}

// EnforcementPayload holds active recall reports for a drug.
type EnforcementPayload struct {
	Recalls []openfda.Enforcement `json:"recalls"`
}

// EnforcementRegistry queries openFDA recall enforcement reports.
type EnforcementRegistry struct {
	client  openfda.Client
	timeout time.Duration
}

// NewEnforcementRegistry creates the recall/enforcement provider.
func NewEnforcementRegistry(client openfda.Client, timeout time.Duration) *EnforcementRegistry {
	return &EnforcementRegistry{client: client, timeout: timeout}
}

func (p *EnforcementRegistry) Name() string     { return NameFDAEnforcement }
func (p *EnforcementRegistry) Reliability() int { return Reliability[NameFDAEnforcement] }

func (p *EnforcementRegistry) Search(ctx context.Context, strategies []model.SearchStrategy) *model.SourceResult {
	return search(ctx, p.Name(), p.timeout, strategies,
		func(ctx context.Context, s model.SearchStrategy) (any, int, bool, error) {
			// Enforcement reports are free text; every strategy kind
			// searches the product description.
			query := fmt.Sprintf("product_description:%q", s.Value)

			recalls, err := p.client.SearchEnforcement(ctx, query, 10)
			if err != nil {
				return nil, 0, false, err
			}
			if len(recalls) == 0 {
				return nil, 0, false, nil
			}

			return EnforcementPayload{Recalls: recalls}, len(recalls), true, nil
		})
}
