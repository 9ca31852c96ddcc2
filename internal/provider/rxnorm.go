package provider

import (
	"context"
	"time"

	"github.com/rxscan/verify-cli/internal/model"
	"github.com/rxscan/verify-cli/pkg/rxnorm"
)

// RxNormPayload is the nomenclature registry's view of the drug.
type RxNormPayload struct {
	Concepts []rxnorm.Concept `json:"concepts"`
	NDCInfo  *rxnorm.NDCInfo  `json:"ndc_info,omitempty"`
}

// BrandName returns the first brand-name (BN/SBD) concept, if any.
func (p RxNormPayload) BrandName() string {
	for _, c := range p.Concepts {
		if c.TTY == "BN" || c.TTY == "SBD" {
			return c.Name
		}
	}
	return ""
}

// GenericName returns the first ingredient/clinical-drug concept.
func (p RxNormPayload) GenericName() string {
	for _, c := range p.Concepts {
		if c.TTY == "IN" || c.TTY == "SCD" || c.TTY == "PIN" {
			return c.Name
		}
	}
	return ""
}

// RxCUI returns the strongest concept identifier available.
func (p RxNormPayload) RxCUI() string {
	if p.NDCInfo != nil && p.NDCInfo.RxCUI != "" {
		return p.NDCInfo.RxCUI
	}
	if len(p.Concepts) > 0 {
		return p.Concepts[0].RxCUI
	}
	return ""
}

// Nomenclature queries the RxNorm standardized drug nomenclature.
type Nomenclature struct {
	client  rxnorm.Client
	timeout time.Duration
}

// NewNomenclature creates the RxNorm provider.
func NewNomenclature(client rxnorm.Client, timeout time.Duration) *Nomenclature {
	return &Nomenclature{client: client, timeout: timeout}
}

func (p *Nomenclature) Name() string     { return NameRxNorm }
func (p *Nomenclature) Reliability() int { return Reliability[NameRxNorm] }

func (p *Nomenclature) Search(ctx context.Context, strategies []model.SearchStrategy) *model.SourceResult {
	return search(ctx, p.Name(), p.timeout, strategies,
		func(ctx context.Context, s model.SearchStrategy) (any, int, bool, error) {
			switch s.Kind {
			case model.StrategyNDC:
				info, err := p.client.NDCProperties(ctx, s.Value)
				if err != nil {
					return nil, 0, false, err
				}
				if info == nil {
					return nil, 0, false, nil
				}
				return RxNormPayload{NDCInfo: info}, 2, true, nil

			case model.StrategyBrandName, model.StrategyGenericName,
				model.StrategyBrandNameStrength, model.StrategyGenericNameStrength,
				model.StrategyActiveIngredient:
				concepts, err := p.client.FindDrugs(ctx, s.Value)
				if err != nil {
					return nil, 0, false, err
				}
				if len(concepts) == 0 {
					return nil, 0, false, nil
				}
				return RxNormPayload{Concepts: concepts}, len(concepts), true, nil

			default:
				return nil, 0, false, nil
			}
		})
}
