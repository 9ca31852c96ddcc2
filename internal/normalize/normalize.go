// Package normalize extracts logical field values from each provider's
// raw payload shape. The dispatch is keyed by provider identity and
// field name; an unknown pair yields nil, which is the expected outcome
// for most pairs since no provider covers every field.
package normalize

import (
	"strings"

	"github.com/rxscan/verify-cli/internal/model"
	"github.com/rxscan/verify-cli/internal/provider"
	"github.com/rxscan/verify-cli/pkg/openfda"
	"github.com/rxscan/verify-cli/pkg/webref"
)

type extractor func(raw any) any

// rules maps (provider, field) to an extraction rule.
var rules = map[string]map[string]extractor{
	provider.NameFDANDC: {
		model.FieldBrandName:         ndcField(func(p openfda.NDCProduct) any { return nonEmpty(p.BrandName) }),
		model.FieldGenericName:       ndcField(func(p openfda.NDCProduct) any { return nonEmpty(p.GenericName) }),
		model.FieldNDC:               ndcField(func(p openfda.NDCProduct) any { return firstPackageNDC(p) }),
		model.FieldManufacturer:      ndcField(func(p openfda.NDCProduct) any { return nonEmpty(p.LabelerName) }),
		model.FieldActiveIngredients: ndcField(func(p openfda.NDCProduct) any { return ingredientNames(p) }),
		model.FieldStrength:          ndcField(func(p openfda.NDCProduct) any { return ingredientStrengths(p) }),
		model.FieldDosageForm:        ndcField(func(p openfda.NDCProduct) any { return nonEmpty(p.DosageForm) }),
	},
	provider.NameFDALabel: {
		model.FieldBrandName:         labelField(func(l openfda.Label) any { return firstNonEmpty(l.OpenFDA.BrandName) }),
		model.FieldGenericName:       labelField(func(l openfda.Label) any { return firstNonEmpty(l.OpenFDA.GenericName) }),
		model.FieldNDC:               labelField(func(l openfda.Label) any { return firstNonEmpty(l.OpenFDA.ProductNDC) }),
		model.FieldManufacturer:      labelField(func(l openfda.Label) any { return firstNonEmpty(l.OpenFDA.Manufacturer) }),
		model.FieldActiveIngredients: labelField(func(l openfda.Label) any { return stringList(l.OpenFDA.SubstanceName) }),
		model.FieldIndications:       labelField(func(l openfda.Label) any { return stringList(l.IndicationsAndUsage) }),
		model.FieldContraindications: labelField(func(l openfda.Label) any { return stringList(l.Contraindications) }),
		model.FieldWarnings:          labelField(func(l openfda.Label) any { return stringList(l.Warnings) }),
		model.FieldAdverseReactions:  labelField(func(l openfda.Label) any { return stringList(l.AdverseReactions) }),
		model.FieldDrugInteractions:  labelField(func(l openfda.Label) any { return stringList(l.DrugInteractions) }),
	},
	provider.NameFDAFAERS: {
		model.FieldAdverseReactions: func(raw any) any {
			p, ok := raw.(provider.FAERSPayload)
			if !ok {
				return nil
			}
			return stringList(p.TopReactions)
		},
	},
	provider.NameRxNorm: {
		model.FieldBrandName: func(raw any) any {
			p, ok := raw.(provider.RxNormPayload)
			if !ok {
				return nil
			}
			return nonEmpty(p.BrandName())
		},
		model.FieldGenericName: func(raw any) any {
			p, ok := raw.(provider.RxNormPayload)
			if !ok {
				return nil
			}
			return nonEmpty(p.GenericName())
		},
	},
	provider.NameDailyMed: {
		model.FieldBrandName:    splField(func(t splTitle) any { return nonEmpty(t.brand) }),
		model.FieldGenericName:  splField(func(t splTitle) any { return nonEmpty(t.generic) }),
		model.FieldManufacturer: splField(func(t splTitle) any { return nonEmpty(t.labeler) }),
		model.FieldDosageForm:   splField(func(t splTitle) any { return nonEmpty(t.dosageForm) }),
	},
	provider.NameClinicalTrials: {
		model.FieldIndications: func(raw any) any {
			p, ok := raw.(provider.TrialsPayload)
			if !ok {
				return nil
			}
			var conditions []string
			seen := make(map[string]bool)
			for _, s := range p.Studies {
				for _, c := range s.Conditions {
					key := strings.ToLower(c)
					if !seen[key] {
						seen[key] = true
						conditions = append(conditions, c)
					}
				}
			}
			return stringList(conditions)
		},
	},
	provider.NameLocalCache: {
		model.FieldBrandName:         cacheField(func(p model.VerifiedProfile) any { return nonEmpty(p.Identification.BrandName) }),
		model.FieldGenericName:       cacheField(func(p model.VerifiedProfile) any { return nonEmpty(p.Identification.GenericName) }),
		model.FieldNDC:               cacheField(func(p model.VerifiedProfile) any { return nonEmpty(p.Identification.NDC) }),
		model.FieldManufacturer:      cacheField(func(p model.VerifiedProfile) any { return nonEmpty(p.Manufacturing.Manufacturer) }),
		model.FieldActiveIngredients: cacheField(func(p model.VerifiedProfile) any { return stringList(p.Identification.ActiveIngredients) }),
		model.FieldStrength:          cacheField(func(p model.VerifiedProfile) any { return nonEmpty(p.Identification.Strength) }),
		model.FieldDosageForm:        cacheField(func(p model.VerifiedProfile) any { return nonEmpty(p.Identification.DosageForm) }),
		model.FieldIndications:       cacheField(func(p model.VerifiedProfile) any { return stringList(p.Prescribing.Indications) }),
		model.FieldContraindications: cacheField(func(p model.VerifiedProfile) any { return stringList(p.Safety.Contraindications) }),
		model.FieldWarnings:          cacheField(func(p model.VerifiedProfile) any { return stringList(p.Safety.Warnings) }),
		model.FieldAdverseReactions:  cacheField(func(p model.VerifiedProfile) any { return stringList(p.Safety.AdverseReactions) }),
		model.FieldDrugInteractions:  cacheField(func(p model.VerifiedProfile) any { return stringList(p.Safety.DrugInteractions) }),
	},
	provider.NameWebRef: {
		model.FieldGenericName: func(raw any) any {
			p, ok := raw.(webref.PageSummary)
			if !ok {
				return nil
			}
			return nonEmpty(p.Title)
		},
	},
}

// Extract returns the normalized value of a field from one provider's
// payload, or nil when the provider has no rule for the field.
func Extract(providerName, field string, raw any) any {
	byField, ok := rules[providerName]
	if !ok {
		return nil
	}
	fn, ok := byField[field]
	if !ok || raw == nil {
		return nil
	}
	return fn(raw)
}

// Observations collects every successful provider's value for a field.
// Iteration follows the provider priority order so output is
// deterministic regardless of collection arrival order.
func Observations(field string, sources map[string]model.SourceResult) []model.Observation {
	var obs []model.Observation
	for _, name := range provider.PriorityOrder {
		sr, ok := sources[name]
		if !ok || sr.Status != model.SourceSuccess {
			continue
		}
		value := Extract(name, field, sr.Raw)
		if value == nil {
			continue
		}
		obs = append(obs, model.Observation{
			Value:       value,
			Source:      name,
			Reliability: sr.Reliability,
		})
	}
	return obs
}

func ndcField(fn func(openfda.NDCProduct) any) extractor {
	return func(raw any) any {
		p, ok := raw.(openfda.NDCProduct)
		if !ok {
			return nil
		}
		return fn(p)
	}
}

func labelField(fn func(openfda.Label) any) extractor {
	return func(raw any) any {
		l, ok := raw.(openfda.Label)
		if !ok {
			return nil
		}
		return fn(l)
	}
}

func cacheField(fn func(model.VerifiedProfile) any) extractor {
	return func(raw any) any {
		p, ok := raw.(provider.CachePayload)
		if !ok {
			return nil
		}
		return fn(p.Profile)
	}
}

func splField(fn func(splTitle) any) extractor {
	return func(raw any) any {
		p, ok := raw.(provider.SPLPayload)
		if !ok || len(p.SPLs) == 0 {
			return nil
		}
		return fn(parseSPLTitle(p.SPLs[0].Title))
	}
}

func nonEmpty(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

func firstNonEmpty(ss []string) any {
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return nil
}

func stringList(ss []string) any {
	var out []string
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func ingredientNames(p openfda.NDCProduct) any {
	var names []string
	for _, ing := range p.ActiveIngreds {
		if ing.Name != "" {
			names = append(names, ing.Name)
		}
	}
	return stringList(names)
}

func ingredientStrengths(p openfda.NDCProduct) any {
	var strengths []string
	for _, ing := range p.ActiveIngreds {
		if ing.Strength != "" {
			strengths = append(strengths, ing.Strength)
		}
	}
	if len(strengths) == 0 {
		return nil
	}
	return strings.Join(strengths, "; ")
}

func firstPackageNDC(p openfda.NDCProduct) any {
	for _, pkg := range p.Packaging {
		if pkg.PackageNDC != "" {
			return pkg.PackageNDC
		}
	}
	return nonEmpty(p.ProductNDC)
}

// splTitle is the parsed form of a DailyMed SPL title, which follows
// the convention "BRAND- generic form [LABELER]".
type splTitle struct {
	brand      string
	generic    string
	dosageForm string
	labeler    string
}

var dosageForms = []string{
	"tablet", "capsule", "solution", "suspension", "injection",
	"cream", "ointment", "gel", "patch", "spray", "syrup", "lozenge",
}

func parseSPLTitle(title string) splTitle {
	var t splTitle

	if i := strings.Index(title, "["); i >= 0 {
		if j := strings.Index(title[i:], "]"); j > 0 {
			t.labeler = strings.TrimSpace(title[i+1 : i+j])
		}
		title = strings.TrimSpace(title[:i])
	}

	if i := strings.Index(title, "-"); i >= 0 {
		t.brand = strings.TrimSpace(title[:i])
		rest := strings.TrimSpace(title[i+1:])
		lower := strings.ToLower(rest)
		for _, form := range dosageForms {
			if idx := strings.Index(lower, form); idx >= 0 {
				t.dosageForm = form
				rest = strings.TrimSpace(rest[:idx])
				break
			}
		}
		t.generic = rest
	} else {
		t.brand = strings.TrimSpace(title)
	}
	return t
}
