package quality

import (
	"time"

	"github.com/rxscan/verify-cli/internal/extract"
	"github.com/rxscan/verify-cli/internal/model"
	"github.com/rxscan/verify-cli/internal/provider"
)

// Compile assembles the final verified profile from the reconciled
// fields, the raw source payloads, and the computed metrics. Every
// populated field traces back to a source result.
func Compile(
	seed model.SeedIdentifiers,
	collection *model.CollectionResult,
	xrefs map[string]model.FieldCrossReference,
	resolutions map[string]model.ConflictResolution,
	now time.Time,
) *model.VerifiedProfile {
	validation := Validate(xrefs, resolutions)
	metrics := Metrics(collection, xrefs, resolutions, validation.Accuracy)

	p := &model.VerifiedProfile{
		Kind:            model.ProfileVerified,
		Quality:         metrics,
		Resolutions:     resolutions,
		Discrepancies:   validation.Discrepancies,
		Recommendations: Recommendations(metrics),
		Disclaimer:      Disclaimer(metrics.Tier),
		VerifiedAt:      now,
	}

	p.Identification = model.IdentificationProfile{
		BrandName:         str(resolutions, model.FieldBrandName),
		GenericName:       str(resolutions, model.FieldGenericName),
		ActiveIngredients: strs(resolutions, model.FieldActiveIngredients),
		Strength:          str(resolutions, model.FieldStrength),
		DosageForm:        str(resolutions, model.FieldDosageForm),
	}
	// The NDC format gate: a value that fails the pattern is recorded
	// in the resolutions for audit but never promoted to the profile.
	if ndc := str(resolutions, model.FieldNDC); extract.ValidNDC(ndc) {
		p.Identification.NDC = ndc
	}

	p.Prescribing = model.PrescribingProfile{
		Indications: strs(resolutions, model.FieldIndications),
		Route:       seed.Route,
	}
	p.Safety = model.SafetyProfile{
		Contraindications: strs(resolutions, model.FieldContraindications),
		Warnings:          strs(resolutions, model.FieldWarnings),
		AdverseReactions:  strs(resolutions, model.FieldAdverseReactions),
		DrugInteractions:  strs(resolutions, model.FieldDrugInteractions),
	}
	p.Manufacturing = model.ManufacturingProfile{
		Manufacturer: str(resolutions, model.FieldManufacturer),
	}

	fillRegistryFindings(p, collection)
	p.Attribution = attribution(collection)
	return p
}

// Minimal is the fail-soft fallback profile returned when the back half
// of the pipeline breaks: well-formed, clearly flagged, basic tier.
func Minimal(seed model.SeedIdentifiers, now time.Time) *model.VerifiedProfile {
	return &model.VerifiedProfile{
		Kind: model.ProfileMinimal,
		Identification: model.IdentificationProfile{
			BrandName:   seed.BrandName,
			GenericName: seed.GenericName,
		},
		Quality: model.QualityMetrics{Tier: model.TierBasic},
		Recommendations: []string{
			"Consult a healthcare professional before acting on this information.",
		},
		Disclaimer: "Analysis incomplete: this profile could not be verified against external sources. Do not rely on it for medication decisions.",
		VerifiedAt: now,
	}
}

// fillRegistryFindings populates the regulatory and clinical
// sub-profiles straight from the typed source payloads; these findings
// are provider-specific and bypass cross-referencing.
func fillRegistryFindings(p *model.VerifiedProfile, collection *model.CollectionResult) {
	if sr, ok := collection.Sources[provider.NameRxNorm]; ok && sr.Status == model.SourceSuccess {
		if payload, ok := sr.Raw.(provider.RxNormPayload); ok {
			p.Regulatory.RxNormID = payload.RxCUI()
		}
	}
	if sr, ok := collection.Sources[provider.NameDailyMed]; ok && sr.Status == model.SourceSuccess {
		if payload, ok := sr.Raw.(provider.SPLPayload); ok && len(payload.SPLs) > 0 {
			p.Regulatory.SPLSetID = payload.SPLs[0].SetID
		}
	}
	if sr, ok := collection.Sources[provider.NameFDAEnforcement]; ok && sr.Status == model.SourceSuccess {
		if payload, ok := sr.Raw.(provider.EnforcementPayload); ok {
			for _, r := range payload.Recalls {
				if r.Status == "Ongoing" {
					p.Regulatory.ActiveRecalls = append(p.Regulatory.ActiveRecalls,
						r.RecallNumber+": "+r.ReasonForRecall)
				}
			}
		}
	}
	if sr, ok := collection.Sources[provider.NameClinicalTrials]; ok && sr.Status == model.SourceSuccess {
		if payload, ok := sr.Raw.(provider.TrialsPayload); ok {
			p.Clinical.TrialCount = len(payload.Studies)
			for i, s := range payload.Studies {
				if i == 3 {
					break
				}
				p.Clinical.RecentTrialIDs = append(p.Clinical.RecentTrialIDs, s.NCTID)
			}
		}
	}
	if sr, ok := collection.Sources[provider.NamePubMed]; ok && sr.Status == model.SourceSuccess {
		if payload, ok := sr.Raw.(provider.LiteraturePayload); ok {
			p.Clinical.PublicationCount = payload.Result.Count
		}
	}
}

// attribution summarizes each provider's participation, in priority
// order.
func attribution(collection *model.CollectionResult) []model.SourceAttribution {
	var out []model.SourceAttribution
	for _, name := range provider.PriorityOrder {
		sr, ok := collection.Sources[name]
		if !ok {
			continue
		}
		att := model.SourceAttribution{
			Provider:    name,
			Status:      sr.Status,
			Reliability: sr.Reliability,
			DataPoints:  sr.DataPoints,
		}
		if sr.Strategy != nil {
			att.Strategy = string(sr.Strategy.Kind)
		}
		out = append(out, att)
	}
	return out
}

func str(resolutions map[string]model.ConflictResolution, field string) string {
	res, ok := resolutions[field]
	if !ok || !res.Resolved {
		return ""
	}
	s, _ := res.Value.(string)
	return s
}

func strs(resolutions map[string]model.ConflictResolution, field string) []string {
	res, ok := resolutions[field]
	if !ok || !res.Resolved {
		return nil
	}
	switch v := res.Value.(type) {
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}
