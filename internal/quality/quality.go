// Package quality computes dataset-level quality metrics, runs
// consistency validation over the reconciled fields, and compiles the
// final verified profile.
package quality

import (
	"fmt"

	"github.com/rxscan/verify-cli/internal/crossref"
	"github.com/rxscan/verify-cli/internal/extract"
	"github.com/rxscan/verify-cli/internal/model"
)

// Overall quality blend: 30% completeness, 30% accuracy, 20% source
// reliability, 20% cross-verification.
const (
	weightCompleteness = 0.30
	weightAccuracy     = 0.30
	weightReliability  = 0.20
	weightCrossVerif   = 0.20
)

// Recommendation thresholds.
const (
	completenessFloor = 70
	accuracyFloor     = 80
	reliabilityFloor  = 70
)

// Validation runs the consistency checks across resolved fields and
// returns an accuracy score (0-100) plus the detected discrepancies.
type Validation struct {
	Accuracy      float64
	Discrepancies []model.Discrepancy
}

// Validate checks the reconciled fields for internal consistency.
// Every check that fails deducts from accuracy and records a
// discrepancy.
func Validate(xrefs map[string]model.FieldCrossReference, resolutions map[string]model.ConflictResolution) Validation {
	v := Validation{Accuracy: 100}

	deduct := func(points float64, field, detail string, severity model.DiscrepancySeverity) {
		v.Accuracy -= points
		v.Discrepancies = append(v.Discrepancies, model.Discrepancy{
			FieldKey: field,
			Detail:   detail,
			Severity: severity,
		})
	}

	// NDC: conflicting observations are a high-severity signal, and a
	// resolved value that fails the format gate is never promoted.
	if xref, ok := xrefs[model.FieldNDC]; ok {
		if len(xref.Conflicts) > 0 {
			deduct(15, model.FieldNDC,
				fmt.Sprintf("providers disagree on NDC (%d conflicting)", len(xref.Conflicts)),
				model.SeverityHigh)
		}
		if res, ok := resolutions[model.FieldNDC]; ok && res.Resolved {
			if s, ok := res.Value.(string); ok && !extract.ValidNDC(s) {
				deduct(10, model.FieldNDC,
					fmt.Sprintf("resolved NDC %q fails format validation", s),
					model.SeverityHigh)
			}
		}
	}

	// Names: disagreement on the brand or generic name is suspicious.
	for _, field := range []string{model.FieldBrandName, model.FieldGenericName} {
		if xref, ok := xrefs[field]; ok && len(xref.Conflicts) > 0 {
			deduct(10, field,
				fmt.Sprintf("providers disagree on %s (%d conflicting)", field, len(xref.Conflicts)),
				model.SeverityMedium)
		}
	}

	// Manufacturer: up to two distinct strings are tolerated, since
	// subsidiaries and labelers legitimately differ.
	if xref, ok := xrefs[model.FieldManufacturer]; ok {
		distinct := distinctValues(xref.Observations)
		if distinct > 2 {
			deduct(10, model.FieldManufacturer,
				fmt.Sprintf("%d distinct manufacturer names reported", distinct),
				model.SeverityMedium)
		}
	}

	// Strength and dosage form: straightforward agreement checks.
	for _, field := range []string{model.FieldStrength, model.FieldDosageForm} {
		if xref, ok := xrefs[field]; ok && len(xref.Conflicts) > 0 {
			deduct(5, field,
				fmt.Sprintf("providers disagree on %s", field),
				model.SeverityLow)
		}
	}

	if v.Accuracy < 0 {
		v.Accuracy = 0
	}
	return v
}

func distinctValues(obs []model.Observation) int {
	seen := make(map[string]bool)
	for _, o := range obs {
		seen[crossref.ComparableKey(o.Value)] = true
	}
	return len(seen)
}

// Metrics computes the dataset-level quality numbers.
func Metrics(collection *model.CollectionResult, xrefs map[string]model.FieldCrossReference, resolutions map[string]model.ConflictResolution, accuracy float64) model.QualityMetrics {
	m := model.QualityMetrics{Accuracy: accuracy}

	resolved := 0
	for _, res := range resolutions {
		if res.Resolved {
			resolved++
		}
	}
	m.Completeness = float64(resolved) / float64(len(model.Fields)) * 100

	if collection.Successful > 0 {
		relSum := 0
		for _, sr := range collection.Sources {
			if sr.Status == model.SourceSuccess {
				relSum += sr.Reliability
			}
		}
		m.SourceReliability = float64(relSum) / float64(collection.Successful) / 10 * 100
	}

	if len(xrefs) > 0 {
		confSum := 0.0
		for _, xref := range xrefs {
			confSum += xref.Confidence
		}
		m.CrossVerification = confSum / float64(len(xrefs))
	}

	m.OverallQuality = weightCompleteness*m.Completeness +
		weightAccuracy*m.Accuracy +
		weightReliability*m.SourceReliability +
		weightCrossVerif*m.CrossVerification
	if m.OverallQuality < 0 {
		m.OverallQuality = 0
	}
	if m.OverallQuality > 100 {
		m.OverallQuality = 100
	}
	m.Tier = model.TierForScore(m.OverallQuality)
	return m
}

// Recommendations generates the standing guidance for a profile. The
// healthcare-professional line is always present; the rest depend on
// metric floors.
func Recommendations(m model.QualityMetrics) []string {
	recs := []string{
		"Consult a healthcare professional before acting on this information.",
	}
	if m.Completeness < completenessFloor {
		recs = append(recs, "Verification is incomplete; several fields could not be confirmed across sources.")
	}
	if m.Accuracy < accuracyFloor {
		recs = append(recs, "Sources disagreed on one or more fields; review the discrepancy list before relying on them.")
	}
	if m.SourceReliability < reliabilityFloor {
		recs = append(recs, "Results rely on lower-authority sources; confirm against the product label.")
	}
	return recs
}

// Disclaimer wording strengthens as the tier drops.
func Disclaimer(tier model.VerificationTier) string {
	switch tier {
	case model.TierGold:
		return "This profile was verified against multiple authoritative registries with strong agreement. It is informational and not a substitute for professional medical advice."
	case model.TierSilver:
		return "This profile was verified against multiple registries with good agreement. Some fields rest on fewer sources; treat it as informational and not a substitute for professional medical advice."
	case model.TierBronze:
		return "This profile was only partially verified; several fields rest on a single source or show disagreement. Confirm details with a pharmacist before use."
	default:
		return "This profile could not be adequately verified. Do not rely on it for medication decisions; consult a pharmacist or physician."
	}
}
