package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxscan/verify-cli/internal/model"
	"github.com/rxscan/verify-cli/internal/provider"
	"github.com/rxscan/verify-cli/pkg/openfda"
	"github.com/rxscan/verify-cli/pkg/rxnorm"
)

func obs(value any, source string, reliability int) model.Observation {
	return model.Observation{Value: value, Source: source, Reliability: reliability}
}

func TestValidateCleanFields(t *testing.T) {
	xrefs := map[string]model.FieldCrossReference{
		model.FieldNDC: {
			FieldKey:     model.FieldNDC,
			Observations: []model.Observation{obs("0006-0019-68", provider.NameFDANDC, 10)},
		},
	}
	resolutions := map[string]model.ConflictResolution{
		model.FieldNDC: {FieldKey: model.FieldNDC, Resolved: true, Value: "0006-0019-68"},
	}

	v := Validate(xrefs, resolutions)
	assert.Equal(t, 100.0, v.Accuracy)
	assert.Empty(t, v.Discrepancies)
}

func TestValidateNDCDeductions(t *testing.T) {
	xrefs := map[string]model.FieldCrossReference{
		model.FieldNDC: {
			FieldKey:  model.FieldNDC,
			Conflicts: []model.Observation{obs("99999-999-99", provider.NameWebRef, 3)},
		},
	}
	resolutions := map[string]model.ConflictResolution{
		model.FieldNDC: {FieldKey: model.FieldNDC, Resolved: true, Value: "not-an-ndc"},
	}

	v := Validate(xrefs, resolutions)
	assert.Equal(t, 75.0, v.Accuracy)
	require.Len(t, v.Discrepancies, 2)
	for _, d := range v.Discrepancies {
		assert.Equal(t, model.SeverityHigh, d.Severity)
		assert.Equal(t, model.FieldNDC, d.FieldKey)
	}
}

func TestValidateNameConflicts(t *testing.T) {
	xrefs := map[string]model.FieldCrossReference{
		model.FieldBrandName: {
			FieldKey:  model.FieldBrandName,
			Conflicts: []model.Observation{obs("Zestril", provider.NameWebRef, 3)},
		},
		model.FieldGenericName: {
			FieldKey:  model.FieldGenericName,
			Conflicts: []model.Observation{obs("enalapril", provider.NameWebRef, 3)},
		},
	}

	v := Validate(xrefs, nil)
	assert.Equal(t, 80.0, v.Accuracy)
	require.Len(t, v.Discrepancies, 2)
	assert.Equal(t, model.SeverityMedium, v.Discrepancies[0].Severity)
}

func TestValidateManufacturerSpread(t *testing.T) {
	twoNames := map[string]model.FieldCrossReference{
		model.FieldManufacturer: {
			FieldKey: model.FieldManufacturer,
			Observations: []model.Observation{
				obs("Merck", provider.NameFDANDC, 10),
				obs("MERCK", provider.NameDailyMed, 8),
				obs("Organon", provider.NameRxNorm, 9),
			},
		},
	}
	v := Validate(twoNames, nil)
	assert.Equal(t, 100.0, v.Accuracy, "two distinct names are tolerated")

	threeNames := map[string]model.FieldCrossReference{
		model.FieldManufacturer: {
			FieldKey: model.FieldManufacturer,
			Observations: []model.Observation{
				obs("Merck", provider.NameFDANDC, 10),
				obs("Organon", provider.NameRxNorm, 9),
				obs("Sandoz", provider.NameWebRef, 3),
			},
		},
	}
	v = Validate(threeNames, nil)
	assert.Equal(t, 90.0, v.Accuracy)
	require.Len(t, v.Discrepancies, 1)
	assert.Equal(t, model.SeverityMedium, v.Discrepancies[0].Severity)
}

func TestValidateStrengthAndDosageConflicts(t *testing.T) {
	xrefs := map[string]model.FieldCrossReference{
		model.FieldStrength: {
			FieldKey:  model.FieldStrength,
			Conflicts: []model.Observation{obs("20 mg", provider.NameWebRef, 3)},
		},
		model.FieldDosageForm: {
			FieldKey:  model.FieldDosageForm,
			Conflicts: []model.Observation{obs("capsule", provider.NameWebRef, 3)},
		},
	}

	v := Validate(xrefs, nil)
	assert.Equal(t, 90.0, v.Accuracy)
	require.Len(t, v.Discrepancies, 2)
	assert.Equal(t, model.SeverityLow, v.Discrepancies[0].Severity)
}

func TestMetricsBlend(t *testing.T) {
	collection := &model.CollectionResult{
		Sources: map[string]model.SourceResult{
			provider.NameFDANDC: {Provider: provider.NameFDANDC, Status: model.SourceSuccess, Reliability: 10},
			provider.NameRxNorm: {Provider: provider.NameRxNorm, Status: model.SourceSuccess, Reliability: 8},
			provider.NameWebRef: {Provider: provider.NameWebRef, Status: model.SourceFailed, Reliability: 3},
		},
		Successful: 2,
		Failed:     1,
	}
	xrefs := map[string]model.FieldCrossReference{
		model.FieldBrandName: {Confidence: 80},
		model.FieldNDC:       {Confidence: 60},
	}
	resolutions := make(map[string]model.ConflictResolution)
	for _, field := range model.Fields[:6] {
		resolutions[field] = model.ConflictResolution{FieldKey: field, Resolved: true}
	}

	m := Metrics(collection, xrefs, resolutions, 90)

	assert.Equal(t, 50.0, m.Completeness)
	assert.Equal(t, 90.0, m.Accuracy)
	assert.InDelta(t, 90.0, m.SourceReliability, 0.0001, "failed sources do not count")
	assert.InDelta(t, 70.0, m.CrossVerification, 0.0001)
	assert.InDelta(t, 74.0, m.OverallQuality, 0.0001)
	assert.Equal(t, model.TierBronze, m.Tier)
}

func TestMetricsNoSuccessfulSources(t *testing.T) {
	collection := &model.CollectionResult{
		Sources: map[string]model.SourceResult{
			provider.NameFDANDC: {Provider: provider.NameFDANDC, Status: model.SourceFailed, Reliability: 10},
		},
		Failed: 1,
	}

	m := Metrics(collection, nil, nil, 100)
	assert.Zero(t, m.SourceReliability)
	assert.Zero(t, m.Completeness)
	assert.Zero(t, m.CrossVerification)
	assert.Equal(t, model.TierBasic, m.Tier)
}

func TestRecommendationsFloors(t *testing.T) {
	strong := Recommendations(model.QualityMetrics{
		Completeness: 95, Accuracy: 95, SourceReliability: 95,
	})
	assert.Len(t, strong, 1)

	weak := Recommendations(model.QualityMetrics{
		Completeness: 40, Accuracy: 60, SourceReliability: 50,
	})
	assert.Len(t, weak, 4)
}

func TestDisclaimerStrengthensAsTierDrops(t *testing.T) {
	assert.NotEqual(t, Disclaimer(model.TierGold), Disclaimer(model.TierBasic))
	assert.Contains(t, Disclaimer(model.TierBasic), "Do not rely")
}

func TestCompileBuildsProfile(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	strategy := &model.SearchStrategy{Kind: model.StrategyNDC, Value: "0006-0019-68", Priority: 1}

	collection := &model.CollectionResult{
		Sources: map[string]model.SourceResult{
			provider.NameFDANDC: {
				Provider: provider.NameFDANDC, Status: model.SourceSuccess,
				Reliability: 10, DataPoints: 8, Strategy: strategy,
			},
			provider.NameRxNorm: {
				Provider: provider.NameRxNorm, Status: model.SourceSuccess,
				Reliability: 9, DataPoints: 3,
				Raw: provider.RxNormPayload{Concepts: []rxnorm.Concept{{RxCUI: "29046", Name: "lisinopril", TTY: "IN"}}},
			},
			provider.NameFDAEnforcement: {
				Provider: provider.NameFDAEnforcement, Status: model.SourceSuccess,
				Reliability: 9, DataPoints: 2,
				Raw: provider.EnforcementPayload{Recalls: []openfda.Enforcement{
					{RecallNumber: "D-123-2026", Status: "Ongoing", ReasonForRecall: "mislabeled strength"},
					{RecallNumber: "D-001-2020", Status: "Terminated", ReasonForRecall: "old"},
				}},
			},
		},
		Successful: 3,
	}

	resolutions := map[string]model.ConflictResolution{
		model.FieldBrandName:   {FieldKey: model.FieldBrandName, Resolved: true, Value: "Prinivil"},
		model.FieldGenericName: {FieldKey: model.FieldGenericName, Resolved: true, Value: "lisinopril"},
		model.FieldNDC:         {FieldKey: model.FieldNDC, Resolved: true, Value: "0006-0019-68"},
		model.FieldWarnings:    {FieldKey: model.FieldWarnings, Resolved: true, Value: []string{"angioedema risk"}},
	}

	p := Compile(model.SeedIdentifiers{Route: "oral"}, collection, nil, resolutions, now)

	assert.Equal(t, model.ProfileVerified, p.Kind)
	assert.Equal(t, "Prinivil", p.Identification.BrandName)
	assert.Equal(t, "lisinopril", p.Identification.GenericName)
	assert.Equal(t, "0006-0019-68", p.Identification.NDC)
	assert.Equal(t, []string{"angioedema risk"}, p.Safety.Warnings)
	assert.Equal(t, "oral", p.Prescribing.Route)
	assert.Equal(t, "29046", p.Regulatory.RxNormID)
	require.Len(t, p.Regulatory.ActiveRecalls, 1)
	assert.Contains(t, p.Regulatory.ActiveRecalls[0], "D-123-2026")
	assert.Equal(t, now, p.VerifiedAt)

	// Attribution follows provider priority order.
	require.Len(t, p.Attribution, 3)
	assert.Equal(t, provider.NameFDANDC, p.Attribution[0].Provider)
	assert.Equal(t, string(model.StrategyNDC), p.Attribution[0].Strategy)
	assert.Equal(t, provider.NameRxNorm, p.Attribution[1].Provider)
	assert.Equal(t, provider.NameFDAEnforcement, p.Attribution[2].Provider)
}

func TestCompileRejectsMalformedNDC(t *testing.T) {
	resolutions := map[string]model.ConflictResolution{
		model.FieldNDC: {FieldKey: model.FieldNDC, Resolved: true, Value: "garbage"},
	}
	p := Compile(model.SeedIdentifiers{}, &model.CollectionResult{Sources: map[string]model.SourceResult{}}, nil, resolutions, time.Now())

	assert.Empty(t, p.Identification.NDC)
	res, ok := p.Resolutions[model.FieldNDC]
	require.True(t, ok, "rejected value stays in the audit trail")
	assert.Equal(t, "garbage", res.Value)
}

func TestMinimalProfile(t *testing.T) {
	now := time.Now()
	p := Minimal(model.SeedIdentifiers{BrandName: "Advil", GenericName: "ibuprofen"}, now)

	assert.Equal(t, model.ProfileMinimal, p.Kind)
	assert.Equal(t, "Advil", p.Identification.BrandName)
	assert.Equal(t, "ibuprofen", p.Identification.GenericName)
	assert.Equal(t, model.TierBasic, p.Quality.Tier)
	assert.NotEmpty(t, p.Disclaimer)
	assert.Equal(t, now, p.VerifiedAt)
}
