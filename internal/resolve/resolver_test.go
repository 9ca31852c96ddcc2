package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxscan/verify-cli/internal/crossref"
	"github.com/rxscan/verify-cli/internal/model"
	"github.com/rxscan/verify-cli/internal/provider"
)

func TestResolveEmptyCrossReference(t *testing.T) {
	res := Resolve(model.FieldCrossReference{FieldKey: "brand_name"})
	assert.False(t, res.Resolved)
	assert.Nil(t, res.Value)
}

func TestResolveConsensusWithoutConflicts(t *testing.T) {
	obs := []model.Observation{
		{Value: "Prinivil", Source: provider.NameFDANDC, Reliability: 10},
		{Value: "prinivil", Source: provider.NameRxNorm, Reliability: 9},
	}
	xref := crossref.CrossReference("brand_name", obs, crossref.DefaultWeights())
	res := Resolve(xref)

	assert.True(t, res.Resolved)
	assert.Equal(t, model.ResolveConsensus, res.Method)
	assert.Equal(t, "Prinivil", res.Value)
	assert.Equal(t, provider.NameFDANDC, res.Source)
	assert.Empty(t, res.Alternatives)
}

func TestResolveConflictFallsToPriorityOrder(t *testing.T) {
	// rxnorm and dailymed agree, but fda_ndc disagrees. The consensus
	// group wins the cross-reference; resolution then defers to the
	// highest-priority provider, which is fda_ndc.
	obs := []model.Observation{
		{Value: "Merck", Source: provider.NameFDANDC, Reliability: 10},
		{Value: "Organon", Source: provider.NameRxNorm, Reliability: 9},
		{Value: "organon", Source: provider.NameDailyMed, Reliability: 8},
	}
	xref := crossref.CrossReference("manufacturer", obs, crossref.DefaultWeights())
	require.NotEmpty(t, xref.Conflicts)

	res := Resolve(xref)
	assert.True(t, res.Resolved)
	assert.Equal(t, model.ResolvePriority, res.Method)
	assert.Equal(t, "Merck", res.Value)
	assert.Equal(t, provider.NameFDANDC, res.Source)
	require.Len(t, res.Alternatives, 2)
}

func TestResolveConflictUnknownProvidersFallToReliability(t *testing.T) {
	obs := []model.Observation{
		{Value: "10 mg", Source: "ehr_feed", Reliability: 5},
		{Value: "20 mg", Source: "pharmacy_csv", Reliability: 7},
	}
	xref := model.FieldCrossReference{
		FieldKey:     "strength",
		Observations: obs,
		Conflicts:    []model.Observation{obs[0]},
		Consensus:    &obs[1],
	}

	res := Resolve(xref)
	assert.True(t, res.Resolved)
	assert.Equal(t, model.ResolveReliability, res.Method)
	assert.Equal(t, "20 mg", res.Value)
	assert.Equal(t, "pharmacy_csv", res.Source)
	require.Len(t, res.Alternatives, 1)
	assert.Equal(t, "10 mg", res.Alternatives[0].Value)
}

func TestAlternativesExcludeEquivalentValues(t *testing.T) {
	obs := []model.Observation{
		{Value: "Lipitor", Source: provider.NameFDANDC, Reliability: 10},
		{Value: "LIPITOR", Source: provider.NameDailyMed, Reliability: 8},
		{Value: "Torvast", Source: provider.NameWebRef, Reliability: 3},
	}
	xref := crossref.CrossReference("brand_name", obs, crossref.DefaultWeights())
	res := Resolve(xref)

	require.Len(t, res.Alternatives, 1)
	assert.Equal(t, "Torvast", res.Alternatives[0].Value)
}

func TestAllResolvesInCanonicalOrder(t *testing.T) {
	xrefs := map[string]model.FieldCrossReference{
		"generic_name": crossref.CrossReference("generic_name", []model.Observation{
			{Value: "atorvastatin", Source: provider.NameRxNorm, Reliability: 9},
		}, crossref.DefaultWeights()),
		"not_a_field": {FieldKey: "not_a_field"},
	}

	out := All(xrefs)
	require.Len(t, out, 1)
	assert.True(t, out["generic_name"].Resolved)
}
