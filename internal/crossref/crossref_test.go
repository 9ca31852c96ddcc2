package crossref

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxscan/verify-cli/internal/model"
)

func TestComparableKeyFoldsCaseAndWhitespace(t *testing.T) {
	assert.Equal(t, ComparableKey("Lisinopril  10 MG"), ComparableKey("lisinopril 10 mg"))
}

func TestComparableKeyStripsDiacritics(t *testing.T) {
	assert.Equal(t, ComparableKey("Lidocaine"), ComparableKey("Lidocaïne"))
}

func TestComparableKeySortsArrays(t *testing.T) {
	a := ComparableKey([]string{"Amlodipine", "benazepril"})
	b := ComparableKey([]string{"Benazepril", "amlodipine"})
	assert.Equal(t, a, b)
	assert.Equal(t, "amlodipine|benazepril", a)
}

func TestComparableKeyUnsupportedType(t *testing.T) {
	assert.Equal(t, "", ComparableKey(42))
}

func TestCrossReferenceNoObservations(t *testing.T) {
	xref := CrossReference("brand_name", nil, DefaultWeights())
	assert.Nil(t, xref.Consensus)
	assert.Zero(t, xref.Confidence)
}

func TestCrossReferenceSingleSourceCapped(t *testing.T) {
	obs := []model.Observation{
		{Value: "Prinivil", Source: "fda_ndc", Reliability: 10},
	}
	xref := CrossReference("brand_name", obs, DefaultWeights())
	require.NotNil(t, xref.Consensus)
	assert.Equal(t, "Prinivil", xref.Consensus.Value)
	// 10*8 exceeds the cap, so the cap applies.
	assert.Equal(t, 80.0, xref.Confidence)
}

func TestCrossReferenceSingleWeakSource(t *testing.T) {
	obs := []model.Observation{
		{Value: "somewhere", Source: "webref", Reliability: 3},
	}
	xref := CrossReference("manufacturer", obs, DefaultWeights())
	assert.Equal(t, 24.0, xref.Confidence)
}

func TestCrossReferenceAgreementNeverLowersConfidence(t *testing.T) {
	w := DefaultWeights()
	alone := CrossReference("brand_name", []model.Observation{
		{Value: "Prinivil", Source: "fda_ndc", Reliability: 10},
	}, w)

	corroborated := CrossReference("brand_name", []model.Observation{
		{Value: "Prinivil", Source: "fda_ndc", Reliability: 10},
		{Value: "prinivil", Source: "webref", Reliability: 3},
	}, w)

	// A weak agreeing source floors at the strong member's solo score.
	assert.GreaterOrEqual(t, corroborated.Confidence, alone.Confidence)
	assert.Equal(t, 80.0, corroborated.Confidence)
	assert.Empty(t, corroborated.Conflicts)
	assert.Equal(t, 2, corroborated.Agreements)
}

func TestCrossReferenceUnanimousBlendAboveFloorKept(t *testing.T) {
	obs := []model.Observation{
		{Value: "Prinivil", Source: "fda_ndc", Reliability: 10},
		{Value: "PRINIVIL", Source: "fda_label", Reliability: 9},
		{Value: "prinivil", Source: "rxnorm", Reliability: 9},
	}
	xref := CrossReference("brand_name", obs, DefaultWeights())
	// 0.4*1 + 0.3*(28/3/10) + 0.3*(3/5), scaled.
	assert.InDelta(t, 86.0, xref.Confidence, 0.01)
}

func TestCrossReferenceMajorityWins(t *testing.T) {
	obs := []model.Observation{
		{Value: "lisinopril", Source: "fda_ndc", Reliability: 10},
		{Value: "lisinopril", Source: "rxnorm", Reliability: 9},
		{Value: "Lisinopril", Source: "dailymed", Reliability: 8},
		{Value: "enalapril", Source: "webref", Reliability: 3},
	}
	xref := CrossReference("generic_name", obs, DefaultWeights())

	require.NotNil(t, xref.Consensus)
	assert.Equal(t, "lisinopril", xref.Consensus.Value)
	assert.Equal(t, "fda_ndc", xref.Consensus.Source, "highest reliability represents the group")
	assert.Equal(t, 3, xref.Agreements)
	require.Len(t, xref.Conflicts, 1)
	assert.Equal(t, "enalapril", xref.Conflicts[0].Value)

	// agreement 3/4, avg reliability 7.5, coverage 4/5.
	want := (0.4*0.75 + 0.3*0.75 + 0.3*0.8) * 100
	assert.InDelta(t, want, xref.Confidence, 0.0001)
}

func TestCrossReferenceLargerGroupBeatsAuthority(t *testing.T) {
	// Two weak sources agreeing outscore one strong disagreeing one:
	// 2*10+3+4 = 27 vs 1*10+10 = 20.
	obs := []model.Observation{
		{Value: "Pfizer", Source: "fda_ndc", Reliability: 10},
		{Value: "Teva", Source: "local_cache", Reliability: 4},
		{Value: "TEVA", Source: "webref", Reliability: 3},
	}
	xref := CrossReference("manufacturer", obs, DefaultWeights())
	require.NotNil(t, xref.Consensus)
	assert.Equal(t, "Teva", xref.Consensus.Value)
	assert.Equal(t, 2, xref.Agreements)
	require.Len(t, xref.Conflicts, 1)
	assert.Equal(t, "Pfizer", xref.Conflicts[0].Value)
}

func TestCrossReferenceTieKeepsFirstSeen(t *testing.T) {
	obs := []model.Observation{
		{Value: "10 mg", Source: "fda_ndc", Reliability: 10},
		{Value: "20 mg", Source: "rxnorm", Reliability: 10},
	}
	xref := CrossReference("strength", obs, DefaultWeights())
	require.NotNil(t, xref.Consensus)
	assert.Equal(t, "10 mg", xref.Consensus.Value)
}

func TestBuildOmitsEmptyFields(t *testing.T) {
	observe := func(field string) []model.Observation {
		if field == "brand_name" {
			return []model.Observation{{Value: "Lipitor", Source: "fda_ndc", Reliability: 10}}
		}
		return nil
	}
	out := Build(observe, DefaultWeights())
	require.Len(t, out, 1)
	assert.Contains(t, out, "brand_name")
}

func TestLoadWeightsOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	data := []byte("scoring:\n  member_score: 12\n  agreement: 0.5\n  coverage_sources: 6\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	w, err := LoadWeights(path)
	require.NoError(t, err)
	assert.Equal(t, 12, w.MemberScore)
	assert.Equal(t, 0.5, w.Agreement)
	assert.Equal(t, 6, w.CoverageSources)
	// Unset entries keep their defaults.
	assert.Equal(t, 0.3, w.Reliability)
	assert.Equal(t, 80.0, w.SingleSourceCap)
}

func TestLoadWeightsMissingFileFallsBack(t *testing.T) {
	w, err := LoadWeights(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, DefaultWeights(), w)
}
