package crossref

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Weights holds the scoring constants for consensus and confidence.
// The defaults are empirically tuned; they are configurable rather than
// hard-coded so the blend can be adjusted without a rebuild, but
// changing them changes observable scoring behavior.
type Weights struct {
	// MemberScore is the per-member contribution to a group's
	// consensus score (score = members*MemberScore + sum of
	// reliabilities).
	MemberScore int `yaml:"member_score"`

	// Agreement, Reliability, and Coverage blend into the field
	// confidence and should sum to 1.
	Agreement   float64 `yaml:"agreement"`
	Reliability float64 `yaml:"reliability"`
	Coverage    float64 `yaml:"coverage"`

	// CoverageSources is the source count at which the coverage term
	// saturates.
	CoverageSources int `yaml:"coverage_sources"`

	// SingleSourceCap caps the confidence of a field seen by only one
	// provider; SingleSourceMul scales that provider's reliability.
	SingleSourceCap float64 `yaml:"single_source_cap"`
	SingleSourceMul float64 `yaml:"single_source_mul"`
}

// DefaultWeights returns the standard scoring constants.
func DefaultWeights() Weights {
	return Weights{
		MemberScore:     10,
		Agreement:       0.4,
		Reliability:     0.3,
		Coverage:        0.3,
		CoverageSources: 5,
		SingleSourceCap: 80,
		SingleSourceMul: 8,
	}
}

// LoadWeights reads scoring weights from a YAML file. Zero-valued
// entries fall back to the defaults.
func LoadWeights(path string) (Weights, error) {
	w := DefaultWeights()

	data, err := os.ReadFile(path)
	if err != nil {
		return w, eris.Wrapf(err, "crossref: read weights %s", path)
	}

	var wrapper struct {
		Scoring Weights `yaml:"scoring"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return w, eris.Wrap(err, "crossref: parse weights")
	}

	loaded := wrapper.Scoring
	if loaded.MemberScore > 0 {
		w.MemberScore = loaded.MemberScore
	}
	if loaded.Agreement > 0 {
		w.Agreement = loaded.Agreement
	}
	if loaded.Reliability > 0 {
		w.Reliability = loaded.Reliability
	}
	if loaded.Coverage > 0 {
		w.Coverage = loaded.Coverage
	}
	if loaded.CoverageSources > 0 {
		w.CoverageSources = loaded.CoverageSources
	}
	if loaded.SingleSourceCap > 0 {
		w.SingleSourceCap = loaded.SingleSourceCap
	}
	if loaded.SingleSourceMul > 0 {
		w.SingleSourceMul = loaded.SingleSourceMul
	}
	return w, nil
}
