package model

// Observation is a single normalized (value, source, reliability) triple
// contributed by one provider for one field.
type Observation struct {
	Value       any    `json:"value"`
	Source      string `json:"source"`
	Reliability int    `json:"reliability"`
}

// FieldCrossReference groups every provider's observation for one
// logical field, with agreement accounting and a consensus candidate.
type FieldCrossReference struct {
	FieldKey     string        `json:"field_key"`
	Observations []Observation `json:"observations"`
	Agreements   int           `json:"agreements"`
	Conflicts    []Observation `json:"conflicts,omitempty"`
	Consensus    *Observation  `json:"consensus,omitempty"`
	Confidence   float64       `json:"confidence"` // 0-100
}

// ResolutionMethod records how a field conflict was decided.
type ResolutionMethod string

const (
	ResolveConsensus   ResolutionMethod = "consensus"
	ResolvePriority    ResolutionMethod = "priority"
	ResolveReliability ResolutionMethod = "reliability"
)

// ConflictResolution is the final, audited decision for one field.
// Immutable after creation.
type ConflictResolution struct {
	FieldKey     string           `json:"field_key"`
	Resolved     bool             `json:"resolved"`
	Value        any              `json:"value,omitempty"`
	Method       ResolutionMethod `json:"method,omitempty"`
	Source       string           `json:"source,omitempty"`
	Confidence   float64          `json:"confidence"`
	Alternatives []Observation    `json:"alternatives,omitempty"`
}
