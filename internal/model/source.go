package model

// SourceStatus is the terminal state of a single provider invocation.
type SourceStatus string

const (
	SourceSuccess SourceStatus = "success"
	SourceFailed  SourceStatus = "failed"
	SourceNoMatch SourceStatus = "no_match"
)

// SourceResult captures one provider's contribution to a verification
// run. Raw holds the provider's typed payload and is only interpreted by
// the normalizer's per-provider rules. Never mutated after creation.
type SourceResult struct {
	Provider    string          `json:"provider"`
	Status      SourceStatus    `json:"status"`
	Raw         any             `json:"raw,omitempty"`
	DataPoints  int             `json:"data_points"`
	Reliability int             `json:"reliability"`        // 1-10, fixed per provider
	Strategy    *SearchStrategy `json:"strategy,omitempty"` // the strategy that succeeded
	Error       string          `json:"error,omitempty"`
}

// CollectionResult is the output of the parallel collector: every
// provider's SourceResult (failures included) keyed by provider name.
type CollectionResult struct {
	Sources         map[string]SourceResult `json:"sources"`
	Successful      int                     `json:"successful"`
	Failed          int                     `json:"failed"`
	TotalDataPoints int                     `json:"total_data_points"`
}
