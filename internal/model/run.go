package model

import "time"

// RunStatus tracks a verification run through the store.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is a persisted verification run: the seed it started from and,
// once completed, the resulting profile.
type Run struct {
	ID        string           `json:"id"`
	Seed      SeedIdentifiers  `json:"seed"`
	Status    RunStatus        `json:"status"`
	Profile   *VerifiedProfile `json:"profile,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
