// Package store persists verification runs and the local verification
// cache behind a driver-agnostic interface.
package store

import (
	"context"

	"github.com/rxscan/verify-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the verification engine.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, seed model.SeedIdentifiers) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunProfile(ctx context.Context, runID string, profile *model.VerifiedProfile) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Verification cache, read by the local_cache provider and
	// written back by the engine after successful runs.
	GetCachedProfile(ctx context.Context, key string) (*model.VerifiedProfile, error)
	SetCachedProfile(ctx context.Context, key string, profile *model.VerifiedProfile) error
	DeleteExpiredCache(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
