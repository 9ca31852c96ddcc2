package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxscan/verify-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "verify.db"), time.Hour)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSQLiteRunLifecycle(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	seed := model.SeedIdentifiers{BrandName: "Prinivil", NDC: "0006-0019-68"}
	run, err := st.CreateRun(ctx, seed)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning))

	profile := &model.VerifiedProfile{
		Kind:           model.ProfileVerified,
		Identification: model.IdentificationProfile{BrandName: "Prinivil"},
		Quality:        model.QualityMetrics{OverallQuality: 91, Tier: model.TierGold},
	}
	require.NoError(t, st.UpdateRunProfile(ctx, run.ID, profile))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, got.Status)
	assert.Equal(t, seed.BrandName, got.Seed.BrandName)
	require.NotNil(t, got.Profile)
	assert.Equal(t, model.TierGold, got.Profile.Quality.Tier)
	assert.Equal(t, 91.0, got.Profile.Quality.OverallQuality)
}

func TestSQLiteGetRunNotFound(t *testing.T) {
	st := newTestSQLite(t)
	_, err := st.GetRun(context.Background(), "no-such-run")
	assert.Error(t, err)
}

func TestSQLiteListRunsFilterAndLimit(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := st.CreateRun(ctx, model.SeedIdentifiers{BrandName: "Prinivil"})
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}
	require.NoError(t, st.UpdateRunStatus(ctx, ids[0], model.RunStatusFailed))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	failed, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, ids[0], failed[0].ID)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLiteCacheRoundTrip(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	missing, err := st.GetCachedProfile(ctx, "ndc:0006-0019-68")
	require.NoError(t, err)
	assert.Nil(t, missing, "a miss is not an error")

	profile := &model.VerifiedProfile{
		Identification: model.IdentificationProfile{BrandName: "Prinivil"},
		Quality:        model.QualityMetrics{Tier: model.TierSilver},
	}
	require.NoError(t, st.SetCachedProfile(ctx, "ndc:0006-0019-68", profile))

	got, err := st.GetCachedProfile(ctx, "ndc:0006-0019-68")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Prinivil", got.Identification.BrandName)
}

func TestSQLiteCacheUpsertReplaces(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	first := &model.VerifiedProfile{Quality: model.QualityMetrics{Tier: model.TierBronze}}
	second := &model.VerifiedProfile{Quality: model.QualityMetrics{Tier: model.TierGold}}
	require.NoError(t, st.SetCachedProfile(ctx, "brand_name:prinivil", first))
	require.NoError(t, st.SetCachedProfile(ctx, "brand_name:prinivil", second))

	got, err := st.GetCachedProfile(ctx, "brand_name:prinivil")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.TierGold, got.Quality.Tier)
}

func TestSQLiteCacheTTLExpiry(t *testing.T) {
	st, err := NewSQLite(filepath.Join(t.TempDir(), "verify.db"), -time.Hour)
	require.NoError(t, err)
	// A non-positive TTL falls back to the one-week default, so force an
	// already-expired TTL directly for the expiry path.
	st.cacheTTL = -time.Hour
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	require.NoError(t, st.SetCachedProfile(ctx, "ndc:x", &model.VerifiedProfile{}))

	got, err := st.GetCachedProfile(ctx, "ndc:x")
	require.NoError(t, err)
	assert.Nil(t, got, "expired entries never surface")

	n, err := st.DeleteExpiredCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = st.DeleteExpiredCache(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
