package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxscan/verify-cli/internal/model"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock, cacheTTL: time.Hour}, mock
}

func TestPostgresCreateRun(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectExec("INSERT INTO runs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), string(model.RunStatusQueued), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := st.CreateRun(context.Background(), model.SeedIdentifiers{BrandName: "Prinivil"})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateRunStatus(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectExec("UPDATE runs SET status").
		WithArgs(string(model.RunStatusRunning), pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, st.UpdateRunStatus(context.Background(), "run-1", model.RunStatusRunning))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRun(t *testing.T) {
	st, mock := newMockPostgres(t)

	now := time.Now().UTC()
	seedJSON, err := json.Marshal(model.SeedIdentifiers{BrandName: "Prinivil"})
	require.NoError(t, err)
	profileJSON, err := json.Marshal(&model.VerifiedProfile{
		Quality: model.QualityMetrics{Tier: model.TierSilver},
	})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, seed, status, profile, created_at, updated_at FROM runs").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "seed", "status", "profile", "created_at", "updated_at"}).
			AddRow("run-1", seedJSON, string(model.RunStatusCompleted), profileJSON, now, now))

	run, err := st.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "Prinivil", run.Seed.BrandName)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	require.NotNil(t, run.Profile)
	assert.Equal(t, model.TierSilver, run.Profile.Quality.Tier)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListRunsPlaceholders(t *testing.T) {
	st, mock := newMockPostgres(t)

	seedJSON, err := json.Marshal(model.SeedIdentifiers{})
	require.NoError(t, err)
	now := time.Now().UTC()

	mock.ExpectQuery(`WHERE status = \$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs(string(model.RunStatusFailed), 5, 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "seed", "status", "profile", "created_at", "updated_at"}).
			AddRow("run-1", seedJSON, string(model.RunStatusFailed), []byte(nil), now, now))

	runs, err := st.ListRuns(context.Background(), RunFilter{
		Status: model.RunStatusFailed, Limit: 5, Offset: 10,
	})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].Profile)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetCachedProfileMiss(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT profile FROM verification_cache").
		WithArgs("ndc:0006-0019-68").
		WillReturnError(pgx.ErrNoRows)

	got, err := st.GetCachedProfile(context.Background(), "ndc:0006-0019-68")
	require.NoError(t, err, "a miss is not an error")
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetCachedProfileHit(t *testing.T) {
	st, mock := newMockPostgres(t)

	profileJSON, err := json.Marshal(&model.VerifiedProfile{
		Identification: model.IdentificationProfile{BrandName: "Prinivil"},
	})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT profile FROM verification_cache").
		WithArgs("brand_name:prinivil").
		WillReturnRows(pgxmock.NewRows([]string{"profile"}).AddRow(profileJSON))

	got, err := st.GetCachedProfile(context.Background(), "brand_name:prinivil")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Prinivil", got.Identification.BrandName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSetCachedProfileUpsert(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectExec("INSERT INTO verification_cache").
		WithArgs("ndc:0006-0019-68", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := st.SetCachedProfile(context.Background(), "ndc:0006-0019-68", &model.VerifiedProfile{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteExpiredCache(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectExec("DELETE FROM verification_cache").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := st.DeleteExpiredCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
