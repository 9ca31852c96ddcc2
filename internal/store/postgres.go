package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/rxscan/verify-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies
// it for tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool     Pool
	cacheTTL time.Duration
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, cacheTTL time.Duration) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	if cacheTTL <= 0 {
		cacheTTL = 7 * 24 * time.Hour
	}
	return &PostgresStore{pool: pool, cacheTTL: cacheTTL}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	seed       JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	profile    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS verification_cache (
	key        TEXT PRIMARY KEY,
	profile    JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_verification_cache_expires_at ON verification_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, seed model.SeedIdentifiers) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	seedJSON, err := json.Marshal(seed)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal seed")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, seed, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, seedJSON, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Seed:      seed,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "postgres: update run status")
}

func (s *PostgresStore) UpdateRunProfile(ctx context.Context, runID string, profile *model.VerifiedProfile) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal profile")
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE runs SET profile = $1, status = $2, updated_at = $3 WHERE id = $4`,
		profileJSON, string(model.RunStatusCompleted), time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "postgres: update run profile")
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, seed, status, profile, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	return scanPGRun(row)
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, seed, status, profile, created_at, updated_at FROM runs`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanPGRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs")
}

type pgScanner interface {
	Scan(dest ...any) error
}

func scanPGRun(row pgScanner) (*model.Run, error) {
	var run model.Run
	var seedJSON, profileJSON []byte
	var status string

	err := row.Scan(&run.ID, &seedJSON, &status, &profileJSON, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get run")
	}
	run.Status = model.RunStatus(status)

	if err := json.Unmarshal(seedJSON, &run.Seed); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal seed")
	}
	if len(profileJSON) > 0 {
		var profile model.VerifiedProfile
		if err := json.Unmarshal(profileJSON, &profile); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal profile")
		}
		run.Profile = &profile
	}
	return &run, nil
}

func (s *PostgresStore) GetCachedProfile(ctx context.Context, key string) (*model.VerifiedProfile, error) {
	var profileJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT profile FROM verification_cache WHERE key = $1 AND expires_at > now()`,
		key,
	).Scan(&profileJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached profile")
	}

	var profile model.VerifiedProfile
	if err := json.Unmarshal(profileJSON, &profile); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached profile")
	}
	return &profile, nil
}

func (s *PostgresStore) SetCachedProfile(ctx context.Context, key string, profile *model.VerifiedProfile) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal cached profile")
	}
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO verification_cache (key, profile, cached_at, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (key) DO UPDATE SET profile = EXCLUDED.profile, cached_at = EXCLUDED.cached_at, expires_at = EXCLUDED.expires_at`,
		key, profileJSON, now, now.Add(s.cacheTTL),
	)
	return eris.Wrap(err, "postgres: set cached profile")
}

func (s *PostgresStore) DeleteExpiredCache(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM verification_cache WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired cache")
	}
	return int(tag.RowsAffected()), nil
}
