package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/rxscan/verify-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db       *sql.DB
	cacheTTL time.Duration
}

// NewSQLite opens a SQLite database at the given path and configures
// WAL mode.
func NewSQLite(dsn string, cacheTTL time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if cacheTTL <= 0 {
		cacheTTL = 7 * 24 * time.Hour
	}
	return &SQLiteStore{db: db, cacheTTL: cacheTTL}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	seed       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	profile    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS verification_cache (
	key        TEXT PRIMARY KEY,
	profile    TEXT NOT NULL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_verification_cache_expires_at ON verification_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, seed model.SeedIdentifiers) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	seedJSON, err := json.Marshal(seed)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal seed")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, seed, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(seedJSON), string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Seed:      seed,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "sqlite: update run status")
}

func (s *SQLiteStore) UpdateRunProfile(ctx context.Context, runID string, profile *model.VerifiedProfile) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal profile")
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE runs SET profile = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(profileJSON), string(model.RunStatusCompleted), time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "sqlite: update run profile")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, seed, status, profile, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, seed, status, profile, created_at, updated_at FROM runs`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.Run, error) {
	var run model.Run
	var seedJSON string
	var profileJSON sql.NullString
	var status string

	err := row.Scan(&run.ID, &seedJSON, &status, &profileJSON, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get run")
	}
	run.Status = model.RunStatus(status)

	if err := json.Unmarshal([]byte(seedJSON), &run.Seed); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal seed")
	}
	if profileJSON.Valid && profileJSON.String != "" {
		var profile model.VerifiedProfile
		if err := json.Unmarshal([]byte(profileJSON.String), &profile); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal profile")
		}
		run.Profile = &profile
	}
	return &run, nil
}

func (s *SQLiteStore) GetCachedProfile(ctx context.Context, key string) (*model.VerifiedProfile, error) {
	var profileJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT profile FROM verification_cache WHERE key = ? AND expires_at > datetime('now')`,
		key,
	).Scan(&profileJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached profile")
	}

	var profile model.VerifiedProfile
	if err := json.Unmarshal([]byte(profileJSON), &profile); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached profile")
	}
	return &profile, nil
}

func (s *SQLiteStore) SetCachedProfile(ctx context.Context, key string, profile *model.VerifiedProfile) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal cached profile")
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO verification_cache (key, profile, cached_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET profile = excluded.profile, cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		key, string(profileJSON), now, now.Add(s.cacheTTL),
	)
	return eris.Wrap(err, "sqlite: set cached profile")
}

func (s *SQLiteStore) DeleteExpiredCache(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM verification_cache WHERE expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired cache")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
