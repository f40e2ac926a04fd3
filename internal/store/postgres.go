package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/skylab-research/atlas-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	measurement_id BIGINT NOT NULL,
	window_start   BIGINT NOT NULL,
	window_end     BIGINT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'running',
	note           TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_artifacts (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	name      TEXT NOT NULL,
	path      TEXT NOT NULL,
	row_count BIGINT NOT NULL,
	PRIMARY KEY (run_id, name)
);

CREATE INDEX IF NOT EXISTS idx_runs_measurement ON runs(measurement_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, measurementID int, windowStart, windowEnd int64) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, measurement_id, window_start, window_end, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, measurementID, windowStart, windowEnd, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:            id,
		MeasurementID: measurementID,
		WindowStart:   windowStart,
		WindowEnd:     windowEnd,
		Status:        model.RunStatusRunning,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, note string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, note = $2, updated_at = $3 WHERE id = $4`,
		string(status), note, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) RecordArtifact(ctx context.Context, a model.Artifact) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_artifacts (run_id, name, path, row_count) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id, name) DO UPDATE SET path = EXCLUDED.path, row_count = EXCLUDED.row_count`,
		a.RunID, a.Name, a.Path, a.Rows,
	)
	return eris.Wrapf(err, "postgres: record artifact %s", a.Name)
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, measurement_id, window_start, window_end, status, note, created_at, updated_at
		 FROM runs WHERE id = $1`, runID)

	var r model.Run
	var status string
	if err := row.Scan(&r.ID, &r.MeasurementID, &r.WindowStart, &r.WindowEnd, &status, &r.Note, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("postgres: get run %s: not found", runID)
		}
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	r.Status = model.RunStatus(status)
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, measurement_id, window_start, window_end, status, note, created_at, updated_at
		 FROM runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var status string
		if err := rows.Scan(&r.ID, &r.MeasurementID, &r.WindowStart, &r.WindowEnd, &status, &r.Note, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = model.RunStatus(status)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func (s *PostgresStore) ListArtifacts(ctx context.Context, runID string) ([]model.Artifact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, name, path, row_count FROM run_artifacts WHERE run_id = $1 ORDER BY name`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list artifacts %s", runID)
	}
	defer rows.Close()

	var artifacts []model.Artifact
	for rows.Next() {
		var a model.Artifact
		if err := rows.Scan(&a.RunID, &a.Name, &a.Path, &a.Rows); err != nil {
			return nil, eris.Wrap(err, "postgres: scan artifact")
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, eris.Wrap(rows.Err(), "postgres: iterate artifacts")
}
