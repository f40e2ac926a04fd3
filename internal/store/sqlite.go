package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/skylab-research/atlas-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
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
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	measurement_id INTEGER NOT NULL,
	window_start   INTEGER NOT NULL,
	window_end     INTEGER NOT NULL,
	status         TEXT NOT NULL DEFAULT 'running',
	note           TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_artifacts (
	run_id TEXT NOT NULL REFERENCES runs(id),
	name   TEXT NOT NULL,
	path   TEXT NOT NULL,
	row_count INTEGER NOT NULL,
	PRIMARY KEY (run_id, name)
);

CREATE INDEX IF NOT EXISTS idx_runs_measurement ON runs(measurement_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, measurementID int, windowStart, windowEnd int64) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, measurement_id, window_start, window_end, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, measurementID, windowStart, windowEnd, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, note string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, note = ?, updated_at = ? WHERE id = ?`,
		string(status), note, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}

func (s *SQLiteStore) RecordArtifact(ctx context.Context, a model.Artifact) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_artifacts (run_id, name, path, row_count) VALUES (?, ?, ?, ?)
		 ON CONFLICT (run_id, name) DO UPDATE SET path = excluded.path, row_count = excluded.row_count`,
		a.RunID, a.Name, a.Path, a.Rows,
	)
	return eris.Wrapf(err, "sqlite: record artifact %s", a.Name)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, measurement_id, window_start, window_end, status, note, created_at, updated_at
		 FROM runs WHERE id = ?`, runID)

	var r model.Run
	var status string
	if err := row.Scan(&r.ID, &r.MeasurementID, &r.WindowStart, &r.WindowEnd, &status, &r.Note, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	r.Status = model.RunStatus(status)
	return &r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, measurement_id, window_start, window_end, status, note, created_at, updated_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var status string
		if err := rows.Scan(&r.ID, &r.MeasurementID, &r.WindowStart, &r.WindowEnd, &status, &r.Note, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Status = model.RunStatus(status)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func (s *SQLiteStore) ListArtifacts(ctx context.Context, runID string) ([]model.Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, name, path, row_count FROM run_artifacts WHERE run_id = ? ORDER BY name`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list artifacts %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var artifacts []model.Artifact
	for rows.Next() {
		var a model.Artifact
		if err := rows.Scan(&a.RunID, &a.Name, &a.Path, &a.Rows); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan artifact")
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, eris.Wrap(rows.Err(), "sqlite: iterate artifacts")
}
