package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylab-research/atlas-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), 113897643, int64(100), int64(200),
			"running", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), 113897643, 100, 200)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.Equal(t, 113897643, run.MeasurementID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status = \$1, note = \$2`).
		WithArgs("complete", "4 artifacts", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteRun(context.Background(), "run-1", model.RunStatusComplete, "4 artifacts")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status = \$1, note = \$2`).
		WithArgs("failed", "boom", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteRun(context.Background(), "missing", model.RunStatusFailed, "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordArtifact_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT`).
		WithArgs("run-1", "connection_shares", "data/connection_shares.csv", 20).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.RecordArtifact(context.Background(), model.Artifact{
		RunID: "run-1",
		Name:  "connection_shares",
		Path:  "data/connection_shares.csv",
		Rows:  20,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, measurement_id, window_start, window_end, status, note, created_at, updated_at\s+FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "measurement_id", "window_start", "window_end", "status", "note", "created_at", "updated_at",
		}).AddRow("run-1", 113897643, int64(100), int64(200), "complete", "", now, now))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, int64(200), run.WindowEnd)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, measurement_id, window_start, window_end, status, note, created_at, updated_at\s+FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM runs ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(2).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "measurement_id", "window_start", "window_end", "status", "note", "created_at", "updated_at",
		}).
			AddRow("run-2", 113897643, int64(100), int64(200), "running", "", now, now).
			AddRow("run-1", 113897643, int64(100), int64(200), "complete", "", now, now))

	runs, err := s.ListRuns(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM runs ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(20).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "measurement_id", "window_start", "window_end", "status", "note", "created_at", "updated_at",
		}))

	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListArtifacts(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM run_artifacts WHERE run_id = \$1 ORDER BY name`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"run_id", "name", "path", "row_count"}).
			AddRow("run-1", "connection_shares", "data/connection_shares.csv", 20).
			AddRow("run-1", "probe_pop_ips", "data/probe_pop_ips.csv", 18))

	artifacts, err := s.ListArtifacts(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, "connection_shares", artifacts[0].Name)
	assert.Equal(t, 18, artifacts[1].Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
