// Package store records analysis runs and their artifacts in a ledger
// database, with sqlite and postgres backends.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/skylab-research/atlas-cli/internal/config"
	"github.com/skylab-research/atlas-cli/internal/model"
)

// Store is the run ledger persistence interface.
type Store interface {
	CreateRun(ctx context.Context, measurementID int, windowStart, windowEnd int64) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, note string) error
	RecordArtifact(ctx context.Context, a model.Artifact) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
	ListArtifacts(ctx context.Context, runID string) ([]model.Artifact, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the configured store backend.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DSN)
	case "postgres":
		return NewPostgres(ctx, cfg.DSN)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
