package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skylab-research/atlas-cli/internal/artifact"
	"github.com/skylab-research/atlas-cli/internal/model"
	"github.com/skylab-research/atlas-cli/internal/transform"
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Build probe-history and measurement tables",
	Long: `Parse the downloaded NDJSON files into the probe-history table and the
measurement table with three-segment latency decomposition, and persist both
as CSV artifacts next to the raw files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, readings, err := buildTables(cmd.Context())
		if err != nil {
			return err
		}
		if err := saveTables(entries, readings); err != nil {
			return err
		}
		fmt.Println("Transform complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(transformCmd)
}

// buildTables parses both raw NDJSON files into typed tables.
func buildTables(ctx context.Context) ([]model.ProbeHistoryEntry, []model.MeasurementReading, error) {
	log := zap.L().With(zap.String("command", "transform"))

	historyPath := cfg.ProbesHistoryFile("json")
	historyFile, err := os.Open(historyPath)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "transform: open %s (run fetch first)", historyPath)
	}
	defer historyFile.Close() //nolint:errcheck

	entries, err := transform.ProbeHistory(ctx, historyFile)
	if err != nil {
		return nil, nil, err
	}
	log.Info("probe history transformed", zap.Int("entries", len(entries)))

	measurementPath := cfg.MeasurementFile(cfg.Atlas.MeasurementID, "json")
	measurementFile, err := os.Open(measurementPath)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "transform: open %s (run fetch first)", measurementPath)
	}
	defer measurementFile.Close() //nolint:errcheck

	readings, err := transform.Measurement(ctx, measurementFile, cfg.Probes, cfg.Analysis.RelayGateway)
	if err != nil {
		return nil, nil, err
	}
	log.Info("measurement transformed", zap.Int("readings", len(readings)))

	return entries, readings, nil
}

// saveTables persists both tables as CSV artifacts with the raw files'
// extensions swapped.
func saveTables(entries []model.ProbeHistoryEntry, readings []model.MeasurementReading) error {
	historyCSV := artifact.SwapExt(cfg.ProbesHistoryFile("json"), "csv")
	if err := transform.HistoryArtifact(entries).SaveCSV(historyCSV); err != nil {
		return err
	}
	zap.L().Info("saved artifact", zap.String("path", historyCSV))

	measurementCSV := artifact.SwapExt(cfg.MeasurementFile(cfg.Atlas.MeasurementID, "json"), "csv")
	if err := transform.MeasurementArtifact(readings).SaveCSV(measurementCSV); err != nil {
		return err
	}
	zap.L().Info("saved artifact", zap.String("path", measurementCSV))

	return nil
}
