package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skylab-research/atlas-cli/internal/analyze"
	"github.com/skylab-research/atlas-cli/internal/artifact"
	"github.com/skylab-research/atlas-cli/internal/model"
	"github.com/skylab-research/atlas-cli/internal/store"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compute connectivity and latency statistics",
	Long: `Compute per-probe connection shares over the measurement window, the
PoP address summary, and per-country segment latency proportions. Writes CSV
artifacts, an XLSX report workbook, and records the run in the ledger.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runAnalyze(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Analysis complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(ctx context.Context) error {
	log := zap.L().With(zap.String("command", "analyze"))

	info, err := newAtlasClient().MeasurementInfo(ctx, cfg.Atlas.MeasurementID)
	if err != nil {
		return eris.Wrap(err, "analyze: measurement info")
	}
	windowStart, windowEnd := analysisWindow(info)

	entries, readings, err := buildTables(ctx)
	if err != nil {
		return err
	}

	ledger, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return eris.Wrap(err, "analyze: open ledger")
	}
	defer ledger.Close() //nolint:errcheck
	if err := ledger.Migrate(ctx); err != nil {
		return err
	}

	run, err := ledger.CreateRun(ctx, cfg.Atlas.MeasurementID, windowStart, windowEnd)
	if err != nil {
		return err
	}

	if err := writeAnalysisArtifacts(ctx, ledger, run, entries, readings, windowStart, windowEnd); err != nil {
		if cerr := ledger.CompleteRun(ctx, run.ID, model.RunStatusFailed, err.Error()); cerr != nil {
			log.Warn("failed to mark run failed", zap.Error(cerr))
		}
		return err
	}

	if err := ledger.CompleteRun(ctx, run.ID, model.RunStatusComplete, ""); err != nil {
		return err
	}
	log.Info("analysis recorded", zap.String("run_id", run.ID))
	return nil
}

// writeAnalysisArtifacts computes all three analyses, saves their CSV
// artifacts plus the combined XLSX workbook, and records each artifact
// against the run.
func writeAnalysisArtifacts(ctx context.Context, ledger store.Store, run *model.Run,
	entries []model.ProbeHistoryEntry, readings []model.MeasurementReading,
	windowStart, windowEnd int64) error {

	shares := analyze.ConnectionShares(entries, windowStart, windowEnd, cfg.Analysis.RelayASN)
	pops := analyze.PopAddresses(entries, cfg.Analysis.RelayASN)
	props := analyze.SegmentProportions(readings)

	outputs := []struct {
		name  string
		table *artifact.Table
	}{
		{"connection_shares", analyze.SharesArtifact(shares)},
		{"probe_pop_ips", analyze.PopArtifact(pops)},
		{"segment_proportions", analyze.ProportionsArtifact(props)},
	}

	var sheets []artifact.Sheet
	for _, out := range outputs {
		path := fmt.Sprintf("%s/%s.csv", cfg.Paths.DataDir, out.name)
		if err := out.table.SaveCSV(path); err != nil {
			return err
		}
		if err := ledger.RecordArtifact(ctx, model.Artifact{
			RunID: run.ID,
			Name:  out.name,
			Path:  path,
			Rows:  len(out.table.Rows),
		}); err != nil {
			return err
		}
		sheets = append(sheets, artifact.Sheet{Name: out.name, Table: out.table})
	}

	reportPath := fmt.Sprintf("%s/analysis_report_%d.xlsx", cfg.Paths.DataDir, cfg.Atlas.MeasurementID)
	if err := artifact.WriteWorkbook(reportPath, sheets); err != nil {
		return err
	}
	return ledger.RecordArtifact(ctx, model.Artifact{
		RunID: run.ID,
		Name:  "analysis_report",
		Path:  reportPath,
		Rows:  len(readings),
	})
}
