package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skylab-research/atlas-cli/internal/model"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, transform, analyze, and plot end to end",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		force, _ := cmd.Flags().GetBool("force")

		if _, err := fetchRawData(ctx, force); err != nil {
			return err
		}

		entries, readings, err := buildTables(ctx)
		if err != nil {
			return err
		}
		if err := saveTables(entries, readings); err != nil {
			return err
		}

		if err := runAnalyze(ctx); err != nil {
			return err
		}

		if err := runPlot(); err != nil {
			return err
		}

		fmt.Println("All analyses completed")
		return nil
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded analysis runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return listRuns(cmd, limit)
	},
}

func init() {
	runCmd.Flags().Bool("force", false, "re-download raw data even if files exist")
	runsCmd.Flags().Int("limit", 20, "maximum runs to list")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runsCmd)
}

func formatRunLine(r model.Run) string {
	return fmt.Sprintf("%s  msm=%d  window=[%d,%d)  %s  %s",
		r.ID, r.MeasurementID, r.WindowStart, r.WindowEnd, r.Status, r.CreatedAt.Format("2006-01-02 15:04:05"))
}
