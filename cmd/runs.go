package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/skylab-research/atlas-cli/internal/store"
)

// listRuns prints the most recent ledger entries with their artifacts.
func listRuns(cmd *cobra.Command, limit int) error {
	ctx := cmd.Context()

	ledger, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return eris.Wrap(err, "runs: open ledger")
	}
	defer ledger.Close() //nolint:errcheck
	if err := ledger.Migrate(ctx); err != nil {
		return err
	}

	runs, err := ledger.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs")
		return nil
	}

	for _, r := range runs {
		fmt.Println(formatRunLine(r))
		artifacts, err := ledger.ListArtifacts(ctx, r.ID)
		if err != nil {
			return err
		}
		for _, a := range artifacts {
			fmt.Printf("    %-22s %6d rows  %s\n", a.Name, a.Rows, a.Path)
		}
	}

	return nil
}
