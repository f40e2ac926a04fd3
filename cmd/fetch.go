package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skylab-research/atlas-cli/internal/artifact"
	"github.com/skylab-research/atlas-cli/internal/fetcher"
	"github.com/skylab-research/atlas-cli/pkg/atlas"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download measurement results and probe history",
	Long: `Download the configured measurement's traceroute results and the probe
status archive from the RIPE Atlas API into the data directory.

Files already present are not downloaded again; use --force to re-download.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		_, err := fetchRawData(cmd.Context(), force)
		if err != nil {
			return err
		}
		fmt.Println("Fetch complete")
		return nil
	},
}

func init() {
	fetchCmd.Flags().Bool("force", false, "re-download even if files exist")
	rootCmd.AddCommand(fetchCmd)
}

// newAtlasClient builds the Atlas API client from config.
func newAtlasClient() atlas.Client {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  cfg.Atlas.UserAgent,
		Timeout:    time.Duration(cfg.Atlas.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Atlas.MaxRetries,
	})
	return atlas.NewClient(f, atlas.WithBaseURL(cfg.Atlas.BaseURL))
}

// analysisWindow returns the configured window override, or the
// measurement's own start/stop times.
func analysisWindow(info *atlas.MeasurementInfo) (int64, int64) {
	if cfg.Analysis.WindowStart != 0 && cfg.Analysis.WindowEnd != 0 {
		return cfg.Analysis.WindowStart, cfg.Analysis.WindowEnd
	}
	return info.StartTime, info.StopTime
}

// fetchRawData downloads the measurement results and the probe archive,
// skipping files already on disk unless force is set. Both downloads run
// concurrently; the core pipeline itself stays single-threaded.
func fetchRawData(ctx context.Context, force bool) (*atlas.MeasurementInfo, error) {
	log := zap.L().With(zap.String("command", "fetch"))
	client := newAtlasClient()

	info, err := client.MeasurementInfo(ctx, cfg.Atlas.MeasurementID)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: measurement info")
	}
	start, stop := analysisWindow(info)

	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "fetch: create data dir %s", cfg.Paths.DataDir)
	}

	measurementPath := cfg.MeasurementFile(cfg.Atlas.MeasurementID, "json")
	historyPath := cfg.ProbesHistoryFile("json")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if !force && artifact.Exists(measurementPath) {
			log.Info("measurement results cached", zap.String("path", measurementPath))
			return nil
		}
		return client.DownloadResults(gctx, cfg.Atlas.MeasurementID, info.StartTime, info.StopTime, measurementPath)
	})

	g.Go(func() error {
		if !force && artifact.Exists(historyPath) {
			log.Info("probe history cached", zap.String("path", historyPath))
			return nil
		}
		return client.DownloadProbeArchive(gctx, cfg.Probes.IDs(), start, stop, historyPath)
	})

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "fetch")
	}

	log.Info("raw data ready",
		zap.Int("measurement_id", cfg.Atlas.MeasurementID),
		zap.Int64("window_start", start),
		zap.Int64("window_end", stop),
	)
	return info, nil
}
