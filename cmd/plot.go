package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skylab-research/atlas-cli/internal/analyze"
	"github.com/skylab-research/atlas-cli/internal/artifact"
	"github.com/skylab-research/atlas-cli/internal/model"
	"github.com/skylab-research/atlas-cli/internal/plot"
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Render charts from the analysis artifacts",
	Long: `Render the connectivity stacked-bar chart and the bent-pipe latency
scatter, histogram, and CDF charts (overall, by continent, by country) as PNG
files in the plot directory. Requires transform and analyze artifacts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runPlot(); err != nil {
			return err
		}
		fmt.Println("Plots written to", cfg.Paths.PlotDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(plotCmd)
}

func runPlot() error {
	log := zap.L().With(zap.String("command", "plot"))

	measurementCSV := artifact.SwapExt(cfg.MeasurementFile(cfg.Atlas.MeasurementID, "json"), "csv")
	table, err := artifact.LoadCSV(measurementCSV)
	if err != nil {
		return eris.Wrap(err, "plot: load measurement artifact (run transform first)")
	}
	points, err := analyze.PointsFromArtifact(table)
	if err != nil {
		return err
	}

	sharesCSV := fmt.Sprintf("%s/connection_shares.csv", cfg.Paths.DataDir)
	sharesTable, err := artifact.LoadCSV(sharesCSV)
	if err != nil {
		return eris.Wrap(err, "plot: load connection shares (run analyze first)")
	}
	shares, err := sharesFromArtifact(sharesTable)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Paths.PlotDir, 0o755); err != nil {
		return eris.Wrapf(err, "plot: create plot dir %s", cfg.Paths.PlotDir)
	}

	maxLatency := float64(cfg.Analysis.MaxLatencyMs)
	charts := []struct {
		name   string
		render func(w *os.File) error
	}{
		{"probe_connection.png", func(w *os.File) error { return plot.ConnectionBars(shares, w) }},
		{"bent_pipe_latency.png", func(w *os.File) error { return plot.LatencyScatter(points, maxLatency, w) }},
		{"bent_pipe_histogram.png", func(w *os.File) error { return plot.LatencyHistogram(points, 10, maxLatency, w) }},
		{"bent_pipe_cdf.png", func(w *os.File) error { return plot.LatencyCDF(points, plot.GroupNone, maxLatency, w) }},
		{"bent_pipe_cdf_continent.png", func(w *os.File) error { return plot.LatencyCDF(points, plot.GroupContinent, maxLatency, w) }},
		{"bent_pipe_cdf_country.png", func(w *os.File) error { return plot.LatencyCDF(points, plot.GroupCountry, maxLatency, w) }},
	}

	for _, c := range charts {
		path := fmt.Sprintf("%s/%s", cfg.Paths.PlotDir, c.name)
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "plot: create %s", path)
		}
		renderErr := c.render(f)
		closeErr := f.Close()
		if renderErr != nil {
			_ = os.Remove(path)
			return renderErr
		}
		if closeErr != nil {
			return eris.Wrapf(closeErr, "plot: close %s", path)
		}
		log.Info("chart written", zap.String("path", path))
	}

	return nil
}

// sharesFromArtifact rebuilds connection shares from their persisted table.
func sharesFromArtifact(table *artifact.Table) ([]model.ConnectionShare, error) {
	shares := make([]model.ConnectionShare, 0, len(table.Rows))
	for _, row := range table.Rows {
		if len(row) != 4 {
			return nil, eris.Errorf("plot: malformed shares row %v", row)
		}
		relay, err1 := strconv.ParseFloat(row[1], 64)
		other, err2 := strconv.ParseFloat(row[2], 64)
		disconnected, err3 := strconv.ParseFloat(row[3], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, eris.Wrapf(model.ErrTypeCoercion, "plot: shares row %v", row)
		}
		shares = append(shares, model.ConnectionShare{
			ProbeID:      row[0],
			Relay:        relay,
			Other:        other,
			Disconnected: disconnected,
		})
	}
	return shares, nil
}
