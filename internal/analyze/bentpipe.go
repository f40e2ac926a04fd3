package analyze

import (
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skylab-research/atlas-cli/internal/artifact"
	"github.com/skylab-research/atlas-cli/internal/model"
)

// LatencyPoint is one plottable bent-pipe reading.
type LatencyPoint struct {
	Continent string
	Country   string
	ProbeID   int
	Timestamp time.Time
	BentPipe  float64
}

// FilterNumeric drops sentinel readings and converts the rest into
// plottable points. Dropped rows are counted and logged, never an error:
// sentinel readings are expected data.
func FilterNumeric(readings []model.MeasurementReading) []LatencyPoint {
	points := make([]LatencyPoint, 0, len(readings))
	for _, m := range readings {
		if m.Latency.IsSentinel() {
			continue
		}
		points = append(points, LatencyPoint{
			Continent: m.Continent,
			Country:   m.Country,
			ProbeID:   m.ProbeID,
			Timestamp: time.Unix(m.Timestamp, 0).UTC(),
			BentPipe:  m.Latency.BentPipe,
		})
	}

	if dropped := len(readings) - len(points); dropped > 0 {
		zap.L().Info("filtered sentinel readings",
			zap.Int("dropped", dropped),
			zap.Int("kept", len(points)),
		)
	}
	return points
}

// PointsFromArtifact rebuilds plottable points from a persisted measurement
// table, skipping rows whose bent-pipe column is not numeric.
func PointsFromArtifact(table *artifact.Table) ([]LatencyPoint, error) {
	continentIdx, countryIdx := colIndex(table, "continent"), colIndex(table, "country")
	probeIdx, tsIdx := colIndex(table, "probe_id"), colIndex(table, "timestamp")
	bentIdx := colIndex(table, "bent_pipe_latency")
	if continentIdx < 0 || countryIdx < 0 || probeIdx < 0 || tsIdx < 0 || bentIdx < 0 {
		return nil, eris.Errorf("analyze: table missing measurement columns, got %v", table.Columns)
	}

	var points []LatencyPoint
	for _, row := range table.Rows {
		bent, err := strconv.ParseFloat(row[bentIdx], 64)
		if err != nil {
			continue // sentinel text
		}
		probeID, err := strconv.Atoi(row[probeIdx])
		if err != nil {
			return nil, eris.Wrapf(model.ErrTypeCoercion, "analyze: probe_id %q", row[probeIdx])
		}
		ts, err := strconv.ParseInt(row[tsIdx], 10, 64)
		if err != nil {
			return nil, eris.Wrapf(model.ErrTypeCoercion, "analyze: timestamp %q", row[tsIdx])
		}
		points = append(points, LatencyPoint{
			Continent: row[continentIdx],
			Country:   row[countryIdx],
			ProbeID:   probeID,
			Timestamp: time.Unix(ts, 0).UTC(),
			BentPipe:  bent,
		})
	}
	return points, nil
}

func colIndex(table *artifact.Table, name string) int {
	for i, c := range table.Columns {
		if c == name {
			return i
		}
	}
	return -1
}
