package transform

import (
	"context"
	"io"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skylab-research/atlas-cli/internal/artifact"
	"github.com/skylab-research/atlas-cli/internal/config"
	"github.com/skylab-research/atlas-cli/internal/extract"
	"github.com/skylab-research/atlas-cli/internal/model"
	"github.com/skylab-research/atlas-cli/internal/trace"
)

// MeasurementColumns is the persisted measurement artifact schema. The three
// latency columns are text: a cell may carry a sentinel instead of a number.
var MeasurementColumns = []string{
	"continent", "country", "probe_id", "timestamp",
	"user_latency", "bent_pipe_latency", "ground_latency",
}

// Measurement extracts traceroute records from NDJSON, decomposes each hop
// path into latency segments against the relay gateway, and joins the static
// probe location table. A probe absent from the table is a configuration
// error and aborts the transform.
func Measurement(ctx context.Context, r io.Reader, probes config.ProbeTable, gateway string) ([]model.MeasurementReading, error) {
	decompose := func(value any) (any, error) {
		hops, err := trace.ParseHops(value)
		if err != nil {
			return nil, err
		}
		return trace.Decompose(hops, gateway), nil
	}

	table, err := extract.Extract(ctx, r,
		[]string{"probe_id", "timestamp", "segments"},
		[]extract.FieldPath{extract.Name("prb_id"), extract.Name("timestamp"), extract.Name("result")},
		map[string]extract.Transform{"result": decompose},
	)
	if err != nil {
		return nil, eris.Wrap(err, "transform: extract measurement")
	}

	readings := make([]model.MeasurementReading, 0, len(table.Rows))
	sentinels := 0
	for _, row := range table.Rows {
		probeID, err := coerceInt(row[0])
		if err != nil {
			return nil, eris.Wrap(err, "transform: prb_id")
		}
		timestamp, err := coerceInt(row[1])
		if err != nil {
			return nil, eris.Wrap(err, "transform: timestamp")
		}
		latency, ok := row[2].(model.SegmentLatency)
		if !ok {
			return nil, eris.Wrapf(model.ErrTypeCoercion, "transform: segments cell holds %T", row[2])
		}

		loc, err := probes.Lookup(int(probeID))
		if err != nil {
			return nil, err
		}

		if latency.IsSentinel() {
			sentinels++
		}
		readings = append(readings, model.MeasurementReading{
			Continent: loc.Continent,
			Country:   loc.Country,
			ProbeID:   int(probeID),
			Timestamp: timestamp,
			Latency:   latency,
		})
	}

	sort.SliceStable(readings, func(i, j int) bool {
		a, b := readings[i], readings[j]
		if a.Continent != b.Continent {
			return a.Continent < b.Continent
		}
		if a.Country != b.Country {
			return a.Country < b.Country
		}
		if a.ProbeID != b.ProbeID {
			return a.ProbeID < b.ProbeID
		}
		return a.Timestamp < b.Timestamp
	})

	zap.L().Info("transformed measurement",
		zap.Int("readings", len(readings)),
		zap.Int("sentinels", sentinels),
	)

	return readings, nil
}

// MeasurementArtifact renders readings as a persistable table.
func MeasurementArtifact(readings []model.MeasurementReading) *artifact.Table {
	rows := make([][]string, len(readings))
	for i, m := range readings {
		rows[i] = []string{
			m.Continent,
			m.Country,
			strconv.Itoa(m.ProbeID),
			strconv.FormatInt(m.Timestamp, 10),
			m.Latency.UserText(),
			m.Latency.BentPipeText(),
			m.Latency.GroundText(),
		}
	}
	return &artifact.Table{Columns: MeasurementColumns, Rows: rows}
}
