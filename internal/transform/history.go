// Package transform turns extracted raw tables into the typed probe-history
// and measurement tables the analysis stages consume.
package transform

import (
	"context"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/skylab-research/atlas-cli/internal/artifact"
	"github.com/skylab-research/atlas-cli/internal/extract"
	"github.com/skylab-research/atlas-cli/internal/model"
)

// HistoryColumns is the persisted probe-history artifact schema.
var HistoryColumns = []string{"probe_id", "ip_address", "asn", "status", "since"}

var historyFields = []extract.FieldPath{
	extract.Name("id"),
	extract.Name("address_v4"),
	extract.Name("asn_v4"),
	extract.Path("status", "name"),
	extract.Path("status", "since"),
}

// ProbeHistory extracts and re-types the probe status archive from NDJSON.
// The archive footer's declared count is verified by the extractor.
func ProbeHistory(ctx context.Context, r io.Reader) ([]model.ProbeHistoryEntry, error) {
	table, err := extract.Extract(ctx, r, HistoryColumns, historyFields, nil)
	if err != nil {
		return nil, eris.Wrap(err, "transform: extract probe history")
	}

	entries := make([]model.ProbeHistoryEntry, 0, len(table.Rows))
	for _, row := range table.Rows {
		probeID, err := coerceString(row[0])
		if err != nil {
			return nil, eris.Wrap(err, "transform: probe_id")
		}
		addr, err := coerceString(row[1])
		if err != nil {
			return nil, eris.Wrap(err, "transform: ip_address")
		}
		asn, err := coerceInt(row[2])
		if err != nil {
			return nil, eris.Wrap(err, "transform: asn")
		}
		status, err := coerceString(row[3])
		if err != nil {
			return nil, eris.Wrap(err, "transform: status")
		}
		since, err := coerceInt(row[4])
		if err != nil {
			return nil, eris.Wrap(err, "transform: since")
		}

		entries = append(entries, model.ProbeHistoryEntry{
			ProbeID:   probeID,
			IPAddress: addr,
			ASN:       int(asn),
			Status:    status,
			Since:     since,
		})
	}

	return entries, nil
}

// HistoryArtifact renders probe-history entries as a persistable table.
func HistoryArtifact(entries []model.ProbeHistoryEntry) *artifact.Table {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			e.ProbeID,
			e.IPAddress,
			strconv.Itoa(e.ASN),
			e.Status,
			strconv.FormatInt(e.Since, 10),
		}
	}
	return &artifact.Table{Columns: HistoryColumns, Rows: rows}
}

// coerceString accepts strings directly and formats JSON numbers; a null
// cell (a probe with no IPv4 address) becomes empty. Anything else fails
// the table's type contract.
func coerceString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case nil:
		return "", nil
	default:
		return "", eris.Wrapf(model.ErrTypeCoercion, "cannot coerce %T to string", v)
	}
}

// coerceInt accepts JSON numbers and numeric strings. A null cell maps to
// 0: disconnected archive entries carry no ASN, and 0 stands for "no
// network id" downstream.
func coerceInt(v any) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case nil:
		return 0, nil
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, eris.Wrapf(model.ErrTypeCoercion, "cannot coerce %q to int", t)
		}
		return n, nil
	default:
		return 0, eris.Wrapf(model.ErrTypeCoercion, "cannot coerce %T to int", v)
	}
}
