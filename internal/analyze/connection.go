// Package analyze computes connectivity and latency statistics over the
// transformed probe-history and measurement tables.
package analyze

import (
	"sort"
	"strconv"

	"github.com/skylab-research/atlas-cli/internal/artifact"
	"github.com/skylab-research/atlas-cli/internal/model"
)

// SharesColumns is the persisted connection-share artifact schema.
var SharesColumns = []string{"probe_id", "starlink", "other", "disconnected"}

// ConnectionShares splits each probe's time inside [windowStart, windowEnd)
// into connected-via-relay, connected-elsewhere, and disconnected fractions.
//
// Each history entry holds until the next entry's since (window end for the
// last). Entries that do not overlap the window are discarded; partial
// overlaps are clipped, never extrapolated. Connected entries with no ASN
// are attributed to neither bucket, so fractions may sum below 1.
func ConnectionShares(history []model.ProbeHistoryEntry, windowStart, windowEnd int64, relayASN int) []model.ConnectionShare {
	window := float64(windowEnd - windowStart)
	if window <= 0 {
		return nil
	}

	byProbe := make(map[string][]model.ProbeHistoryEntry)
	var order []string
	for _, e := range history {
		if _, seen := byProbe[e.ProbeID]; !seen {
			order = append(order, e.ProbeID)
		}
		byProbe[e.ProbeID] = append(byProbe[e.ProbeID], e)
	}
	sort.Strings(order)

	shares := make([]model.ConnectionShare, 0, len(order))
	for _, probeID := range order {
		entries := byProbe[probeID]
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Since < entries[j].Since })

		var relay, other, disconnected int64
		for i, e := range entries {
			until := windowEnd
			if i+1 < len(entries) {
				until = entries[i+1].Since
			}

			since := e.Since
			if since >= windowEnd || until <= windowStart {
				continue
			}
			since = max(since, windowStart)
			until = min(until, windowEnd)

			switch e.Status {
			case model.StatusConnected:
				if e.ASN == relayASN {
					relay += until - since
				} else if e.ASN != 0 {
					other += until - since
				}
			case model.StatusDisconnected:
				disconnected += until - since
			}
		}

		shares = append(shares, model.ConnectionShare{
			ProbeID:      probeID,
			Relay:        float64(relay) / window,
			Other:        float64(other) / window,
			Disconnected: float64(disconnected) / window,
		})
	}

	return shares
}

// SharesArtifact renders connection shares as a persistable table.
func SharesArtifact(shares []model.ConnectionShare) *artifact.Table {
	rows := make([][]string, len(shares))
	for i, s := range shares {
		rows[i] = []string{
			s.ProbeID,
			formatFraction(s.Relay),
			formatFraction(s.Other),
			formatFraction(s.Disconnected),
		}
	}
	return &artifact.Table{Columns: SharesColumns, Rows: rows}
}

func formatFraction(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
