package analyze

import (
	"sort"
	"strings"

	"github.com/skylab-research/atlas-cli/internal/artifact"
	"github.com/skylab-research/atlas-cli/internal/model"
)

// PopColumns is the persisted PoP-address artifact schema.
var PopColumns = []string{"probe_id", "pop_ips"}

// PopAddresses summarizes the relay-side points of presence per probe:
// entries with status Connected on the relay network, deduplicated by
// (probe, address) in first-seen order, addresses joined with commas.
func PopAddresses(history []model.ProbeHistoryEntry, relayASN int) []model.PopAddresses {
	seen := make(map[string]map[string]bool)
	addrs := make(map[string][]string)
	var order []string

	for _, e := range history {
		if e.Status != model.StatusConnected || e.ASN != relayASN || e.IPAddress == "" {
			continue
		}
		if seen[e.ProbeID] == nil {
			seen[e.ProbeID] = make(map[string]bool)
			order = append(order, e.ProbeID)
		}
		if seen[e.ProbeID][e.IPAddress] {
			continue
		}
		seen[e.ProbeID][e.IPAddress] = true
		addrs[e.ProbeID] = append(addrs[e.ProbeID], e.IPAddress)
	}
	sort.Strings(order)

	out := make([]model.PopAddresses, 0, len(order))
	for _, probeID := range order {
		out = append(out, model.PopAddresses{
			ProbeID: probeID,
			PopIPs:  strings.Join(addrs[probeID], ","),
		})
	}
	return out
}

// PopArtifact renders the PoP summary as a persistable table.
func PopArtifact(pops []model.PopAddresses) *artifact.Table {
	rows := make([][]string, len(pops))
	for i, p := range pops {
		rows[i] = []string{p.ProbeID, p.PopIPs}
	}
	return &artifact.Table{Columns: PopColumns, Rows: rows}
}
