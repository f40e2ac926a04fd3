// Package model holds the value types passed between pipeline stages.
// All tables are produced once by a stage and consumed read-only downstream.
package model

import (
	"strconv"
	"time"
)

// Probe connectivity statuses as reported by the RIPE Atlas probe archive.
const (
	StatusConnected    = "Connected"
	StatusDisconnected = "Disconnected"
)

// ProbeHistoryEntry is one row of a probe's connectivity timeline.
// Entries for a probe ordered by Since form contiguous half-open intervals:
// each entry holds from Since until the next entry's Since.
type ProbeHistoryEntry struct {
	ProbeID   string
	IPAddress string
	ASN       int
	Status    string
	Since     int64
}

// SegmentLatency is the three-way decomposition of one traceroute reading:
// probe to the hop before the relay gateway (User), gateway transit
// (BentPipe), and gateway to the final hop (Ground), in milliseconds.
// A non-empty Sentinel means the reading did not traverse the relay cleanly;
// all three numeric fields are then meaningless and the table renders the
// sentinel text in their place.
type SegmentLatency struct {
	User     float64
	BentPipe float64
	Ground   float64
	Sentinel string
}

// IsSentinel reports whether the reading failed to decompose.
func (s SegmentLatency) IsSentinel() bool { return s.Sentinel != "" }

// UserText returns the user latency column value.
func (s SegmentLatency) UserText() string { return s.text(s.User) }

// BentPipeText returns the bent-pipe latency column value.
func (s SegmentLatency) BentPipeText() string { return s.text(s.BentPipe) }

// GroundText returns the ground latency column value.
func (s SegmentLatency) GroundText() string { return s.text(s.Ground) }

func (s SegmentLatency) text(v float64) string {
	if s.Sentinel != "" {
		return s.Sentinel
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// MeasurementReading is one decomposed traceroute result with the probe's
// static location attached.
type MeasurementReading struct {
	Continent string
	Country   string
	ProbeID   int
	Timestamp int64
	Latency   SegmentLatency
}

// ConnectionShare is the fraction of an analysis window a probe spent
// connected via the relay network, connected via any other network, and
// disconnected. Gaps in the source timeline can leave the sum below 1.
type ConnectionShare struct {
	ProbeID      string
	Relay        float64
	Other        float64
	Disconnected float64
}

// SegmentProportion summarizes mean segment latencies for one
// (continent, country) group and each segment's share of the total.
type SegmentProportion struct {
	Continent    string
	Country      string
	MeanUser     float64
	MeanBentPipe float64
	MeanGround   float64
	Total        float64
	PropUser     float64
	PropBentPipe float64
	PropGround   float64
}

// PopAddresses lists the distinct relay-side addresses a probe connected
// through, joined with commas.
type PopAddresses struct {
	ProbeID string
	PopIPs  string
}

// RunStatus is the lifecycle state of a recorded analysis run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded analysis run in the ledger store.
type Run struct {
	ID            string
	MeasurementID int
	WindowStart   int64
	WindowEnd     int64
	Status        RunStatus
	Note          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Artifact is one file produced by a run.
type Artifact struct {
	RunID string
	Name  string
	Path  string
	Rows  int
}
