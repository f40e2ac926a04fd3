// Package trace models traceroute hop results and decomposes a path through
// a satellite relay gateway into user, bent-pipe, and ground latency
// segments.
package trace

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/rotisserie/eris"

	"github.com/skylab-research/atlas-cli/internal/model"
)

// SentinelNoGateway marks a reading whose path never produced a first-packet
// response from the relay gateway. A fraction of real readings legitimately
// miss the relay hop; this is data, not an error.
const SentinelNoGateway = "relay gateway not in the path"

// Packet is one probe packet attempt within a hop. RTT is nil when the
// attempt timed out or carried no timing.
type Packet struct {
	From string   `json:"from,omitempty"`
	RTT  *float64 `json:"rtt,omitempty"`
	X    string   `json:"x,omitempty"`
}

// Hop is one entry of a traceroute result: either an error marker or a set
// of packet attempts. Hops are ordered along the path toward the target.
type Hop struct {
	Hop     int      `json:"hop,omitempty"`
	Error   string   `json:"error,omitempty"`
	Packets []Packet `json:"result,omitempty"`
}

// ParseHops converts the decoded "result" field of a measurement record into
// hops. The value arrives as generic JSON from the extractor.
func ParseHops(value any) ([]Hop, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, eris.Wrap(err, "trace: re-encode hop list")
	}
	var hops []Hop
	if err := json.Unmarshal(raw, &hops); err != nil {
		return nil, eris.Wrap(err, "trace: parse hop list")
	}
	return hops, nil
}

// meanRTT is the arithmetic mean of the RTTs present among a hop's packet
// attempts. Attempts without an RTT count toward neither numerator nor
// denominator; a hop with no usable attempts yields 0 so the subtraction
// chain downstream stays defined.
func meanRTT(hop Hop) float64 {
	var sum float64
	var n int
	for _, pkt := range hop.Packets {
		if pkt.RTT != nil {
			sum += *pkt.RTT
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// firstResponder returns the responder address of the hop's first packet
// attempt, or "" when the hop has none.
func firstResponder(hop Hop) string {
	if len(hop.Packets) == 0 {
		return ""
	}
	return hop.Packets[0].From
}

// Decompose walks a hop path and splits its latency into the segment before
// the relay gateway (user), the gateway transit (bent pipe), and the
// remainder to the final hop (ground).
//
// An error hop short-circuits with the same sentinel in all three fields. If
// no hop's first packet responds from the gateway, the whole reading carries
// SentinelNoGateway, overriding any partial values. Negative bent-pipe or
// ground values are preserved: they surface measurement noise downstream.
func Decompose(hops []Hop, gateway string) model.SegmentLatency {
	var user, bentPipe, ground, lastMean float64
	matched := false

	for i, hop := range hops {
		if hop.Error != "" {
			return model.SegmentLatency{Sentinel: fmt.Sprintf("Error: %s", hop.Error)}
		}

		mean := meanRTT(hop)
		if firstResponder(hop) == gateway {
			user = lastMean
			bentPipe = mean - user
			matched = true
		} else if i == len(hops)-1 {
			ground = mean - user - bentPipe
		}
		lastMean = mean
	}

	if !matched {
		return model.SegmentLatency{Sentinel: SentinelNoGateway}
	}

	return model.SegmentLatency{
		User:     round2(user),
		BentPipe: round2(bentPipe),
		Ground:   round2(ground),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
