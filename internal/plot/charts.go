// Package plot renders analysis tables as PNG charts with go-chart.
package plot

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/skylab-research/atlas-cli/internal/analyze"
	"github.com/skylab-research/atlas-cli/internal/model"
)

func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    2,
		DotColor:    col,
	}
}

// ConnectionBars renders one stacked bar per probe: relay share, other
// share, disconnected share. Probes are ordered by relay share descending,
// matching how operators scan for underperforming terminals.
func ConnectionBars(shares []model.ConnectionShare, w io.Writer) error {
	if len(shares) == 0 {
		return eris.New("plot: no connection shares to render")
	}

	ordered := make([]model.ConnectionShare, len(shares))
	copy(ordered, shares)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Relay > ordered[j].Relay })

	bars := make([]chart.StackedBar, 0, len(ordered))
	for _, s := range ordered {
		if s.Relay+s.Other+s.Disconnected <= 0 {
			continue // nothing attributable inside the window
		}
		bars = append(bars, chart.StackedBar{
			Name:  s.ProbeID,
			Width: 40,
			Values: []chart.Value{
				{Label: "starlink", Value: s.Relay, Style: chart.Style{FillColor: chart.ColorBlue, FontSize: 8}},
				{Label: "other", Value: s.Other, Style: chart.Style{FillColor: chart.ColorOrange, FontSize: 8}},
				{Label: "offline", Value: s.Disconnected, Style: chart.Style{FillColor: chart.ColorRed, FontSize: 8}},
			},
		})
	}
	if len(bars) == 0 {
		return eris.New("plot: all probes have empty windows")
	}

	sbc := chart.StackedBarChart{
		Title:      "Probe connectivity over measurement window",
		Width:      1280,
		Height:     720,
		XAxis:      chart.Style{FontSize: 8},
		YAxis:      chart.Style{},
		Bars:       bars,
		BarSpacing: 16,
	}
	return eris.Wrap(sbc.Render(chart.PNG, w), "plot: render connection bars")
}

// LatencyScatter renders bent-pipe latency over time, one dot series per
// probe.
func LatencyScatter(points []analyze.LatencyPoint, maxLatency float64, w io.Writer) error {
	if len(points) < 2 {
		return eris.New("plot: not enough latency points to render")
	}

	byProbe := make(map[int][]analyze.LatencyPoint)
	var probes []int
	for _, p := range points {
		if _, seen := byProbe[p.ProbeID]; !seen {
			probes = append(probes, p.ProbeID)
		}
		byProbe[p.ProbeID] = append(byProbe[p.ProbeID], p)
	}
	sort.Ints(probes)

	var series []chart.Series
	var maxSeen float64
	for i, probeID := range probes {
		pts := byProbe[probeID]
		if len(pts) < 2 {
			continue
		}
		sort.SliceStable(pts, func(a, b int) bool { return pts[a].Timestamp.Before(pts[b].Timestamp) })

		ts := chart.TimeSeries{
			Name:  fmt.Sprintf("probe %d", probeID),
			Style: pointStyle(chart.GetDefaultColor(i)),
		}
		for _, p := range pts {
			ts.XValues = append(ts.XValues, p.Timestamp)
			ts.YValues = append(ts.YValues, p.BentPipe)
			maxSeen = math.Max(maxSeen, p.BentPipe)
		}
		series = append(series, ts)
	}
	if len(series) == 0 {
		return eris.New("plot: no probe has enough latency points")
	}

	top := maxSeen * 1.1
	if maxLatency > 0 {
		top = math.Min(maxLatency, top)
	}

	c := chart.Chart{
		Title:  "Bent-pipe latency",
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("01-02 15:04"),
		},
		YAxis: chart.YAxis{
			Name:  "latency (ms)",
			Range: &chart.ContinuousRange{Min: 0, Max: top},
		},
		Series: series,
	}
	return eris.Wrap(c.Render(chart.PNG, w), "plot: render latency scatter")
}

// LatencyHistogram renders the distribution of bent-pipe latency in
// fixed-width bins up to maxLatency.
func LatencyHistogram(points []analyze.LatencyPoint, binWidth, maxLatency float64, w io.Writer) error {
	if len(points) == 0 {
		return eris.New("plot: no latency points to render")
	}
	if binWidth <= 0 {
		binWidth = 10
	}
	if maxLatency <= 0 {
		maxLatency = 200
	}

	nbins := int(math.Ceil(maxLatency / binWidth))
	counts := make([]int, nbins)
	for _, p := range points {
		bin := int(p.BentPipe / binWidth)
		if bin < 0 {
			bin = 0
		}
		if bin >= nbins {
			bin = nbins - 1 // overflow bin collects the tail
		}
		counts[bin]++
	}

	bars := make([]chart.Value, nbins)
	for i, n := range counts {
		bars[i] = chart.Value{
			Label: fmt.Sprintf("%d", int(float64(i)*binWidth)),
			Value: float64(n),
			Style: chart.Style{FillColor: chart.ColorBlue, FontSize: 8},
		}
	}

	bc := chart.BarChart{
		Title:    "Bent-pipe latency distribution",
		Width:    1280,
		Height:   720,
		BarWidth: 1100 / nbins,
		XAxis:    chart.Style{FontSize: 8},
		Bars:     bars,
	}
	return eris.Wrap(bc.Render(chart.PNG, w), "plot: render latency histogram")
}

// GroupBy selects the CDF grouping dimension.
type GroupBy string

const (
	GroupNone      GroupBy = ""
	GroupContinent GroupBy = "continent"
	GroupCountry   GroupBy = "country"
)

// LatencyCDF renders the empirical CDF of bent-pipe latency, one curve per
// group (or one overall curve). Values above maxLatency are clipped out of
// the x range but still count toward the distribution.
func LatencyCDF(points []analyze.LatencyPoint, groupBy GroupBy, maxLatency float64, w io.Writer) error {
	groups := make(map[string][]float64)
	var names []string
	for _, p := range points {
		name := "all probes"
		switch groupBy {
		case GroupContinent:
			name = p.Continent
		case GroupCountry:
			name = p.Country
		}
		if _, seen := groups[name]; !seen {
			names = append(names, name)
		}
		groups[name] = append(groups[name], p.BentPipe)
	}
	sort.Strings(names)

	var series []chart.Series
	for i, name := range names {
		values := groups[name]
		if len(values) < 2 {
			continue
		}
		sort.Float64s(values)

		cs := chart.ContinuousSeries{
			Name:  name,
			Style: chart.Style{StrokeColor: chart.GetDefaultColor(i), StrokeWidth: 2},
		}
		n := float64(len(values))
		for j, v := range values {
			cs.XValues = append(cs.XValues, v)
			cs.YValues = append(cs.YValues, float64(j+1)/n)
		}
		series = append(series, cs)
	}
	if len(series) == 0 {
		return eris.New("plot: not enough latency points for a CDF")
	}

	var xrange *chart.ContinuousRange
	if maxLatency > 0 {
		xrange = &chart.ContinuousRange{Min: 0, Max: maxLatency}
	}

	c := chart.Chart{
		Title:  "Bent-pipe latency CDF",
		Width:  1280,
		Height: 720,
		XAxis:  chart.XAxis{Name: "latency (ms)"},
		YAxis: chart.YAxis{
			Name:  "fraction of readings",
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
		},
		Series: series,
	}
	if xrange != nil {
		c.XAxis.Range = xrange
	}
	c.Elements = []chart.Renderable{chart.Legend(&c)}

	return eris.Wrap(c.Render(chart.PNG, w), "plot: render latency cdf")
}
