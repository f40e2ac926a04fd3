package analyze

import (
	"math"
	"sort"
	"strconv"

	"github.com/skylab-research/atlas-cli/internal/artifact"
	"github.com/skylab-research/atlas-cli/internal/model"
)

// ProportionsColumns is the persisted segment-proportion artifact schema.
var ProportionsColumns = []string{
	"continent", "country",
	"mean_user_latency", "mean_bent_pipe_latency", "mean_ground_latency",
	"total_latency",
	"user_proportion", "bent_pipe_proportion", "ground_proportion",
}

// SegmentProportions groups readings by (continent, country) and computes
// the mean of each latency segment, the total, and each segment's share of
// the total. Sentinel readings are excluded from the means, never treated
// as zero. All outputs are rounded to 2 decimal places.
func SegmentProportions(readings []model.MeasurementReading) []model.SegmentProportion {
	type key struct{ continent, country string }
	type acc struct {
		user, bentPipe, ground float64
		n                      int
	}

	groups := make(map[key]*acc)
	var keys []key
	for _, m := range readings {
		if m.Latency.IsSentinel() {
			continue
		}
		k := key{m.Continent, m.Country}
		g, ok := groups[k]
		if !ok {
			g = &acc{}
			groups[k] = g
			keys = append(keys, k)
		}
		g.user += m.Latency.User
		g.bentPipe += m.Latency.BentPipe
		g.ground += m.Latency.Ground
		g.n++
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].continent != keys[j].continent {
			return keys[i].continent < keys[j].continent
		}
		return keys[i].country < keys[j].country
	})

	props := make([]model.SegmentProportion, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		meanUser := g.user / float64(g.n)
		meanBent := g.bentPipe / float64(g.n)
		meanGround := g.ground / float64(g.n)
		total := meanUser + meanBent + meanGround

		p := model.SegmentProportion{
			Continent:    k.continent,
			Country:      k.country,
			MeanUser:     round2(meanUser),
			MeanBentPipe: round2(meanBent),
			MeanGround:   round2(meanGround),
			Total:        round2(total),
		}
		if total != 0 {
			p.PropUser = round2(meanUser / total)
			p.PropBentPipe = round2(meanBent / total)
			p.PropGround = round2(meanGround / total)
		}
		props = append(props, p)
	}

	return props
}

// ProportionsArtifact renders segment proportions as a persistable table.
func ProportionsArtifact(props []model.SegmentProportion) *artifact.Table {
	rows := make([][]string, len(props))
	for i, p := range props {
		rows[i] = []string{
			p.Continent,
			p.Country,
			format2(p.MeanUser),
			format2(p.MeanBentPipe),
			format2(p.MeanGround),
			format2(p.Total),
			format2(p.PropUser),
			format2(p.PropBentPipe),
			format2(p.PropGround),
		}
	}
	return &artifact.Table{Columns: ProportionsColumns, Rows: rows}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func format2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
