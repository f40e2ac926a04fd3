package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylab-research/atlas-cli/internal/model"
)

func reading(continent, country string, user, bent, ground float64) model.MeasurementReading {
	return model.MeasurementReading{
		Continent: continent,
		Country:   country,
		Latency:   model.SegmentLatency{User: user, BentPipe: bent, Ground: ground},
	}
}

func TestSegmentProportions(t *testing.T) {
	readings := []model.MeasurementReading{
		reading("Europe", "UK", 10, 20, 30),
		reading("Europe", "UK", 20, 40, 60),
	}

	props := SegmentProportions(readings)
	require.Len(t, props, 1)

	p := props[0]
	assert.Equal(t, 15.0, p.MeanUser)
	assert.Equal(t, 30.0, p.MeanBentPipe)
	assert.Equal(t, 45.0, p.MeanGround)
	assert.Equal(t, 90.0, p.Total)
	assert.InDelta(t, 0.17, p.PropUser, 0.001)
	assert.InDelta(t, 0.33, p.PropBentPipe, 0.001)
	assert.InDelta(t, 0.5, p.PropGround, 0.001)
}

func TestSegmentProportions_ProportionsSumToOne(t *testing.T) {
	readings := []model.MeasurementReading{
		reading("Europe", "UK", 12.37, 18.91, 44.02),
		reading("Europe", "UK", 9.5, 21.33, 38.76),
		reading("Europe", "UK", 15.01, 17.2, 51.4),
	}

	props := SegmentProportions(readings)
	require.Len(t, props, 1)
	sum := props[0].PropUser + props[0].PropBentPipe + props[0].PropGround
	assert.InDelta(t, 1.0, sum, 0.01)
}

func TestSegmentProportions_SentinelsExcluded(t *testing.T) {
	readings := []model.MeasurementReading{
		reading("Europe", "UK", 10, 20, 30),
		{
			Continent: "Europe", Country: "UK",
			Latency: model.SegmentLatency{Sentinel: "Error: unreachable"},
		},
	}

	props := SegmentProportions(readings)
	require.Len(t, props, 1)
	// The sentinel row neither zeroes nor dilutes the means.
	assert.Equal(t, 10.0, props[0].MeanUser)
}

func TestSegmentProportions_AllSentinelGroupOmitted(t *testing.T) {
	readings := []model.MeasurementReading{
		{
			Continent: "Africa", Country: "Benin",
			Latency: model.SegmentLatency{Sentinel: "relay gateway not in the path"},
		},
	}
	assert.Empty(t, SegmentProportions(readings))
}

func TestSegmentProportions_ZeroTotalLeavesProportionsZero(t *testing.T) {
	readings := []model.MeasurementReading{
		reading("Europe", "UK", 0, 0, 0),
	}

	props := SegmentProportions(readings)
	require.Len(t, props, 1)
	assert.Equal(t, 0.0, props[0].Total)
	assert.Equal(t, 0.0, props[0].PropUser)
	assert.Equal(t, 0.0, props[0].PropBentPipe)
	assert.Equal(t, 0.0, props[0].PropGround)
}

func TestSegmentProportions_GroupsSorted(t *testing.T) {
	readings := []model.MeasurementReading{
		reading("Europe", "UK", 1, 1, 1),
		reading("Africa", "Benin", 1, 1, 1),
		reading("Europe", "France", 1, 1, 1),
	}

	props := SegmentProportions(readings)
	require.Len(t, props, 3)
	assert.Equal(t, "Benin", props[0].Country)
	assert.Equal(t, "France", props[1].Country)
	assert.Equal(t, "UK", props[2].Country)
}

func TestSegmentProportions_NegativeGroundFlowsThrough(t *testing.T) {
	readings := []model.MeasurementReading{
		reading("Europe", "UK", 10, 50, -15),
	}

	props := SegmentProportions(readings)
	require.Len(t, props, 1)
	assert.Equal(t, -15.0, props[0].MeanGround)
	assert.Equal(t, 45.0, props[0].Total)
}

func TestProportionsArtifact(t *testing.T) {
	table := ProportionsArtifact([]model.SegmentProportion{
		{
			Continent: "Europe", Country: "UK",
			MeanUser: 15, MeanBentPipe: 30, MeanGround: 45, Total: 90,
			PropUser: 0.17, PropBentPipe: 0.33, PropGround: 0.5,
		},
	})
	assert.Equal(t, ProportionsColumns, table.Columns)
	assert.Equal(t, []string{
		"Europe", "UK", "15.00", "30.00", "45.00", "90.00", "0.17", "0.33", "0.50",
	}, table.Rows[0])
}
