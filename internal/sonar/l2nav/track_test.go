package l2nav

import (
	"errors"
	"math"
	"testing"

	"github.com/banshee-data/sonarmap/internal/config"
	"github.com/banshee-data/sonarmap/internal/sonar"
	"github.com/banshee-data/sonarmap/internal/sonar/l1pings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProj = Projection{Zone: 32, North: true}

// northbound returns projected fixes heading due north one metre per ping.
func northbound(n int) []l1pings.Fix {
	fixes := make([]l1pings.Fix, n)
	for i := range fixes {
		fixes[i] = l1pings.Fix{E: 500000, N: 5000000 + float64(i), Projected: true, Valid: true}
	}
	return fixes
}

func constRanges(n int, r float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = r
	}
	return out
}

func TestBuild_NorthboundOuterPoints(t *testing.T) {
	t.Parallel()

	tr, err := Build(northbound(10), constRanges(10, 20), testProj, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, 10, tr.Len())

	for i := 0; i < tr.Len(); i++ {
		assert.InDelta(t, 0.0, tr.COG[i], 1e-9, "ping %d", i)
		assert.InDelta(t, tr.Trackline[i].E-20, tr.Port[i].E, 1e-9)
		assert.InDelta(t, tr.Trackline[i].N, tr.Port[i].N, 1e-9)
		assert.InDelta(t, tr.Trackline[i].E+20, tr.Starboard[i].E, 1e-9)
	}
	assert.Equal(t, tr.Port, tr.Outer(sonar.Port))
	assert.Equal(t, tr.Starboard, tr.Outer(sonar.Starboard))
	assert.InDelta(t, 9.0, tr.AlongTrackM(), 1e-9)
}

func TestBuild_EastboundBearings(t *testing.T) {
	t.Parallel()

	fixes := make([]l1pings.Fix, 5)
	for i := range fixes {
		fixes[i] = l1pings.Fix{E: float64(i) * 2, N: 100, Projected: true, Valid: true}
	}
	tr, err := Build(fixes, constRanges(5, 10), testProj, Config{SmoothingWindow: 1})
	require.NoError(t, err)

	for i := range fixes {
		assert.InDelta(t, 90.0, tr.COG[i], 1e-9)
		// Port of an eastbound vessel is north.
		assert.InDelta(t, 110.0, tr.Port[i].N, 1e-9)
		assert.InDelta(t, 90.0, tr.Starboard[i].N, 1e-9)
	}
}

func TestBuild_NoValidFix(t *testing.T) {
	t.Parallel()

	fixes := []l1pings.Fix{{Valid: false}, {Valid: false}}
	_, err := Build(fixes, constRanges(2, 5), testProj, DefaultConfig())
	assert.True(t, errors.Is(err, ErrNoValidFix))
}

func TestBuild_RepairsInvalidFixes(t *testing.T) {
	t.Parallel()

	fixes := northbound(7)
	fixes[0].Valid = false
	fixes[3].Valid = false
	fixes[6].Valid = false

	pts, _, repaired, err := planarPositions(fixes, testProj)
	require.NoError(t, err)
	assert.Equal(t, 3, repaired)
	assert.Equal(t, 5000001.0, pts[0].N, "leading gap takes the next valid fix")
	assert.Equal(t, 5000002.0, pts[3].N, "ties take the previous fix")
	assert.Equal(t, 5000005.0, pts[6].N, "trailing gap takes the previous fix")
}

func TestBuild_ProjectsGeographicFixes(t *testing.T) {
	t.Parallel()

	fixes := []l1pings.Fix{
		{Lat: 45, Lon: 9, Valid: true},
		{Lat: 45.001, Lon: 9, Valid: true},
	}
	tr, err := Build(fixes, constRanges(2, 0), testProj, Config{SmoothingWindow: 1})
	require.NoError(t, err)
	assert.InDelta(t, 500000.0, tr.Trackline[0].E, 1e-6)
	assert.InDelta(t, 0.0, tr.COG[0], 1e-6)
	assert.InDelta(t, 0.0, tr.COG[1], 1e-6)
}

func TestCourseOverGround_Stationary(t *testing.T) {
	t.Parallel()

	pts := []sonar.Point{{E: 0, N: 0}, {E: 0, N: 0}, {E: 1, N: 0}, {E: 1, N: 0}}
	cog := courseOverGround(pts, []float64{math.NaN(), 0, 0, 0})
	assert.InDelta(t, 90.0, cog[0], 1e-9, "no prior bearing and no heading looks ahead")
	assert.InDelta(t, 90.0, cog[1], 1e-9)
	assert.InDelta(t, 90.0, cog[2], 1e-9, "zero displacement keeps previous bearing")
	assert.InDelta(t, 90.0, cog[3], 1e-9, "last ping reuses penultimate")

	single := courseOverGround([]sonar.Point{{E: 5, N: 5}}, []float64{-45})
	assert.InDelta(t, 315.0, single[0], 1e-9)

	heading := courseOverGround([]sonar.Point{{}, {}, {E: 0, N: 1}}, []float64{200, 200, 200})
	assert.InDelta(t, 200.0, heading[0], 1e-9, "instrument heading when there is no prior bearing")
}

func TestBearing(t *testing.T) {
	o := sonar.Point{}
	assert.InDelta(t, 0.0, Bearing(o, sonar.Point{N: 1}), 1e-9)
	assert.InDelta(t, 90.0, Bearing(o, sonar.Point{E: 1}), 1e-9)
	assert.InDelta(t, 180.0, Bearing(o, sonar.Point{N: -1}), 1e-9)
	assert.InDelta(t, 270.0, Bearing(o, sonar.Point{E: -1}), 1e-9)
	assert.InDelta(t, 45.0, Bearing(o, sonar.Point{E: 1, N: 1}), 1e-9)
}

func TestMovingAverage(t *testing.T) {
	t.Parallel()

	pts := []sonar.Point{{E: 0}, {E: 10}, {E: 0}, {E: 10}, {E: 0}}
	out := movingAverage(pts, 3)
	assert.InDelta(t, 0.0, out[0].E, 1e-9, "end points are kept")
	assert.InDelta(t, 10.0/3, out[1].E, 1e-9)
	assert.InDelta(t, 20.0/3, out[2].E, 1e-9)
	assert.InDelta(t, 0.0, out[4].E, 1e-9)

	line := []sonar.Point{{N: 0}, {N: 1}, {N: 2}, {N: 3}, {N: 4}, {N: 5}}
	assert.Equal(t, line, movingAverage(line, 5), "straight tracks are unchanged")

	assert.Equal(t, pts, movingAverage(pts, 1))
}

func TestBuildChunk_UsesSlantRange(t *testing.T) {
	t.Parallel()

	c := &l1pings.Chunk{Beam: sonar.Starboard}
	for i, f := range northbound(3) {
		c.Pings = append(c.Pings, l1pings.Ping{
			Index:   i,
			Beam:    sonar.Starboard,
			PixM:    0.5,
			Samples: make([]uint8, 40),
			Fix:     f,
		})
	}
	tr, err := BuildChunk(c, testProj, DefaultConfig())
	require.NoError(t, err)
	assert.InDelta(t, tr.Trackline[1].E+20, tr.Starboard[1].E, 1e-9)

	ground := tr.OuterAt(sonar.Starboard, []float64{5, 5})
	assert.InDelta(t, tr.Trackline[0].E+5, ground[0].E, 1e-9)
	assert.InDelta(t, tr.Trackline[2].E, ground[2].E, 1e-9, "missing range collapses to the trackline")
}

func TestConfigFromProcessing(t *testing.T) {
	assert.Equal(t, DefaultConfig(), ConfigFromProcessing(config.EmptyProcessingConfig()))
}
