package l5rectify

import (
	"testing"

	"github.com/banshee-data/sonarmap/internal/sonar"
	"github.com/banshee-data/sonarmap/internal/sonar/l1pings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriangle_MapsControlPoints(t *testing.T) {
	origin := sonar.Point{E: 1000, N: 2000}
	a := controlPoint{col: 0.5, row: 0, at: sonar.Point{E: 1000, N: 2000}}
	b := controlPoint{col: 0.5, row: 10, at: sonar.Point{E: 1010, N: 2000}}
	c := controlPoint{col: 5.5, row: 0, at: sonar.Point{E: 1000, N: 2005}}

	tri, ok := newTriangle(a, b, c, origin)
	require.True(t, ok)
	for _, cp := range []controlPoint{a, b, c} {
		local := sonar.Point{E: cp.at.E - origin.E, N: cp.at.N - origin.N}
		col, row := tri.source(local)
		assert.InDelta(t, cp.col, col, 1e-9)
		assert.InDelta(t, cp.row, row, 1e-9)
		assert.True(t, tri.contains(local))
	}
	assert.True(t, tri.contains(sonar.Point{E: 2, N: 1}))
	assert.False(t, tri.contains(sonar.Point{E: 9, N: 4}))

	_, ok = newTriangle(a, a, c, origin)
	assert.False(t, ok, "collinear points have no affine")
}

func TestRemoveWaterColumn(t *testing.T) {
	img := l1pings.NewImage(5, 3)
	for r := 0; r < 5; r++ {
		for c := 0; c < 3; c++ {
			img.Set(r, c, uint8(r+1))
		}
	}
	out := RemoveWaterColumn(img, []int{0, 3, 9})
	require.Equal(t, 5, out.Rows)
	assert.Equal(t, []uint8{1, 2, 3, 4, 5}, out.Column(0), "bed at the surface is unchanged")
	assert.Equal(t, []uint8{4, 4, 5, 5, 0}, out.Column(1))
	assert.Equal(t, []uint8{0, 0, 0, 0, 0}, out.Column(2), "bed beyond the ping leaves nothing")
}

func TestStretch(t *testing.T) {
	img := l1pings.NewImage(2, 4)
	for c := 0; c < 4; c++ {
		img.Set(0, c, uint8(10*(c+1)))
		img.Set(1, c, uint8(10*(c+1)))
	}
	out := Stretch(img, 8)
	require.Equal(t, 8, out.Cols)
	assert.Equal(t, []uint8{10, 10, 20, 20, 30, 30, 40, 40}, out.Pix[:8])
	assert.Same(t, img, Stretch(img, 4))
}

func TestSamplers(t *testing.T) {
	img := l1pings.NewImage(2, 2)
	img.Set(0, 0, 10)
	img.Set(0, 1, 30)
	img.Set(1, 0, 10)
	img.Set(1, 1, 0) // NoData

	v, ok := sampleNearest(img, 1.2, 0.7)
	assert.True(t, ok)
	assert.Equal(t, uint8(30), v)
	_, ok = sampleNearest(img, 1.5, 1.5)
	assert.False(t, ok, "NoData is not sampled")
	_, ok = sampleNearest(img, -0.1, 0)
	assert.False(t, ok)

	v, ok = sampleBilinear(img, 1.0, 0.5)
	assert.True(t, ok)
	assert.Equal(t, uint8(20), v)
	v, ok = sampleBilinear(img, 1.0, 1.0)
	assert.True(t, ok)
	assert.Equal(t, uint8(17), v, "NoData neighbours are ignored")
}
