package sonar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBeam(t *testing.T) {
	tests := []struct {
		in   string
		want Beam
	}{
		{"port", Port},
		{" SS_PORT ", Port},
		{"sidescan_port", Port},
		{"star", Starboard},
		{"Starboard", Starboard},
		{"ss_star", Starboard},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseBeam(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ParseBeam("down_image")
	assert.ErrorContains(t, err, "down_image")
}

func TestBeamNames(t *testing.T) {
	assert.Equal(t, "port", Port.Short())
	assert.Equal(t, "star", Starboard.Short())
	assert.Equal(t, "starboard", Starboard.String())
	assert.Equal(t, "Beam(9)", Beam(9).String())
	assert.Equal(t, -1.0, Port.Side())
	assert.Equal(t, 1.0, Starboard.Side())
	assert.False(t, Beam(0).Valid())
}

func TestMetersToRow(t *testing.T) {
	assert.Equal(t, RowOf(10), MetersToRow(1.04, 0.1))
	assert.Equal(t, RowOf(11), MetersToRow(1.05001, 0.1))
	assert.Equal(t, NullRow(), MetersToRow(1, 0))
	assert.Equal(t, NullRow(), MetersToRow(math.NaN(), 0.1))
	assert.Equal(t, NullRow(), MetersToRow(-2, 0.1))
	assert.InDelta(t, 2.5, RowToMeters(25, 0.1), 1e-12)
}

func TestRowOr(t *testing.T) {
	assert.Equal(t, 4, RowOf(4).Or(9))
	assert.Equal(t, 9, NullRow().Or(9))
}

func TestProvenanceString(t *testing.T) {
	assert.Equal(t, "instrument", ProvenanceInstrument.String())
	assert.Equal(t, "interpolated", ProvenanceInterpolated.String())
	assert.Equal(t, "unknown", Provenance(42).String())
}

func TestPointDist(t *testing.T) {
	assert.InDelta(t, 5.0, Point{E: 0, N: 0}.Dist(Point{E: 3, N: 4}), 1e-12)
}
