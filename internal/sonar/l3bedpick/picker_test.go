package l3bedpick

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/banshee-data/sonarmap/internal/config"
	"github.com/banshee-data/sonarmap/internal/sonar"
	"github.com/banshee-data/sonarmap/internal/sonar/l1pings"
	"github.com/banshee-data/sonarmap/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPicker(t *testing.T, mode string, seg BedSegmenter) *Picker {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Mode = mode
	p, err := NewPicker(cfg, seg)
	require.NoError(t, err)
	return p
}

func TestPick_FlatBedIsExact(t *testing.T) {
	t.Parallel()

	c := testutil.FlatSurvey(sonar.Port).Chunk(0)
	picks, err := newPicker(t, config.DepthModeThreshold, nil).Pick(context.Background(), c)
	require.NoError(t, err)

	require.Equal(t, 500, picks.Len())
	assert.Equal(t, Band{Top: 50, Bottom: 150}, picks.Band)
	for i, r := range picks.Rows {
		require.Equal(t, sonar.RowOf(100), r, "ping %d", i)
		require.Equal(t, sonar.ProvenanceThreshold, picks.Provenance[i])
	}
	assert.Zero(t, picks.Nulls())
}

func TestPick_RemovesFishArch(t *testing.T) {
	t.Parallel()

	s := testutil.FlatSurvey(sonar.Starboard)
	s.Pings = 120
	s.BedRow = 120
	c := s.Chunk(3)
	// A strong mid-water target well above the bed.
	for col := 10; col <= 40; col++ {
		for row := 80; row <= 95; row++ {
			c.Pings[col].Samples[row] = 220
		}
	}

	picks, err := newPicker(t, config.DepthModeThreshold, nil).Pick(context.Background(), c)
	require.NoError(t, err)
	for i, r := range picks.Rows {
		require.True(t, r.Valid, "ping %d", i)
		assert.GreaterOrEqual(t, r.Value, 118, "ping %d picked the target", i)
		assert.LessOrEqual(t, r.Value, 126, "ping %d", i)
	}
	for i := 0; i < 10; i++ {
		assert.Equal(t, 120, picks.Rows[i].Value)
	}
}

func TestPick_EmptyColumnsAreNull(t *testing.T) {
	t.Parallel()

	s := testutil.FlatSurvey(sonar.Port)
	s.Pings = 60
	c := s.Chunk(0)
	// Dead pings at the end of the chunk. The blur bleeds a few columns
	// in from the last live ping; beyond that the columns are flat.
	for col := 40; col < 60; col++ {
		for row := range c.Pings[col].Samples {
			c.Pings[col].Samples[row] = 0
		}
	}

	picks, err := newPicker(t, config.DepthModeThreshold, nil).Pick(context.Background(), c)
	require.NoError(t, err)
	for col := 44; col < 60; col++ {
		assert.False(t, picks.Rows[col].Valid, "ping %d", col)
		assert.Equal(t, sonar.ProvenanceUnknown, picks.Provenance[col])
	}
	for col := 0; col < 44; col++ {
		assert.Equal(t, sonar.RowOf(100), picks.Rows[col], "ping %d", col)
	}
	assert.Equal(t, 16, picks.Nulls())

	hybrid, err := newPicker(t, config.DepthModeHybrid, nil).Pick(context.Background(), c)
	require.NoError(t, err)
	assert.Zero(t, hybrid.Nulls())
	assert.Equal(t, sonar.RowOf(100), hybrid.Rows[50])
	assert.Equal(t, sonar.ProvenanceInstrument, hybrid.Provenance[50])
	assert.Equal(t, sonar.ProvenanceThreshold, hybrid.Provenance[0])
}

func TestPick_InstrumentMode(t *testing.T) {
	t.Parallel()

	s := testutil.FlatSurvey(sonar.Port)
	s.Pings = 10
	c := s.Chunk(0)
	c.Pings[4].InstDepthM = -1

	picks, err := newPicker(t, config.DepthModeInstrument, nil).Pick(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, sonar.RowOf(100), picks.Rows[0])
	assert.False(t, picks.Rows[4].Valid)
	assert.Equal(t, sonar.ProvenanceInstrument, picks.Provenance[0])
	assert.Equal(t, sonar.ProvenanceUnknown, picks.Provenance[4])
}

type stubSegmenter struct {
	row int
	err error
}

func (s stubSegmenter) Segment(_ context.Context, band *l1pings.Image) (*Mask, error) {
	if s.err != nil {
		return nil, s.err
	}
	m := NewMask(band.Rows, band.Cols)
	for r := s.row; r < band.Rows; r++ {
		for c := 0; c < band.Cols; c++ {
			m.Set(r, c, true)
		}
	}
	return m, nil
}

func TestPick_ModelMode(t *testing.T) {
	t.Parallel()

	s := testutil.FlatSurvey(sonar.Port)
	s.Pings = 30
	c := s.Chunk(0)

	picks, err := newPicker(t, config.DepthModeModel, stubSegmenter{row: 60}).Pick(context.Background(), c)
	require.NoError(t, err)
	for i, r := range picks.Rows {
		assert.Equal(t, sonar.RowOf(110), r, "band top 50 plus mask row 60, ping %d", i)
		assert.Equal(t, sonar.ProvenanceModel, picks.Provenance[i])
	}

	boom := errors.New("model offline")
	_, err = newPicker(t, config.DepthModeModel, stubSegmenter{err: boom}).Pick(context.Background(), c)
	assert.ErrorIs(t, err, boom)

	_, err = NewPicker(Config{Mode: config.DepthModeModel}, nil)
	assert.ErrorIs(t, err, ErrNoSegmenter)
}

func TestPick_InvalidChunk(t *testing.T) {
	t.Parallel()

	_, err := newPicker(t, config.DepthModeThreshold, nil).Pick(context.Background(), &l1pings.Chunk{})
	assert.ErrorIs(t, err, l1pings.ErrEmptyChunk)
}

func TestPick_RowsStayInRange(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))
	p := newPicker(t, config.DepthModeThreshold, nil)
	for trial := 0; trial < 20; trial++ {
		c := &l1pings.Chunk{Beam: sonar.Port, ID: trial}
		pings := 5 + rng.IntN(40)
		for i := 0; i < pings; i++ {
			n := 1 + rng.IntN(80)
			samples := make([]uint8, n)
			for j := range samples {
				samples[j] = uint8(rng.IntN(256))
			}
			c.Pings = append(c.Pings, l1pings.Ping{
				Index:      i,
				Beam:       sonar.Port,
				PixM:       0.05,
				InstDepthM: rng.Float64() * 6,
				Samples:    samples,
			})
		}
		picks, err := p.Pick(context.Background(), c)
		require.NoError(t, err)
		require.Equal(t, c.Len(), picks.Len())
		for i, r := range picks.Rows {
			if !r.Valid {
				continue
			}
			assert.GreaterOrEqual(t, r.Value, 0, "trial %d ping %d", trial, i)
			assert.Less(t, r.Value, c.PingMax(), "trial %d ping %d", trial, i)
		}
	}
}

func TestSearchBand(t *testing.T) {
	t.Parallel()

	inst := []sonar.Row{sonar.RowOf(30), sonar.NullRow(), sonar.RowOf(10)}
	assert.Equal(t, Band{Top: 0, Bottom: 80}, searchBand(inst, 200, 50))
	assert.Equal(t, Band{Top: 5, Bottom: 35}, searchBand(inst, 36, 5))
	assert.Equal(t, Band{Top: 0, Bottom: 99}, searchBand([]sonar.Row{{}}, 100, 50))
}

func TestConfig(t *testing.T) {
	assert.Equal(t, DefaultConfig(), ConfigFromProcessing(config.EmptyProcessingConfig()))
	assert.Error(t, Config{Mode: "guess"}.Validate())
	assert.Error(t, Config{Mode: config.DepthModeHybrid, BlurSigma: -1}.Validate())
}
