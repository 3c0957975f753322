package l1pings

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/banshee-data/sonarmap/internal/sonar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(beam string, num int64, bins int) Record {
	samples := make([]byte, bins)
	for i := range samples {
		samples[i] = byte(1 + i%200)
	}
	return Record{
		Beam:      beam,
		RecordNum: num,
		InstDepM:  1.0,
		PixM:      0.1,
		PingCnt:   int32(bins),
		E:         500000,
		N:         4000000 + float64(num),
		Projected: true,
		FixValid:  true,
		Intensity: samples,
	}
}

func TestBuildChunks_SplitsByBeamAndSize(t *testing.T) {
	var records []Record
	// Out of order on purpose: chunks follow record number, not table order.
	for i := 9; i >= 0; i-- {
		records = append(records, rec("ss_port", int64(i), 20))
	}
	for i := 0; i < 7; i++ {
		records = append(records, rec("ss_star", int64(i), 20))
	}
	records = append(records, rec("ds_vhigh", 99, 20))

	in := BuildChunks(records, 4)

	require.Len(t, in.Chunks[sonar.Port], 3)
	require.Len(t, in.Chunks[sonar.Starboard], 2)
	assert.Equal(t, 1, in.Dropped)
	require.Len(t, in.Reasons, 1)
	assert.Contains(t, in.Reasons[0], "ds_vhigh")

	first := in.Chunks[sonar.Port][0]
	assert.Equal(t, 0, first.ID)
	assert.Equal(t, sonar.Port, first.Beam)
	require.Len(t, first.Pings, 4)
	for i, p := range first.Pings {
		assert.Equal(t, i, p.Index)
	}
	assert.Equal(t, 2, in.Chunks[sonar.Port][2].Len())
	assert.Equal(t, 10, in.PingCount(sonar.Port))
	assert.Equal(t, 7, in.PingCount(sonar.Starboard))
}

func TestBuildChunks_UsesDecoderChunkIDs(t *testing.T) {
	records := []Record{rec("port", 0, 5), rec("port", 1, 5), rec("port", 2, 5)}
	records[0].ChunkID = 7
	records[1].ChunkID = 7
	records[2].ChunkID = 8

	in := BuildChunks(records, 0)
	require.Len(t, in.Chunks[sonar.Port], 2)
	assert.Equal(t, 7, in.Chunks[sonar.Port][0].ID)
	assert.Equal(t, 8, in.Chunks[sonar.Port][1].ID)
}

func TestChunkImage_ZeroPadsShortPings(t *testing.T) {
	c := &Chunk{Beam: sonar.Port, Pings: []Ping{
		{PixM: 0.1, Samples: []uint8{1, 2, 3, 4}},
		{PixM: 0.1, Samples: []uint8{5, 6}},
	}}

	img := c.Image()
	assert.Equal(t, 4, img.Rows)
	assert.Equal(t, 2, img.Cols)
	assert.Equal(t, []uint8{1, 2, 3, 4}, img.Column(0))
	assert.Equal(t, []uint8{5, 6, 0, 0}, img.Column(1))
	assert.Equal(t, uint8(0), img.At(10, 0), "out of range reads are zero")

	back := FromGray(img.Gray())
	assert.Equal(t, img.Pix, back.Pix)
}

func TestChunkValidate(t *testing.T) {
	assert.ErrorIs(t, (&Chunk{}).Validate(), ErrEmptyChunk)
	assert.ErrorIs(t, (&Chunk{Pings: []Ping{{PixM: 0.1}}}).Validate(), ErrEmptyChunk)
	assert.Error(t, (&Chunk{Pings: []Ping{{Samples: []uint8{1}}}}).Validate())
	assert.NoError(t, (&Chunk{Pings: []Ping{{PixM: 0.1, Samples: []uint8{1}}}}).Validate())
}

func TestInstrumentRows(t *testing.T) {
	c := &Chunk{Pings: []Ping{
		{PixM: 0.1, InstDepthM: 1.04, Samples: make([]uint8, 50)},
		{PixM: 0.1, InstDepthM: 9.0, Samples: make([]uint8, 50)}, // beyond the range: clamped
		{PixM: 0.1, InstDepthM: -1, Samples: make([]uint8, 50)},
	}}
	rows := c.InstrumentRows()
	assert.Equal(t, sonar.RowOf(10), rows[0])
	assert.Equal(t, sonar.RowOf(49), rows[1])
	assert.False(t, rows[2].Valid)
}

func TestRecordToPing_TruncatesAndValidates(t *testing.T) {
	r := rec("port", 3, 10)
	r.PingCnt = 6
	r.E = math.NaN()
	p := recordToPing(sonar.Port, r)
	assert.Len(t, p.Samples, 6)
	assert.False(t, p.Fix.Valid, "non-finite projected fix is invalid")
	assert.InDelta(t, 0.6, p.RangeM(), 1e-9)
}

func TestParquetSource_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pings.parquet")
	records := []Record{rec("port", 0, 8), rec("star", 0, 12)}
	require.NoError(t, WriteParquet(path, records))

	got, err := ParquetSource{Path: path, BatchSize: 1}.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, records[1].Intensity, got[1].Intensity)
	assert.Equal(t, "star", got[1].Beam)

	_, err = ParquetSource{Path: filepath.Join(t.TempDir(), "missing.parquet")}.Records(context.Background())
	assert.Error(t, err)
}

func TestMemorySource_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := MemorySource{rec("port", 0, 1)}.Records(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
