package l1pings

import (
	"errors"
	"fmt"

	"github.com/banshee-data/sonarmap/internal/sonar"
)

// ErrEmptyChunk is returned for a chunk that has no pings or no samples.
var ErrEmptyChunk = errors.New("empty chunk")

// Record is one row of the ping table handed over by the format decoder.
type Record struct {
	Beam      string  `parquet:"beam" json:"beam"`
	RecordNum int64   `parquet:"record_num" json:"record_num"`
	ChunkID   int32   `parquet:"chunk_id" json:"chunk_id"`
	InstDepM  float64 `parquet:"inst_dep_m" json:"inst_dep_m"`
	PixM      float64 `parquet:"pix_m" json:"pix_m"`
	PingCnt   int32   `parquet:"ping_cnt" json:"ping_cnt"`
	Lat       float64 `parquet:"lat" json:"lat"`
	Lon       float64 `parquet:"lon" json:"lon"`
	E         float64 `parquet:"e" json:"e"`
	N         float64 `parquet:"n" json:"n"`
	Projected bool    `parquet:"projected" json:"projected"` // E/N already in the project CRS
	Heading   float64 `parquet:"heading" json:"heading"`
	FixValid  bool    `parquet:"fix_valid" json:"fix_valid"`
	Intensity []byte  `parquet:"intensity" json:"-"`
}

// Fix is the navigation fix recorded with a ping.
type Fix struct {
	Lat, Lon  float64
	E, N      float64
	Projected bool
	Heading   float64 // degrees, NaN when not reported
	Valid     bool
}

// Ping is one transmit/receive event on a single beam.
type Ping struct {
	Index      int // record number, monotonically increasing per beam
	ChunkID    int
	Beam       sonar.Beam
	InstDepthM float64
	PixM       float64
	Samples    []uint8
	Fix        Fix
}

// RangeM returns the slant range covered by the ping's samples.
func (p Ping) RangeM() float64 {
	return float64(len(p.Samples)) * p.PixM
}

// Chunk is an ordered run of pings on one beam sharing a chunk id.
type Chunk struct {
	Beam  sonar.Beam
	ID    int
	Pings []Ping
}

// Len returns the number of pings.
func (c *Chunk) Len() int { return len(c.Pings) }

// PingMax returns the largest range-bin count in the chunk.
func (c *Chunk) PingMax() int {
	n := 0
	for _, p := range c.Pings {
		if len(p.Samples) > n {
			n = len(p.Samples)
		}
	}
	return n
}

// PixM returns the chunk's pixel size: the first positive per-ping value.
func (c *Chunk) PixM() float64 {
	for _, p := range c.Pings {
		if p.PixM > 0 {
			return p.PixM
		}
	}
	return 0
}

// Validate reports ErrEmptyChunk for chunks that cannot be processed.
func (c *Chunk) Validate() error {
	if c == nil || len(c.Pings) == 0 {
		return ErrEmptyChunk
	}
	if c.PingMax() == 0 {
		return fmt.Errorf("%w: %s chunk %d has no samples", ErrEmptyChunk, c.Beam, c.ID)
	}
	if c.PixM() <= 0 {
		return fmt.Errorf("%s chunk %d has no positive pixel size", c.Beam, c.ID)
	}
	return nil
}

// InstrumentRows converts each ping's instrument depth to a row at the
// chunk pixel size.
func (c *Chunk) InstrumentRows() []sonar.Row {
	pix := c.PixM()
	pingMax := c.PingMax()
	rows := make([]sonar.Row, len(c.Pings))
	for i, p := range c.Pings {
		r := sonar.MetersToRow(p.InstDepthM, pix)
		if r.Valid && r.Value >= pingMax {
			r.Value = pingMax - 1
		}
		rows[i] = r
	}
	return rows
}

// Image composes the chunk intensity image: rows are range bins, columns
// are pings in chunk order. Short pings are zero-padded to PingMax.
func (c *Chunk) Image() *Image {
	img := NewImage(c.PingMax(), len(c.Pings))
	for col, p := range c.Pings {
		for row, v := range p.Samples {
			img.Pix[row*img.Cols+col] = v
		}
	}
	return img
}
