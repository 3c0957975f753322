// Package testutil provides synthetic sonar surveys shared by the layer,
// pipeline and CLI tests.
package testutil

import (
	"github.com/banshee-data/sonarmap/internal/sonar"
	"github.com/banshee-data/sonarmap/internal/sonar/l1pings"
)

// Survey describes a synthetic straight northbound survey line with a flat
// bed: every ping has Bins samples, rows above BedRow hold Water and the
// rest hold Bed.
type Survey struct {
	Beam      sonar.Beam
	Pings     int
	Bins      int
	BedRow    int
	PixM      float64
	Water     uint8
	Bed       uint8
	StartE    float64
	StartN    float64
	StepM     float64 // along-track distance between pings
	ChunkSize int     // 0 puts every ping in chunk 0
}

// FlatSurvey returns the 500 ping by 200 bin line used across the layer
// tests: bed at row 100, 0.1 m pixels, 0.1 m ping spacing.
func FlatSurvey(beam sonar.Beam) Survey {
	return Survey{
		Beam:   beam,
		Pings:  500,
		Bins:   200,
		BedRow: 100,
		PixM:   0.1,
		Water:  10,
		Bed:    200,
		StartE: 500000,
		StartN: 5000000,
		StepM:  0.1,
	}
}

// Records renders the survey as decoder records.
func (s Survey) Records() []l1pings.Record {
	out := make([]l1pings.Record, s.Pings)
	for i := range out {
		chunkID := 0
		if s.ChunkSize > 0 {
			chunkID = i / s.ChunkSize
		}
		out[i] = l1pings.Record{
			Beam:      s.Beam.String(),
			RecordNum: int64(i),
			ChunkID:   int32(chunkID),
			InstDepM:  float64(s.BedRow) * s.PixM,
			PixM:      s.PixM,
			PingCnt:   int32(s.Bins),
			E:         s.StartE,
			N:         s.StartN + float64(i)*s.StepM,
			Projected: true,
			FixValid:  true,
			Intensity: s.column(),
		}
	}
	return out
}

// Chunk returns every ping of the survey as one chunk.
func (s Survey) Chunk(id int) *l1pings.Chunk {
	c := &l1pings.Chunk{Beam: s.Beam, ID: id, Pings: make([]l1pings.Ping, s.Pings)}
	for i := range c.Pings {
		c.Pings[i] = l1pings.Ping{
			Index:      i,
			ChunkID:    id,
			Beam:       s.Beam,
			InstDepthM: float64(s.BedRow) * s.PixM,
			PixM:       s.PixM,
			Samples:    s.column(),
			Fix: l1pings.Fix{
				E:         s.StartE,
				N:         s.StartN + float64(i)*s.StepM,
				Projected: true,
				Valid:     true,
			},
		}
	}
	return c
}

func (s Survey) column() []byte {
	col := make([]byte, s.Bins)
	for r := range col {
		if r < s.BedRow {
			col[r] = s.Water
		} else {
			col[r] = s.Bed
		}
	}
	return col
}
