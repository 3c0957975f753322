package l1pings

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/sonarmap/internal/sonar"
)

// Ingested is the decoder table split by beam and chunk.
type Ingested struct {
	Chunks  map[sonar.Beam][]*Chunk
	Dropped int      // records whose beam name could not be resolved
	Reasons []string // one entry per distinct unresolved beam name
}

// PingCount returns the number of pings ingested for a beam.
func (in *Ingested) PingCount(b sonar.Beam) int {
	n := 0
	for _, c := range in.Chunks[b] {
		n += c.Len()
	}
	return n
}

// BuildChunks resolves beam names and groups records into chunks. With a
// positive chunkSize, pings are re-chunked by position within their beam
// (sorted by record number); otherwise the decoder's chunk ids are used.
func BuildChunks(records []Record, chunkSize int) *Ingested {
	out := &Ingested{Chunks: make(map[sonar.Beam][]*Chunk)}
	byBeam := make(map[sonar.Beam][]Ping)
	unknown := make(map[string]bool)

	for _, r := range records {
		beam, err := sonar.ParseBeam(r.Beam)
		if err != nil {
			out.Dropped++
			if !unknown[r.Beam] {
				unknown[r.Beam] = true
				out.Reasons = append(out.Reasons, err.Error())
			}
			continue
		}
		byBeam[beam] = append(byBeam[beam], recordToPing(beam, r))
	}

	for _, beam := range sonar.Beams {
		pings := byBeam[beam]
		if len(pings) == 0 {
			continue
		}
		sort.SliceStable(pings, func(i, j int) bool { return pings[i].Index < pings[j].Index })
		if chunkSize > 0 {
			for i := range pings {
				pings[i].ChunkID = i / chunkSize
			}
		}
		out.Chunks[beam] = splitChunks(beam, pings)
	}
	return out
}

func splitChunks(beam sonar.Beam, pings []Ping) []*Chunk {
	var chunks []*Chunk
	var cur *Chunk
	for _, p := range pings {
		if cur == nil || cur.ID != p.ChunkID {
			cur = &Chunk{Beam: beam, ID: p.ChunkID}
			chunks = append(chunks, cur)
		}
		cur.Pings = append(cur.Pings, p)
	}
	return chunks
}

func recordToPing(beam sonar.Beam, r Record) Ping {
	samples := r.Intensity
	if r.PingCnt > 0 && int(r.PingCnt) < len(samples) {
		samples = samples[:r.PingCnt]
	}
	valid := r.FixValid && finite(r.Lat, r.Lon)
	if r.Projected {
		valid = r.FixValid && finite(r.E, r.N)
	}
	return Ping{
		Index:      int(r.RecordNum),
		ChunkID:    int(r.ChunkID),
		Beam:       beam,
		InstDepthM: r.InstDepM,
		PixM:       r.PixM,
		Samples:    samples,
		Fix: Fix{
			Lat:       r.Lat,
			Lon:       r.Lon,
			E:         r.E,
			N:         r.N,
			Projected: r.Projected,
			Heading:   r.Heading,
			Valid:     valid,
		},
	}
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// String summarises the ingest for logs.
func (in *Ingested) String() string {
	return fmt.Sprintf("port=%d chunks/%d pings starboard=%d chunks/%d pings dropped=%d",
		len(in.Chunks[sonar.Port]), in.PingCount(sonar.Port),
		len(in.Chunks[sonar.Starboard]), in.PingCount(sonar.Starboard),
		in.Dropped)
}
