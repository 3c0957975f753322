package pipeline

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/banshee-data/sonarmap/internal/sonar"
	"github.com/banshee-data/sonarmap/internal/sonar/l4depth"
	sqlite "github.com/banshee-data/sonarmap/internal/sonar/storage/sqlite"
)

// persistDepth writes each channel's reconciled depth to the database (when
// a run is recorded) and to a Parquet file in the project directory.
func (r *run) persistDepth(jobs map[sonar.Beam][]*chunkJob, series map[sonar.Beam]*l4depth.Series, res *l4depth.Result) error {
	for _, b := range sonar.Beams {
		rows, s := r.rows[b], series[b]
		if rows == nil || s == nil {
			continue
		}
		recs := depthRecords(r.runID, jobs[b], rows, s, res)

		if r.p.rt.Depths != nil && r.runID != "" {
			if err := r.p.rt.Depths.InsertBatch(recs); err != nil {
				return fmt.Errorf("store %s depth: %w", b, err)
			}
		}
		path := DepthPath(r.p.opts.ProjectDir, b)
		if err := writeDepthParquet(r.p, path, recs); err != nil {
			return fmt.Errorf("export %s depth: %w", b, err)
		}
		diagf("%s depth: %d pings -> %s", b, len(recs), path)
	}
	return nil
}

func depthRecords(runID string, jobs []*chunkJob, rows []int, s *l4depth.Series, res *l4depth.Result) []sqlite.DepthRecord {
	recs := make([]sqlite.DepthRecord, 0, len(rows))
	for _, j := range jobs {
		chunkPix := j.chunk.PixM()
		for i, ping := range j.chunk.Pings {
			idx := j.offset + i
			pix := ping.PixM
			if pix <= 0 {
				pix = chunkPix
			}
			e, n := ping.Fix.E, ping.Fix.N
			if j.track != nil {
				e, n = j.track.Trackline[i].E, j.track.Trackline[i].N
			}
			recs = append(recs, sqlite.DepthRecord{
				RunID:      runID,
				Beam:       j.beam.String(),
				RecordNum:  int64(ping.Index),
				ChunkID:    int32(j.chunk.ID),
				InstDepM:   ping.InstDepthM,
				PixM:       pix,
				E:          e,
				N:          n,
				BedRow:     int32(rows[idx]),
				DepthM:     sonar.RowToMeters(rows[idx], pix),
				Provenance: provenanceAt(idx, s, res).String(),
			})
		}
	}
	return recs
}

// provenanceAt is the reconciled provenance, or for pings past the shorter
// channel the channel's own pick, marked interpolated when it was null.
func provenanceAt(idx int, s *l4depth.Series, res *l4depth.Result) sonar.Provenance {
	if idx < len(res.Provenance) {
		return res.Provenance[idx]
	}
	if !s.Rows[idx].Valid {
		return sonar.ProvenanceInterpolated
	}
	return s.Provenance[idx]
}

func writeDepthParquet(p *Pipeline, path string, recs []sqlite.DepthRecord) error {
	var buf bytes.Buffer
	if err := parquet.Write(&buf, recs); err != nil {
		return err
	}
	if err := p.rt.FS.MkdirAll(p.opts.ProjectDir, 0o755); err != nil {
		return err
	}
	return p.rt.FS.WriteFile(path, buf.Bytes(), 0o644)
}

// ReadDepthParquet loads a depth export written by a run.
func ReadDepthParquet(data []byte) ([]sqlite.DepthRecord, error) {
	return parquet.Read[sqlite.DepthRecord](bytes.NewReader(data), int64(len(data)))
}
