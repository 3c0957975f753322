package sqlite

import (
	"database/sql"
	"fmt"
)

// DepthStore persists reconciled per-ping depths.
type DepthStore struct {
	db *sql.DB
}

// NewDepthStore creates a new DepthStore.
func NewDepthStore(db *sql.DB) *DepthStore {
	return &DepthStore{db: db}
}

// InsertBatch writes records in one transaction, replacing rows already
// stored for the same run, beam and record number.
func (s *DepthStore) InsertBatch(records []DepthRecord) error {
	if len(records) == 0 {
		return nil
	}
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO ping_depths (
				run_id, beam, record_num, chunk_id, inst_dep_m, pix_m, e, n,
				bed_row, depth_m, provenance
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			tx.Rollback()
			return err
		}
		defer stmt.Close()

		for _, r := range records {
			if _, err := stmt.Exec(
				r.RunID, r.Beam, r.RecordNum, r.ChunkID, r.InstDepM, r.PixM, r.E, r.N,
				r.BedRow, r.DepthM, r.Provenance,
			); err != nil {
				tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

// ListByRun returns a run's depths for one beam in record order.
func (s *DepthStore) ListByRun(runID, beam string) ([]DepthRecord, error) {
	rows, err := s.db.Query(`
		SELECT run_id, beam, record_num, chunk_id, inst_dep_m, pix_m, e, n,
		       bed_row, depth_m, provenance
		FROM ping_depths
		WHERE run_id = ? AND beam = ?
		ORDER BY record_num`, runID, beam)
	if err != nil {
		return nil, fmt.Errorf("query ping depths: %w", err)
	}
	defer rows.Close()

	var out []DepthRecord
	for rows.Next() {
		var r DepthRecord
		var inst, e, n sql.NullFloat64
		if err := rows.Scan(&r.RunID, &r.Beam, &r.RecordNum, &r.ChunkID, &inst, &r.PixM, &e, &n,
			&r.BedRow, &r.DepthM, &r.Provenance); err != nil {
			return nil, fmt.Errorf("scan ping depth: %w", err)
		}
		r.InstDepM, r.E, r.N = inst.Float64, e.Float64, n.Float64
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountByProvenance tallies a run's depths by provenance.
func (s *DepthStore) CountByProvenance(runID string) (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT provenance, COUNT(*) FROM ping_depths WHERE run_id = ? GROUP BY provenance`, runID)
	if err != nil {
		return nil, fmt.Errorf("query provenance counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var p string
		var n int
		if err := rows.Scan(&p, &n); err != nil {
			return nil, fmt.Errorf("scan provenance count: %w", err)
		}
		out[p] = n
	}
	return out, rows.Err()
}
