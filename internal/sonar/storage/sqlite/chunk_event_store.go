package sqlite

import (
	"database/sql"
	"fmt"
)

// ChunkEventStore records skipped chunks and failed channels.
type ChunkEventStore struct {
	db *sql.DB
}

// NewChunkEventStore creates a new ChunkEventStore.
func NewChunkEventStore(db *sql.DB) *ChunkEventStore {
	return &ChunkEventStore{db: db}
}

// Insert persists an event and sets its EventID. CreatedAt must be set.
func (s *ChunkEventStore) Insert(ev *ChunkEvent) error {
	if ev.CreatedAt == 0 {
		return fmt.Errorf("insert chunk event: %w", ErrNoTimestamp)
	}
	return retryOnBusy(func() error {
		res, err := s.db.Exec(`
			INSERT INTO chunk_events (run_id, beam, chunk_id, stage, message, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			ev.RunID, ev.Beam, ev.ChunkID, ev.Stage, ev.Message, ev.CreatedAt,
		)
		if err != nil {
			return err
		}
		ev.EventID, err = res.LastInsertId()
		return err
	})
}

// ListByRun returns a run's events in insertion order.
func (s *ChunkEventStore) ListByRun(runID string) ([]ChunkEvent, error) {
	rows, err := s.db.Query(`
		SELECT event_id, run_id, beam, chunk_id, stage, message, created_at
		FROM chunk_events WHERE run_id = ? ORDER BY event_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query chunk events: %w", err)
	}
	defer rows.Close()

	var out []ChunkEvent
	for rows.Next() {
		var ev ChunkEvent
		if err := rows.Scan(&ev.EventID, &ev.RunID, &ev.Beam, &ev.ChunkID, &ev.Stage, &ev.Message, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
