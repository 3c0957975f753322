package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// ErrNoTimestamp is returned when a row is written without its timestamp.
// Timestamps come from the caller's clock.
var ErrNoTimestamp = errors.New("timestamp is required")

// RunStore provides persistence for processing runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Start inserts a running run. If RunID is empty, a UUID is generated.
// StartedAt must be set.
func (s *RunStore) Start(run *Run) error {
	if run.StartedAt == 0 {
		return fmt.Errorf("start run: %w", ErrNoTimestamp)
	}
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	run.Status = RunRunning

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO runs (run_id, input_path, project_dir, config_json, status, started_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.RunID, run.InputPath, run.ProjectDir, nullJSON(run.ConfigJSON), run.Status, run.StartedAt,
		)
		return err
	})
}

// Finish marks a run complete or failed at finishedAt (Unix nanoseconds)
// and stores its summary.
func (s *RunStore) Finish(runID, status string, finishedAt int64, summary any) error {
	if finishedAt == 0 {
		return fmt.Errorf("finish run: %w", ErrNoTimestamp)
	}
	var summaryJSON []byte
	if summary != nil {
		var err error
		if summaryJSON, err = json.Marshal(summary); err != nil {
			return fmt.Errorf("marshal run summary: %w", err)
		}
	}
	return retryOnBusy(func() error {
		res, err := s.db.Exec(`
			UPDATE runs SET status = ?, finished_at = ?, summary_json = ?
			WHERE run_id = ?`,
			status, finishedAt, nullJSON(summaryJSON), runID,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil
	})
}

// Get returns a single run by ID.
func (s *RunStore) Get(runID string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, input_path, project_dir, config_json, status, started_at, finished_at, summary_json
		FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return r, err
}

// List returns runs newest first.
func (s *RunStore) List(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT run_id, input_path, project_dir, config_json, status, started_at, finished_at, summary_json
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var cfg, summary sql.NullString
	var finished sql.NullInt64
	if err := row.Scan(&r.RunID, &r.InputPath, &r.ProjectDir, &cfg, &r.Status, &r.StartedAt, &finished, &summary); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if cfg.Valid {
		r.ConfigJSON = json.RawMessage(cfg.String)
	}
	if summary.Valid {
		r.SummaryJSON = json.RawMessage(summary.String)
	}
	r.FinishedAt = finished.Int64
	return &r, nil
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
