package sqlite

import "encoding/json"

// Run statuses.
const (
	RunRunning  = "running"
	RunComplete = "complete"
	RunFailed   = "failed"
)

// Run is one invocation of the processing pipeline.
type Run struct {
	RunID       string          `json:"run_id"`
	InputPath   string          `json:"input_path"`
	ProjectDir  string          `json:"project_dir"`
	ConfigJSON  json.RawMessage `json:"config_json,omitempty"`
	Status      string          `json:"status"`
	StartedAt   int64           `json:"started_at"`
	FinishedAt  int64           `json:"finished_at,omitempty"`
	SummaryJSON json.RawMessage `json:"summary_json,omitempty"`
}

// DepthRecord is the persisted reconciled depth of one ping.
type DepthRecord struct {
	RunID      string  `parquet:"-" json:"run_id"`
	Beam       string  `parquet:"beam" json:"beam"`
	RecordNum  int64   `parquet:"record_num" json:"record_num"`
	ChunkID    int32   `parquet:"chunk_id" json:"chunk_id"`
	InstDepM   float64 `parquet:"inst_dep_m" json:"inst_dep_m"`
	PixM       float64 `parquet:"pix_m" json:"pix_m"`
	E          float64 `parquet:"e" json:"e"`
	N          float64 `parquet:"n" json:"n"`
	BedRow     int32   `parquet:"bed_row" json:"bed_row"`
	DepthM     float64 `parquet:"depth_m" json:"depth_m"`
	Provenance string  `parquet:"provenance" json:"provenance"`
}

// ChannelChunk is the chunk id recorded for channel-level events.
const ChannelChunk = -1

// ChunkEvent records a skipped or failed unit of work.
type ChunkEvent struct {
	EventID   int64  `json:"event_id"`
	RunID     string `json:"run_id"`
	Beam      string `json:"beam"`
	ChunkID   int    `json:"chunk_id"`
	Stage     string `json:"stage"`
	Message   string `json:"message"`
	CreatedAt int64  `json:"created_at"`
}
