package pipeline

import (
	"fmt"

	"github.com/banshee-data/sonarmap/internal/sonar"
)

// Stage names a pipeline step in errors and chunk events.
type Stage string

const (
	StageNavigation Stage = "navigation"
	StageBedPick    Stage = "bedpick"
	StageReconcile  Stage = "reconcile"
	StageRectify    Stage = "rectify"
	StageWrite      Stage = "write"
	StageMosaic     Stage = "mosaic"
)

// ChunkError is a per-chunk failure. The chunk is skipped; the run
// continues.
type ChunkError struct {
	Beam    sonar.Beam
	ChunkID int
	Stage   Stage
	Err     error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("%s chunk %d: %s: %v", e.Beam, e.ChunkID, e.Stage, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// ChannelError is a failure that removes a whole channel from the run.
type ChannelError struct {
	Beam  sonar.Beam
	Stage Stage
	Err   error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("%s channel: %s: %v", e.Beam, e.Stage, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }
