package pipeline

import (
	"runtime"

	"github.com/banshee-data/sonarmap/internal/fsutil"
	"github.com/banshee-data/sonarmap/internal/sonar/l3bedpick"
	sqlite "github.com/banshee-data/sonarmap/internal/sonar/storage/sqlite"
	"github.com/banshee-data/sonarmap/internal/timeutil"
)

// Runtime bundles the dependencies of a run. Passing it through the
// constructor keeps wiring explicit and tests deterministic. Nil stores
// disable persistence.
type Runtime struct {
	FS        fsutil.FileSystem
	Clock     timeutil.Clock
	Segmenter l3bedpick.BedSegmenter

	Runs   *sqlite.RunStore
	Depths *sqlite.DepthStore
	Events *sqlite.ChunkEventStore
}

func (rt Runtime) withDefaults() Runtime {
	if rt.FS == nil {
		rt.FS = fsutil.OSFileSystem{}
	}
	if rt.Clock == nil {
		rt.Clock = timeutil.RealClock{}
	}
	return rt
}

// ResolveThreads maps the configured thread count onto a worker count:
// 0 is every CPU, negative is every CPU minus n (at least one), positive
// is exact but capped at the CPU count.
func ResolveThreads(n int) int {
	return resolveThreads(n, runtime.NumCPU())
}

func resolveThreads(n, cpus int) int {
	switch {
	case n == 0:
		return cpus
	case n < 0:
		return max(cpus+n, 1)
	default:
		return min(n, cpus)
	}
}
