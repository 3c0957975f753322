package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/sonarmap/internal/config"
	"github.com/banshee-data/sonarmap/internal/sonar"
	"github.com/banshee-data/sonarmap/internal/sonar/l1pings"
	"github.com/banshee-data/sonarmap/internal/sonar/l2nav"
	"github.com/banshee-data/sonarmap/internal/sonar/l3bedpick"
	"github.com/banshee-data/sonarmap/internal/sonar/l4depth"
	"github.com/banshee-data/sonarmap/internal/sonar/l5rectify"
	"github.com/banshee-data/sonarmap/internal/sonar/l6mosaic"
	"github.com/banshee-data/sonarmap/internal/sonar/raster"
	sqlite "github.com/banshee-data/sonarmap/internal/sonar/storage/sqlite"
	"github.com/banshee-data/sonarmap/internal/timeutil"
)

// errNoPickedChunks marks a channel none of whose chunks produced picks.
var errNoPickedChunks = errors.New("no chunk produced bed picks")

// Options are the per-run settings that are not processing tunables.
type Options struct {
	ProjectDir string
	InputPath  string // recorded with the run
	EPSG       int    // 0 derives the UTM zone from the first valid fix
}

// RectDir is where chunk rasters are written.
func RectDir(projectDir string) string { return filepath.Join(projectDir, "rect") }

// MosaicDir is where mosaics are written.
func MosaicDir(projectDir string) string { return filepath.Join(projectDir, "mosaic") }

// DepthPath is the Parquet export of a channel's reconciled depth.
func DepthPath(projectDir string, b sonar.Beam) string {
	return filepath.Join(projectDir, b.Short()+"_depth.parquet")
}

// Pipeline runs surveys through every layer. Its configuration is fixed at
// construction; each Run is independent.
type Pipeline struct {
	cfg     *config.ProcessingConfig
	rt      Runtime
	opts    Options
	workers int

	nav       l2nav.Config
	picker    *l3bedpick.Picker
	depth     l4depth.Config
	rectify   l5rectify.Config
	mosaicCfg l6mosaic.Config
	mosaic    *l6mosaic.Assembler
	store     *raster.Store
}

// New validates the configuration and builds every stage.
func New(cfg *config.ProcessingConfig, rt Runtime, opts Options) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.EmptyProcessingConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.ProjectDir == "" {
		return nil, errors.New("project directory is required")
	}
	rt = rt.withDefaults()

	picker, err := l3bedpick.NewPicker(l3bedpick.ConfigFromProcessing(cfg), rt.Segmenter)
	if err != nil {
		return nil, fmt.Errorf("bed picker: %w", err)
	}
	p := &Pipeline{
		cfg:       cfg,
		rt:        rt,
		opts:      opts,
		workers:   ResolveThreads(cfg.GetThreads()),
		nav:       l2nav.ConfigFromProcessing(cfg),
		picker:    picker,
		depth:     l4depth.ConfigFromProcessing(cfg),
		rectify:   l5rectify.ConfigFromProcessing(cfg),
		mosaicCfg: l6mosaic.ConfigFromProcessing(cfg),
		store:     raster.NewStore(rt.FS),
	}
	for name, v := range map[string]interface{ Validate() error }{
		"depth": p.depth, "rectify": p.rectify, "mosaic": p.mosaicCfg,
	} {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	p.mosaic = l6mosaic.NewAssembler(p.mosaicCfg, rt.FS)
	return p, nil
}

// Workers returns the resolved worker-pool size.
func (p *Pipeline) Workers() int { return p.workers }

// chunkJob is the per-chunk context value threaded through the stages.
// Each job is touched by one worker at a time.
type chunkJob struct {
	beam   sonar.Beam
	chunk  *l1pings.Chunk
	offset int // index of the chunk's first ping in the channel series
	track  *l2nav.Track
	picks  *l3bedpick.Picks
	raster string
	failed bool
}

// run holds the state of one Run call.
type run struct {
	p     *Pipeline
	proj  l2nav.Projection
	runID string
	sum   *Summary
	watch *timeutil.Stopwatch

	mu     sync.Mutex // guards sum error lists and event writes
	failed map[sonar.Beam]bool
	rows   map[sonar.Beam][]int
}

// Run processes one ping table. Per-chunk failures are counted in the
// summary; the returned error is reserved for failures that stop the run.
func (p *Pipeline) Run(ctx context.Context, src l1pings.Source) (*Summary, error) {
	start := p.rt.Clock.Now()
	records, err := src.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ping table: %w", err)
	}
	in := l1pings.BuildChunks(records, p.cfg.GetChunkSize())
	for _, reason := range in.Reasons {
		opsf("dropped records: %s", reason)
	}

	proj, err := p.projection(in)
	if err != nil {
		return nil, err
	}
	r := &run{
		p:      p,
		proj:   proj,
		sum:    newSummary(),
		watch:  timeutil.NewStopwatch(p.rt.Clock),
		failed: make(map[sonar.Beam]bool),
		rows:   make(map[sonar.Beam][]int),
	}
	r.sum.Projection = proj.String()
	r.sum.EPSG = proj.EPSG()
	r.sum.Dropped = in.Dropped
	diagf("%s; %s; %d workers", in, proj, p.workers)

	if err := r.start(); err != nil {
		return nil, err
	}
	err = r.process(ctx, in)
	r.sum.Elapsed = p.rt.Clock.Since(start)
	r.sum.StageTimes = r.watch.Totals()
	r.finish(err)
	return r.sum, err
}

func (r *run) process(ctx context.Context, in *l1pings.Ingested) error {
	jobs := make(map[sonar.Beam][]*chunkJob)
	var all []*chunkJob
	for _, b := range sonar.Beams {
		off := 0
		for _, c := range in.Chunks[b] {
			j := &chunkJob{beam: b, chunk: c, offset: off}
			jobs[b] = append(jobs[b], j)
			all = append(all, j)
			off += c.Len()
		}
		bs := r.sum.beam(b)
		bs.Chunks = len(jobs[b])
		bs.Pings = off
	}
	if len(all) == 0 {
		return fmt.Errorf("ping table has no side-scan pings: %w", l1pings.ErrEmptyChunk)
	}

	if err := r.forEach(ctx, all, r.pickChunk); err != nil {
		return err
	}

	stop := r.watch.Start(string(StageReconcile))
	err := r.reconcile(jobs)
	stop()
	if err != nil {
		return err
	}

	var rectJobs []*chunkJob
	for _, j := range all {
		if !r.failed[j.beam] && j.track != nil && r.rows[j.beam] != nil {
			rectJobs = append(rectJobs, j)
		}
	}
	if err := r.clearRasters(); err != nil {
		return err
	}
	if err := r.forEach(ctx, rectJobs, r.rectifyChunk); err != nil {
		return err
	}

	for _, j := range all {
		bs := r.sum.beam(j.beam)
		if j.picks != nil {
			bs.Picked++
			bs.NullPicks += j.picks.Nulls()
		}
		if j.raster != "" {
			bs.Rectified++
		}
		if j.failed {
			bs.Skipped++
		}
	}

	stop = r.watch.Start(string(StageMosaic))
	outs, skipped, err := r.p.mosaicAll(ctx, r.mosaicSkipped)
	stop()
	if err != nil {
		return err
	}
	for _, o := range outs {
		r.sum.Mosaics = append(r.sum.Mosaics, o.Path)
	}
	r.sum.SkippedMosaics = skipped
	return nil
}

// forEach runs fn over jobs on the bounded worker pool and waits for all
// of them: a barrier. Cancellation stops scheduling; jobs already running
// finish.
func (r *run) forEach(ctx context.Context, jobs []*chunkJob, fn func(context.Context, *chunkJob) *ChunkError) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.p.workers)
	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if cerr := fn(gctx, job); cerr != nil {
				job.failed = true
				r.chunkError(cerr)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// pickChunk runs bed picking and then navigation, so a chunk whose fixes
// are unusable still contributes to the depth record.
func (r *run) pickChunk(ctx context.Context, job *chunkJob) *ChunkError {
	stop := r.watch.Start(string(StageBedPick))
	c := job.chunk
	picks, err := r.p.picker.Pick(ctx, c)
	if err != nil {
		return &ChunkError{Beam: job.beam, ChunkID: c.ID, Stage: StageBedPick, Err: err}
	}
	job.picks = picks

	track, err := l2nav.BuildChunk(c, r.proj, r.p.nav)
	if err != nil {
		return &ChunkError{Beam: job.beam, ChunkID: c.ID, Stage: StageNavigation, Err: err}
	}
	job.track = track
	tracef("%s chunk %d: %d pings, %d null picks, %d repaired fixes in %v",
		job.beam, c.ID, c.Len(), picks.Nulls(), track.Repaired, stop())
	return nil
}

// reconcile merges both channels' picks for the whole line and persists
// the result before any rectification reads it.
func (r *run) reconcile(jobs map[sonar.Beam][]*chunkJob) error {
	series := make(map[sonar.Beam]*l4depth.Series)
	for _, b := range sonar.Beams {
		if len(jobs[b]) == 0 {
			continue
		}
		s := &l4depth.Series{Beam: b}
		picked := 0
		for _, j := range jobs[b] {
			if j.picks != nil {
				s.Rows = append(s.Rows, j.picks.Rows...)
				s.Provenance = append(s.Provenance, j.picks.Provenance...)
				s.Instrument = append(s.Instrument, j.picks.Instrument...)
				picked++
				continue
			}
			// Keep the channel aligned with its partner: unpicked pings
			// are null and fall back to the instrument where possible.
			n := j.chunk.Len()
			s.Rows = append(s.Rows, make([]sonar.Row, n)...)
			s.Provenance = append(s.Provenance, make([]sonar.Provenance, n)...)
			if j.chunk.PingMax() > 0 {
				s.Instrument = append(s.Instrument, j.chunk.InstrumentRows()...)
			} else {
				s.Instrument = append(s.Instrument, make([]sonar.Row, n)...)
			}
		}
		if picked == 0 {
			r.channelError(&ChannelError{Beam: b, Stage: StageBedPick, Err: errNoPickedChunks})
			continue
		}
		series[b] = s
	}
	if len(series) == 0 {
		return nil
	}

	res, err := l4depth.Reconcile(series[sonar.Port], series[sonar.Starboard], r.p.depth)
	if err != nil {
		for _, b := range sonar.Beams {
			if series[b] != nil {
				r.channelError(&ChannelError{Beam: b, Stage: StageReconcile, Err: err})
			}
		}
		return nil
	}
	r.sum.Reconciled = res.Len()
	r.sum.Rejected = res.Rejected
	r.sum.Fallback = res.Fallback
	r.sum.Filled = res.Filled
	diagf("reconciled %d pings: %d outliers rejected, %d instrument fallbacks, %d interpolated",
		res.Len(), res.Rejected, res.Fallback, res.Filled)

	for _, b := range sonar.Beams {
		if s := series[b]; s != nil {
			r.rows[b] = res.ForChannel(b, s.Len())
		}
	}
	return r.persistDepth(jobs, series, res)
}

func (r *run) rectifyChunk(ctx context.Context, job *chunkJob) *ChunkError {
	stop := r.watch.Start(string(StageRectify))
	c := job.chunk
	bed := r.rows[job.beam][job.offset : job.offset+c.Len()]
	img, err := l5rectify.Rectify(l5rectify.Input{
		Beam:    job.beam,
		ChunkID: c.ID,
		Image:   c.Image(),
		Track:   job.track,
		PixM:    c.PixM(),
		BedRows: bed,
		EPSG:    r.proj.EPSG(),
	}, r.p.rectify)
	if err != nil {
		return &ChunkError{Beam: job.beam, ChunkID: c.ID, Stage: StageRectify, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return &ChunkError{Beam: job.beam, ChunkID: c.ID, Stage: StageWrite, Err: err}
	}
	path := filepath.Join(RectDir(r.p.opts.ProjectDir), l6mosaic.ChunkRasterName(job.beam, c.ID))
	if err := r.p.store.Write(path, img); err != nil {
		return &ChunkError{Beam: job.beam, ChunkID: c.ID, Stage: StageWrite, Err: err}
	}
	job.raster = path
	tracef("%s chunk %d: %dx%d raster, %d valid pixels in %v",
		job.beam, c.ID, img.Width, img.Height, img.ValidCount(), stop())
	return nil
}

// clearRasters removes chunk rasters left by an earlier run so the mosaic
// only sees this run's output.
func (r *run) clearRasters() error {
	for _, b := range sonar.Beams {
		stale, err := r.p.rt.FS.Glob(filepath.Join(RectDir(r.p.opts.ProjectDir), b.Short()+"_*.tif"))
		if err != nil {
			return fmt.Errorf("list chunk rasters: %w", err)
		}
		for _, path := range stale {
			if err := r.p.store.Remove(path); err != nil {
				return fmt.Errorf("remove stale raster: %w", err)
			}
		}
	}
	return nil
}

// Mosaic assembles the mosaics of an existing project without
// reprocessing. Jobs with no inputs are skipped and named in the result.
func (p *Pipeline) Mosaic(ctx context.Context) ([]*l6mosaic.Output, []string, error) {
	return p.mosaicAll(ctx, func(job l6mosaic.Job, err error) {
		opsf("mosaic %s skipped: %v", job.Name, err)
	})
}

func (p *Pipeline) mosaicAll(ctx context.Context, onSkip func(l6mosaic.Job, error)) ([]*l6mosaic.Output, []string, error) {
	if p.mosaicCfg.Mode == config.MosaicOff {
		return nil, nil, nil
	}
	var outs []*l6mosaic.Output
	var skipped []string
	jobs := l6mosaic.Jobs(RectDir(p.opts.ProjectDir), MosaicDir(p.opts.ProjectDir), p.mosaicCfg.Grouping)
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return outs, skipped, err
		}
		out, err := p.mosaic.Build(ctx, job)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return outs, skipped, ctxErr
			}
			skipped = append(skipped, job.Name)
			onSkip(job, err)
			continue
		}
		outs = append(outs, out)
	}
	return outs, skipped, nil
}

func (r *run) mosaicSkipped(job l6mosaic.Job, err error) {
	opsf("mosaic %s skipped: %v", job.Name, err)
	r.event(job.Name, sqlite.ChannelChunk, StageMosaic, err)
}

func (r *run) chunkError(e *ChunkError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sum.ChunkErrors = append(r.sum.ChunkErrors, e)
	opsf("skipping %v", e)
	r.eventLocked(e.Beam.String(), e.ChunkID, e.Stage, e.Err)
}

func (r *run) channelError(e *ChannelError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[e.Beam] = true
	r.sum.ChannelErrors = append(r.sum.ChannelErrors, e)
	r.sum.FailedChannels = append(r.sum.FailedChannels, e.Beam.String())
	opsf("channel failed: %v", e)
	r.eventLocked(e.Beam.String(), sqlite.ChannelChunk, e.Stage, e.Err)
}

func (r *run) event(beam string, chunkID int, stage Stage, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eventLocked(beam, chunkID, stage, err)
}

func (r *run) eventLocked(beam string, chunkID int, stage Stage, err error) {
	if r.p.rt.Events == nil || r.runID == "" {
		return
	}
	ev := &sqlite.ChunkEvent{
		RunID:     r.runID,
		Beam:      beam,
		ChunkID:   chunkID,
		Stage:     string(stage),
		Message:   err.Error(),
		CreatedAt: r.p.rt.Clock.Now().UnixNano(),
	}
	if err := r.p.rt.Events.Insert(ev); err != nil {
		opsf("record chunk event: %v", err)
	}
}

func (r *run) start() error {
	if r.p.rt.Runs == nil {
		return nil
	}
	cfgJSON, err := json.Marshal(r.p.cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	run := &sqlite.Run{
		InputPath:  r.p.opts.InputPath,
		ProjectDir: r.p.opts.ProjectDir,
		ConfigJSON: cfgJSON,
		StartedAt:  r.p.rt.Clock.Now().UnixNano(),
	}
	if err := r.p.rt.Runs.Start(run); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	r.runID = run.RunID
	r.sum.RunID = run.RunID
	return nil
}

func (r *run) finish(runErr error) {
	if r.p.rt.Runs == nil || r.runID == "" {
		return
	}
	status := sqlite.RunComplete
	if runErr != nil {
		status = sqlite.RunFailed
	}
	if err := r.p.rt.Runs.Finish(r.runID, status, r.p.rt.Clock.Now().UnixNano(), r.sum); err != nil {
		opsf("record run completion: %v", err)
	}
}

// projection fixes the project CRS: the configured EPSG code, else the UTM
// zone of the earliest valid fix. Projected fixes carry no zone, so they
// need an explicit code.
func (p *Pipeline) projection(in *l1pings.Ingested) (l2nav.Projection, error) {
	if p.opts.EPSG != 0 {
		return l2nav.ProjectionFromEPSG(p.opts.EPSG)
	}
	var first *l1pings.Ping
	for _, b := range sonar.Beams {
		for _, c := range in.Chunks[b] {
			for i := range c.Pings {
				ping := &c.Pings[i]
				if ping.Fix.Valid && (first == nil || ping.Index < first.Index) {
					first = ping
				}
				if ping.Fix.Valid {
					break
				}
			}
		}
	}
	if first == nil {
		return l2nav.Projection{}, l2nav.ErrNoValidFix
	}
	if first.Fix.Projected {
		return l2nav.Projection{}, l2nav.ErrUnknownCRS
	}
	return l2nav.ProjectionFor(first.Fix.Lat, first.Fix.Lon), nil
}
