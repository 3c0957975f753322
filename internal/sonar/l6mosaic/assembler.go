package l6mosaic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"

	"github.com/banshee-data/sonarmap/internal/config"
	"github.com/banshee-data/sonarmap/internal/fsutil"
	"github.com/banshee-data/sonarmap/internal/monitoring"
	"github.com/banshee-data/sonarmap/internal/sonar/raster"
)

// ErrNoInputs is returned when a mosaic job matches no rasters.
var ErrNoInputs = errors.New("no rasters to mosaic")

// MaxOverviewLevel is the coarsest overview built.
const MaxOverviewLevel = 512

// Output describes one written mosaic product.
type Output struct {
	Name      string
	Path      string
	Inputs    int
	Width     int
	Height    int
	Valid     int // valid pixels; single-file mode only
	Overviews []string
}

// Assembler builds mosaics from rectified chunk rasters.
type Assembler struct {
	cfg   Config
	fs    fsutil.FileSystem
	store *raster.Store
}

// NewAssembler returns an Assembler writing through fsys.
func NewAssembler(cfg Config, fsys fsutil.FileSystem) *Assembler {
	return &Assembler{cfg: cfg, fs: fsys, store: raster.NewStore(fsys)}
}

// Inputs returns the rasters matching the job's patterns, deduplicated
// and in lexical order.
func (a *Assembler) Inputs(job Job) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, pat := range job.Patterns {
		matches, err := a.fs.Glob(pat)
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pat, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Build assembles one mosaic job according to the configured mode.
func (a *Assembler) Build(ctx context.Context, job Job) (*Output, error) {
	if a.cfg.Mode == config.MosaicOff {
		return nil, nil
	}
	paths, err := a.Inputs(job)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("mosaic %s: %w", job.Name, ErrNoInputs)
	}

	infos := make([]inputInfo, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := a.store.Read(p)
		if err != nil {
			return nil, fmt.Errorf("mosaic %s: %w", job.Name, err)
		}
		infos = append(infos, inputInfo{path: p, width: r.Width, height: r.Height, transform: r.Transform, epsg: r.EPSG})
	}

	if a.cfg.Mode == config.MosaicVirtual {
		path := job.Output + ".vrt"
		v, err := a.writeVRT(path, infos)
		if err != nil {
			return nil, fmt.Errorf("mosaic %s: %w", job.Name, err)
		}
		monitoring.Logf("mosaic %s: %d rasters -> %s (%dx%d)", job.Name, len(infos), path, v.RasterXSize, v.RasterYSize)
		return &Output{Name: job.Name, Path: path, Inputs: len(infos), Width: v.RasterXSize, Height: v.RasterYSize}, nil
	}

	tmp := job.Output + ".tmp.vrt"
	if _, err := a.writeVRT(tmp, infos); err != nil {
		return nil, fmt.Errorf("mosaic %s: %w", job.Name, err)
	}
	defer func() {
		if err := a.fs.Remove(tmp); err != nil {
			monitoring.Warnf("mosaic %s: remove %s: %v", job.Name, tmp, err)
		}
	}()

	m, err := a.Materialise(ctx, tmp)
	if err != nil {
		return nil, fmt.Errorf("mosaic %s: %w", job.Name, err)
	}
	path := job.Output + ".tif"
	if err := a.store.Write(path, m); err != nil {
		return nil, fmt.Errorf("mosaic %s: %w", job.Name, err)
	}
	out := &Output{Name: job.Name, Path: path, Inputs: len(infos), Width: m.Width, Height: m.Height, Valid: m.ValidCount()}
	if a.cfg.BuildOverviews {
		if out.Overviews, err = a.writeOverviews(job.Output, m); err != nil {
			return nil, fmt.Errorf("mosaic %s: %w", job.Name, err)
		}
	}
	monitoring.Logf("mosaic %s: %d rasters -> %s (%dx%d, %d overviews)",
		job.Name, len(infos), path, m.Width, m.Height, len(out.Overviews))
	return out, nil
}

func (a *Assembler) writeVRT(path string, infos []inputInfo) (*VRT, error) {
	v, err := buildVRT(path, infos)
	if err != nil {
		return nil, err
	}
	data, err := marshalVRT(v)
	if err != nil {
		return nil, err
	}
	if err := a.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := a.fs.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return v, nil
}

// ReadVRT loads a virtual raster description.
func (a *Assembler) ReadVRT(path string) (*VRT, error) {
	data, err := a.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return unmarshalVRT(data)
}

// Materialise renders a VRT into a single raster. Sources are painted in
// order; only valid source pixels overwrite, so the last valid write wins.
func (a *Assembler) Materialise(ctx context.Context, vrtPath string) (*raster.Raster, error) {
	v, err := a.ReadVRT(vrtPath)
	if err != nil {
		return nil, err
	}
	gt, err := v.Transform()
	if err != nil {
		return nil, err
	}
	epsg, err := v.EPSG()
	if err != nil {
		return nil, err
	}
	out := raster.New(v.RasterXSize, v.RasterYSize, gt, epsg)
	for i, src := range v.SourcePaths(vrtPath) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := a.store.Read(src)
		if err != nil {
			return nil, err
		}
		paintSource(out, r, v.Band.Sources[i])
	}
	return out, nil
}

// paintSource copies the valid pixels of r into the destination window,
// scaling by nearest neighbour when the rectangles differ in size.
func paintSource(dst, r *raster.Raster, s vrtSource) {
	d, sr := s.DstRect, s.SrcRect
	if d.XSize <= 0 || d.YSize <= 0 {
		return
	}
	sx := float64(sr.XSize) / float64(d.XSize)
	sy := float64(sr.YSize) / float64(d.YSize)
	for row := 0; row < d.YSize; row++ {
		y := d.YOff + row
		if y < 0 || y >= dst.Height {
			continue
		}
		srcRow := sr.YOff + int(math.Floor((float64(row)+0.5)*sy))
		for col := 0; col < d.XSize; col++ {
			x := d.XOff + col
			if x < 0 || x >= dst.Width {
				continue
			}
			srcCol := sr.XOff + int(math.Floor((float64(col)+0.5)*sx))
			if v := r.At(srcCol, srcRow); v != uint8(s.NoData) {
				dst.Set(x, y, v)
			}
		}
	}
}

// OverviewPath names the overview raster for a level.
func OverviewPath(output string, level int) string {
	return fmt.Sprintf("%s.ovr%d.tif", output, level)
}

func (a *Assembler) writeOverviews(output string, m *raster.Raster) ([]string, error) {
	var paths []string
	for level := 2; level <= MaxOverviewLevel; level *= 2 {
		if m.Width/level < 1 || m.Height/level < 1 {
			break
		}
		path := OverviewPath(output, level)
		if err := a.store.Write(path, m.Decimate(level)); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
