package l5rectify

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/sonarmap/internal/config"
	"github.com/banshee-data/sonarmap/internal/sonar"
	"github.com/banshee-data/sonarmap/internal/sonar/l1pings"
	"github.com/banshee-data/sonarmap/internal/sonar/l2nav"
	"github.com/banshee-data/sonarmap/internal/sonar/raster"
)

// ErrDegenerateNavigation is returned when the track cannot span a map
// grid: fewer than two distinct control points or a zero extent.
var ErrDegenerateNavigation = errors.New("degenerate navigation")

// maxPixels bounds a single chunk raster.
const maxPixels = 1 << 28

// Input is everything needed to rectify one chunk of one channel.
type Input struct {
	Beam    sonar.Beam
	ChunkID int
	Image   *l1pings.Image
	Track   *l2nav.Track
	PixM    float64
	BedRows []int // reconciled bed row per ping, used for water-column removal
	EPSG    int
}

// Rectify warps a chunk image onto a north-up grid with pixel size
// PixM / ResampleFactor.
func Rectify(in Input, cfg Config) (*raster.Raster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if in.Image == nil || in.Image.Cols == 0 || in.Image.Rows == 0 {
		return nil, fmt.Errorf("%s chunk %d: %w", in.Beam, in.ChunkID, l1pings.ErrEmptyChunk)
	}
	if in.Track == nil || in.Track.Len() != in.Image.Cols {
		return nil, fmt.Errorf("%s chunk %d: track does not match image", in.Beam, in.ChunkID)
	}
	if in.PixM <= 0 {
		return nil, fmt.Errorf("%s chunk %d: pixel size must be positive", in.Beam, in.ChunkID)
	}

	img := in.Image
	if cfg.RemoveWaterColumn {
		img = RemoveWaterColumn(img, in.BedRows)
		if img.Rows == 0 {
			return nil, fmt.Errorf("%s chunk %d: no ground range after water-column removal: %w", in.Beam, in.ChunkID, ErrDegenerateNavigation)
		}
	}
	pings := img.Cols
	img = Stretch(img, targetColumns(cfg, img.Cols, in.Track, in.PixM))

	// Every ping's far edge sits at the same row, so every outer point uses
	// the same ground range.
	ranges := make([]float64, pings)
	for i := range ranges {
		ranges[i] = float64(img.Rows) * in.PixM
	}
	outer := in.Track.OuterAt(in.Beam, ranges)

	cps := controlPoints(in.Track.Trackline, outer, pings, img, cfg.ControlPointStep)
	if distinct(cps) < 2 {
		return nil, fmt.Errorf("%s chunk %d: %w", in.Beam, in.ChunkID, ErrDegenerateNavigation)
	}

	ext := extent(in.Track.Trackline, outer)
	if ext.MaxE-ext.MinE <= 0 && ext.MaxN-ext.MinN <= 0 {
		return nil, fmt.Errorf("%s chunk %d: zero extent: %w", in.Beam, in.ChunkID, ErrDegenerateNavigation)
	}
	res := in.PixM / cfg.ResampleFactor
	width := int(math.Ceil((ext.MaxE-ext.MinE)/res)) + 1
	height := int(math.Ceil((ext.MaxN-ext.MinN)/res)) + 1
	if width*height > maxPixels {
		return nil, fmt.Errorf("%s chunk %d: output grid %dx%d too large", in.Beam, in.ChunkID, width, height)
	}
	gt := raster.GeoTransform{
		OriginX:     ext.MinE - res/2,
		PixelWidth:  res,
		OriginY:     ext.MaxN + res/2,
		PixelHeight: -res,
	}
	out := raster.New(width, height, gt, in.EPSG)

	sample := sampleNearest
	if cfg.Interpolation == config.InterpBilinear {
		sample = sampleBilinear
	}
	origin := sonar.Point{E: ext.MinE, N: ext.MinN}
	for i := 0; i+2 < len(cps); i += 2 {
		// cps holds near/far pairs per sampled ping.
		nearA, farA, nearB, farB := cps[i], cps[i+1], cps[i+2], cps[i+3]
		for _, tri := range [2][3]controlPoint{{nearA, farA, nearB}, {farA, farB, nearB}} {
			t, ok := newTriangle(tri[0], tri[1], tri[2], origin)
			if !ok {
				continue
			}
			paint(out, t, origin, img, sample)
		}
	}
	return out, nil
}

// controlPoints samples every step-th ping plus the last, returning a
// near-range and far-range point per sampled ping. Source columns follow
// any along-track stretch.
func controlPoints(track, outer []sonar.Point, pings int, img *l1pings.Image, step int) []controlPoint {
	scale := float64(img.Cols) / float64(pings)
	var idx []int
	for i := 0; i < pings; i += step {
		idx = append(idx, i)
	}
	if idx[len(idx)-1] != pings-1 {
		idx = append(idx, pings-1)
	}
	cps := make([]controlPoint, 0, 2*len(idx))
	for _, i := range idx {
		col := (float64(i) + 0.5) * scale
		cps = append(cps,
			controlPoint{col: col, row: 0, at: track[i]},
			controlPoint{col: col, row: float64(img.Rows), at: outer[i]},
		)
	}
	return cps
}

// distinct counts sampled pings whose trackline points differ.
func distinct(cps []controlPoint) int {
	n := 0
	var prev sonar.Point
	for i := 0; i < len(cps); i += 2 {
		p := cps[i].at
		if n == 0 || p.Dist(prev) > 1e-9 {
			n++
			prev = p
		}
	}
	return n
}

func extent(sets ...[]sonar.Point) raster.Extent {
	ext := raster.Extent{MinE: math.Inf(1), MinN: math.Inf(1), MaxE: math.Inf(-1), MaxN: math.Inf(-1)}
	for _, pts := range sets {
		for _, p := range pts {
			ext.MinE = math.Min(ext.MinE, p.E)
			ext.MaxE = math.Max(ext.MaxE, p.E)
			ext.MinN = math.Min(ext.MinN, p.N)
			ext.MaxN = math.Max(ext.MaxN, p.N)
		}
	}
	return ext
}
