package l3bedpick

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/sonarmap/internal/config"
	"github.com/banshee-data/sonarmap/internal/sonar"
	"github.com/banshee-data/sonarmap/internal/sonar/l1pings"
)

// ErrNoSegmenter is returned when model mode is selected without a
// segmentation backend.
var ErrNoSegmenter = errors.New("model depth mode requires a bed segmenter")

// BedSegmenter produces a bed mask for the search band of a chunk image.
// The returned mask must have the same dimensions as band.
type BedSegmenter interface {
	Segment(ctx context.Context, band *l1pings.Image) (*Mask, error)
}

// Band is the inclusive row range searched for the bed.
type Band struct {
	Top, Bottom int
}

// Rows returns the number of rows in the band.
func (b Band) Rows() int { return b.Bottom - b.Top + 1 }

// Picks is the bed-pick series for one chunk.
type Picks struct {
	Beam       sonar.Beam
	ChunkID    int
	Rows       []sonar.Row
	Provenance []sonar.Provenance
	Instrument []sonar.Row
	Band       Band
	PingMax    int
}

// Len returns the number of pings.
func (p *Picks) Len() int { return len(p.Rows) }

// Nulls counts undetermined pings.
func (p *Picks) Nulls() int {
	n := 0
	for _, r := range p.Rows {
		if !r.Valid {
			n++
		}
	}
	return n
}

// Picker estimates bed rows for chunks.
type Picker struct {
	cfg Config
	seg BedSegmenter
}

// NewPicker validates the configuration. seg may be nil unless the mode
// is model.
func NewPicker(cfg Config, seg BedSegmenter) (*Picker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mode == config.DepthModeModel && seg == nil {
		return nil, ErrNoSegmenter
	}
	return &Picker{cfg: cfg, seg: seg}, nil
}

// Pick runs the configured mode over a chunk. Only invalid chunks and
// segmenter failures return an error.
func (p *Picker) Pick(ctx context.Context, c *l1pings.Chunk) (*Picks, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	inst := c.InstrumentRows()
	out := &Picks{
		Beam:       c.Beam,
		ChunkID:    c.ID,
		Instrument: inst,
		PingMax:    c.PingMax(),
		Provenance: make([]sonar.Provenance, c.Len()),
	}

	if p.cfg.Mode == config.DepthModeInstrument {
		out.Rows = append([]sonar.Row(nil), inst...)
		out.Band = Band{Top: 0, Bottom: out.PingMax - 1}
		for i, r := range out.Rows {
			if r.Valid {
				out.Provenance[i] = sonar.ProvenanceInstrument
			}
		}
		return out, nil
	}

	img := c.Image()
	band := searchBand(inst, img.Rows, p.cfg.BandMarginRows)
	out.Band = band

	var (
		mask *Mask
		prov = sonar.ProvenanceThreshold
	)
	if p.cfg.Mode == config.DepthModeModel {
		m, err := p.seg.Segment(ctx, crop(img, band))
		if err != nil {
			return nil, fmt.Errorf("segment %s chunk %d: %w", c.Beam, c.ID, err)
		}
		if m == nil || m.Rows != band.Rows() || m.Cols != img.Cols {
			return nil, fmt.Errorf("segment %s chunk %d: mask does not match band %dx%d", c.Beam, c.ID, band.Rows(), img.Cols)
		}
		mask = m
		prov = sonar.ProvenanceModel
	} else {
		mask = p.thresholdMask(img, band)
	}

	out.Rows = p.refine(mask, band)
	for i, r := range out.Rows {
		if r.Valid {
			out.Provenance[i] = prov
		}
	}

	if p.cfg.Mode == config.DepthModeHybrid {
		for i, r := range out.Rows {
			if !r.Valid && inst[i].Valid {
				out.Rows[i] = inst[i]
				out.Provenance[i] = sonar.ProvenanceInstrument
			}
		}
	}
	return out, nil
}

// searchBand spans the instrument rows plus a margin, clamped to the
// image. Without any instrument row the whole image is searched.
func searchBand(inst []sonar.Row, rows, margin int) Band {
	lo, hi := rows, -1
	for _, r := range inst {
		if !r.Valid {
			continue
		}
		lo = min(lo, r.Value)
		hi = max(hi, r.Value)
	}
	if hi < 0 {
		return Band{Top: 0, Bottom: rows - 1}
	}
	return Band{Top: max(lo-margin, 0), Bottom: min(hi+margin, rows-1)}
}

func crop(img *l1pings.Image, b Band) *l1pings.Image {
	out := l1pings.NewImage(b.Rows(), img.Cols)
	copy(out.Pix, img.Pix[b.Top*img.Cols:(b.Bottom+1)*img.Cols])
	return out
}

func (p *Picker) thresholdMask(img *l1pings.Image, b Band) *Mask {
	rows := b.Rows()
	vals := make([]float64, rows*img.Cols)
	for i, v := range img.Pix[b.Top*img.Cols : (b.Bottom+1)*img.Cols] {
		vals[i] = float64(v)
	}
	smoothed := blur(vals, rows, img.Cols, p.cfg.BlurSigma)
	mask := thresholdColumns(smoothed, rows, img.Cols)
	mask.RemoveSmall(p.minRegion(rows))
	return mask
}

func (p *Picker) minRegion(bandRows int) int {
	return int(p.cfg.MinRegionFactor * float64(bandRows))
}

// refine keeps the deepest region, closes it down to the band bottom,
// re-cleans and keeps the lowest segment per column. Columns without any
// candidate before closing are null.
func (p *Picker) refine(mask *Mask, b Band) []sonar.Row {
	mask.KeepDeepest()
	hasBed := mask.ColumnsWithBed()

	mask.FillToBottom()
	mask.RemoveSmall(p.minRegion(b.Rows()))
	mask.KeepLowestSegment()

	rows := make([]sonar.Row, mask.Cols)
	for col := range rows {
		if !hasBed[col] {
			continue
		}
		if first := mask.FirstTrue(col); first >= 0 {
			rows[col] = sonar.RowOf(b.Top + first)
		}
	}
	return rows
}
