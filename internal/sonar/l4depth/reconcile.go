package l4depth

import (
	"errors"
	"math"

	"github.com/banshee-data/sonarmap/internal/sonar"
)

// ErrNoSeries is returned when neither channel has any pings.
var ErrNoSeries = errors.New("no bed-pick series to reconcile")

// Series is one channel's bed picks for a survey line, in ping order.
type Series struct {
	Beam       sonar.Beam
	Rows       []sonar.Row
	Provenance []sonar.Provenance
	Instrument []sonar.Row
}

// Len returns the number of pings.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// Result is the reconciled depth series, one row per ping over the
// shorter channel.
type Result struct {
	Rows       []int
	Provenance []sonar.Provenance
	Rejected   int // picks dropped as outliers
	Fallback   int // pings replaced by instrument rows
	Filled     int // pings interpolated

	own map[sonar.Beam][]int
}

// Len returns the number of reconciled pings.
func (r *Result) Len() int { return len(r.Rows) }

// ForChannel returns exactly n rows for a channel. A channel longer than
// the reconciled series continues with its own gap-filled picks.
func (r *Result) ForChannel(b sonar.Beam, n int) []int {
	out := make([]int, n)
	copy(out, r.Rows)
	if n <= len(r.Rows) {
		return out
	}
	own := r.own[b]
	last := 0
	if len(r.Rows) > 0 {
		last = r.Rows[len(r.Rows)-1]
	}
	for i := len(r.Rows); i < n; i++ {
		if i < len(own) {
			last = own[i]
		}
		out[i] = last
	}
	return out
}

// Reconcile merges the channels' picks. Either channel may be nil for a
// single-channel survey. The result never holds nulls.
func Reconcile(port, star *Series, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if port.Len() == 0 && star.Len() == 0 {
		return nil, ErrNoSeries
	}
	rows, prov, inst := merge(port, star)
	res := &Result{own: make(map[sonar.Beam][]int)}

	res.Rejected = rejectOutliers(rows, cfg.OutlierWindow, cfg.OutlierStdDevs)
	for i, r := range rows {
		if !r.Valid {
			prov[i] = sonar.ProvenanceUnknown
		}
	}
	before := make([]bool, len(rows))
	for i, r := range rows {
		before[i] = r.Valid
	}
	res.Fallback = fallbackLongGaps(rows, inst, cfg.MaxGapPings)
	for i, r := range rows {
		if r.Valid && !before[i] {
			prov[i] = sonar.ProvenanceInstrument
		}
	}

	filled, ok := Interpolate(rows)
	if !ok {
		// Nothing detected and no instrument depth: the bed is unknown
		// everywhere and stays at row zero.
		filled = make([]float64, len(rows))
	}
	for i, r := range rows {
		if !r.Valid {
			prov[i] = sonar.ProvenanceInterpolated
			res.Filled++
		}
	}

	if cfg.Smooth {
		if w, fits := fitWindow(cfg.SmoothWindow, cfg.SmoothOrder, len(filled)); fits {
			sg, err := newSavgol(w, cfg.SmoothOrder)
			if err != nil {
				return nil, err
			}
			filled = sg.filter(filled)
		}
	}
	res.Rows = finish(filled, cfg.PixelOffset)
	res.Provenance = prov

	for _, s := range []*Series{port, star} {
		if s.Len() > len(res.Rows) {
			res.own[s.Beam] = ownFill(s, cfg)
		}
	}
	return res, nil
}

// merge takes the deeper pick per ping over the shorter channel. A null
// pick counts as row zero.
func merge(port, star *Series) ([]sonar.Row, []sonar.Provenance, []sonar.Row) {
	var chans []*Series
	for _, s := range []*Series{port, star} {
		if s.Len() > 0 {
			chans = append(chans, s)
		}
	}
	n := chans[0].Len()
	for _, s := range chans[1:] {
		n = min(n, s.Len())
	}

	rows := make([]sonar.Row, n)
	prov := make([]sonar.Provenance, n)
	inst := make([]sonar.Row, n)
	for i := 0; i < n; i++ {
		best := 0
		for _, s := range chans {
			if v := s.Rows[i].Or(0); v > best {
				best = v
				prov[i] = provAt(s, i)
			}
			if i < len(s.Instrument) && s.Instrument[i].Valid {
				if !inst[i].Valid || s.Instrument[i].Value > inst[i].Value {
					inst[i] = s.Instrument[i]
				}
			}
		}
		if best > 0 {
			rows[i] = sonar.RowOf(best)
		}
	}
	return rows, prov, inst
}

func provAt(s *Series, i int) sonar.Provenance {
	if i < len(s.Provenance) {
		return s.Provenance[i]
	}
	return sonar.ProvenanceUnknown
}

// ownFill gap-fills a single channel without smoothing.
func ownFill(s *Series, cfg Config) []int {
	rows := make([]sonar.Row, len(s.Rows))
	for i, r := range s.Rows {
		if r.Valid && r.Value > 0 {
			rows[i] = r
		}
	}
	fallbackLongGaps(rows, s.Instrument, cfg.MaxGapPings)
	filled, _ := Interpolate(rows)
	return finish(filled, cfg.PixelOffset)
}

// finish clamps negatives, rounds to whole rows and applies the offset.
func finish(vals []float64, offset int) []int {
	out := make([]int, len(vals))
	for i, v := range vals {
		out[i] = int(math.Round(max(v, 0))) + offset
	}
	return out
}
