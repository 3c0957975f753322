package l2nav

import (
	"errors"
	"math"

	"github.com/banshee-data/sonarmap/internal/config"
	"github.com/banshee-data/sonarmap/internal/sonar"
	"github.com/banshee-data/sonarmap/internal/sonar/l1pings"
)

// ErrNoValidFix is returned when a chunk has no usable navigation fix.
var ErrNoValidFix = errors.New("no valid navigation fix in chunk")

// minStep is the displacement (metres) below which two consecutive
// trackline points are treated as the same position.
const minStep = 1e-6

// Config tunes the track builder.
type Config struct {
	// SmoothingWindow is the centred moving-average length applied to
	// positions before bearings are computed. 1 disables smoothing.
	SmoothingWindow int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{SmoothingWindow: 5}
}

// ConfigFromProcessing builds a Config from a loaded ProcessingConfig.
func ConfigFromProcessing(cfg *config.ProcessingConfig) Config {
	return Config{SmoothingWindow: cfg.GetNavSmoothingWindow()}
}

// Track is the navigation coordinate set for one chunk: one trackline
// point, one course over ground and two outer-range points per ping.
type Track struct {
	Trackline []sonar.Point
	COG       []float64 // degrees clockwise from grid north, [0, 360)
	Port      []sonar.Point
	Starboard []sonar.Point
	Repaired  int // pings whose fix was carried from a neighbour
}

// Len returns the number of pings on the track.
func (t *Track) Len() int { return len(t.Trackline) }

// Outer returns the outer-range points for a beam.
func (t *Track) Outer(b sonar.Beam) []sonar.Point {
	if b == sonar.Port {
		return t.Port
	}
	return t.Starboard
}

// OuterAt recomputes a beam's outer-range points for different per-ping
// ranges, e.g. ground ranges after water-column removal.
func (t *Track) OuterAt(b sonar.Beam, rangesM []float64) []sonar.Point {
	out := make([]sonar.Point, len(t.Trackline))
	for i, p := range t.Trackline {
		r := 0.0
		if i < len(rangesM) {
			r = rangesM[i]
		}
		out[i] = offset(p, t.COG[i]+b.Side()*90, r)
	}
	return out
}

// BuildChunk builds the track for a chunk, using each ping's slant range
// for the outer-range points.
func BuildChunk(c *l1pings.Chunk, proj Projection, cfg Config) (*Track, error) {
	fixes := make([]l1pings.Fix, len(c.Pings))
	ranges := make([]float64, len(c.Pings))
	for i, p := range c.Pings {
		fixes[i] = p.Fix
		ranges[i] = p.RangeM()
	}
	return Build(fixes, ranges, proj, cfg)
}

// Build turns raw fixes into a smoothed track. Invalid fixes take the
// position of the nearest valid neighbour; ErrNoValidFix is returned when
// none exists.
func Build(fixes []l1pings.Fix, rangesM []float64, proj Projection, cfg Config) (*Track, error) {
	pts, headings, repaired, err := planarPositions(fixes, proj)
	if err != nil {
		return nil, err
	}

	smoothed := movingAverage(pts, cfg.SmoothingWindow)
	cog := courseOverGround(smoothed, headings)

	t := &Track{
		Trackline: smoothed,
		COG:       cog,
		Repaired:  repaired,
	}
	t.Port = t.OuterAt(sonar.Port, rangesM)
	t.Starboard = t.OuterAt(sonar.Starboard, rangesM)
	return t, nil
}

// planarPositions projects the fixes and repairs invalid ones from the
// nearest valid neighbour (the earlier one wins a tie).
func planarPositions(fixes []l1pings.Fix, proj Projection) ([]sonar.Point, []float64, int, error) {
	n := len(fixes)
	pts := make([]sonar.Point, n)
	headings := make([]float64, n)
	valid := make([]bool, n)
	found := false
	for i, f := range fixes {
		headings[i] = f.Heading
		if !f.Valid {
			continue
		}
		if f.Projected {
			pts[i] = sonar.Point{E: f.E, N: f.N}
		} else {
			pts[i] = proj.Forward(f.Lat, f.Lon)
		}
		valid[i] = true
		found = true
	}
	if !found {
		return nil, nil, 0, ErrNoValidFix
	}

	prev := make([]int, n)
	last := -1
	for i := 0; i < n; i++ {
		if valid[i] {
			last = i
		}
		prev[i] = last
	}
	repaired := 0
	next := -1
	for i := n - 1; i >= 0; i-- {
		if valid[i] {
			next = i
			continue
		}
		src := prev[i]
		if src < 0 || (next >= 0 && next-i < i-src) {
			src = next
		}
		pts[i] = pts[src]
		headings[i] = fixes[src].Heading
		repaired++
	}
	return pts, headings, repaired, nil
}

// movingAverage applies a centred window. Near the ends the window shrinks
// symmetrically so straight tracks keep their end points.
func movingAverage(pts []sonar.Point, window int) []sonar.Point {
	out := make([]sonar.Point, len(pts))
	if window <= 1 {
		copy(out, pts)
		return out
	}
	for i := range pts {
		half := min(window/2, i, len(pts)-1-i)
		lo, hi := i-half, i+half
		var se, sn float64
		for j := lo; j <= hi; j++ {
			se += pts[j].E
			sn += pts[j].N
		}
		k := float64(hi - lo + 1)
		out[i] = sonar.Point{E: se / k, N: sn / k}
	}
	return out
}

// courseOverGround computes the bearing from each point to its successor.
// The last ping reuses the penultimate bearing. A zero displacement keeps
// the previous bearing, or the instrument heading when there is none yet.
func courseOverGround(pts []sonar.Point, headings []float64) []float64 {
	n := len(pts)
	cog := make([]float64, n)
	if n == 0 {
		return cog
	}
	have := false
	prevBearing := 0.0
	for i := 0; i < n-1; i++ {
		de := pts[i+1].E - pts[i].E
		dn := pts[i+1].N - pts[i].N
		switch {
		case math.Hypot(de, dn) > minStep:
			cog[i] = Bearing(pts[i], pts[i+1])
			have = true
		case have:
			cog[i] = prevBearing
		default:
			cog[i] = headingOr(headings[i], firstBearing(pts, i))
		}
		prevBearing = cog[i]
	}
	if n == 1 {
		cog[0] = headingOr(headings[0], 0)
	} else {
		cog[n-1] = cog[n-2]
	}
	return cog
}

// firstBearing looks ahead for the first non-zero displacement.
func firstBearing(pts []sonar.Point, from int) float64 {
	for j := from; j < len(pts)-1; j++ {
		if pts[j].Dist(pts[j+1]) > minStep {
			return Bearing(pts[j], pts[j+1])
		}
	}
	return 0
}

func headingOr(h, def float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return def
	}
	return normalizeDeg(h)
}

// Bearing returns atan2(Δeasting, Δnorthing) in degrees, normalised to
// [0, 360).
func Bearing(from, to sonar.Point) float64 {
	return normalizeDeg(math.Atan2(to.E-from.E, to.N-from.N) / deg2rad)
}

func normalizeDeg(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// offset moves p by rangeM along a bearing: Δnorthing = r·cos(b),
// Δeasting = r·sin(b).
func offset(p sonar.Point, bearingDeg, rangeM float64) sonar.Point {
	s, c := math.Sincos(bearingDeg * deg2rad)
	return sonar.Point{E: p.E + rangeM*s, N: p.N + rangeM*c}
}

// AlongTrackM returns the cumulative distance along the trackline.
func (t *Track) AlongTrackM() float64 {
	total := 0.0
	for i := 1; i < len(t.Trackline); i++ {
		total += t.Trackline[i-1].Dist(t.Trackline[i])
	}
	return total
}
