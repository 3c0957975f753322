package l5rectify

import (
	"math"

	"github.com/banshee-data/sonarmap/internal/sonar"
	"github.com/banshee-data/sonarmap/internal/sonar/l1pings"
	"github.com/banshee-data/sonarmap/internal/sonar/raster"
	"gonum.org/v1/gonum/mat"
)

// controlPoint ties a source image position (column, row) to a map point.
type controlPoint struct {
	col, row float64
	at       sonar.Point
}

// triangle is one face of the control-point strip with the affine that
// maps local map coordinates back into the source image.
type triangle struct {
	dst [3]sonar.Point // local map coordinates
	inv *mat.Dense     // 3×2: [e n 1] · inv = [col row]
}

// newTriangle solves the inverse affine for three control points. It
// reports false for collinear points.
func newTriangle(a, b, c controlPoint, origin sonar.Point) (triangle, bool) {
	pts := [3]controlPoint{a, b, c}
	m := mat.NewDense(3, 3, nil)
	s := mat.NewDense(3, 2, nil)
	var t triangle
	for i, p := range pts {
		local := sonar.Point{E: p.at.E - origin.E, N: p.at.N - origin.N}
		t.dst[i] = local
		m.SetRow(i, []float64{local.E, local.N, 1})
		s.SetRow(i, []float64{p.col, p.row})
	}
	if math.Abs(mat.Det(m)) < 1e-12 {
		return triangle{}, false
	}
	var inv mat.Dense
	if err := inv.Solve(m, s); err != nil {
		return triangle{}, false
	}
	t.inv = &inv
	return t, true
}

// source maps a local map point into source image coordinates.
func (t triangle) source(p sonar.Point) (col, row float64) {
	col = p.E*t.inv.At(0, 0) + p.N*t.inv.At(1, 0) + t.inv.At(2, 0)
	row = p.E*t.inv.At(0, 1) + p.N*t.inv.At(1, 1) + t.inv.At(2, 1)
	return col, row
}

// contains reports whether p lies inside the triangle, edges included.
func (t triangle) contains(p sonar.Point) bool {
	const eps = 1e-9
	d1 := cross(t.dst[0], t.dst[1], p)
	d2 := cross(t.dst[1], t.dst[2], p)
	d3 := cross(t.dst[2], t.dst[0], p)
	neg := d1 < -eps || d2 < -eps || d3 < -eps
	pos := d1 > eps || d2 > eps || d3 > eps
	return !(neg && pos)
}

func cross(a, b, p sonar.Point) float64 {
	return (b.E-a.E)*(p.N-a.N) - (b.N-a.N)*(p.E-a.E)
}

// sampler reads a source pixel at fractional image coordinates, where
// pixel (c, r) covers [c, c+1) × [r, r+1). Outside the image or on
// NoData it reports false.
type sampler func(img *l1pings.Image, col, row float64) (uint8, bool)

func sampleNearest(img *l1pings.Image, col, row float64) (uint8, bool) {
	c, r := int(math.Floor(col)), int(math.Floor(row))
	if c < 0 || c >= img.Cols || r < 0 || r >= img.Rows {
		return 0, false
	}
	v := img.Pix[r*img.Cols+c]
	return v, v != raster.NoData
}

func sampleBilinear(img *l1pings.Image, col, row float64) (uint8, bool) {
	if col < 0 || col >= float64(img.Cols) || row < 0 || row >= float64(img.Rows) {
		return 0, false
	}
	x, y := col-0.5, row-0.5
	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := x-x0, y-y0
	var sum, weight float64
	for _, n := range [4]struct{ dx, dy, w float64 }{
		{0, 0, (1 - fx) * (1 - fy)},
		{1, 0, fx * (1 - fy)},
		{0, 1, (1 - fx) * fy},
		{1, 1, fx * fy},
	} {
		c := min(max(int(x0+n.dx), 0), img.Cols-1)
		r := min(max(int(y0+n.dy), 0), img.Rows-1)
		v := img.Pix[r*img.Cols+c]
		if v == raster.NoData || n.w == 0 {
			continue
		}
		sum += n.w * float64(v)
		weight += n.w
	}
	if weight == 0 {
		return 0, false
	}
	return uint8(max(1, min(255, math.Round(sum/weight)))), true
}

// paint rasterises one triangle into out by inverse mapping every output
// pixel centre it covers.
func paint(out *raster.Raster, t triangle, origin sonar.Point, img *l1pings.Image, sample sampler) {
	gt := out.Transform
	minE, maxE := t.dst[0].E, t.dst[0].E
	minN, maxN := t.dst[0].N, t.dst[0].N
	for _, p := range t.dst[1:] {
		minE, maxE = math.Min(minE, p.E), math.Max(maxE, p.E)
		minN, maxN = math.Min(minN, p.N), math.Max(maxN, p.N)
	}
	c0, r0 := gt.Pixel(sonar.Point{E: origin.E + minE, N: origin.N + maxN})
	c1, r1 := gt.Pixel(sonar.Point{E: origin.E + maxE, N: origin.N + minN})
	colLo, colHi := max(int(math.Floor(c0)), 0), min(int(math.Ceil(c1)), out.Width-1)
	rowLo, rowHi := max(int(math.Floor(r0)), 0), min(int(math.Ceil(r1)), out.Height-1)

	for row := rowLo; row <= rowHi; row++ {
		for col := colLo; col <= colHi; col++ {
			w := gt.World(float64(col)+0.5, float64(row)+0.5)
			p := sonar.Point{E: w.E - origin.E, N: w.N - origin.N}
			if !t.contains(p) {
				continue
			}
			sc, sr := t.source(p)
			if v, ok := sample(img, sc, sr); ok {
				out.Pix[row*out.Width+col] = v
			}
		}
	}
}
