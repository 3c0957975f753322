package raster

import (
	"image"
	"math"

	"github.com/banshee-data/sonarmap/internal/sonar"
	"golang.org/x/image/draw"
)

// NoData marks pixels outside the imaged swath.
const NoData uint8 = 0

// GeoTransform is a north-up affine transform: world coordinates of the
// top-left corner of pixel (0, 0) and the pixel size. PixelHeight is
// negative for north-up rasters.
type GeoTransform struct {
	OriginX, PixelWidth  float64
	OriginY, PixelHeight float64
}

// World returns the coordinates of a pixel-space position; (col+0.5,
// row+0.5) is the centre of a pixel.
func (g GeoTransform) World(col, row float64) sonar.Point {
	return sonar.Point{E: g.OriginX + col*g.PixelWidth, N: g.OriginY + row*g.PixelHeight}
}

// Pixel is the inverse of World.
func (g GeoTransform) Pixel(p sonar.Point) (col, row float64) {
	return (p.E - g.OriginX) / g.PixelWidth, (p.N - g.OriginY) / g.PixelHeight
}

// Extent is an axis-aligned bounding box in world coordinates.
type Extent struct {
	MinE, MinN, MaxE, MaxN float64
}

// Union returns the box covering both extents.
func (e Extent) Union(o Extent) Extent {
	return Extent{
		MinE: math.Min(e.MinE, o.MinE),
		MinN: math.Min(e.MinN, o.MinN),
		MaxE: math.Max(e.MaxE, o.MaxE),
		MaxN: math.Max(e.MaxN, o.MaxN),
	}
}

// Raster is a single-band 8-bit grid in row-major order, row 0 at the
// north edge.
type Raster struct {
	Width, Height int
	Pix           []uint8
	Transform     GeoTransform
	EPSG          int
}

// New allocates a raster filled with NoData.
func New(width, height int, gt GeoTransform, epsg int) *Raster {
	return &Raster{Width: width, Height: height, Pix: make([]uint8, width*height), Transform: gt, EPSG: epsg}
}

// At returns the pixel value; out-of-range reads return NoData.
func (r *Raster) At(col, row int) uint8 {
	if col < 0 || col >= r.Width || row < 0 || row >= r.Height {
		return NoData
	}
	return r.Pix[row*r.Width+col]
}

// Set writes a pixel; out-of-range writes are ignored.
func (r *Raster) Set(col, row int, v uint8) {
	if col < 0 || col >= r.Width || row < 0 || row >= r.Height {
		return
	}
	r.Pix[row*r.Width+col] = v
}

// ValidCount returns the number of pixels holding data.
func (r *Raster) ValidCount() int {
	n := 0
	for _, v := range r.Pix {
		if v != NoData {
			n++
		}
	}
	return n
}

// Extent returns the raster's outer bounds.
func (r *Raster) Extent() Extent {
	a := r.Transform.World(0, 0)
	b := r.Transform.World(float64(r.Width), float64(r.Height))
	return Extent{
		MinE: math.Min(a.E, b.E), MaxE: math.Max(a.E, b.E),
		MinN: math.Min(a.N, b.N), MaxN: math.Max(a.N, b.N),
	}
}

// Gray views the pixels as an image.Gray without copying.
func (r *Raster) Gray() *image.Gray {
	return &image.Gray{Pix: r.Pix, Stride: r.Width, Rect: image.Rect(0, 0, r.Width, r.Height)}
}

// Decimate returns a nearest-neighbour reduction by factor, keeping the
// raster's extent. Sizes round up so no edge pixels are lost.
func (r *Raster) Decimate(factor int) *Raster {
	w := (r.Width + factor - 1) / factor
	h := (r.Height + factor - 1) / factor
	gt := r.Transform
	gt.PixelWidth *= float64(r.Width) / float64(w)
	gt.PixelHeight *= float64(r.Height) / float64(h)
	out := New(w, h, gt, r.EPSG)
	draw.NearestNeighbor.Scale(out.Gray(), out.Gray().Bounds(), r.Gray(), r.Gray().Bounds(), draw.Src, nil)
	return out
}
