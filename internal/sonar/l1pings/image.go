package l1pings

import "image"

// Image is a row-major 8-bit intensity grid. Rows are range bins and
// columns are pings.
type Image struct {
	Rows, Cols int
	Pix        []uint8
}

// NewImage allocates a zeroed image.
func NewImage(rows, cols int) *Image {
	return &Image{Rows: rows, Cols: cols, Pix: make([]uint8, rows*cols)}
}

// At returns the value at (row, col). Out-of-range reads return 0.
func (m *Image) At(row, col int) uint8 {
	if row < 0 || row >= m.Rows || col < 0 || col >= m.Cols {
		return 0
	}
	return m.Pix[row*m.Cols+col]
}

// Set writes a value; out-of-range writes are ignored.
func (m *Image) Set(row, col int, v uint8) {
	if row < 0 || row >= m.Rows || col < 0 || col >= m.Cols {
		return
	}
	m.Pix[row*m.Cols+col] = v
}

// Column copies one ping column.
func (m *Image) Column(col int) []uint8 {
	out := make([]uint8, m.Rows)
	for r := 0; r < m.Rows; r++ {
		out[r] = m.Pix[r*m.Cols+col]
	}
	return out
}

// Gray wraps the pixels as an image.Gray (x = ping, y = range bin) without
// copying, for use with golang.org/x/image.
func (m *Image) Gray() *image.Gray {
	return &image.Gray{Pix: m.Pix, Stride: m.Cols, Rect: image.Rect(0, 0, m.Cols, m.Rows)}
}

// FromGray copies an image.Gray into a new Image.
func FromGray(g *image.Gray) *Image {
	b := g.Bounds()
	out := NewImage(b.Dy(), b.Dx())
	for y := 0; y < out.Rows; y++ {
		off := g.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out.Pix[y*out.Cols:(y+1)*out.Cols], g.Pix[off:off+out.Cols])
	}
	return out
}
