package l3bedpick

import "gocv.io/x/gocv"

// Mask is a row-major boolean grid; true marks candidate bed pixels.
type Mask struct {
	Rows, Cols int
	Bits       []bool
}

// NewMask allocates an all-false mask.
func NewMask(rows, cols int) *Mask {
	return &Mask{Rows: rows, Cols: cols, Bits: make([]bool, rows*cols)}
}

// At reports the value at (row, col); out-of-range reads are false.
func (m *Mask) At(row, col int) bool {
	if row < 0 || row >= m.Rows || col < 0 || col >= m.Cols {
		return false
	}
	return m.Bits[row*m.Cols+col]
}

// Set writes a value; out-of-range writes are ignored.
func (m *Mask) Set(row, col int, v bool) {
	if row < 0 || row >= m.Rows || col < 0 || col >= m.Cols {
		return
	}
	m.Bits[row*m.Cols+col] = v
}

// Count returns the number of true pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// component is one 4-connected region of equal-valued pixels.
type component struct {
	area   int
	bottom int // largest row index in the region
}

// label assigns a component id (starting at 1) to every pixel equal to
// value, using 4-connectivity. Pixels of the other value get 0.
func (m *Mask) label(value bool) ([]int32, []component) {
	comps := []component{{}} // index 0 is the background
	if m.Rows == 0 || m.Cols == 0 {
		return make([]int32, len(m.Bits)), comps
	}

	src := gocv.NewMatWithSize(m.Rows, m.Cols, gocv.MatTypeCV8U)
	defer src.Close()
	for i, b := range m.Bits {
		var v uint8
		if b == value {
			v = 255
		}
		src.SetUCharAt(i/m.Cols, i%m.Cols, v)
	}

	lbl := gocv.NewMat()
	defer lbl.Close()
	stats := gocv.NewMat()
	defer stats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()
	n := gocv.ConnectedComponentsWithStatsWithParams(src, &lbl, &stats, &centroids,
		4, gocv.MatTypeCV32S, gocv.CCL_DEFAULT)

	for id := 1; id < n; id++ {
		top := int(stats.GetIntAt(id, int(gocv.CC_STAT_TOP)))
		height := int(stats.GetIntAt(id, int(gocv.CC_STAT_HEIGHT)))
		comps = append(comps, component{
			area:   int(stats.GetIntAt(id, int(gocv.CC_STAT_AREA))),
			bottom: top + height - 1,
		})
	}
	labels := make([]int32, len(m.Bits))
	for i := range labels {
		labels[i] = lbl.GetIntAt(i/m.Cols, i%m.Cols)
	}
	return labels, comps
}

// RemoveSmall clears true regions and fills false holes smaller than
// minSize pixels.
func (m *Mask) RemoveSmall(minSize int) {
	if minSize <= 1 {
		return
	}
	m.dropRegions(true, minSize)
	m.dropRegions(false, minSize)
}

func (m *Mask) dropRegions(value bool, minSize int) {
	labels, comps := m.label(value)
	for i, id := range labels {
		if id != 0 && comps[id].area < minSize {
			m.Bits[i] = !value
		}
	}
}

// KeepDeepest keeps only the true region reaching the largest row; ties go
// to the larger region. A mask with a single region is left unchanged.
func (m *Mask) KeepDeepest() {
	labels, comps := m.label(true)
	if len(comps) <= 2 {
		return
	}
	best := int32(1)
	for id := 2; id < len(comps); id++ {
		c, b := comps[id], comps[best]
		if c.bottom > b.bottom || (c.bottom == b.bottom && c.area > b.area) {
			best = int32(id)
		}
	}
	for i, id := range labels {
		if id != 0 && id != best {
			m.Bits[i] = false
		}
	}
}

// ColumnsWithBed reports which columns contain at least one true pixel.
func (m *Mask) ColumnsWithBed() []bool {
	out := make([]bool, m.Cols)
	for i, b := range m.Bits {
		if b {
			out[i%m.Cols] = true
		}
	}
	return out
}

// FillToBottom forces the last row to true and, per column, fills the
// gap between the deepest true pixel and the last row.
func (m *Mask) FillToBottom() {
	if m.Rows == 0 {
		return
	}
	for col := 0; col < m.Cols; col++ {
		last := -1
		for row := m.Rows - 1; row >= 0; row-- {
			if m.Bits[row*m.Cols+col] {
				last = row
				break
			}
		}
		if last < 0 {
			last = m.Rows - 1
		}
		for row := last; row < m.Rows; row++ {
			m.Bits[row*m.Cols+col] = true
		}
	}
}

// KeepLowestSegment clears every true run in a column except the one
// closest to the last row.
func (m *Mask) KeepLowestSegment() {
	for col := 0; col < m.Cols; col++ {
		row := m.Rows - 1
		for row >= 0 && !m.Bits[row*m.Cols+col] {
			row--
		}
		for row >= 0 && m.Bits[row*m.Cols+col] {
			row--
		}
		for ; row >= 0; row-- {
			m.Bits[row*m.Cols+col] = false
		}
	}
}

// FirstTrue returns the first true row in a column, or -1.
func (m *Mask) FirstTrue(col int) int {
	for row := 0; row < m.Rows; row++ {
		if m.Bits[row*m.Cols+col] {
			return row
		}
	}
	return -1
}
