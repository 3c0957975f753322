package l3bedpick

import (
	"image"
	"math"
	"slices"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

// blur applies a Gaussian truncated at 4 sigma to a row-major grid.
// Edges repeat the nearest pixel.
func blur(src []float64, rows, cols int, sigma float64) []float64 {
	if sigma <= 0 || rows == 0 || cols == 0 {
		return slices.Clone(src)
	}
	in := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV64F)
	defer in.Close()
	for i, v := range src {
		in.SetDoubleAt(i/cols, i%cols, v)
	}

	out := gocv.NewMat()
	defer out.Close()
	k := 2*int(math.Ceil(4*sigma)) + 1
	gocv.GaussianBlur(in, &out, image.Pt(k, k), sigma, sigma, gocv.BorderReplicate)

	dst := make([]float64, len(src))
	for i := range dst {
		dst[i] = out.GetDoubleAt(i/cols, i%cols)
	}
	return dst
}

// thresholdColumns marks, per column, the pixels at or above
// max(median, mean) of that column. Flat columns carry no information and
// stay empty.
func thresholdColumns(vals []float64, rows, cols int) *Mask {
	m := NewMask(rows, cols)
	if rows == 0 {
		return m
	}
	col := make([]float64, rows)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			col[r] = vals[r*cols+c]
		}
		mean := stat.Mean(col, nil)
		sorted := slices.Clone(col)
		slices.Sort(sorted)
		if sorted[0] == sorted[len(sorted)-1] {
			continue
		}
		median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
		thr := max(median, mean)
		for r := 0; r < rows; r++ {
			if col[r] >= thr {
				m.Bits[r*cols+c] = true
			}
		}
	}
	return m
}
