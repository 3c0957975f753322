package l4depth

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// savgol is a Savitzky–Golay filter. fit maps a window of samples to the
// coefficients of the least-squares polynomial centred on the window.
type savgol struct {
	window, order int
	fit           *mat.Dense // (order+1) × window
}

func newSavgol(window, order int) (*savgol, error) {
	if window%2 == 0 || order >= window {
		return nil, fmt.Errorf("invalid savgol window %d order %d", window, order)
	}
	half := window / 2
	vander := mat.NewDense(window, order+1, nil)
	for i := 0; i < window; i++ {
		x := float64(i - half)
		v := 1.0
		for j := 0; j <= order; j++ {
			vander.Set(i, j, v)
			v *= x
		}
	}
	ones := make([]float64, window)
	for i := range ones {
		ones[i] = 1
	}
	var fit mat.Dense
	if err := fit.Solve(vander, mat.NewDiagDense(window, ones)); err != nil {
		return nil, fmt.Errorf("savgol coefficients: %w", err)
	}
	return &savgol{window: window, order: order, fit: &fit}, nil
}

// filter smooths y. The edges use the polynomial fitted to the first and
// last full windows.
func (s *savgol) filter(y []float64) []float64 {
	n := len(y)
	out := make([]float64, n)
	half := s.window / 2
	if n < s.window {
		copy(out, y)
		return out
	}
	for i := half; i < n-half; i++ {
		var v float64
		for k := 0; k < s.window; k++ {
			v += s.fit.At(0, k) * y[i-half+k]
		}
		out[i] = v
	}
	s.fitEdge(y, out, 0, 0, half)
	s.fitEdge(y, out, n-s.window, n-half, n)
	return out
}

// fitEdge evaluates the polynomial fitted on y[start:start+window] at the
// positions [from, to).
func (s *savgol) fitEdge(y, out []float64, start, from, to int) {
	var coef mat.VecDense
	coef.MulVec(s.fit, mat.NewVecDense(s.window, y[start:start+s.window]))
	half := s.window / 2
	for i := from; i < to; i++ {
		x := float64(i - start - half)
		v, p := 0.0, 1.0
		for j := 0; j <= s.order; j++ {
			v += coef.AtVec(j) * p
			p *= x
		}
		out[i] = v
	}
}

// fitWindow shrinks the window to an odd length that fits n samples. It
// reports false when no window above the order fits.
func fitWindow(window, order, n int) (int, bool) {
	if window > n {
		window = n
		if window%2 == 0 {
			window--
		}
	}
	return window, window > order
}
