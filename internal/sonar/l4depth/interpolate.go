package l4depth

import (
	"math"
	"slices"

	"github.com/banshee-data/sonarmap/internal/sonar"
	"gonum.org/v1/gonum/stat"
)

// Interpolate fills null rows linearly between known neighbours; leading
// and trailing nulls hold the nearest known value. It reports false, and
// returns zeros, when no row is known.
func Interpolate(rows []sonar.Row) ([]float64, bool) {
	out := make([]float64, len(rows))
	prev := -1
	for i, r := range rows {
		if !r.Valid {
			continue
		}
		out[i] = float64(r.Value)
		switch {
		case prev < 0:
			for j := 0; j < i; j++ {
				out[j] = out[i]
			}
		case i-prev > 1:
			a, b := out[prev], out[i]
			span := float64(i - prev)
			for j := prev + 1; j < i; j++ {
				out[j] = a + (b-a)*float64(j-prev)/span
			}
		}
		prev = i
	}
	if prev < 0 {
		return out, false
	}
	for j := prev + 1; j < len(out); j++ {
		out[j] = out[prev]
	}
	return out, true
}

// rejectOutliers nulls known rows further than k standard deviations from
// the median of the known rows in their window. It returns the count.
func rejectOutliers(rows []sonar.Row, window int, k float64) int {
	if window <= 0 {
		window = len(rows)
	}
	rejected := 0
	vals := make([]float64, 0, window)
	for start := 0; start < len(rows); start += window {
		end := min(start+window, len(rows))
		vals = vals[:0]
		for _, r := range rows[start:end] {
			if r.Valid {
				vals = append(vals, float64(r.Value))
			}
		}
		if len(vals) < 2 {
			continue
		}
		_, sd := stat.PopMeanStdDev(vals, nil)
		if sd == 0 {
			continue
		}
		slices.Sort(vals)
		median := stat.Quantile(0.5, stat.Empirical, vals, nil)
		for i := start; i < end; i++ {
			if rows[i].Valid && math.Abs(float64(rows[i].Value)-median) > k*sd {
				rows[i] = sonar.NullRow()
				rejected++
			}
		}
	}
	return rejected
}

// fallbackLongGaps replaces runs of more than maxGap null rows with the
// instrument rows. It returns the number of pings replaced.
func fallbackLongGaps(rows, inst []sonar.Row, maxGap int) int {
	replaced := 0
	for i := 0; i < len(rows); {
		if rows[i].Valid {
			i++
			continue
		}
		j := i
		for j < len(rows) && !rows[j].Valid {
			j++
		}
		if j-i > maxGap {
			for k := i; k < j; k++ {
				if k < len(inst) && inst[k].Valid {
					rows[k] = inst[k]
					replaced++
				}
			}
		}
		i = j
	}
	return replaced
}

// Clean runs outlier rejection and interpolation over a series. A series
// that is already clean comes back unchanged.
func Clean(rows []sonar.Row, cfg Config) []float64 {
	work := slices.Clone(rows)
	rejectOutliers(work, cfg.OutlierWindow, cfg.OutlierStdDevs)
	out, _ := Interpolate(work)
	return out
}
