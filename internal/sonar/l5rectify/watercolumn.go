package l5rectify

import (
	"math"

	"github.com/banshee-data/sonarmap/internal/sonar/l1pings"
)

// RemoveWaterColumn converts each ping from slant to ground range. Row g
// of the output takes the sample at slant range sqrt(g² + d²), where d is
// the ping's bed row, so the output starts at the bed and ends at the
// ground-range length of the ping.
func RemoveWaterColumn(img *l1pings.Image, bed []int) *l1pings.Image {
	lengths := make([]int, img.Cols)
	rows := 0
	for col := range lengths {
		d := 0
		if col < len(bed) {
			d = min(max(bed[col], 0), img.Rows)
		}
		lengths[col] = groundLength(img.Rows, d)
		rows = max(rows, lengths[col])
	}

	out := l1pings.NewImage(rows, img.Cols)
	for col := 0; col < img.Cols; col++ {
		d := 0.0
		if col < len(bed) {
			d = float64(min(max(bed[col], 0), img.Rows))
		}
		for g := 0; g < lengths[col]; g++ {
			s := int(math.Round(math.Hypot(float64(g), d)))
			if s < img.Rows {
				out.Pix[g*out.Cols+col] = img.Pix[s*img.Cols+col]
			}
		}
	}
	return out
}

// groundLength is the number of ground-range rows for a ping of slant
// length slant with the bed at row d.
func groundLength(slant, d int) int {
	if d >= slant {
		return 0
	}
	return int(math.Floor(math.Sqrt(float64(slant*slant - d*d))))
}
