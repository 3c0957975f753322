package l5rectify

import (
	"math"

	"github.com/banshee-data/sonarmap/internal/config"
	"github.com/banshee-data/sonarmap/internal/sonar/l1pings"
	"github.com/banshee-data/sonarmap/internal/sonar/l2nav"
	"golang.org/x/image/draw"
)

// targetColumns returns the along-track width after speed correction.
func targetColumns(cfg Config, cols int, track *l2nav.Track, pixM float64) int {
	switch cfg.SpeedCorrection {
	case config.SpeedCorrectionGPS:
		if pixM > 0 {
			return max(2, int(math.Round(track.AlongTrackM()/pixM)))
		}
	case config.SpeedCorrectionFixed:
		return max(2, int(math.Round(float64(cols)*cfg.SpeedFactor)))
	}
	return cols
}

// Stretch resizes the ping axis to cols columns with nearest-neighbour
// sampling.
func Stretch(img *l1pings.Image, cols int) *l1pings.Image {
	if cols == img.Cols {
		return img
	}
	out := l1pings.NewImage(img.Rows, cols)
	dst, src := out.Gray(), img.Gray()
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return out
}
