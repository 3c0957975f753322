package l2nav

import (
	"errors"
	"fmt"
	"math"

	"github.com/wroge/wgs84"

	"github.com/banshee-data/sonarmap/internal/sonar"
)

// ErrUnknownCRS is returned when fixes are already projected but the
// project CRS was not given.
var ErrUnknownCRS = errors.New("fixes are projected but the CRS is unknown; pass --epsg")

const deg2rad = math.Pi / 180

// Projection is a UTM zone fixed once per project. Every fix in the
// project is projected with the same zone even if the survey crosses a
// zone boundary.
type Projection struct {
	Zone  int
	North bool
}

// ProjectionFor picks the UTM zone containing the given fix.
func ProjectionFor(lat, lon float64) Projection {
	zone := int(math.Floor((lon+180)/6)) + 1
	if zone < 1 {
		zone = 1
	}
	if zone > 60 {
		zone = 60
	}
	return Projection{Zone: zone, North: lat >= 0}
}

// EPSG returns the EPSG code of the WGS84 / UTM zone.
func (p Projection) EPSG() int {
	if p.North {
		return 32600 + p.Zone
	}
	return 32700 + p.Zone
}

// ProjectionFromEPSG returns the WGS84 / UTM projection for codes
// 32601–32660 and 32701–32760.
func ProjectionFromEPSG(code int) (Projection, error) {
	switch {
	case code > 32600 && code <= 32660:
		return Projection{Zone: code - 32600, North: true}, nil
	case code > 32700 && code <= 32760:
		return Projection{Zone: code - 32700, North: false}, nil
	}
	return Projection{}, fmt.Errorf("EPSG:%d is not a WGS84 UTM zone", code)
}

func (p Projection) String() string {
	hemi := "N"
	if !p.North {
		hemi = "S"
	}
	return fmt.Sprintf("UTM %d%s (EPSG:%d)", p.Zone, hemi, p.EPSG())
}

// Forward projects a geographic fix (degrees) to easting/northing (metres).
func (p Projection) Forward(lat, lon float64) sonar.Point {
	e, n, _ := p.transform()(lon, lat, 0)
	return sonar.Point{E: e, N: n}
}

func (p Projection) transform() wgs84.Func {
	return wgs84.LonLat().To(wgs84.UTM(float64(p.Zone), p.North))
}
