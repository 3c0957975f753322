package sonar

import "math"

// Provenance records where a bed row came from.
type Provenance uint8

const (
	ProvenanceUnknown Provenance = iota
	// ProvenanceInstrument is the depth reported by the sonar itself.
	ProvenanceInstrument
	// ProvenanceThreshold is the rule-based image detection.
	ProvenanceThreshold
	// ProvenanceModel is a mask produced by an external segmentation model.
	ProvenanceModel
	// ProvenanceInterpolated was filled from neighbouring pings.
	ProvenanceInterpolated
)

func (p Provenance) String() string {
	switch p {
	case ProvenanceInstrument:
		return "instrument"
	case ProvenanceThreshold:
		return "threshold"
	case ProvenanceModel:
		return "model"
	case ProvenanceInterpolated:
		return "interpolated"
	}
	return "unknown"
}

// Row is a nullable pixel row index. The zero value is null.
type Row struct {
	Value int
	Valid bool
}

// RowOf returns a valid Row.
func RowOf(v int) Row { return Row{Value: v, Valid: true} }

// NullRow returns an undetermined Row.
func NullRow() Row { return Row{} }

// Or returns the row value, or def when the row is null.
func (r Row) Or(def int) int {
	if !r.Valid {
		return def
	}
	return r.Value
}

// MetersToRow converts a depth to a pixel row at the given resolution.
// Non-positive resolutions and non-finite depths give a null row.
func MetersToRow(depthM, pixM float64) Row {
	if pixM <= 0 || math.IsNaN(depthM) || math.IsInf(depthM, 0) || depthM < 0 {
		return NullRow()
	}
	return RowOf(int(math.Round(depthM / pixM)))
}

// RowToMeters converts a pixel row back to metres.
func RowToMeters(row int, pixM float64) float64 {
	return float64(row) * pixM
}

// Point is a planar (projected) coordinate in metres.
type Point struct {
	E float64 // easting
	N float64 // northing
}

// Dist returns the Euclidean distance between two points.
func (p Point) Dist(o Point) float64 {
	return math.Hypot(p.E-o.E, p.N-o.N)
}
