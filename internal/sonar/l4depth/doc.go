// Package l4depth owns Layer 4 (Depth) of the sonar data model.
//
// Responsibilities: merging the port and starboard bed-pick series into one
// reconciled depth series, outlier rejection, instrument fallback for long
// gaps, interpolation and Savitzky–Golay smoothing.
// Key types: Series, Result.
//
// Dependency rule: L4 may depend on L1–L3, but never on L5+.
// The reconciler needs every chunk of both channels; it runs after the
// bed-pick barrier and may fail a whole survey line.
package l4depth
