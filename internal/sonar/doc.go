// Package sonar holds the value types shared by every layer of the
// side-scan processing chain: beams, nullable bed rows, pick provenance
// and planar points.
//
// Layer packages (l1pings … l6mosaic) depend on this package; it depends
// on nothing inside the module. No I/O or SQL lives here.
package sonar
