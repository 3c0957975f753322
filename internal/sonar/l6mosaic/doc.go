// Package l6mosaic owns Layer 6 (Mosaic) of the sonar data model.
//
// Responsibilities: discovering the rectified chunk rasters of a channel
// or channel pair, describing them as a GDAL virtual raster, and
// optionally materialising that into one compressed raster with
// overviews.
// Key types: Assembler, Job, VRT.
//
// Dependency rule: L6 may depend on L1–L5.
// Overlaps resolve last-write-wins in lexical input order; pixel values
// are never averaged.
package l6mosaic
