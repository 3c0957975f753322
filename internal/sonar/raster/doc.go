// Package raster holds georeferenced single-band 8-bit rasters and their
// on-disk form: a Deflate-compressed TIFF, a world file (.tfw) and a GDAL
// PAM sidecar (.aux.xml) carrying the CRS and the NoData value.
package raster
