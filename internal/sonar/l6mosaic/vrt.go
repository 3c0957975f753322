package l6mosaic

import (
	"encoding/xml"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/sonarmap/internal/sonar/raster"
)

// VRT is the subset of the GDAL virtual raster format used for mosaics: a
// single Byte band assembled from ComplexSources in order.
type VRT struct {
	XMLName      xml.Name `xml:"VRTDataset"`
	RasterXSize  int      `xml:"rasterXSize,attr"`
	RasterYSize  int      `xml:"rasterYSize,attr"`
	SRS          string   `xml:"SRS,omitempty"`
	GeoTransform string   `xml:"GeoTransform"`
	Band         vrtBand  `xml:"VRTRasterBand"`
}

type vrtBand struct {
	DataType    string      `xml:"dataType,attr"`
	Band        int         `xml:"band,attr"`
	NoDataValue int         `xml:"NoDataValue"`
	Sources     []vrtSource `xml:"ComplexSource"`
}

type vrtSource struct {
	Resampling     string        `xml:"resampling,attr,omitempty"`
	SourceFilename vrtFilename   `xml:"SourceFilename"`
	SourceBand     int           `xml:"SourceBand"`
	Properties     vrtProperties `xml:"SourceProperties"`
	SrcRect        vrtRect       `xml:"SrcRect"`
	DstRect        vrtRect       `xml:"DstRect"`
	NoData         int           `xml:"NODATA"`
}

type vrtFilename struct {
	RelativeToVRT int    `xml:"relativeToVRT,attr"`
	Path          string `xml:",chardata"`
}

type vrtProperties struct {
	RasterXSize int    `xml:"RasterXSize,attr"`
	RasterYSize int    `xml:"RasterYSize,attr"`
	DataType    string `xml:"DataType,attr"`
}

type vrtRect struct {
	XOff  int `xml:"xOff,attr"`
	YOff  int `xml:"yOff,attr"`
	XSize int `xml:"xSize,attr"`
	YSize int `xml:"ySize,attr"`
}

// Transform parses the VRT's geotransform.
func (v *VRT) Transform() (raster.GeoTransform, error) {
	parts := strings.Split(v.GeoTransform, ",")
	if len(parts) != 6 {
		return raster.GeoTransform{}, fmt.Errorf("geotransform has %d terms, want 6", len(parts))
	}
	var g [6]float64
	for i, p := range parts {
		x, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return raster.GeoTransform{}, fmt.Errorf("geotransform term %d: %w", i, err)
		}
		g[i] = x
	}
	return raster.GeoTransform{OriginX: g[0], PixelWidth: g[1], OriginY: g[3], PixelHeight: g[5]}, nil
}

// EPSG returns the VRT's EPSG code, or 0 when none is set.
func (v *VRT) EPSG() (int, error) {
	if v.SRS == "" {
		return 0, nil
	}
	return raster.ParseSRS(v.SRS)
}

// SourcePaths resolves the source file names against the VRT location.
func (v *VRT) SourcePaths(vrtPath string) []string {
	out := make([]string, len(v.Band.Sources))
	for i, s := range v.Band.Sources {
		p := s.SourceFilename.Path
		if s.SourceFilename.RelativeToVRT == 1 {
			p = filepath.Join(filepath.Dir(vrtPath), p)
		}
		out[i] = p
	}
	return out
}

// inputInfo is what a VRT needs to know about one input raster.
type inputInfo struct {
	path          string
	width, height int
	transform     raster.GeoTransform
	epsg          int
}

// buildVRT lays the inputs out on a common north-up grid at the finest
// input resolution over the union of their extents.
func buildVRT(vrtPath string, inputs []inputInfo) (*VRT, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInputs
	}
	res := math.Inf(1)
	var ext raster.Extent
	for i, in := range inputs {
		res = math.Min(res, math.Abs(in.transform.PixelWidth))
		e := raster.New(in.width, in.height, in.transform, in.epsg).Extent()
		if i == 0 {
			ext = e
		} else {
			ext = ext.Union(e)
		}
	}
	if res <= 0 {
		return nil, fmt.Errorf("input %s has no pixel size", inputs[0].path)
	}

	v := &VRT{
		RasterXSize:  int(math.Round((ext.MaxE - ext.MinE) / res)),
		RasterYSize:  int(math.Round((ext.MaxN - ext.MinN) / res)),
		GeoTransform: formatTransform(raster.GeoTransform{OriginX: ext.MinE, PixelWidth: res, OriginY: ext.MaxN, PixelHeight: -res}),
		Band:         vrtBand{DataType: "Byte", Band: 1, NoDataValue: int(raster.NoData)},
	}
	if epsg := inputs[0].epsg; epsg > 0 {
		v.SRS = raster.SRS(epsg)
	}
	for _, in := range inputs {
		if in.epsg != inputs[0].epsg {
			return nil, fmt.Errorf("input %s is EPSG:%d, mosaic is EPSG:%d", in.path, in.epsg, inputs[0].epsg)
		}
		rel, err := filepath.Rel(filepath.Dir(vrtPath), in.path)
		name, relative := filepath.ToSlash(rel), 1
		if err != nil {
			name, relative = in.path, 0
		}
		v.Band.Sources = append(v.Band.Sources, vrtSource{
			Resampling:     "nearest",
			SourceFilename: vrtFilename{RelativeToVRT: relative, Path: name},
			SourceBand:     1,
			Properties:     vrtProperties{RasterXSize: in.width, RasterYSize: in.height, DataType: "Byte"},
			SrcRect:        vrtRect{XSize: in.width, YSize: in.height},
			DstRect: vrtRect{
				XOff:  int(math.Round((in.transform.OriginX - ext.MinE) / res)),
				YOff:  int(math.Round((ext.MaxN - in.transform.OriginY) / res)),
				XSize: int(math.Round(float64(in.width) * math.Abs(in.transform.PixelWidth) / res)),
				YSize: int(math.Round(float64(in.height) * math.Abs(in.transform.PixelHeight) / res)),
			},
			NoData: int(raster.NoData),
		})
	}
	return v, nil
}

func formatTransform(g raster.GeoTransform) string {
	terms := []float64{g.OriginX, g.PixelWidth, 0, g.OriginY, 0, g.PixelHeight}
	s := make([]string, len(terms))
	for i, t := range terms {
		s[i] = strconv.FormatFloat(t, 'g', -1, 64)
	}
	return strings.Join(s, ", ")
}

func marshalVRT(v *VRT) ([]byte, error) {
	out, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal vrt: %w", err)
	}
	return append(out, '\n'), nil
}

func unmarshalVRT(data []byte) (*VRT, error) {
	var v VRT
	if err := xml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse vrt: %w", err)
	}
	return &v, nil
}
