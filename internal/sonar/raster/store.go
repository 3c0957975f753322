package raster

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/sonarmap/internal/fsutil"
	"golang.org/x/image/tiff"
)

// WorldFilePath returns the .tfw path for a TIFF path.
func WorldFilePath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".tfw"
}

// AuxPath returns the GDAL PAM sidecar path for a raster path.
func AuxPath(path string) string { return path + ".aux.xml" }

// Store reads and writes rasters through a FileSystem.
type Store struct {
	FS fsutil.FileSystem
}

// NewStore returns a Store on the given filesystem.
func NewStore(fsys fsutil.FileSystem) *Store {
	return &Store{FS: fsys}
}

// Write encodes the raster as a Deflate TIFF with its world file and PAM
// sidecar, creating the parent directory.
func (s *Store) Write(path string, r *Raster) error {
	if r.Width == 0 || r.Height == 0 {
		return fmt.Errorf("write %s: empty raster", path)
	}
	if err := s.FS.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, r.Gray(), &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := s.FS.WriteFile(WorldFilePath(path), worldFile(r.Transform), 0o644); err != nil {
		return fmt.Errorf("write world file: %w", err)
	}
	aux, err := pamSidecar(r.EPSG)
	if err != nil {
		return err
	}
	if err := s.FS.WriteFile(AuxPath(path), aux, 0o644); err != nil {
		return fmt.Errorf("write aux sidecar: %w", err)
	}
	// The TIFF lands last so a globbed raster always has its sidecars.
	if err := fsutil.WriteAtomic(s.FS, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Read decodes a raster written by Write.
func (s *Store) Read(path string) (*Raster, error) {
	data, err := s.FS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		gray = image.NewGray(img.Bounds())
		draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)
	}
	b := gray.Bounds()
	r := &Raster{Width: b.Dx(), Height: b.Dy(), Pix: make([]uint8, b.Dx()*b.Dy())}
	for y := 0; y < r.Height; y++ {
		off := gray.PixOffset(b.Min.X, b.Min.Y+y)
		copy(r.Pix[y*r.Width:(y+1)*r.Width], gray.Pix[off:off+r.Width])
	}

	tfw, err := s.FS.ReadFile(WorldFilePath(path))
	if err != nil {
		return nil, fmt.Errorf("read world file for %s: %w", path, err)
	}
	if r.Transform, err = parseWorldFile(tfw); err != nil {
		return nil, fmt.Errorf("%s: %w", WorldFilePath(path), err)
	}

	aux, err := s.FS.ReadFile(AuxPath(path))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read aux sidecar for %s: %w", path, err)
	default:
		if r.EPSG, err = parsePAM(aux); err != nil {
			return nil, fmt.Errorf("%s: %w", AuxPath(path), err)
		}
	}
	return r, nil
}

// Remove deletes a raster and its sidecars. Missing sidecars are ignored.
func (s *Store) Remove(path string) error {
	if err := s.FS.Remove(path); err != nil {
		return err
	}
	for _, p := range []string{WorldFilePath(path), AuxPath(path)} {
		if err := s.FS.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// worldFile renders the six-line ESRI world file. Its origin is the
// centre of the top-left pixel.
func worldFile(gt GeoTransform) []byte {
	lines := []float64{
		gt.PixelWidth, 0, 0, gt.PixelHeight,
		gt.OriginX + gt.PixelWidth/2,
		gt.OriginY + gt.PixelHeight/2,
	}
	var b strings.Builder
	for _, v := range lines {
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func parseWorldFile(data []byte) (GeoTransform, error) {
	fields := strings.Fields(string(data))
	if len(fields) != 6 {
		return GeoTransform{}, fmt.Errorf("world file has %d values, want 6", len(fields))
	}
	var v [6]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return GeoTransform{}, fmt.Errorf("world file value %d: %w", i+1, err)
		}
		v[i] = x
	}
	if v[1] != 0 || v[2] != 0 {
		return GeoTransform{}, fmt.Errorf("rotated world files are not supported")
	}
	return GeoTransform{
		PixelWidth:  v[0],
		PixelHeight: v[3],
		OriginX:     v[4] - v[0]/2,
		OriginY:     v[5] - v[3]/2,
	}, nil
}

type pamDataset struct {
	XMLName xml.Name  `xml:"PAMDataset"`
	SRS     string    `xml:"SRS,omitempty"`
	Bands   []pamBand `xml:"PAMRasterBand"`
}

type pamBand struct {
	Band        int    `xml:"band,attr"`
	NoDataValue string `xml:"NoDataValue"`
}

func pamSidecar(epsg int) ([]byte, error) {
	doc := pamDataset{Bands: []pamBand{{Band: 1, NoDataValue: strconv.Itoa(int(NoData))}}}
	if epsg > 0 {
		doc.SRS = SRS(epsg)
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal aux sidecar: %w", err)
	}
	return append(out, '\n'), nil
}

func parsePAM(data []byte) (int, error) {
	var doc pamDataset
	if err := xml.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("parse aux sidecar: %w", err)
	}
	if doc.SRS == "" {
		return 0, nil
	}
	return ParseSRS(doc.SRS)
}

// SRS renders an EPSG code in the form GDAL accepts as user input.
func SRS(epsg int) string { return "EPSG:" + strconv.Itoa(epsg) }

// ParseSRS extracts the code from an "EPSG:nnnn" string.
func ParseSRS(s string) (int, error) {
	code, ok := strings.CutPrefix(strings.TrimSpace(s), "EPSG:")
	if !ok {
		return 0, fmt.Errorf("unsupported SRS %q", s)
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0, fmt.Errorf("unsupported SRS %q: %w", s, err)
	}
	return n, nil
}
