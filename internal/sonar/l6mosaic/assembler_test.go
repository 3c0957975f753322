package l6mosaic

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sonarmap/internal/config"
	"github.com/banshee-data/sonarmap/internal/fsutil"
	"github.com/banshee-data/sonarmap/internal/sonar"
	"github.com/banshee-data/sonarmap/internal/sonar/raster"
)

const testEPSG = 32632

func filled(t *testing.T, store *raster.Store, path string, originE, originN float64, w, h int, v uint8) *raster.Raster {
	t.Helper()
	r := raster.New(w, h, raster.GeoTransform{OriginX: originE, PixelWidth: 1, OriginY: originN, PixelHeight: -1}, testEPSG)
	for i := range r.Pix {
		r.Pix[i] = v
	}
	require.NoError(t, store.Write(path, r))
	return r
}

func newAssembler(mode string, overviews bool) (*Assembler, *fsutil.MemoryFileSystem) {
	fsys := fsutil.NewMemoryFileSystem()
	return NewAssembler(Config{Mode: mode, Grouping: config.GroupChannel, BuildOverviews: overviews}, fsys), fsys
}

func portJob() Job {
	return Jobs("rect", "mosaic", config.GroupChannel)[0]
}

func TestBuild_PixelConservation(t *testing.T) {
	a, _ := newAssembler(config.MosaicSingle, false)

	r0 := filled(t, a.store, "rect/port_00000.tif", 0, 10, 10, 10, 5)
	r1 := filled(t, a.store, "rect/port_00001.tif", 20, 10, 10, 10, 6)
	r2 := raster.New(10, 10, raster.GeoTransform{OriginX: 0, PixelWidth: 1, OriginY: 30, PixelHeight: -1}, testEPSG)
	for row := 0; row < 10; row += 2 {
		for col := 0; col < 10; col++ {
			r2.Set(col, row, 7)
		}
	}
	require.NoError(t, a.store.Write("rect/port_00002.tif", r2))

	out, err := a.Build(context.Background(), portJob())
	require.NoError(t, err)

	assert.Equal(t, "mosaic/port_mosaic.tif", out.Path)
	assert.Equal(t, 3, out.Inputs)
	assert.Equal(t, 30, out.Width)
	assert.Equal(t, 30, out.Height)
	assert.Equal(t, r0.ValidCount()+r1.ValidCount()+r2.ValidCount(), out.Valid)

	m, err := a.store.Read(out.Path)
	require.NoError(t, err)
	assert.Equal(t, out.Valid, m.ValidCount())
	assert.Equal(t, testEPSG, m.EPSG)
	assert.Equal(t, raster.GeoTransform{OriginX: 0, PixelWidth: 1, OriginY: 30, PixelHeight: -1}, m.Transform)
	assert.Equal(t, uint8(7), m.At(0, 0))
	assert.Equal(t, raster.NoData, m.At(0, 1))
	assert.Equal(t, uint8(5), m.At(0, 20))
	assert.Equal(t, uint8(6), m.At(29, 29))
	assert.Equal(t, raster.NoData, m.At(15, 25), "gap between inputs stays empty")
}

func TestBuild_LastWriteWins(t *testing.T) {
	a, _ := newAssembler(config.MosaicSingle, false)

	filled(t, a.store, "rect/port_00000.tif", 0, 10, 10, 10, 10)
	b := raster.New(10, 10, raster.GeoTransform{OriginX: 5, PixelWidth: 1, OriginY: 10, PixelHeight: -1}, testEPSG)
	for i := range b.Pix {
		b.Pix[i] = 20
	}
	b.Set(0, 0, raster.NoData)
	require.NoError(t, a.store.Write("rect/port_00001.tif", b))

	out, err := a.Build(context.Background(), portJob())
	require.NoError(t, err)
	require.Equal(t, 15, out.Width)
	require.Equal(t, 10, out.Height)

	m, err := a.store.Read(out.Path)
	require.NoError(t, err)
	for row := 0; row < 10; row++ {
		for col := 0; col < 15; col++ {
			want := uint8(20)
			switch {
			case col < 5:
				want = 10
			case col == 5 && row == 0:
				want = 10 // no-data in the later raster never overwrites
			}
			assert.Equal(t, want, m.At(col, row), "pixel (%d,%d)", col, row)
		}
	}
}

func TestBuild_TempVRTRemovedAndOverviews(t *testing.T) {
	a, fsys := newAssembler(config.MosaicSingle, true)
	filled(t, a.store, "rect/port_00000.tif", 0, 30, 30, 30, 9)

	out, err := a.Build(context.Background(), portJob())
	require.NoError(t, err)

	for _, f := range fsys.Files() {
		assert.False(t, strings.HasSuffix(f, ".vrt"), "leftover %s", f)
	}
	assert.Equal(t, []string{
		"mosaic/port_mosaic.ovr2.tif",
		"mosaic/port_mosaic.ovr4.tif",
		"mosaic/port_mosaic.ovr8.tif",
		"mosaic/port_mosaic.ovr16.tif",
	}, out.Overviews)

	ovr, err := a.store.Read(out.Overviews[0])
	require.NoError(t, err)
	assert.Equal(t, 15, ovr.Width)
	assert.Equal(t, 15, ovr.Height)
	assert.Equal(t, uint8(9), ovr.At(7, 7))
	assert.Contains(t, fsys.Files(), raster.WorldFilePath(out.Overviews[3]))
}

func TestBuild_Virtual(t *testing.T) {
	a, fsys := newAssembler(config.MosaicVirtual, true)
	filled(t, a.store, "rect/port_00000.tif", 0, 10, 10, 10, 10)
	filled(t, a.store, "rect/port_00001.tif", 5, 10, 10, 10, 20)

	out, err := a.Build(context.Background(), portJob())
	require.NoError(t, err)
	assert.Equal(t, "mosaic/port_mosaic.vrt", out.Path)
	assert.Empty(t, out.Overviews)
	assert.NotContains(t, fsys.Files(), "mosaic/port_mosaic.tif")

	v, err := a.ReadVRT(out.Path)
	require.NoError(t, err)
	assert.Equal(t, 15, v.RasterXSize)
	assert.Equal(t, 10, v.RasterYSize)
	assert.Equal(t, "EPSG:32632", v.SRS)
	require.Len(t, v.Band.Sources, 2)
	assert.Equal(t, "../rect/port_00000.tif", v.Band.Sources[0].SourceFilename.Path)
	assert.Equal(t, "nearest", v.Band.Sources[0].Resampling)
	assert.Equal(t, vrtRect{XOff: 5, YOff: 0, XSize: 10, YSize: 10}, v.Band.Sources[1].DstRect)
	assert.Equal(t, []string{"rect/port_00000.tif", "rect/port_00001.tif"}, v.SourcePaths(out.Path))

	m, err := a.Materialise(context.Background(), out.Path)
	require.NoError(t, err)
	assert.Equal(t, uint8(10), m.At(4, 3))
	assert.Equal(t, uint8(20), m.At(5, 3))
}

func TestBuild_MixedResolution(t *testing.T) {
	a, _ := newAssembler(config.MosaicSingle, false)
	filled(t, a.store, "rect/port_00000.tif", 0, 10, 10, 10, 10)
	coarse := raster.New(5, 5, raster.GeoTransform{OriginX: 10, PixelWidth: 2, OriginY: 10, PixelHeight: -2}, testEPSG)
	for i := range coarse.Pix {
		coarse.Pix[i] = 30
	}
	require.NoError(t, a.store.Write("rect/port_00001.tif", coarse))

	out, err := a.Build(context.Background(), portJob())
	require.NoError(t, err)
	assert.Equal(t, 20, out.Width, "finest resolution wins")
	assert.Equal(t, 200, out.Valid)
}

func TestBuild_Errors(t *testing.T) {
	t.Run("no inputs", func(t *testing.T) {
		a, _ := newAssembler(config.MosaicSingle, false)
		_, err := a.Build(context.Background(), portJob())
		assert.True(t, errors.Is(err, ErrNoInputs))
	})

	t.Run("mixed crs", func(t *testing.T) {
		a, _ := newAssembler(config.MosaicSingle, false)
		filled(t, a.store, "rect/port_00000.tif", 0, 10, 10, 10, 10)
		r := raster.New(4, 4, raster.GeoTransform{OriginX: 0, PixelWidth: 1, OriginY: 10, PixelHeight: -1}, 32633)
		require.NoError(t, a.store.Write("rect/port_00001.tif", r))
		_, err := a.Build(context.Background(), portJob())
		assert.ErrorContains(t, err, "EPSG:32633")
	})

	t.Run("cancelled", func(t *testing.T) {
		a, _ := newAssembler(config.MosaicSingle, false)
		filled(t, a.store, "rect/port_00000.tif", 0, 10, 10, 10, 10)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := a.Build(ctx, portJob())
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("off", func(t *testing.T) {
		a, _ := newAssembler(config.MosaicOff, false)
		out, err := a.Build(context.Background(), portJob())
		assert.NoError(t, err)
		assert.Nil(t, out)
	})
}

func TestInputs_PairIsLexical(t *testing.T) {
	a, _ := newAssembler(config.MosaicSingle, false)
	for _, name := range []string{"star_00001.tif", "port_00001.tif", "star_00000.tif", "port_00000.tif"} {
		filled(t, a.store, filepath.Join("rect", name), 0, 10, 2, 2, 1)
	}
	pair := Jobs("rect", "mosaic", config.GroupPair)[0]
	paths, err := a.Inputs(pair)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"rect/port_00000.tif", "rect/port_00001.tif",
		"rect/star_00000.tif", "rect/star_00001.tif",
	}, paths)
}

func TestJobs(t *testing.T) {
	names := func(jobs []Job) []string {
		var out []string
		for _, j := range jobs {
			out = append(out, j.Name)
		}
		return out
	}
	assert.Equal(t, []string{"port", "star"}, names(Jobs("r", "m", config.GroupChannel)))
	assert.Equal(t, []string{"ss"}, names(Jobs("r", "m", config.GroupPair)))
	assert.Equal(t, []string{"port", "star", "ss"}, names(Jobs("r", "m", config.GroupBoth)))
	assert.Equal(t, "m/star_mosaic", Jobs("r", "m", config.GroupChannel)[1].Output)
}

func TestChunkRasterName(t *testing.T) {
	assert.Equal(t, "port_00007.tif", ChunkRasterName(sonar.Port, 7))
	assert.Equal(t, "star_00123.tif", ChunkRasterName(sonar.Starboard, 123))
}

func TestConfig(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{Mode: "tiles", Grouping: config.GroupChannel}.Validate())
	assert.Error(t, Config{Mode: config.MosaicSingle, Grouping: "all"}.Validate())

	cfg := ConfigFromProcessing(config.EmptyProcessingConfig())
	assert.Equal(t, DefaultConfig(), cfg)
}
