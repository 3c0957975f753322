package raster

import (
	"testing"

	"github.com/banshee-data/sonarmap/internal/fsutil"
	"github.com/banshee-data/sonarmap/internal/sonar"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Raster {
	r := New(4, 3, GeoTransform{OriginX: 1000, PixelWidth: 0.5, OriginY: 2000, PixelHeight: -0.5}, 32632)
	for i := range r.Pix {
		r.Pix[i] = uint8(i * 10)
	}
	return r
}

func TestGeoTransform(t *testing.T) {
	gt := GeoTransform{OriginX: 1000, PixelWidth: 0.5, OriginY: 2000, PixelHeight: -0.5}
	assert.Equal(t, sonar.Point{E: 1000.25, N: 1999.75}, gt.World(0.5, 0.5))
	col, row := gt.Pixel(sonar.Point{E: 1001, N: 1999})
	assert.InDelta(t, 2.0, col, 1e-12)
	assert.InDelta(t, 2.0, row, 1e-12)
}

func TestRaster_Basics(t *testing.T) {
	r := sample()
	assert.Equal(t, Extent{MinE: 1000, MinN: 1998.5, MaxE: 1002, MaxN: 2000}, r.Extent())
	assert.Equal(t, 11, r.ValidCount(), "pixel 0 holds NoData")
	assert.Equal(t, uint8(50), r.At(1, 1))
	assert.Equal(t, NoData, r.At(9, 9))
	r.Set(-1, 0, 7)

	u := Extent{MinE: 0, MinN: 0, MaxE: 1, MaxN: 1}.Union(Extent{MinE: -1, MinN: 0.5, MaxE: 0.5, MaxN: 3})
	assert.Equal(t, Extent{MinE: -1, MinN: 0, MaxE: 1, MaxN: 3}, u)
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	mem := fsutil.NewMemoryFileSystem()
	st := NewStore(mem)
	r := sample()

	require.NoError(t, st.Write("/proj/chunks/port_00000.tif", r))
	assert.Equal(t, []string{
		"/proj/chunks/port_00000.tfw",
		"/proj/chunks/port_00000.tif",
		"/proj/chunks/port_00000.tif.aux.xml",
	}, mem.Files())

	tfw, err := mem.ReadFile("/proj/chunks/port_00000.tfw")
	require.NoError(t, err)
	assert.Equal(t, "0.5\n0\n0\n-0.5\n1000.25\n1999.75\n", string(tfw))

	aux, err := mem.ReadFile("/proj/chunks/port_00000.tif.aux.xml")
	require.NoError(t, err)
	assert.Contains(t, string(aux), "<SRS>EPSG:32632</SRS>")
	assert.Contains(t, string(aux), "<NoDataValue>0</NoDataValue>")

	got, err := st.Read("/proj/chunks/port_00000.tif")
	require.NoError(t, err)
	if diff := cmp.Diff(r, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, st.Remove("/proj/chunks/port_00000.tif"))
	assert.Empty(t, mem.Files())
}

func TestStore_Errors(t *testing.T) {
	t.Parallel()

	st := NewStore(fsutil.NewMemoryFileSystem())
	assert.Error(t, st.Write("/x.tif", New(0, 0, GeoTransform{}, 0)))

	_, err := st.Read("/missing.tif")
	assert.Error(t, err)

	require.NoError(t, st.Write("/a.tif", sample()))
	require.NoError(t, st.FS.WriteFile("/a.tfw", []byte("1\n2\n3\n"), 0o644))
	_, err = st.Read("/a.tif")
	assert.ErrorContains(t, err, "want 6")
}

func TestStore_ReadWithoutAux(t *testing.T) {
	t.Parallel()

	mem := fsutil.NewMemoryFileSystem()
	st := NewStore(mem)
	require.NoError(t, st.Write("/a.tif", sample()))
	require.NoError(t, mem.Remove("/a.tif.aux.xml"))

	got, err := st.Read("/a.tif")
	require.NoError(t, err)
	assert.Zero(t, got.EPSG)
}

func TestDecimate(t *testing.T) {
	r := New(5, 4, GeoTransform{OriginX: 0, PixelWidth: 1, OriginY: 4, PixelHeight: -1}, 32601)
	for i := range r.Pix {
		r.Pix[i] = 1
	}
	d := r.Decimate(2)
	assert.Equal(t, 3, d.Width)
	assert.Equal(t, 2, d.Height)
	assert.Equal(t, 6, d.ValidCount())
	assert.InDelta(t, r.Extent().MaxE, d.Extent().MaxE, 1e-12, "extent is kept")
	assert.InDelta(t, r.Extent().MinN, d.Extent().MinN, 1e-12)
	assert.Equal(t, 32601, d.EPSG)
}

func TestParseSRS(t *testing.T) {
	n, err := ParseSRS(" EPSG:32756 ")
	require.NoError(t, err)
	assert.Equal(t, 32756, n)
	_, err = ParseSRS("WGS84")
	assert.Error(t, err)
	_, err = ParseSRS("EPSG:abc")
	assert.Error(t, err)
	assert.Equal(t, "EPSG:4326", SRS(4326))
}
