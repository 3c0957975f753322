package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	project := filepath.Join(tmpDir, "project")
	outside := filepath.Join(tmpDir, "outside")
	require.NoError(t, os.MkdirAll(project, 0o755))
	require.NoError(t, os.MkdirAll(outside, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "port_mosaic.tif"), []byte("x"), 0o644))

	link := filepath.Join(project, "rect")
	require.NoError(t, os.Symlink(outside, link))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "file in project", path: filepath.Join(project, "sonarmap.db")},
		{name: "nested new file", path: filepath.Join(project, "mosaic", "port_mosaic.tif")},
		{name: "dot dot", path: filepath.Join(project, "..", "x.tif"), wantErr: true},
		{name: "relative escape", path: "../../../etc/passwd", wantErr: true},
		{name: "absolute outside", path: "/etc/passwd", wantErr: true},
		{name: "through symlink", path: filepath.Join(link, "port_mosaic.tif"), wantErr: true},
		{name: "new file under symlink", path: filepath.Join(link, "new", "star_00001.tif"), wantErr: true},
		{name: "symlink itself", path: link, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, project)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePathWithinDirectory_MissingDir(t *testing.T) {
	err := ValidatePathWithinDirectory("a.tif", filepath.Join(t.TempDir(), "nope"))
	assert.ErrorContains(t, err, "symlinks")
}

func TestProjectPath(t *testing.T) {
	project := t.TempDir()

	got, err := ProjectPath(project, "rect", "port_00000.tif")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(project, "rect", "port_00000.tif"), got)

	_, err = ProjectPath(project, "..", "escape.tif")
	assert.ErrorContains(t, err, "path traversal")
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "unknown"},
		{"lake survey 2024", "lake_survey_2024"},
		{"../../etc", "etc"},
		{"a//b??c", "a_b_c"},
		{"Rec_00012.sl3", "Rec_00012.sl3"},
		{"___", "unknown"},
		{"åland-line-3", "land-line-3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), tt.in)
	}

	long := SanitizeFilename(strings.Repeat("x", 300))
	assert.Len(t, long, 128)
}
