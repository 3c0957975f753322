package l6mosaic

import (
	"fmt"
	"path/filepath"

	"github.com/banshee-data/sonarmap/internal/config"
	"github.com/banshee-data/sonarmap/internal/sonar"
)

// Config selects the mosaic products.
type Config struct {
	Mode           string // off, single or virtual
	Grouping       string // channel, pair or both
	BuildOverviews bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Mode:           config.MosaicSingle,
		Grouping:       config.GroupChannel,
		BuildOverviews: true,
	}
}

// ConfigFromProcessing builds a Config from a loaded ProcessingConfig.
func ConfigFromProcessing(cfg *config.ProcessingConfig) Config {
	return Config{
		Mode:           cfg.GetMosaicMode(),
		Grouping:       cfg.GetMosaicGrouping(),
		BuildOverviews: cfg.GetBuildOverviews(),
	}
}

// Validate checks the mosaic settings.
func (c Config) Validate() error {
	switch c.Mode {
	case config.MosaicOff, config.MosaicSingle, config.MosaicVirtual:
	default:
		return fmt.Errorf("unknown mosaic mode %q", c.Mode)
	}
	switch c.Grouping {
	case config.GroupChannel, config.GroupPair, config.GroupBoth:
	default:
		return fmt.Errorf("unknown mosaic grouping %q", c.Grouping)
	}
	return nil
}

// ChunkRasterName is the file name of one rectified chunk raster.
func ChunkRasterName(b sonar.Beam, chunkID int) string {
	return fmt.Sprintf("%s_%05d.tif", b.Short(), chunkID)
}

// Job is one mosaic product: the glob patterns of its inputs and the
// output path without extension.
type Job struct {
	Name     string
	Patterns []string
	Output   string
}

// Jobs lists the mosaic products for a grouping. Channel mosaics are named
// after the beam ("port", "star"); the pair mosaic is "ss".
func Jobs(rectDir, mosaicDir, grouping string) []Job {
	channel := func(b sonar.Beam) Job {
		return Job{
			Name:     b.Short(),
			Patterns: []string{filepath.Join(rectDir, b.Short()+"_*.tif")},
			Output:   filepath.Join(mosaicDir, b.Short()+"_mosaic"),
		}
	}
	pair := Job{
		Name: "ss",
		Patterns: []string{
			filepath.Join(rectDir, sonar.Port.Short()+"_*.tif"),
			filepath.Join(rectDir, sonar.Starboard.Short()+"_*.tif"),
		},
		Output: filepath.Join(mosaicDir, "ss_mosaic"),
	}

	var jobs []Job
	if grouping == config.GroupChannel || grouping == config.GroupBoth {
		jobs = append(jobs, channel(sonar.Port), channel(sonar.Starboard))
	}
	if grouping == config.GroupPair || grouping == config.GroupBoth {
		jobs = append(jobs, pair)
	}
	return jobs
}
