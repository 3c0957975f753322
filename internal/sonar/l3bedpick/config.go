package l3bedpick

import (
	"fmt"

	"github.com/banshee-data/sonarmap/internal/config"
)

// Config tunes the bed picker.
type Config struct {
	Mode            string  // instrument, threshold, model or hybrid
	BandMarginRows  int     // rows searched either side of the instrument depth range (default: 50)
	BlurSigma       float64 // Gaussian sigma in pixels; 0 disables (default: 1.0)
	MinRegionFactor float64 // regions smaller than factor × band rows are removed (default: 2.0)
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Mode:            config.DepthModeThreshold,
		BandMarginRows:  50,
		BlurSigma:       1.0,
		MinRegionFactor: 2.0,
	}
}

// ConfigFromProcessing builds a Config from a loaded ProcessingConfig.
func ConfigFromProcessing(cfg *config.ProcessingConfig) Config {
	return Config{
		Mode:            cfg.GetDepthMode(),
		BandMarginRows:  cfg.GetBandMarginRows(),
		BlurSigma:       cfg.GetBlurSigma(),
		MinRegionFactor: cfg.GetMinRegionFactor(),
	}
}

// Validate checks the picker settings.
func (c Config) Validate() error {
	switch c.Mode {
	case config.DepthModeInstrument, config.DepthModeThreshold, config.DepthModeModel, config.DepthModeHybrid:
	default:
		return fmt.Errorf("unknown depth mode %q", c.Mode)
	}
	if c.BandMarginRows < 0 {
		return fmt.Errorf("band margin must be non-negative, got %d", c.BandMarginRows)
	}
	if c.BlurSigma < 0 {
		return fmt.Errorf("blur sigma must be non-negative, got %f", c.BlurSigma)
	}
	if c.MinRegionFactor < 0 {
		return fmt.Errorf("min region factor must be non-negative, got %f", c.MinRegionFactor)
	}
	return nil
}
