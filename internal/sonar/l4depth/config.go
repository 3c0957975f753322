package l4depth

import (
	"fmt"

	"github.com/banshee-data/sonarmap/internal/config"
)

// Config tunes the reconciler.
type Config struct {
	Smooth         bool
	SmoothWindow   int     // odd Savitzky–Golay window (default: 51)
	SmoothOrder    int     // polynomial order (default: 3)
	OutlierStdDevs float64 // rejection distance from the window median (default: 2)
	OutlierWindow  int     // pings per rejection window; 0 uses the whole series
	MaxGapPings    int     // longer undetected runs fall back to the instrument (default: 50)
	PixelOffset    int     // constant rows added after smoothing
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Smooth:         true,
		SmoothWindow:   51,
		SmoothOrder:    3,
		OutlierStdDevs: 2,
		OutlierWindow:  500,
		MaxGapPings:    50,
	}
}

// ConfigFromProcessing builds a Config from a loaded ProcessingConfig.
func ConfigFromProcessing(cfg *config.ProcessingConfig) Config {
	return Config{
		Smooth:         cfg.GetSmoothDepth(),
		SmoothWindow:   cfg.GetSmoothWindow(),
		SmoothOrder:    cfg.GetSmoothOrder(),
		OutlierStdDevs: cfg.GetOutlierStdDevs(),
		OutlierWindow:  cfg.GetOutlierWindow(),
		MaxGapPings:    cfg.GetMaxGapPings(),
		PixelOffset:    cfg.GetPixelOffset(),
	}
}

// Validate checks the reconciler settings.
func (c Config) Validate() error {
	if c.Smooth {
		if c.SmoothWindow < 3 || c.SmoothWindow%2 == 0 {
			return fmt.Errorf("smoothing window must be odd and at least 3, got %d", c.SmoothWindow)
		}
		if c.SmoothOrder < 0 || c.SmoothOrder >= c.SmoothWindow {
			return fmt.Errorf("smoothing order %d must be below window %d", c.SmoothOrder, c.SmoothWindow)
		}
	}
	if c.OutlierStdDevs < 0 {
		return fmt.Errorf("outlier std devs must be non-negative, got %f", c.OutlierStdDevs)
	}
	if c.MaxGapPings < 0 {
		return fmt.Errorf("max gap must be non-negative, got %d", c.MaxGapPings)
	}
	return nil
}
