package l5rectify

import (
	"fmt"

	"github.com/banshee-data/sonarmap/internal/config"
)

// Config tunes rectification.
type Config struct {
	RemoveWaterColumn bool
	SpeedCorrection   string  // off, gps or fixed
	SpeedFactor       float64 // along-track stretch for fixed mode
	ControlPointStep  int     // pings between control points (default: 50)
	ResampleFactor    float64 // output resolution is pixel size / factor
	Interpolation     string  // nearest or bilinear
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		RemoveWaterColumn: true,
		SpeedCorrection:   config.SpeedCorrectionOff,
		SpeedFactor:       1,
		ControlPointStep:  50,
		ResampleFactor:    1,
		Interpolation:     config.InterpNearest,
	}
}

// ConfigFromProcessing builds a Config from a loaded ProcessingConfig.
func ConfigFromProcessing(cfg *config.ProcessingConfig) Config {
	return Config{
		RemoveWaterColumn: cfg.GetRemoveWaterColumn(),
		SpeedCorrection:   cfg.GetSpeedCorrection(),
		SpeedFactor:       cfg.GetSpeedFactor(),
		ControlPointStep:  cfg.GetControlPointStep(),
		ResampleFactor:    cfg.GetResampleFactor(),
		Interpolation:     cfg.GetInterpolation(),
	}
}

// Validate checks the rectification settings.
func (c Config) Validate() error {
	switch c.SpeedCorrection {
	case config.SpeedCorrectionOff, config.SpeedCorrectionGPS:
	case config.SpeedCorrectionFixed:
		if c.SpeedFactor <= 0 {
			return fmt.Errorf("speed factor must be positive, got %f", c.SpeedFactor)
		}
	default:
		return fmt.Errorf("unknown speed correction %q", c.SpeedCorrection)
	}
	if c.ControlPointStep < 1 {
		return fmt.Errorf("control point step must be at least 1, got %d", c.ControlPointStep)
	}
	if c.ResampleFactor <= 0 {
		return fmt.Errorf("resample factor must be positive, got %f", c.ResampleFactor)
	}
	if c.Interpolation != config.InterpNearest && c.Interpolation != config.InterpBilinear {
		return fmt.Errorf("unknown interpolation %q", c.Interpolation)
	}
	return nil
}
