package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical processing defaults file.
// This is the single source of truth for all default processing values.
const DefaultConfigPath = "config/processing.defaults.json"

// Depth detection modes.
const (
	DepthModeInstrument = "instrument"
	DepthModeThreshold  = "threshold"
	DepthModeModel      = "model"
	DepthModeHybrid     = "hybrid"
)

// Speed correction modes.
const (
	SpeedCorrectionOff   = "off"
	SpeedCorrectionGPS   = "gps"
	SpeedCorrectionFixed = "fixed"
)

// Mosaic modes.
const (
	MosaicOff     = "off"
	MosaicSingle  = "single"
	MosaicVirtual = "virtual"
)

// Mosaic groupings.
const (
	GroupChannel = "channel"
	GroupPair    = "pair"
	GroupBoth    = "both"
)

// Interpolation kernels for rectification.
const (
	InterpNearest  = "nearest"
	InterpBilinear = "bilinear"
)

// ProcessingConfig is the operator-facing configuration for one processing
// run. Every field is optional; the Get* accessors supply defaults so a
// partial file is always safe.
type ProcessingConfig struct {
	// Chunking
	ChunkSize *int `json:"chunk_size,omitempty" yaml:"chunk_size,omitempty"`

	// Bed picking
	DepthMode       *string  `json:"depth_mode,omitempty" yaml:"depth_mode,omitempty"`
	BandMarginRows  *int     `json:"band_margin_rows,omitempty" yaml:"band_margin_rows,omitempty"`
	BlurSigma       *float64 `json:"blur_sigma,omitempty" yaml:"blur_sigma,omitempty"`
	MinRegionFactor *float64 `json:"min_region_factor,omitempty" yaml:"min_region_factor,omitempty"`

	// Depth reconciliation
	SmoothDepth    *bool    `json:"smooth_depth,omitempty" yaml:"smooth_depth,omitempty"`
	SmoothWindow   *int     `json:"smooth_window,omitempty" yaml:"smooth_window,omitempty"`
	SmoothOrder    *int     `json:"smooth_order,omitempty" yaml:"smooth_order,omitempty"`
	OutlierStdDevs *float64 `json:"outlier_stddevs,omitempty" yaml:"outlier_stddevs,omitempty"`
	OutlierWindow  *int     `json:"outlier_window,omitempty" yaml:"outlier_window,omitempty"` // 0 means chunk_size
	MaxGapPings    *int     `json:"max_gap_pings,omitempty" yaml:"max_gap_pings,omitempty"`
	PixelOffset    *int     `json:"pixel_offset,omitempty" yaml:"pixel_offset,omitempty"`

	// Navigation
	NavSmoothingWindow *int `json:"nav_smoothing_window,omitempty" yaml:"nav_smoothing_window,omitempty"`

	// Rectification
	RemoveWaterColumn *bool    `json:"remove_water_column,omitempty" yaml:"remove_water_column,omitempty"`
	SpeedCorrection   *string  `json:"speed_correction,omitempty" yaml:"speed_correction,omitempty"`
	SpeedFactor       *float64 `json:"speed_factor,omitempty" yaml:"speed_factor,omitempty"`
	ControlPointStep  *int     `json:"control_point_step,omitempty" yaml:"control_point_step,omitempty"`
	ResampleFactor    *float64 `json:"resample_factor,omitempty" yaml:"resample_factor,omitempty"`
	Interpolation     *string  `json:"interpolation,omitempty" yaml:"interpolation,omitempty"`

	// Mosaic
	MosaicMode     *string `json:"mosaic_mode,omitempty" yaml:"mosaic_mode,omitempty"`
	MosaicGrouping *string `json:"mosaic_grouping,omitempty" yaml:"mosaic_grouping,omitempty"`
	BuildOverviews *bool   `json:"build_overviews,omitempty" yaml:"build_overviews,omitempty"`

	// Workers
	Threads *int `json:"threads,omitempty" yaml:"threads,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyProcessingConfig returns a ProcessingConfig with all fields nil.
func EmptyProcessingConfig() *ProcessingConfig {
	return &ProcessingConfig{}
}

// DefaultProcessingConfig returns a config with every field populated
// from the built-in defaults. It mirrors config/processing.defaults.json.
func DefaultProcessingConfig() *ProcessingConfig {
	c := EmptyProcessingConfig()
	return &ProcessingConfig{
		ChunkSize:          ptrInt(c.GetChunkSize()),
		DepthMode:          ptrString(c.GetDepthMode()),
		BandMarginRows:     ptrInt(c.GetBandMarginRows()),
		BlurSigma:          ptrFloat64(c.GetBlurSigma()),
		MinRegionFactor:    ptrFloat64(c.GetMinRegionFactor()),
		SmoothDepth:        ptrBool(c.GetSmoothDepth()),
		SmoothWindow:       ptrInt(c.GetSmoothWindow()),
		SmoothOrder:        ptrInt(c.GetSmoothOrder()),
		OutlierStdDevs:     ptrFloat64(c.GetOutlierStdDevs()),
		OutlierWindow:      ptrInt(0),
		MaxGapPings:        ptrInt(c.GetMaxGapPings()),
		PixelOffset:        ptrInt(c.GetPixelOffset()),
		NavSmoothingWindow: ptrInt(c.GetNavSmoothingWindow()),
		RemoveWaterColumn:  ptrBool(c.GetRemoveWaterColumn()),
		SpeedCorrection:    ptrString(c.GetSpeedCorrection()),
		SpeedFactor:        ptrFloat64(c.GetSpeedFactor()),
		ControlPointStep:   ptrInt(c.GetControlPointStep()),
		ResampleFactor:     ptrFloat64(c.GetResampleFactor()),
		Interpolation:      ptrString(c.GetInterpolation()),
		MosaicMode:         ptrString(c.GetMosaicMode()),
		MosaicGrouping:     ptrString(c.GetMosaicGrouping()),
		BuildOverviews:     ptrBool(c.GetBuildOverviews()),
		Threads:            ptrInt(c.GetThreads()),
	}
}

// LoadProcessingConfig loads a ProcessingConfig from a JSON or YAML file.
// The file must have a .json, .yaml or .yml extension and be under 1MB.
// Fields omitted from the file fall back to their defaults.
func LoadProcessingConfig(path string) (*ProcessingConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyProcessingConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *ProcessingConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,          // from internal/config/
		"../../../" + DefaultConfigPath,       // from internal/sonar/pipeline/
		"../../../../" + DefaultConfigPath,    // from internal/sonar/storage/sqlite/
		"../../../../../" + DefaultConfigPath, // even deeper
	}
	for _, path := range candidates {
		if cfg, err := LoadProcessingConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that any values which are set are usable.
func (c *ProcessingConfig) Validate() error {
	if c.ChunkSize != nil && *c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", *c.ChunkSize)
	}
	if c.DepthMode != nil {
		switch *c.DepthMode {
		case DepthModeInstrument, DepthModeThreshold, DepthModeModel, DepthModeHybrid:
		default:
			return fmt.Errorf("depth_mode must be one of instrument, threshold, model, hybrid; got %q", *c.DepthMode)
		}
	}
	if c.BandMarginRows != nil && *c.BandMarginRows < 0 {
		return fmt.Errorf("band_margin_rows must be non-negative, got %d", *c.BandMarginRows)
	}
	if c.BlurSigma != nil && *c.BlurSigma < 0 {
		return fmt.Errorf("blur_sigma must be non-negative, got %f", *c.BlurSigma)
	}
	if c.MinRegionFactor != nil && *c.MinRegionFactor < 0 {
		return fmt.Errorf("min_region_factor must be non-negative, got %f", *c.MinRegionFactor)
	}
	if c.SmoothWindow != nil && (*c.SmoothWindow < 3 || *c.SmoothWindow%2 == 0) {
		return fmt.Errorf("smooth_window must be an odd number >= 3, got %d", *c.SmoothWindow)
	}
	if c.SmoothOrder != nil && *c.SmoothOrder < 0 {
		return fmt.Errorf("smooth_order must be non-negative, got %d", *c.SmoothOrder)
	}
	if c.SmoothWindow != nil && c.SmoothOrder != nil && *c.SmoothOrder >= *c.SmoothWindow {
		return fmt.Errorf("smooth_order (%d) must be less than smooth_window (%d)", *c.SmoothOrder, *c.SmoothWindow)
	}
	if c.OutlierStdDevs != nil && *c.OutlierStdDevs <= 0 {
		return fmt.Errorf("outlier_stddevs must be positive, got %f", *c.OutlierStdDevs)
	}
	if c.OutlierWindow != nil && *c.OutlierWindow < 0 {
		return fmt.Errorf("outlier_window must be non-negative, got %d", *c.OutlierWindow)
	}
	if c.MaxGapPings != nil && *c.MaxGapPings < 0 {
		return fmt.Errorf("max_gap_pings must be non-negative, got %d", *c.MaxGapPings)
	}
	if c.NavSmoothingWindow != nil && *c.NavSmoothingWindow < 1 {
		return fmt.Errorf("nav_smoothing_window must be at least 1, got %d", *c.NavSmoothingWindow)
	}
	if c.SpeedCorrection != nil {
		switch *c.SpeedCorrection {
		case SpeedCorrectionOff, SpeedCorrectionGPS, SpeedCorrectionFixed:
		default:
			return fmt.Errorf("speed_correction must be one of off, gps, fixed; got %q", *c.SpeedCorrection)
		}
	}
	if c.SpeedFactor != nil && *c.SpeedFactor <= 0 {
		return fmt.Errorf("speed_factor must be positive, got %f", *c.SpeedFactor)
	}
	if c.ControlPointStep != nil && *c.ControlPointStep < 1 {
		return fmt.Errorf("control_point_step must be at least 1, got %d", *c.ControlPointStep)
	}
	if c.ResampleFactor != nil && *c.ResampleFactor <= 0 {
		return fmt.Errorf("resample_factor must be positive, got %f", *c.ResampleFactor)
	}
	if c.Interpolation != nil && *c.Interpolation != InterpNearest && *c.Interpolation != InterpBilinear {
		return fmt.Errorf("interpolation must be nearest or bilinear, got %q", *c.Interpolation)
	}
	if c.MosaicMode != nil {
		switch *c.MosaicMode {
		case MosaicOff, MosaicSingle, MosaicVirtual:
		default:
			return fmt.Errorf("mosaic_mode must be one of off, single, virtual; got %q", *c.MosaicMode)
		}
	}
	if c.MosaicGrouping != nil {
		switch *c.MosaicGrouping {
		case GroupChannel, GroupPair, GroupBoth:
		default:
			return fmt.Errorf("mosaic_grouping must be one of channel, pair, both; got %q", *c.MosaicGrouping)
		}
	}
	return nil
}

// GetChunkSize returns the chunk_size value or the default.
func (c *ProcessingConfig) GetChunkSize() int {
	if c.ChunkSize == nil {
		return 500
	}
	return *c.ChunkSize
}

// GetDepthMode returns the depth_mode value or the default.
func (c *ProcessingConfig) GetDepthMode() string {
	if c.DepthMode == nil || *c.DepthMode == "" {
		return DepthModeThreshold
	}
	return *c.DepthMode
}

// GetBandMarginRows returns the band_margin_rows value or the default.
func (c *ProcessingConfig) GetBandMarginRows() int {
	if c.BandMarginRows == nil {
		return 50
	}
	return *c.BandMarginRows
}

// GetBlurSigma returns the blur_sigma value or the default.
func (c *ProcessingConfig) GetBlurSigma() float64 {
	if c.BlurSigma == nil {
		return 1.0
	}
	return *c.BlurSigma
}

// GetMinRegionFactor returns the min_region_factor value or the default.
func (c *ProcessingConfig) GetMinRegionFactor() float64 {
	if c.MinRegionFactor == nil {
		return 2.0
	}
	return *c.MinRegionFactor
}

// GetSmoothDepth returns the smooth_depth value or the default.
func (c *ProcessingConfig) GetSmoothDepth() bool {
	if c.SmoothDepth == nil {
		return true
	}
	return *c.SmoothDepth
}

// GetSmoothWindow returns the smooth_window value or the default.
func (c *ProcessingConfig) GetSmoothWindow() int {
	if c.SmoothWindow == nil {
		return 51
	}
	return *c.SmoothWindow
}

// GetSmoothOrder returns the smooth_order value or the default.
func (c *ProcessingConfig) GetSmoothOrder() int {
	if c.SmoothOrder == nil {
		return 3
	}
	return *c.SmoothOrder
}

// GetOutlierStdDevs returns the outlier_stddevs value or the default.
func (c *ProcessingConfig) GetOutlierStdDevs() float64 {
	if c.OutlierStdDevs == nil {
		return 2.0
	}
	return *c.OutlierStdDevs
}

// GetOutlierWindow returns the outlier sub-window length in pings.
// Zero or unset follows the chunk size.
func (c *ProcessingConfig) GetOutlierWindow() int {
	if c.OutlierWindow == nil || *c.OutlierWindow == 0 {
		return c.GetChunkSize()
	}
	return *c.OutlierWindow
}

// GetMaxGapPings returns the max_gap_pings value or the default.
func (c *ProcessingConfig) GetMaxGapPings() int {
	if c.MaxGapPings == nil {
		return 50
	}
	return *c.MaxGapPings
}

// GetPixelOffset returns the pixel_offset value or the default.
func (c *ProcessingConfig) GetPixelOffset() int {
	if c.PixelOffset == nil {
		return 0
	}
	return *c.PixelOffset
}

// GetNavSmoothingWindow returns the nav_smoothing_window value or the default.
func (c *ProcessingConfig) GetNavSmoothingWindow() int {
	if c.NavSmoothingWindow == nil {
		return 5
	}
	return *c.NavSmoothingWindow
}

// GetRemoveWaterColumn returns the remove_water_column value or the default.
func (c *ProcessingConfig) GetRemoveWaterColumn() bool {
	if c.RemoveWaterColumn == nil {
		return true
	}
	return *c.RemoveWaterColumn
}

// GetSpeedCorrection returns the speed_correction value or the default.
func (c *ProcessingConfig) GetSpeedCorrection() string {
	if c.SpeedCorrection == nil || *c.SpeedCorrection == "" {
		return SpeedCorrectionOff
	}
	return *c.SpeedCorrection
}

// GetSpeedFactor returns the speed_factor value or the default.
func (c *ProcessingConfig) GetSpeedFactor() float64 {
	if c.SpeedFactor == nil {
		return 1.0
	}
	return *c.SpeedFactor
}

// GetControlPointStep returns the control_point_step value or the default.
func (c *ProcessingConfig) GetControlPointStep() int {
	if c.ControlPointStep == nil {
		return 50
	}
	return *c.ControlPointStep
}

// GetResampleFactor returns the resample_factor value or the default.
func (c *ProcessingConfig) GetResampleFactor() float64 {
	if c.ResampleFactor == nil {
		return 1.0
	}
	return *c.ResampleFactor
}

// GetInterpolation returns the interpolation value or the default.
func (c *ProcessingConfig) GetInterpolation() string {
	if c.Interpolation == nil || *c.Interpolation == "" {
		return InterpNearest
	}
	return *c.Interpolation
}

// GetMosaicMode returns the mosaic_mode value or the default.
func (c *ProcessingConfig) GetMosaicMode() string {
	if c.MosaicMode == nil || *c.MosaicMode == "" {
		return MosaicSingle
	}
	return *c.MosaicMode
}

// GetMosaicGrouping returns the mosaic_grouping value or the default.
func (c *ProcessingConfig) GetMosaicGrouping() string {
	if c.MosaicGrouping == nil || *c.MosaicGrouping == "" {
		return GroupChannel
	}
	return *c.MosaicGrouping
}

// GetBuildOverviews returns the build_overviews value or the default.
func (c *ProcessingConfig) GetBuildOverviews() bool {
	if c.BuildOverviews == nil {
		return true
	}
	return *c.BuildOverviews
}

// GetThreads returns the threads value or the default (0, all CPUs).
func (c *ProcessingConfig) GetThreads() int {
	if c.Threads == nil {
		return 0
	}
	return *c.Threads
}
