package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// Beam kinds accepted by beam_kind.
const (
	BeamKindAiry  = "airy"
	BeamKindImage = "image"
)

// TuningConfig represents the root configuration for gridding parameters.
// Every field is optional; the Get* accessors supply the defaults used
// when a field is omitted, so partial configs are safe.
type TuningConfig struct {
	// Convolution function build
	Oversampling          *int     `json:"oversampling,omitempty"`
	VoltageMaskThreshold  *float64 `json:"voltage_mask_threshold,omitempty"`
	WeightMaskThreshold   *float64 `json:"weight_mask_threshold,omitempty"`
	SupportPeakFraction   *float64 `json:"support_peak_fraction,omitempty"`
	FallbackSupportCells  *int     `json:"fallback_support_cells,omitempty"`
	FallbackMinKernelCell *int     `json:"fallback_min_kernel_cells,omitempty"`
	FallbackEdgeCells     *int     `json:"fallback_edge_cells,omitempty"`
	TrimMarginCells       *int     `json:"trim_margin_cells,omitempty"`
	BeamFreqTolerance     *float64 `json:"beam_freq_tolerance,omitempty"`
	BeamKind              *string  `json:"beam_kind,omitempty"`

	// Grid/degrid engine
	Workers             *int  `json:"workers,omitempty"`
	UseAutoCorrelations *bool `json:"use_auto_correlations,omitempty"`
	GridWeights         *bool `json:"grid_weights,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the compiled-in defaults.
func DefaultTuningConfig() *TuningConfig {
	e := EmptyTuningConfig()
	return &TuningConfig{
		Oversampling:          ptrInt(e.GetOversampling()),
		VoltageMaskThreshold:  ptrFloat64(e.GetVoltageMaskThreshold()),
		WeightMaskThreshold:   ptrFloat64(e.GetWeightMaskThreshold()),
		SupportPeakFraction:   ptrFloat64(e.GetSupportPeakFraction()),
		FallbackSupportCells:  ptrInt(e.GetFallbackSupportCells()),
		FallbackMinKernelCell: ptrInt(e.GetFallbackMinKernelCells()),
		FallbackEdgeCells:     ptrInt(e.GetFallbackEdgeCells()),
		TrimMarginCells:       ptrInt(e.GetTrimMarginCells()),
		BeamFreqTolerance:     ptrFloat64(e.GetBeamFreqTolerance()),
		BeamKind:              ptrString(e.GetBeamKind()),
		Workers:               ptrInt(0),
		UseAutoCorrelations:   ptrBool(e.GetUseAutoCorrelations()),
		GridWeights:           ptrBool(e.GetGridWeights()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
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

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,          // from internal/config/
		"../../../" + DefaultConfigPath,       // from internal/gridding/convfunc/
		"../../../../" + DefaultConfigPath,    // from internal/gridding/storage/sqlite
		"../../../../../" + DefaultConfigPath, // even deeper
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.Oversampling != nil && *c.Oversampling < 1 {
		return fmt.Errorf("oversampling must be >= 1, got %d", *c.Oversampling)
	}
	if c.VoltageMaskThreshold != nil && *c.VoltageMaskThreshold < 0 {
		return fmt.Errorf("voltage_mask_threshold must be non-negative, got %f", *c.VoltageMaskThreshold)
	}
	if c.WeightMaskThreshold != nil && *c.WeightMaskThreshold < 0 {
		return fmt.Errorf("weight_mask_threshold must be non-negative, got %f", *c.WeightMaskThreshold)
	}
	if c.SupportPeakFraction != nil {
		if *c.SupportPeakFraction <= 0 || *c.SupportPeakFraction >= 1 {
			return fmt.Errorf("support_peak_fraction must be between 0 and 1 (exclusive), got %f", *c.SupportPeakFraction)
		}
	}
	for name, v := range map[string]*int{
		"fallback_support_cells":    c.FallbackSupportCells,
		"fallback_min_kernel_cells": c.FallbackMinKernelCell,
		"fallback_edge_cells":       c.FallbackEdgeCells,
		"trim_margin_cells":         c.TrimMarginCells,
		"workers":                   c.Workers,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", name, *v)
		}
	}
	if c.BeamFreqTolerance != nil && *c.BeamFreqTolerance < 0 {
		return fmt.Errorf("beam_freq_tolerance must be non-negative, got %f", *c.BeamFreqTolerance)
	}
	if c.BeamKind != nil {
		switch *c.BeamKind {
		case BeamKindAiry, BeamKindImage:
		default:
			return fmt.Errorf("beam_kind must be %q or %q, got %q", BeamKindAiry, BeamKindImage, *c.BeamKind)
		}
	}
	return nil
}

// GetOversampling returns the oversampling value or the default.
func (c *TuningConfig) GetOversampling() int {
	if c.Oversampling == nil {
		return 4
	}
	return *c.Oversampling
}

// GetVoltageMaskThreshold returns the voltage_mask_threshold value or the default.
func (c *TuningConfig) GetVoltageMaskThreshold() float64 {
	if c.VoltageMaskThreshold == nil {
		return 5e-2
	}
	return *c.VoltageMaskThreshold
}

// GetWeightMaskThreshold returns the weight_mask_threshold value or the default.
func (c *TuningConfig) GetWeightMaskThreshold() float64 {
	if c.WeightMaskThreshold == nil {
		return 25e-4
	}
	return *c.WeightMaskThreshold
}

// GetSupportPeakFraction returns the support_peak_fraction value or the default.
func (c *TuningConfig) GetSupportPeakFraction() float64 {
	if c.SupportPeakFraction == nil {
		return 1e-2
	}
	return *c.SupportPeakFraction
}

// GetFallbackSupportCells returns the fallback_support_cells value or the default.
func (c *TuningConfig) GetFallbackSupportCells() int {
	if c.FallbackSupportCells == nil {
		return 5
	}
	return *c.FallbackSupportCells
}

// GetFallbackMinKernelCells returns the fallback_min_kernel_cells value or the default.
func (c *TuningConfig) GetFallbackMinKernelCells() int {
	if c.FallbackMinKernelCell == nil {
		return 10
	}
	return *c.FallbackMinKernelCell
}

// GetFallbackEdgeCells returns the fallback_edge_cells value or the default.
func (c *TuningConfig) GetFallbackEdgeCells() int {
	if c.FallbackEdgeCells == nil {
		return 4
	}
	return *c.FallbackEdgeCells
}

// GetTrimMarginCells returns the trim_margin_cells value or the default.
func (c *TuningConfig) GetTrimMarginCells() int {
	if c.TrimMarginCells == nil {
		return 2
	}
	return *c.TrimMarginCells
}

// GetBeamFreqTolerance returns the beam_freq_tolerance value or the default.
func (c *TuningConfig) GetBeamFreqTolerance() float64 {
	if c.BeamFreqTolerance == nil {
		return 0.05
	}
	return *c.BeamFreqTolerance
}

// GetBeamKind returns the beam_kind value or the default.
func (c *TuningConfig) GetBeamKind() string {
	if c.BeamKind == nil || *c.BeamKind == "" {
		return BeamKindAiry
	}
	return *c.BeamKind
}

// GetWorkers returns the worker count, resolving 0 (or unset) to the CPU count.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return *c.Workers
}

// GetUseAutoCorrelations returns the use_auto_correlations value or the default.
func (c *TuningConfig) GetUseAutoCorrelations() bool {
	if c.UseAutoCorrelations == nil {
		return false
	}
	return *c.UseAutoCorrelations
}

// GetGridWeights returns the grid_weights value or the default.
func (c *TuningConfig) GetGridWeights() bool {
	if c.GridWeights == nil {
		return true
	}
	return *c.GridWeights
}
