package convfunc

import "github.com/banshee-data/hetgrid/internal/config"

// Config holds the build parameters of a Cache.
type Config struct {
	Oversampling int

	// Screens are zeroed where their amplitude does not exceed these.
	VoltageMaskThreshold float64
	WeightMaskThreshold  float64

	// SupportPeakFraction is the fraction of the peak amplitude that marks
	// the edge of a kernel.
	SupportPeakFraction float64

	// Fallback support heuristic, in oversampled cells: when the edge search
	// fails or finds less than FallbackSupportCells, the radius becomes
	// FallbackSupportCells if the kernel is wider than FallbackMinKernelCells,
	// else half the kernel less FallbackEdgeCells.
	FallbackSupportCells   int
	FallbackMinKernelCells int
	FallbackEdgeCells      int

	// TrimMarginCells is added to the largest support when trimming.
	TrimMarginCells int

	// BeamFreqTolerance is the fractional bandwidth one beam frequency
	// plane may span.
	BeamFreqTolerance float64

	// Workers sizes the pool used for the phase gradient; 0 means one per
	// CPU.
	Workers int
}

// DefaultConfig returns the standard build parameters.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning extracts the cache parameters from a tuning config.
func ConfigFromTuning(t *config.TuningConfig) Config {
	return Config{
		Oversampling:           t.GetOversampling(),
		VoltageMaskThreshold:   t.GetVoltageMaskThreshold(),
		WeightMaskThreshold:    t.GetWeightMaskThreshold(),
		SupportPeakFraction:    t.GetSupportPeakFraction(),
		FallbackSupportCells:   t.GetFallbackSupportCells(),
		FallbackMinKernelCells: t.GetFallbackMinKernelCells(),
		FallbackEdgeCells:      t.GetFallbackEdgeCells(),
		TrimMarginCells:        t.GetTrimMarginCells(),
		BeamFreqTolerance:      t.GetBeamFreqTolerance(),
		Workers:                t.GetWorkers(),
	}
}
