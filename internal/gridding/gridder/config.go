package gridder

import "github.com/banshee-data/hetgrid/internal/config"

// Config controls an Engine.
type Config struct {
	// Workers sizes the pool; 0 means one per CPU.
	Workers int
	// UseAutoCorrelations grids rows that correlate an antenna with itself.
	UseAutoCorrelations bool
	// GridWeights makes Accumulate also grid the weight kernel.
	GridWeights bool
}

// DefaultConfig returns the standard engine settings.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning extracts the engine settings from a tuning config.
func ConfigFromTuning(t *config.TuningConfig) Config {
	return Config{
		Workers:             t.GetWorkers(),
		UseAutoCorrelations: t.GetUseAutoCorrelations(),
		GridWeights:         t.GetGridWeights(),
	}
}
