package convfunc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrequencyPlanes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		freqs     []float64
		tol       float64
		wantMap   []int
		wantFreqs []float64
	}{
		{
			name:      "single channel",
			freqs:     []float64{1.4e9},
			tol:       0.05,
			wantMap:   []int{0},
			wantFreqs: []float64{1.4e9},
		},
		{
			name:      "narrow band shares one plane",
			freqs:     []float64{1.40e9, 1.41e9, 1.42e9},
			tol:       0.05,
			wantMap:   []int{0, 0, 0},
			wantFreqs: []float64{1.41e9},
		},
		{
			name:      "wide band splits at tolerance",
			freqs:     []float64{1.0e9, 1.01e9, 1.02e9, 1.06e9, 1.2e9},
			tol:       0.05,
			wantMap:   []int{0, 0, 0, 1, 2},
			wantFreqs: []float64{1.01e9, 1.06e9, 1.2e9},
		},
		{
			name:      "descending channels",
			freqs:     []float64{2.0e9, 1.98e9, 1.5e9},
			tol:       0.05,
			wantMap:   []int{0, 0, 1},
			wantFreqs: []float64{1.99e9, 1.5e9},
		},
		{
			name:      "zero tolerance gives one plane per channel",
			freqs:     []float64{1e9, 1.001e9},
			tol:       0,
			wantMap:   []int{0, 1},
			wantFreqs: []float64{1e9, 1.001e9},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotMap, gotFreqs := FrequencyPlanes(tt.freqs, tt.tol)
			assert.Equal(t, tt.wantMap, gotMap)
			assert.InDeltaSlice(t, tt.wantFreqs, gotFreqs, 1)
		})
	}
}

func TestFrequencyPlanes_Empty(t *testing.T) {
	t.Parallel()
	chanMap, freqs := FrequencyPlanes(nil, 0.05)
	assert.Empty(t, chanMap)
	assert.Nil(t, freqs)
}

func TestPolarizationPlanes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []int{0, 0, 0, 0}, PolarizationPlanes(4))
}
