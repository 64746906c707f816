package vis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoRowBatch() *Batch {
	return &Batch{
		DatasetID: "ms-1",
		Antennas: &AntennaTable{Telescope: "VLA", Antennas: []Antenna{
			{Name: "ea01", DishDiameter: 25}, {Name: "ea02", DishDiameter: 25},
		}},
		Ant1:    []int{0, 0},
		Ant2:    []int{1, 0},
		UVW:     [][3]float64{{10, 20, 0}, {0, 0, 0}},
		FlagRow: []bool{false, true},
		Freqs:   []float64{1e9, 1.001e9, 1.002e9},
		NPol:    2,
		Flags:   make([]bool, 2*3*2),
	}
}

func TestBatch_Shape(t *testing.T) {
	t.Parallel()
	b := twoRowBatch()
	require.NoError(t, b.Validate())
	assert.Equal(t, 2, b.NRow())
	assert.Equal(t, 3, b.NChan())
	assert.Equal(t, 0, b.Index(0, 0, 0))
	assert.Equal(t, 1, b.Index(0, 0, 1))
	assert.Equal(t, 2, b.Index(0, 1, 0))
	assert.Equal(t, 6, b.Index(1, 0, 0))
}

func TestBatch_Flagged(t *testing.T) {
	t.Parallel()
	b := twoRowBatch()
	b.Flags[b.Index(0, 2, 1)] = true

	assert.True(t, b.Flagged(0, 2, 1))
	assert.False(t, b.Flagged(0, 2, 0))
	// Row flag wins over sample flags.
	assert.True(t, b.Flagged(1, 0, 0))
	assert.True(t, b.IsAutoCorrelation(1))
	assert.False(t, b.IsAutoCorrelation(0))
}

func TestBatch_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Batch)
	}{
		{"ant2 short", func(b *Batch) { b.Ant2 = b.Ant2[:1] }},
		{"no pols", func(b *Batch) { b.NPol = 0 }},
		{"no channels", func(b *Batch) { b.Freqs = nil }},
		{"data short", func(b *Batch) { b.Data = make([]complex128, 3) }},
		{"dphase short", func(b *Batch) { b.Dphase = []float64{1} }},
		{"antenna out of table", func(b *Batch) { b.Ant2[0] = 5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := twoRowBatch()
			tt.mutate(b)
			err := b.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidBatch))
		})
	}
}
