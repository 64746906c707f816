// Package vis defines the visibility batch consumed by the convolution
// function cache and the grid/degrid engine.
package vis

import (
	"errors"
	"fmt"
)

// ErrInvalidBatch is returned by Batch.Validate for inconsistent shapes.
var ErrInvalidBatch = errors.New("invalid visibility batch")

// Antenna describes one antenna of the array.
type Antenna struct {
	Name         string
	DishDiameter float64 // metres; <= 0 means the station has no dish
}

// AntennaTable is the antenna metadata of one dataset.
type AntennaTable struct {
	Telescope string
	Antennas  []Antenna
}

// Batch is a block of visibility rows sharing one pointing, one channel
// layout and one dataset. The pointing itself is passed alongside the batch.
//
// Per-sample arrays (Flags, Data, Weights) are flat and indexed by
// Index(row, chan, pol).
type Batch struct {
	// DatasetID changes whenever a new dataset is opened. Antenna
	// resolution is redone only when it changes.
	DatasetID string
	Antennas  *AntennaTable

	Ant1, Ant2 []int
	UVW        [][3]float64 // metres, already phase-referenced
	Dphase     []float64    // metres of extra path to rotate each row by
	FlagRow    []bool

	Freqs []float64 // Hz, one per channel
	NPol  int

	Flags   []bool
	Data    []complex128
	Weights []float64
}

// NRow returns the number of rows in the batch.
func (b *Batch) NRow() int { return len(b.Ant1) }

// NChan returns the number of channels in the batch.
func (b *Batch) NChan() int { return len(b.Freqs) }

// Index returns the flat offset of a (row, chan, pol) sample.
func (b *Batch) Index(row, ch, pol int) int {
	return (row*len(b.Freqs)+ch)*b.NPol + pol
}

// IsAutoCorrelation reports whether row correlates an antenna with itself.
func (b *Batch) IsAutoCorrelation(row int) bool {
	return b.Ant1[row] == b.Ant2[row]
}

// Flagged reports whether a sample is flagged, either on its own or through
// its row.
func (b *Batch) Flagged(row, ch, pol int) bool {
	if b.FlagRow != nil && b.FlagRow[row] {
		return true
	}
	if b.Flags == nil {
		return false
	}
	return b.Flags[b.Index(row, ch, pol)]
}

// Validate checks that the per-row and per-sample arrays agree in length.
// Data and Weights may be nil; when set they must cover every sample.
func (b *Batch) Validate() error {
	n := b.NRow()
	if len(b.Ant2) != n || len(b.UVW) != n {
		return fmt.Errorf("%w: ant1=%d ant2=%d uvw=%d", ErrInvalidBatch, n, len(b.Ant2), len(b.UVW))
	}
	if b.Dphase != nil && len(b.Dphase) != n {
		return fmt.Errorf("%w: dphase has %d rows, want %d", ErrInvalidBatch, len(b.Dphase), n)
	}
	if b.FlagRow != nil && len(b.FlagRow) != n {
		return fmt.Errorf("%w: flag_row has %d rows, want %d", ErrInvalidBatch, len(b.FlagRow), n)
	}
	if b.NPol < 1 {
		return fmt.Errorf("%w: npol must be >= 1, got %d", ErrInvalidBatch, b.NPol)
	}
	if len(b.Freqs) == 0 {
		return fmt.Errorf("%w: no channels", ErrInvalidBatch)
	}
	want := n * len(b.Freqs) * b.NPol
	for name, got := range map[string]int{"flags": len(b.Flags), "data": len(b.Data), "weights": len(b.Weights)} {
		if got != 0 && got != want {
			return fmt.Errorf("%w: %s has %d samples, want %d", ErrInvalidBatch, name, got, want)
		}
	}
	if b.Antennas != nil {
		na := len(b.Antennas.Antennas)
		for r := 0; r < n; r++ {
			if b.Ant1[r] < 0 || b.Ant1[r] >= na || b.Ant2[r] < 0 || b.Ant2[r] >= na {
				return fmt.Errorf("%w: row %d antenna pair (%d,%d) outside table of %d", ErrInvalidBatch, r, b.Ant1[r], b.Ant2[r], na)
			}
		}
	}
	return nil
}
