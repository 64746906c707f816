package gridder

import (
	"errors"
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
)

// ErrShapeMismatch is returned when a lattice does not fit the engine or
// the batch.
var ErrShapeMismatch = errors.New("lattice shape does not match")

// Grid is a complex uv lattice of NX×NY pixels for every (polarization,
// channel) pair. Pixel (x, y) of plane (pol, ch) is at
// ((ch*NPol+pol)*NY+y)*NX+x.
type Grid struct {
	NX, NY int
	NPol   int
	NChan  int
	Data   []complex128
}

// NewGrid returns a zeroed lattice.
func NewGrid(nx, ny, npol, nchan int) *Grid {
	return &Grid{NX: nx, NY: ny, NPol: npol, NChan: nchan, Data: make([]complex128, nx*ny*npol*nchan)}
}

// Offset returns the index of pixel (0, 0) of plane (pol, ch).
func (g *Grid) Offset(pol, ch int) int {
	return (ch*g.NPol + pol) * g.NX * g.NY
}

// Plane returns the pixels of plane (pol, ch), row-major.
func (g *Grid) Plane(pol, ch int) []complex128 {
	off := g.Offset(pol, ch)
	return g.Data[off : off+g.NX*g.NY]
}

// At returns pixel (x, y) of plane (pol, ch).
func (g *Grid) At(x, y, pol, ch int) complex128 {
	return g.Data[g.Offset(pol, ch)+y*g.NX+x]
}

// Reset zeroes every pixel.
func (g *Grid) Reset() { clear(g.Data) }

func (g *Grid) checkShape(nx, ny, npol, nchan int) error {
	if g.NX != nx || g.NY != ny || g.NPol != npol || g.NChan != nchan {
		return fmt.Errorf("%w: lattice %dx%dx%dx%d, want %dx%dx%dx%d",
			ErrShapeMismatch, g.NX, g.NY, g.NPol, g.NChan, nx, ny, npol, nchan)
	}
	if len(g.Data) != nx*ny*npol*nchan {
		return fmt.Errorf("%w: lattice has %d pixels, want %d", ErrShapeMismatch, len(g.Data), nx*ny*npol*nchan)
	}
	return nil
}

// FluxScale returns the amplitude of a gridded weight lattice, normalised
// per (polarization, channel) plane so that each plane peaks at 1. Planes
// with no weight stay zero. The result uses the lattice's layout.
func FluxScale(w *Grid) []float64 {
	out := make([]float64, len(w.Data))
	n := w.NX * w.NY
	for pol := 0; pol < w.NPol; pol++ {
		for ch := 0; ch < w.NChan; ch++ {
			off := w.Offset(pol, ch)
			amp := out[off : off+n]
			for i, v := range w.Data[off : off+n] {
				amp[i] = cmplx.Abs(v)
			}
			if peak := floats.Max(amp); peak > 0 {
				floats.Scale(1/peak, amp)
			}
		}
	}
	return out
}
