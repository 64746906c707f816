package convfunc

import (
	"math"

	"github.com/banshee-data/hetgrid/internal/gridding/parallel"
)

// Gradient is the per-sample phase slope that moves a kernel built at the
// image centre to a pointing elsewhere in the image.
type Gradient struct {
	DX, DY float64 // radians per oversampled kernel sample
}

// GradientFor returns the gradient for a pointing at pixel (px, py) of an
// nx×ny image with the given oversampling.
func GradientFor(px, py float64, nx, ny, oversampling int) Gradient {
	return Gradient{
		DX: -(px - float64(nx/2)) * 2 * math.Pi / float64(nx) / float64(oversampling),
		DY: -(py - float64(ny/2)) * 2 * math.Pi / float64(ny) / float64(oversampling),
	}
}

// IsZero reports whether applying g would leave kernels unchanged.
func (g Gradient) IsZero() bool { return g.DX == 0 && g.DY == 0 }

// Conj returns the gradient that undoes g.
func (g Gradient) Conj() Gradient { return Gradient{DX: -g.DX, DY: -g.DY} }

// Factor returns the multiplier for sample (ix, iy) of a size×size plane.
func (g Gradient) Factor(ix, iy, size int) complex128 {
	s, c := math.Sincos(float64(ix-size/2)*g.DX + float64(iy-size/2)*g.DY)
	return complex(c, s)
}

// Apply multiplies every plane of the given kernels, in place, by the
// gradient. Rows are split across the pool; all kernels must share a size.
func (g Gradient) Apply(pool *parallel.Pool, kernels ...*Kernel) error {
	if len(kernels) == 0 || g.IsZero() {
		return nil
	}
	size := kernels[0].Size
	phx := make([]complex128, size)
	for ix := range phx {
		s, c := math.Sincos(float64(ix-size/2) * g.DX)
		phx[ix] = complex(c, s)
	}

	return pool.For(size, func(_ int, r parallel.Range) error {
		for iy := r.Lo; iy < r.Hi; iy++ {
			sy, cy := math.Sincos(float64(iy-size/2) * g.DY)
			phy := complex(cy, sy)
			for _, k := range kernels {
				nslab := len(k.Data) / (size * size)
				for slab := 0; slab < nslab; slab++ {
					row := k.Data[slab*size*size+iy*size : slab*size*size+(iy+1)*size]
					for ix := range row {
						row[ix] *= phx[ix] * phy
					}
				}
			}
		}
		return nil
	})
}
