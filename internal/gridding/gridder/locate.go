package gridder

import (
	"math"

	"github.com/banshee-data/hetgrid/internal/gridding/parallel"
	"github.com/banshee-data/hetgrid/internal/gridding/vis"
)

const speedOfLight = 299792458.0

// sampleLoc places one (row, channel) sample on the lattice.
type sampleLoc struct {
	// X, Y is the nearest lattice pixel.
	X, Y int
	// OffX, OffY is the kernel offset in oversampled cells.
	OffX, OffY int
	// Phasor rotates the sample by the row's extra path.
	Phasor complex128
}

// locator converts uvw in metres to lattice positions.
type locator struct {
	nx, ny       int
	scaleU       float64 // nx times the image increment along x, radians
	scaleV       float64
	oversampling int
}

// locate fills locs (nrow×nchan, row-major) for every row of b. Rows are
// independent, so the work is split across the pool.
func (l *locator) locate(pool *parallel.Pool, b *vis.Batch, locs []sampleLoc) error {
	nchan := b.NChan()
	s := float64(l.oversampling)
	cx, cy := float64(l.nx/2), float64(l.ny/2)
	return pool.For(b.NRow(), func(_ int, r parallel.Range) error {
		for row := r.Lo; row < r.Hi; row++ {
			// The lattice is flipped in u and v relative to the uvw frame.
			u, v := -b.UVW[row][0], -b.UVW[row][1]
			dphase := 0.0
			if b.Dphase != nil {
				dphase = b.Dphase[row]
			}
			for ch, freq := range b.Freqs {
				k := freq / speedOfLight
				px := l.scaleU*u*k + cx
				py := l.scaleV*v*k + cy
				x, y := math.Round(px), math.Round(py)
				loc := &locs[row*nchan+ch]
				loc.X, loc.Y = int(x), int(y)
				loc.OffX = int(math.Round((x - px) * s))
				loc.OffY = int(math.Round((y - py) * s))
				sn, cs := math.Sincos(-2 * math.Pi * dphase * k)
				loc.Phasor = complex(cs, sn)
			}
		}
		return nil
	})
}

// fits reports whether a kernel of the given support centred on loc lies
// entirely on the lattice.
func (l *locator) fits(loc *sampleLoc, support int) bool {
	return loc.X-support >= 0 && loc.X+support < l.nx &&
		loc.Y-support >= 0 && loc.Y+support < l.ny
}
