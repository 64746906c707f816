package convfunc

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/cblas128"
)

// ErrNonPositiveNormalization is returned when a kernel plane's flux inside
// its support is not strictly positive.
var ErrNonPositiveNormalization = errors.New("convolution function integral is not positive")

// NormalizationError identifies the plane whose normalisation failed.
type NormalizationError struct {
	Plane int
	Chan  int
	Sum   float64
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("%v: plane %d chan %d sum %g", ErrNonPositiveNormalization, e.Plane, e.Chan, e.Sum)
}

func (e *NormalizationError) Unwrap() error { return ErrNonPositiveNormalization }

// findSupport locates the support radius of one square plane by scanning
// its diagonal inward from the edge. It returns 0 when the plane has no
// usable structure.
func (cfg *Config) findSupport(plane []complex128, size int) int {
	s := cfg.Oversampling
	maxAbs, minAbs := 0.0, math.Inf(1)
	for _, v := range plane {
		a := cmplxAbs(v)
		maxAbs = math.Max(maxAbs, a)
		minAbs = math.Min(minAbs, a)
	}
	threshold := cfg.SupportPeakFraction * maxAbs

	fallback := func() int {
		if cfg.FallbackMinKernelCells*s < size {
			return cfg.FallbackSupportCells * s
		}
		return size/2 - cfg.FallbackEdgeCells*s
	}

	found := false
	trial := 0
	for trial = size/2 - 2; trial > 0; trial-- {
		c := size/2 - trial
		if cmplxAbs(plane[c*size+c]) > threshold {
			found = true
			trial = int(math.Sqrt(2 * float64(trial*trial)))
			break
		}
	}
	if !found {
		if maxAbs-minAbs > threshold {
			found = true
		}
		trial = fallback()
	}
	if !found {
		return 0
	}

	if trial < cfg.FallbackSupportCells*s {
		trial = fallback()
	}
	support := int(0.5+float64(trial)/float64(s)) + 1
	if support*s >= size/2 {
		support = size/2/s - 1
	}
	if support < 0 {
		support = 0
	}
	return support
}

// supportAndNormalize finds the support of antenna-pair plane p from its
// first frequency plane and scales every frequency plane of both kernels so
// the real part inside the support box, divided by oversampling², is 1.
// Planes with zero support are cleared.
func (cfg *Config) supportAndNormalize(cf, cw *Kernel, p int) (int, error) {
	size := cf.Size
	s := cfg.Oversampling
	support := cfg.findSupport(cf.Plane(p, 0, 0), size)

	for ch := 0; ch < cf.NChan; ch++ {
		for pol := 0; pol < cf.NPol; pol++ {
			fPlane := cf.Plane(p, ch, pol)
			wPlane := cw.Plane(p, ch, pol)
			if support == 0 {
				clear(fPlane)
				clear(wPlane)
				continue
			}
			sum := boxSum(fPlane, size, support*s) / float64(s*s)
			if sum <= 0 {
				return 0, &NormalizationError{Plane: p, Chan: ch, Sum: sum}
			}
			cblas128.Dscal(1/sum, cblas128.Vector{N: len(fPlane), Inc: 1, Data: fPlane})
			cblas128.Dscal(1/sum, cblas128.Vector{N: len(wPlane), Inc: 1, Data: wPlane})
		}
	}
	return support, nil
}

// boxSum sums the real part of plane over the square of half-width half
// (inclusive) around the centre.
func boxSum(plane []complex128, size, half int) float64 {
	c := size / 2
	sum := 0.0
	for y := c - half; y <= c+half; y++ {
		row := plane[y*size : (y+1)*size]
		for x := c - half; x <= c+half; x++ {
			sum += real(row[x])
		}
	}
	return sum
}

func cmplxAbs(v complex128) float64 {
	return math.Hypot(real(v), imag(v))
}
