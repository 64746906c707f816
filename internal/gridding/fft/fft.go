// Package fft provides centred two-dimensional complex transforms over flat
// square planes, built on gonum's dsp/fourier.
//
// A centred transform places the origin of both the input and the output at
// pixel (n/2, n/2), which is how beam screens and convolution kernels are
// laid out.
package fft

import (
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Plan holds the one-dimensional transforms and scratch space for planes of
// one size. A Plan is not safe for concurrent use.
type Plan struct {
	n   int
	fft *fourier.CmplxFFT
	col []complex128
	tmp []complex128
}

// NewPlan returns a plan for n×n planes.
func NewPlan(n int) *Plan {
	return &Plan{
		n:   n,
		fft: fourier.NewCmplxFFT(n),
		col: make([]complex128, n),
		tmp: make([]complex128, n*n),
	}
}

// Size returns the side length of the planes handled by p.
func (p *Plan) Size() int { return p.n }

// Forward replaces data (row-major, n×n) with its centred forward transform.
// The transform is unnormalised.
func (p *Plan) Forward(data []complex128) {
	p.transform(data, true)
}

// Inverse replaces data with its centred inverse transform, normalised so
// that Inverse(Forward(x)) == x.
func (p *Plan) Inverse(data []complex128) {
	p.transform(data, false)
	cblas128.Dscal(1/float64(p.n*p.n), cblas128.Vector{N: len(data), Inc: 1, Data: data})
}

func (p *Plan) transform(data []complex128, forward bool) {
	n := p.n
	if len(data) != n*n {
		panic("fft: plane size mismatch")
	}
	shift(data, p.tmp, n, true)

	// rows
	for y := 0; y < n; y++ {
		row := data[y*n : (y+1)*n]
		if forward {
			p.fft.Coefficients(row, row)
		} else {
			p.fft.Sequence(row, row)
		}
	}

	// cols
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			p.col[y] = data[y*n+x]
		}
		if forward {
			p.fft.Coefficients(p.col, p.col)
		} else {
			p.fft.Sequence(p.col, p.col)
		}
		for y := 0; y < n; y++ {
			data[y*n+x] = p.col[y]
		}
	}

	shift(data, p.tmp, n, false)
}

// shift moves the centre pixel (n/2, n/2) to the origin (toOrigin) or back.
// For even n both directions are the same quadrant swap.
func shift(data, tmp []complex128, n int, toOrigin bool) {
	h := n - n/2
	if toOrigin {
		h = n / 2
	}
	for y := 0; y < n; y++ {
		sy := (y + h) % n
		for x := 0; x < n; x++ {
			tmp[y*n+x] = data[sy*n+(x+h)%n]
		}
	}
	copy(data, tmp)
}

// Shift performs the centred-to-origin shift on a single n×n plane.
func Shift(data []complex128, n int) {
	shift(data, make([]complex128, n*n), n, true)
}

// NextComposite returns the smallest even number >= n whose only prime
// factors are 2, 3 and 5.
func NextComposite(n int) int {
	if n <= 2 {
		return 2
	}
	for c := n + n%2; ; c += 2 {
		if isComposite235(c) {
			return c
		}
	}
}

func isComposite235(v int) bool {
	for _, f := range []int{2, 3, 5} {
		for v%f == 0 {
			v /= f
		}
	}
	return v == 1
}
