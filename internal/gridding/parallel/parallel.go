// Package parallel statically partitions work across a fixed number of
// workers and joins them.
//
// Partitions are computed before any worker starts; workers share no mutable
// state except what the caller hands each one privately.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Range is a half-open index interval [Lo, Hi).
type Range struct {
	Lo, Hi int
}

// Len returns the number of indices in r.
func (r Range) Len() int { return r.Hi - r.Lo }

// Rect is a half-open pixel rectangle [X0, X1) × [Y0, Y1).
type Rect struct {
	X0, X1, Y0, Y1 int
}

// Contains reports whether pixel (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X0 && x < r.X1 && y >= r.Y0 && y < r.Y1
}

// Split divides [0, n) into at most parts contiguous, disjoint, non-empty
// ranges whose sizes differ by at most one.
func Split(n, parts int) []Range {
	if n <= 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	out := make([]Range, parts)
	base, extra := n/parts, n%parts
	lo := 0
	for i := range out {
		size := base
		if i < extra {
			size++
		}
		out[i] = Range{Lo: lo, Hi: lo + size}
		lo += size
	}
	return out
}

// Quadrants splits an nx×ny grid into disjoint rectangles for the given
// worker count: one rectangle for a single worker, left and right halves
// for two or three, and four quadrants for four or more.
func Quadrants(nx, ny, workers int) []Rect {
	xsub, ysub := 1, 1
	switch {
	case workers >= 4:
		xsub, ysub = 2, 2
	case workers >= 2:
		xsub = 2
	}
	out := make([]Rect, 0, xsub*ysub)
	for _, yr := range Split(ny, ysub) {
		for _, xr := range Split(nx, xsub) {
			out = append(out, Rect{X0: xr.Lo, X1: xr.Hi, Y0: yr.Lo, Y1: yr.Hi})
		}
	}
	return out
}

// Pool runs partitioned work on a fixed number of workers.
type Pool struct {
	workers int
}

// NewPool returns a pool of the given size; workers <= 0 uses one worker
// per CPU.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{workers: workers}
}

// Workers returns the pool size.
func (p *Pool) Workers() int { return p.workers }

// For splits [0, n) into one contiguous range per worker and calls fn for
// each concurrently. It returns the first error any call returned, after
// every call has finished.
func (p *Pool) For(n int, fn func(part int, r Range) error) error {
	parts := Split(n, p.workers)
	if len(parts) == 1 {
		return fn(0, parts[0])
	}
	var g errgroup.Group
	for i, r := range parts {
		g.Go(func() error { return fn(i, r) })
	}
	return g.Wait()
}

// Each calls fn(task) for every task in [0, tasks), at most Workers() at a
// time.
func (p *Pool) Each(tasks int, fn func(task int) error) error {
	var g errgroup.Group
	g.SetLimit(p.workers)
	for t := 0; t < tasks; t++ {
		g.Go(func() error { return fn(t) })
	}
	return g.Wait()
}
