package gridder

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/hetgrid/internal/gridding/convfunc"
	"github.com/banshee-data/hetgrid/internal/gridding/parallel"
	"github.com/banshee-data/hetgrid/internal/gridding/skycoord"
	"github.com/banshee-data/hetgrid/internal/gridding/vis"
	"github.com/banshee-data/hetgrid/internal/monitoring"
)

// Stats counts engine activity across calls.
type Stats struct {
	Batches        int
	SkippedBatches int // out-of-field batches
	Rows           int
	FlaggedRows    int
	AutoRows       int
	NoBeamRows     int // rows whose antenna pair has no kernel
	OffGrid        int // (row, channel) samples whose kernel leaves the lattice
	Gridded        int // (row, channel, polarization) samples gridded or sampled
}

// Accumulator collects gridded visibilities for one image.
type Accumulator struct {
	Grid *Grid
	// Weights receives the gridded weight kernel; nil when weight gridding
	// is off.
	Weights *Grid
	// SumWeight is the total weight gridded per (pol, chan), indexed
	// ch*NPol+pol.
	SumWeight []float64
	// PSF grids unit visibilities in place of the data.
	PSF bool
}

// SumWeightAt returns the weight sum of plane (pol, ch).
func (a *Accumulator) SumWeightAt(pol, ch int) float64 {
	return a.SumWeight[ch*a.Grid.NPol+pol]
}

// Reset zeroes the lattices and weight sums.
func (a *Accumulator) Reset() {
	a.Grid.Reset()
	if a.Weights != nil {
		a.Weights.Reset()
	}
	clear(a.SumWeight)
}

// Engine grids and degrids visibility batches for one image.
type Engine struct {
	cfg   Config
	pool  *parallel.Pool
	loc   locator
	stats Stats
}

// NewEngine returns an engine for image. oversampling must match the
// kernels the engine will be handed.
func NewEngine(image skycoord.Image, oversampling int, cfg Config) *Engine {
	dx, dy := image.Coords.Increment()
	return &Engine{
		cfg:  cfg,
		pool: parallel.NewPool(cfg.Workers),
		loc: locator{
			nx:           image.NX,
			ny:           image.NY,
			scaleU:       float64(image.NX) * dx,
			scaleV:       float64(image.NY) * dy,
			oversampling: max(oversampling, 1),
		},
	}
}

// Config returns the engine settings.
func (e *Engine) Config() Config { return e.cfg }

// Stats returns a copy of the activity counters.
func (e *Engine) Stats() Stats { return e.stats }

// NewAccumulator returns empty lattices sized for the engine's image.
func (e *Engine) NewAccumulator(npol, nchan int, psf bool) *Accumulator {
	acc := &Accumulator{
		Grid:      NewGrid(e.loc.nx, e.loc.ny, npol, nchan),
		SumWeight: make([]float64, npol*nchan),
		PSF:       psf,
	}
	if e.cfg.GridWeights {
		acc.Weights = NewGrid(e.loc.nx, e.loc.ny, npol, nchan)
	}
	return acc
}

// Accumulate grids every usable sample of b into acc using the kernels in
// res. Out-of-field results are skipped without error.
func (e *Engine) Accumulate(acc *Accumulator, b *vis.Batch, res *convfunc.Result) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if res == nil || res.Status != convfunc.StatusOK {
		e.stats.SkippedBatches++
		return nil
	}
	if b.Data == nil && !acc.PSF {
		return fmt.Errorf("%w: no data to grid", vis.ErrInvalidBatch)
	}
	nchan, npol := b.NChan(), b.NPol
	if err := acc.Grid.checkShape(e.loc.nx, e.loc.ny, npol, nchan); err != nil {
		return err
	}
	if acc.Weights != nil {
		if err := acc.Weights.checkShape(e.loc.nx, e.loc.ny, npol, nchan); err != nil {
			return err
		}
	}
	if len(acc.SumWeight) != npol*nchan {
		return fmt.Errorf("%w: %d weight sums, want %d", ErrShapeMismatch, len(acc.SumWeight), npol*nchan)
	}
	if err := checkResult(res, b); err != nil {
		return err
	}

	rows := e.selectRows(b, res)
	locs := make([]sampleLoc, b.NRow()*nchan)
	if err := e.loc.locate(e.pool, b, locs); err != nil {
		return err
	}

	rects := parallel.Quadrants(e.loc.nx, e.loc.ny, e.pool.Workers())
	sums := make([][]float64, len(rects))
	offGrid := make([]int, len(rects))
	gridded := make([]int, len(rects))
	err := e.pool.Each(len(rects), func(q int) error {
		sums[q] = make([]float64, npol*nchan)
		offGrid[q], gridded[q] = e.gridRect(rects[q], acc, b, res, rows, locs, sums[q])
		return nil
	})
	if err != nil {
		return err
	}
	for q := range rects {
		floats.Add(acc.SumWeight, sums[q])
		e.stats.Gridded += gridded[q]
	}
	// Every quadrant sees the same off-grid samples.
	e.stats.OffGrid += offGrid[0]
	e.stats.Batches++

	monitoring.Debugf("[Gridder] accumulate fingerprint=%v rows=%d usable=%d quadrants=%d off_grid=%d psf=%v",
		res.Fingerprint, b.NRow(), len(rows), len(rects), offGrid[0], acc.PSF)
	return nil
}

// gridRect grids every selected sample into the pixels of rect. Weight sums
// are credited to the rectangle that holds the sample's centre pixel.
func (e *Engine) gridRect(rect parallel.Rect, acc *Accumulator, b *vis.Batch, res *convfunc.Result,
	rows []int, locs []sampleLoc, sumWt []float64) (offGrid, gridded int) {
	nchan, npol := b.NChan(), b.NPol
	cf, cw := &res.ConvFunc, &res.ConvWeight
	for _, row := range rows {
		plane := res.RowPlaneMap[row]
		sup := res.Support[plane]
		for ch := 0; ch < nchan; ch++ {
			loc := &locs[row*nchan+ch]
			if !e.loc.fits(loc, sup) {
				offGrid++
				continue
			}
			if loc.X+sup < rect.X0 || loc.X-sup >= rect.X1 || loc.Y+sup < rect.Y0 || loc.Y-sup >= rect.Y1 {
				continue
			}
			owner := rect.Contains(loc.X, loc.Y)
			fch := res.FreqPlaneMap[ch]
			for pol := 0; pol < npol; pol++ {
				if b.Flagged(row, ch, pol) {
					continue
				}
				idx := b.Index(row, ch, pol)
				w := 1.0
				if b.Weights != nil {
					w = b.Weights[idx]
				}
				val := complex(w, 0) * loc.Phasor
				if !acc.PSF {
					val *= b.Data[idx]
				}
				kpol := res.PolPlaneMap[pol]
				e.spread(acc.Grid.Plane(pol, ch), rect, cf.Plane(plane, fch, kpol), cf.Size, sup, loc, val)
				if acc.Weights != nil {
					e.spread(acc.Weights.Plane(pol, ch), rect, cw.Plane(plane, fch, kpol), cw.Size, sup, loc, complex(w, 0))
				}
				if owner {
					sumWt[ch*npol+pol] += w
					gridded++
				}
			}
		}
	}
	return offGrid, gridded
}

// spread adds val times the conjugate kernel to the pixels of dst that lie
// inside both the kernel footprint and rect.
func (e *Engine) spread(dst []complex128, rect parallel.Rect, k []complex128, ksize, sup int, loc *sampleLoc, val complex128) {
	nx, s, c := e.loc.nx, e.loc.oversampling, ksize/2
	y0, y1 := max(loc.Y-sup, rect.Y0), min(loc.Y+sup, rect.Y1-1)
	x0, x1 := max(loc.X-sup, rect.X0), min(loc.X+sup, rect.X1-1)
	for y := y0; y <= y1; y++ {
		ky := c + (y-loc.Y)*s + loc.OffY
		if ky < 0 || ky >= ksize {
			continue
		}
		krow := k[ky*ksize : (ky+1)*ksize]
		drow := dst[y*nx : (y+1)*nx]
		for x := x0; x <= x1; x++ {
			kx := c + (x-loc.X)*s + loc.OffX
			if kx < 0 || kx >= ksize {
				continue
			}
			drow[x] += val * cmplx.Conj(krow[kx])
		}
	}
}

// Sample predicts b.Data from grid using the kernels in res. Samples of
// excluded rows, flagged samples and samples whose kernel leaves the lattice
// are left untouched; b.Data is allocated when nil.
func (e *Engine) Sample(grid *Grid, b *vis.Batch, res *convfunc.Result) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if res == nil || res.Status != convfunc.StatusOK {
		e.stats.SkippedBatches++
		return nil
	}
	nchan, npol := b.NChan(), b.NPol
	if err := grid.checkShape(e.loc.nx, e.loc.ny, npol, nchan); err != nil {
		return err
	}
	if err := checkResult(res, b); err != nil {
		return err
	}
	if b.Data == nil {
		b.Data = make([]complex128, b.NRow()*nchan*npol)
	}

	rows := e.selectRows(b, res)
	locs := make([]sampleLoc, b.NRow()*nchan)
	if err := e.loc.locate(e.pool, b, locs); err != nil {
		return err
	}

	parts := max(len(parallel.Split(len(rows), e.pool.Workers())), 1)
	offGrid := make([]int, parts)
	sampled := make([]int, parts)
	cf := &res.ConvFunc
	err := e.pool.For(len(rows), func(part int, r parallel.Range) error {
		for _, row := range rows[r.Lo:r.Hi] {
			plane := res.RowPlaneMap[row]
			sup := res.Support[plane]
			for ch := 0; ch < nchan; ch++ {
				loc := &locs[row*nchan+ch]
				if !e.loc.fits(loc, sup) {
					offGrid[part]++
					continue
				}
				fch := res.FreqPlaneMap[ch]
				for pol := 0; pol < npol; pol++ {
					if b.Flagged(row, ch, pol) {
						continue
					}
					k := cf.Plane(plane, fch, res.PolPlaneMap[pol])
					v := e.gather(grid.Plane(pol, ch), k, cf.Size, sup, loc)
					b.Data[b.Index(row, ch, pol)] = v * cmplx.Conj(loc.Phasor)
					sampled[part]++
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for part := range offGrid {
		e.stats.OffGrid += offGrid[part]
		e.stats.Gridded += sampled[part]
	}
	e.stats.Batches++
	monitoring.Debugf("[Gridder] sample fingerprint=%v rows=%d usable=%d", res.Fingerprint, b.NRow(), len(rows))
	return nil
}

// gather sums the kernel-weighted pixels of src under the footprint of loc.
func (e *Engine) gather(src []complex128, k []complex128, ksize, sup int, loc *sampleLoc) complex128 {
	nx, s, c := e.loc.nx, e.loc.oversampling, ksize/2
	var sum complex128
	for y := loc.Y - sup; y <= loc.Y+sup; y++ {
		ky := c + (y-loc.Y)*s + loc.OffY
		if ky < 0 || ky >= ksize {
			continue
		}
		krow := k[ky*ksize : (ky+1)*ksize]
		srow := src[y*nx : (y+1)*nx]
		for x := loc.X - sup; x <= loc.X+sup; x++ {
			kx := c + (x-loc.X)*s + loc.OffX
			if kx < 0 || kx >= ksize {
				continue
			}
			sum += krow[kx] * srow[x]
		}
	}
	return sum
}

// selectRows returns the rows to grid, counting the ones it drops.
func (e *Engine) selectRows(b *vis.Batch, res *convfunc.Result) []int {
	n := b.NRow()
	e.stats.Rows += n
	rows := make([]int, 0, n)
	for row := 0; row < n; row++ {
		plane := res.RowPlaneMap[row]
		switch {
		case b.FlagRow != nil && b.FlagRow[row]:
			e.stats.FlaggedRows++
		case !e.cfg.UseAutoCorrelations && b.IsAutoCorrelation(row):
			e.stats.AutoRows++
		case plane < 0 || res.Support[plane] == 0:
			e.stats.NoBeamRows++
		default:
			rows = append(rows, row)
		}
	}
	return rows
}

// checkResult verifies that res covers every row, channel and
// polarization of b.
func checkResult(res *convfunc.Result, b *vis.Batch) error {
	k := &res.ConvFunc
	switch {
	case len(res.RowPlaneMap) != b.NRow():
		return fmt.Errorf("%w: plane map covers %d rows, batch has %d", ErrShapeMismatch, len(res.RowPlaneMap), b.NRow())
	case len(res.FreqPlaneMap) != b.NChan():
		return fmt.Errorf("%w: frequency map covers %d channels, batch has %d", ErrShapeMismatch, len(res.FreqPlaneMap), b.NChan())
	case len(res.PolPlaneMap) != b.NPol:
		return fmt.Errorf("%w: polarization map covers %d, batch has %d", ErrShapeMismatch, len(res.PolPlaneMap), b.NPol)
	case len(res.Support) != k.NPlane:
		return fmt.Errorf("%w: %d supports for %d kernel planes", ErrShapeMismatch, len(res.Support), k.NPlane)
	case len(k.Data) != k.Size*k.Size*k.NPol*k.NChan*k.NPlane:
		return fmt.Errorf("%w: kernel has %d samples for shape %dx%dx%dx%d", ErrShapeMismatch, len(k.Data), k.Size, k.NPol, k.NChan, k.NPlane)
	}
	for _, p := range res.RowPlaneMap {
		if p >= k.NPlane {
			return fmt.Errorf("%w: plane %d outside kernel of %d planes", ErrShapeMismatch, p, k.NPlane)
		}
	}
	for _, f := range res.FreqPlaneMap {
		if f < 0 || f >= k.NChan {
			return fmt.Errorf("%w: frequency plane %d outside kernel of %d", ErrShapeMismatch, f, k.NChan)
		}
	}
	for _, p := range res.PolPlaneMap {
		if p < 0 || p >= k.NPol {
			return fmt.Errorf("%w: polarization plane %d outside kernel of %d", ErrShapeMismatch, p, k.NPol)
		}
	}
	return nil
}
