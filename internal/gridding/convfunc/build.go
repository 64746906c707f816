package convfunc

import (
	"fmt"

	"github.com/banshee-data/hetgrid/internal/gridding/antclass"
	"github.com/banshee-data/hetgrid/internal/gridding/beam"
	"github.com/banshee-data/hetgrid/internal/gridding/fft"
	"github.com/banshee-data/hetgrid/internal/gridding/planes"
	"github.com/banshee-data/hetgrid/internal/gridding/skycoord"
	"github.com/banshee-data/hetgrid/internal/monitoring"
)

// minScreenSize keeps the central quarter of a screen large enough to hold
// a kernel.
const minScreenSize = 16

// ScreenSize returns the side of the beam screens for an nx×ny image.
func ScreenSize(nx, ny, oversampling int) int {
	n := max(nx, ny) * oversampling
	return fft.NextComposite(max(n, minScreenSize))
}

// screenCoords returns the coordinate system of a beam screen centred on
// pointing. The screen spans oversampling times the image's field so that
// its transform is oversampled in the uv plane.
func (c *Cache) screenCoords(pointing skycoord.Direction, size int, beamFreqs []float64) *skycoord.Projection {
	dx, dy := c.image.Coords.Increment()
	s := float64(c.cfg.Oversampling)
	df := 0.0
	if len(beamFreqs) > 1 {
		df = beamFreqs[1] - beamFreqs[0]
	}
	return &skycoord.Projection{
		Ref:     pointing,
		RefPixX: float64(size / 2),
		RefPixY: float64(size / 2),
		IncX:    dx * s * float64(c.image.NX) / float64(size),
		IncY:    dy * s * float64(c.image.NY) / float64(size),
		RefFreq: beamFreqs[0],
		FreqInc: df,
	}
}

// build fills e with kernels for every antenna-class pair.
func (c *Cache) build(e *Entry, pointing skycoord.Direction, classes *antclass.Resolution, beamFreqs []float64) error {
	start := c.clock.Now()
	e.State = StateBuilding

	models := classes.Models()
	n := len(models)
	nPlanes := planes.Count(n)
	nChan := len(beamFreqs)
	screenSize := ScreenSize(c.image.NX, c.image.NY, c.cfg.Oversampling)
	quarter := 2 * (screenSize / 8)
	lo := screenSize/2 - quarter/2

	coords := c.screenCoords(pointing, screenSize, beamFreqs)
	plan := fft.NewPlan(screenSize)
	vp := beam.NewScreen(screenSize, coords, 0)
	pb := beam.NewScreen(screenSize, coords, 0)

	cf := newKernel(quarter, 1, nChan, nPlanes, make([]complex128, kernelLen(quarter, 1, nChan, nPlanes)))
	cw := newKernel(quarter, 1, nChan, nPlanes, make([]complex128, kernelLen(quarter, 1, nChan, nPlanes)))
	support := make([]int, nPlanes)

	for k := 0; k < n; k++ {
		for j := k; j < n; j++ {
			p := planes.Index(k, j, n)
			for ch, freq := range beamFreqs {
				vp.Freq, pb.Freq = freq, freq

				vp.Fill(1)
				models[k].ApplyVoltagePattern(vp, pointing)
				models[j].ApplyVoltagePattern(vp, pointing)

				pb.Fill(1)
				models[k].ApplyPowerPattern(pb, pointing)
				models[j].ApplyPowerPattern(pb, pointing)

				vp.MaskBelow(c.cfg.VoltageMaskThreshold)
				pb.MaskBelow(c.cfg.WeightMaskThreshold)
				plan.Forward(vp.Data)
				plan.Forward(pb.Data)

				extractCentre(cf.Plane(p, ch, 0), vp.Data, screenSize, lo, quarter)
				extractCentre(cw.Plane(p, ch, 0), pb.Data, screenSize, lo, quarter)
			}
			sup, err := c.cfg.supportAndNormalize(&cf, &cw, p)
			if err != nil {
				return fmt.Errorf("build fingerprint %v classes (%d,%d): %w", e.Fingerprint, k, j, err)
			}
			support[p] = sup
		}
	}

	size := quarter
	maxSupport := 0
	for _, s := range support {
		maxSupport = max(maxSupport, s)
	}
	if trimmed := 2 * (maxSupport + c.cfg.TrimMarginCells) * c.cfg.Oversampling; trimmed < quarter {
		size = trimmed
	}

	e.allocate(size, 1, nChan, nPlanes)
	off := quarter/2 - size/2
	for p := 0; p < nPlanes; p++ {
		for ch := 0; ch < nChan; ch++ {
			extractCentre(e.ConvFunc.Plane(p, ch, 0), cf.Plane(p, ch, 0), quarter, off, size)
			extractCentre(e.ConvWeight.Plane(p, ch, 0), cw.Plane(p, ch, 0), quarter, off, size)
		}
	}
	e.Support = support
	e.BeamFreqs = append([]float64(nil), beamFreqs...)
	e.ClassKeys = classes.Keys()
	e.State = StateReady

	elapsed := c.clock.Since(start)
	c.stats.Builds++
	c.stats.BuildTime += elapsed
	monitoring.Logf("[ConvFuncCache] built fingerprint=%v classes=%d planes=%d freqs=%d screen=%d size=%d (trimmed from %d) support=%v in %s",
		e.Fingerprint, n, nPlanes, nChan, screenSize, size, quarter, support, elapsed)
	monitoring.Debugf("[ConvFuncCache] after build: %s", monitoring.MemString())

	if c.hook != nil {
		c.hook(e.Fingerprint, nPlanes)
	}
	return nil
}

// extractCentre copies the size×size window starting at (lo, lo) of the
// src×src plane into dst.
func extractCentre(dst, src []complex128, srcSize, lo, size int) {
	for y := 0; y < size; y++ {
		copy(dst[y*size:(y+1)*size], src[(lo+y)*srcSize+lo:(lo+y)*srcSize+lo+size])
	}
}
