package gridder

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hetgrid/internal/gridding/antclass"
	"github.com/banshee-data/hetgrid/internal/gridding/beam"
	"github.com/banshee-data/hetgrid/internal/gridding/convfunc"
	"github.com/banshee-data/hetgrid/internal/gridding/skycoord"
	"github.com/banshee-data/hetgrid/internal/gridding/vis"
)

const (
	arcsec   = math.Pi / 180 / 3600
	testFreq = 1.4e9
	testSize = 64
	testOS   = 4
)

var testCentre = skycoord.NewDirectionDeg(83.6, -5.4)

func testImage() skycoord.Image {
	return skycoord.Image{
		Coords: skycoord.NewProjection(testCentre, testSize, testSize, 30*arcsec, testFreq, 1e6),
		NX:     testSize,
		NY:     testSize,
	}
}

func testEngine(workers int) *Engine {
	cfg := DefaultConfig()
	cfg.Workers = workers
	return NewEngine(testImage(), testOS, cfg)
}

// boxResult is a one-plane result whose kernel is 1 everywhere inside a
// support of one pixel.
func boxResult(nrow, nchan, npol int) *convfunc.Result {
	const size = 16
	k := convfunc.Kernel{Size: size, NPol: 1, NChan: 1, NPlane: 1, Data: make([]complex128, size*size)}
	for i := range k.Data {
		k.Data[i] = 1
	}
	return &convfunc.Result{
		Status:       convfunc.StatusOK,
		ConvFunc:     k,
		ConvWeight:   k.Clone(),
		Size:         size,
		Support:      []int{1},
		RowPlaneMap:  make([]int, nrow),
		FreqPlaneMap: make([]int, nchan),
		PolPlaneMap:  make([]int, npol),
	}
}

// rowBatch returns a batch of cross-correlation rows with the given uvw, one
// channel and one polarization, unit data and weights.
func rowBatch(uvw ...[3]float64) *vis.Batch {
	b := &vis.Batch{
		DatasetID: "ms1",
		Antennas:  &vis.AntennaTable{Telescope: "VLA"},
		Freqs:     []float64{testFreq},
		NPol:      1,
	}
	for i := 0; i < 2; i++ {
		b.Antennas.Antennas = append(b.Antennas.Antennas, vis.Antenna{Name: fmt.Sprintf("ea%02d", i), DishDiameter: 25})
	}
	for _, p := range uvw {
		b.Ant1 = append(b.Ant1, 0)
		b.Ant2 = append(b.Ant2, 1)
		b.UVW = append(b.UVW, p)
		b.Data = append(b.Data, 1)
		b.Weights = append(b.Weights, 1)
	}
	return b
}

// randomBatch returns ntime snapshots of every cross pair of a mixed array
// on two channels and two polarizations, with random uvw, data and weights.
func randomBatch(rng *rand.Rand, ntime int) *vis.Batch {
	diam := []float64{25, 25, 12, 12}
	b := &vis.Batch{
		DatasetID: "ms1",
		Antennas:  &vis.AntennaTable{Telescope: "VLA"},
		Freqs:     []float64{1.38e9, 1.42e9},
		NPol:      2,
	}
	for i, d := range diam {
		b.Antennas.Antennas = append(b.Antennas.Antennas, vis.Antenna{Name: fmt.Sprintf("ea%02d", i), DishDiameter: d})
	}
	for t := 0; t < ntime; t++ {
		for i := range diam {
			for j := i + 1; j < len(diam); j++ {
				b.Ant1 = append(b.Ant1, i)
				b.Ant2 = append(b.Ant2, j)
				b.UVW = append(b.UVW, [3]float64{600 * (rng.Float64() - 0.5), 600 * (rng.Float64() - 0.5), 0})
				b.Dphase = append(b.Dphase, 0.05*rng.Float64())
			}
		}
	}
	n := b.NRow() * b.NChan() * b.NPol
	for i := 0; i < n; i++ {
		b.Data = append(b.Data, complex(rng.NormFloat64(), rng.NormFloat64()))
		b.Weights = append(b.Weights, 0.5+rng.Float64())
	}
	return b
}

// airyKernels builds real kernels for b at pixel (px, py).
func airyKernels(t *testing.T, b *vis.Batch, px, py float64) *convfunc.Result {
	t.Helper()
	cfg := convfunc.DefaultConfig()
	cfg.Oversampling = testOS
	cfg.Workers = 2
	img := testImage()
	c := convfunc.NewCache(img, antclass.NewResolver(beam.NewRegistry(beam.KindAiry), nil), cfg)
	res, err := c.Acquire(img.Coords.PixelToWorld(px, py), b)
	require.NoError(t, err)
	require.Equal(t, convfunc.StatusOK, res.Status)
	return res
}

// inner returns sum(conj(a) * b).
func inner(a, b []complex128) complex128 {
	var s complex128
	for i := range a {
		s += complex(real(a[i]), -imag(a[i])) * b[i]
	}
	return s
}
