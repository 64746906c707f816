package convfunc

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hetgrid/internal/gridding/antclass"
	"github.com/banshee-data/hetgrid/internal/gridding/beam"
	"github.com/banshee-data/hetgrid/internal/gridding/skycoord"
	"github.com/banshee-data/hetgrid/internal/gridding/vis"
)

const (
	arcsec   = math.Pi / 180 / 3600
	testFreq = 1.4e9
	testCell = 30 * arcsec
	testSize = 64
)

var testCentre = skycoord.NewDirectionDeg(180, 34)

func testImage() skycoord.Image {
	return skycoord.Image{
		Coords: skycoord.NewProjection(testCentre, testSize, testSize, testCell, testFreq, 1e6),
		NX:     testSize,
		NY:     testSize,
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Workers = 3
	return cfg
}

// newAiryCache returns a cache grouping antennas by diameter with Airy beams.
func newAiryCache(t *testing.T) *Cache {
	t.Helper()
	return NewCache(testImage(), antclass.NewResolver(beam.NewRegistry(beam.KindAiry), nil), testConfig())
}

// testBatch returns every antenna pair (autos included) of an array with the
// given dish diameters, on a single channel.
func testBatch(dataset string, diameters ...float64) *vis.Batch {
	ants := &vis.AntennaTable{Telescope: "VLA"}
	for i, d := range diameters {
		ants.Antennas = append(ants.Antennas, vis.Antenna{Name: fmt.Sprintf("ea%02d", i), DishDiameter: d})
	}
	b := &vis.Batch{DatasetID: dataset, Antennas: ants, Freqs: []float64{testFreq}, NPol: 1}
	for i := range diameters {
		for j := i; j < len(diameters); j++ {
			b.Ant1 = append(b.Ant1, i)
			b.Ant2 = append(b.Ant2, j)
			b.UVW = append(b.UVW, [3]float64{float64(10 * (j - i)), float64(5 * (j + i)), 0})
		}
	}
	return b
}

// offsetPointing returns the direction of image pixel (x, y).
func offsetPointing(x, y float64) skycoord.Direction {
	return testImage().Coords.PixelToWorld(x, y)
}

// gaussianImage is a circular Gaussian voltage pattern sampled on the screen
// grid used by the test image.
func gaussianImage(sigma float64) *beam.ImageModel {
	const n = 129
	m := &beam.ImageModel{Size: n, Increment: testCell, RefFreq: testFreq, Data: make([]complex128, n*n)}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			dx, dy := float64(x-n/2), float64(y-n/2)
			m.Data[y*n+x] = complex(math.Exp(-(dx*dx+dy*dy)/(2*sigma*sigma)), 0)
		}
	}
	return m
}

// memStore is an in-memory CheckpointStore.
type memStore struct {
	recs []*CheckpointRecord
}

func (m *memStore) InsertCheckpoint(_ context.Context, rec *CheckpointRecord) (string, error) {
	rec.CheckpointID = fmt.Sprintf("cp-%d", len(m.recs)+1)
	m.recs = append(m.recs, rec)
	return rec.CheckpointID, nil
}

func (m *memStore) LatestCheckpoint(_ context.Context, runID string) (*CheckpointRecord, error) {
	for i := len(m.recs) - 1; i >= 0; i-- {
		if m.recs[i].RunID == runID {
			return m.recs[i], nil
		}
	}
	return nil, fmt.Errorf("no checkpoint for run %s", runID)
}

// buildCounter records build hook calls.
type buildCounter struct {
	calls  int
	planes []int
}

func (b *buildCounter) hook(_ Fingerprint, n int) {
	b.calls++
	b.planes = append(b.planes, n)
}

// requireNormalized checks the unit-flux property of every plane of e.
func requireNormalized(t *testing.T, k *Kernel, support []int, s int) {
	t.Helper()
	for p, sup := range support {
		for ch := 0; ch < k.NChan; ch++ {
			plane := k.Plane(p, ch, 0)
			if sup == 0 {
				for i, v := range plane {
					require.Zero(t, v, "plane %d chan %d sample %d", p, ch, i)
				}
				continue
			}
			sum := boxSum(plane, k.Size, sup*s) / float64(s*s)
			require.InDelta(t, 1.0, sum, 1e-6, "plane %d chan %d", p, ch)
		}
	}
}
