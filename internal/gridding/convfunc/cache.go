package convfunc

import (
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/hetgrid/internal/gridding/antclass"
	"github.com/banshee-data/hetgrid/internal/gridding/parallel"
	"github.com/banshee-data/hetgrid/internal/gridding/planes"
	"github.com/banshee-data/hetgrid/internal/gridding/skycoord"
	"github.com/banshee-data/hetgrid/internal/gridding/vis"
	"github.com/banshee-data/hetgrid/internal/monitoring"
	"github.com/banshee-data/hetgrid/internal/timeutil"
)

// Status reports whether Acquire produced kernels.
type Status int

const (
	// StatusOK means the result carries kernels for the batch.
	StatusOK Status = iota
	// StatusOutOfField means the pointing projects outside the image; the
	// caller skips the batch.
	StatusOutOfField
)

func (s Status) String() string {
	if s == StatusOutOfField {
		return "out-of-field"
	}
	return "ok"
}

// Result is what Acquire hands to the gridder.
type Result struct {
	Status      Status
	Fingerprint Fingerprint
	// Pixel is the fractional image pixel of the pointing.
	PixelX, PixelY float64

	ConvFunc   Kernel
	ConvWeight Kernel
	Size       int
	Support    []int

	// RowPlaneMap gives the antenna-pair plane of every row, or -1 for rows
	// involving an antenna without a beam.
	RowPlaneMap []int
	// FreqPlaneMap gives the kernel frequency plane of every channel.
	FreqPlaneMap []int
	// PolPlaneMap gives the kernel polarization plane of every polarization.
	PolPlaneMap []int

	Gradient Gradient
}

// Stats counts cache activity.
type Stats struct {
	Hits       int
	Misses     int
	Builds     int
	Rebuilds   int
	OutOfField int
	BuildTime  time.Duration
}

// BuildHook is called after every build with the fingerprint and plane count.
type BuildHook func(fp Fingerprint, nPlanes int)

// Cache is the fingerprint-keyed store of convolution functions for one
// output image.
type Cache struct {
	cfg      Config
	image    skycoord.Image
	resolver *antclass.Resolver
	pool     *parallel.Pool
	clock    timeutil.Clock

	// slotOf maps y*nx+x to an index into entries, or -1.
	slotOf  []int
	entries []*Entry

	stats Stats
	hook  BuildHook
}

// NewCache returns an empty cache for image. resolver supplies the antenna
// classes of each batch's dataset.
func NewCache(image skycoord.Image, resolver *antclass.Resolver, cfg Config) *Cache {
	if cfg.Oversampling < 1 {
		cfg.Oversampling = 1
	}
	return &Cache{
		cfg:      cfg,
		image:    image,
		resolver: resolver,
		pool:     parallel.NewPool(cfg.Workers),
		clock:    timeutil.RealClock{},
	}
}

// SetClock replaces the clock used to time builds.
func (c *Cache) SetClock(clock timeutil.Clock) { c.clock = clock }

// SetBuildHook installs a function called after every build.
func (c *Cache) SetBuildHook(h BuildHook) { c.hook = h }

// Config returns the cache's build parameters.
func (c *Cache) Config() Config { return c.cfg }

// Image returns the image the cache builds kernels for.
func (c *Cache) Image() skycoord.Image { return c.image }

// Stats returns a copy of the activity counters.
func (c *Cache) Stats() Stats { return c.stats }

// Len returns the number of fingerprints with an entry.
func (c *Cache) Len() int { return len(c.entries) }

// Entry returns the entry for fp, if any.
func (c *Cache) Entry(fp Fingerprint) (*Entry, bool) {
	if c.slotOf == nil || !c.image.Contains(fp.X, fp.Y) {
		return nil, false
	}
	slot := c.slotOf[fp.Y*c.image.NX+fp.X]
	if slot < 0 {
		return nil, false
	}
	return c.entries[slot], true
}

// Entries returns every entry in slot order.
func (c *Cache) Entries() []*Entry { return c.entries }

// Reset drops every entry.
func (c *Cache) Reset() {
	c.slotOf = nil
	c.entries = nil
}

// Locate projects pointing onto the image. ok is false when the pointing
// falls outside the image.
func (c *Cache) Locate(pointing skycoord.Direction) (fp Fingerprint, px, py float64, ok bool) {
	px, py, ok = c.image.Coords.WorldToPixel(pointing)
	if !ok {
		return Fingerprint{}, px, py, false
	}
	fp = Fingerprint{X: int(math.Round(px)), Y: int(math.Round(py))}
	return fp, px, py, c.image.Contains(fp.X, fp.Y)
}

// Acquire returns the convolution functions for a batch observed at
// pointing, multiplied by the phase gradient for the pointing's offset from
// the image centre. The kernels are a private copy.
func (c *Cache) Acquire(pointing skycoord.Direction, b *vis.Batch) (*Result, error) {
	res, err := c.acquire(pointing, b)
	if err != nil || res.Status != StatusOK {
		return res, err
	}
	res.ConvFunc = res.ConvFunc.Clone()
	res.ConvWeight = res.ConvWeight.Clone()
	if err := res.Gradient.Apply(c.pool, &res.ConvFunc, &res.ConvWeight); err != nil {
		return nil, fmt.Errorf("apply phase gradient: %w", err)
	}
	return res, nil
}

// AcquireReference is like Acquire but returns the cached kernels without
// the phase gradient. The returned storage belongs to the cache.
func (c *Cache) AcquireReference(pointing skycoord.Direction, b *vis.Batch) (*Result, error) {
	return c.acquire(pointing, b)
}

func (c *Cache) acquire(pointing skycoord.Direction, b *vis.Batch) (*Result, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	fp, px, py, ok := c.Locate(pointing)
	if !ok {
		c.stats.OutOfField++
		monitoring.Debugf("[ConvFuncCache] pointing %v projects to (%.1f,%.1f), outside %dx%d image; skipping batch",
			pointing, px, py, c.image.NX, c.image.NY)
		return &Result{Status: StatusOutOfField, PixelX: px, PixelY: py}, nil
	}

	classes, _, err := c.resolver.Resolve(b.DatasetID, b.Antennas)
	if err != nil {
		return nil, fmt.Errorf("resolve antenna classes: %w", err)
	}
	nClasses := classes.NumClasses()
	nPlanes := planes.Count(nClasses)
	chanMap, beamFreqs := FrequencyPlanes(b.Freqs, c.cfg.BeamFreqTolerance)

	e := c.slot(fp)
	switch {
	case e.State == StateUnbuilt:
		c.stats.Misses++
	case e.State == StateReady && (e.NumPlanes() != nPlanes || len(e.BeamFreqs) != len(beamFreqs)):
		e.State = StateStale
		c.stats.Rebuilds++
		monitoring.Logf("[ConvFuncCache] fingerprint=%v stale: built for %d planes/%d freqs, now %d/%d; rebuilding",
			fp, e.NumPlanes(), len(e.BeamFreqs), nPlanes, len(beamFreqs))
	case e.State == StateReady:
		c.stats.Hits++
	}

	if e.State != StateReady {
		if err := c.build(e, pointing, classes, beamFreqs); err != nil {
			return nil, err
		}
	}

	return &Result{
		Status:       StatusOK,
		Fingerprint:  fp,
		PixelX:       px,
		PixelY:       py,
		ConvFunc:     e.ConvFunc,
		ConvWeight:   e.ConvWeight,
		Size:         e.Size(),
		Support:      e.Support,
		RowPlaneMap:  planes.RowMap(b.Ant1, b.Ant2, classes.ClassOf, nClasses),
		FreqPlaneMap: chanMap,
		PolPlaneMap:  PolarizationPlanes(b.NPol),
		Gradient:     GradientFor(px, py, c.image.NX, c.image.NY, c.cfg.Oversampling),
	}, nil
}

// slot returns the entry for fp, creating an unbuilt one on first use.
func (c *Cache) slot(fp Fingerprint) *Entry {
	if c.slotOf == nil {
		c.slotOf = make([]int, c.image.NX*c.image.NY)
		for i := range c.slotOf {
			c.slotOf[i] = -1
		}
	}
	idx := fp.Y*c.image.NX + fp.X
	if s := c.slotOf[idx]; s >= 0 {
		return c.entries[s]
	}
	e := &Entry{Fingerprint: fp, State: StateUnbuilt}
	c.slotOf[idx] = len(c.entries)
	c.entries = append(c.entries, e)
	return e
}
