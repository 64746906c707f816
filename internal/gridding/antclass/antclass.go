// Package antclass groups the antennas of a dataset into classes that share
// one beam model.
//
// Without an explicit beam table, antennas are grouped by dish diameter.
// With a table, each class is one named voltage-pattern image and every
// antenna must match some entry. Class indices are stable for the lifetime
// of a Resolver: a class seen in an earlier dataset keeps its index when a
// later dataset reuses it.
package antclass

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/hetgrid/internal/gridding/beam"
	"github.com/banshee-data/hetgrid/internal/gridding/vis"
	"github.com/banshee-data/hetgrid/internal/monitoring"
)

var (
	// ErrNoDishSize is returned when no antenna of the dataset resolves to
	// a beam model.
	ErrNoDishSize = errors.New("no dish size information")
	// ErrMissingBeam is returned when an explicit beam table does not
	// cover every antenna of the dataset.
	ErrMissingBeam = errors.New("antenna has no beam model in the beam table")
)

// MissingBeamError names the antennas an explicit beam table did not cover.
type MissingBeamError struct {
	Antennas []string
}

func (e *MissingBeamError) Error() string {
	return fmt.Sprintf("%v: %s", ErrMissingBeam, strings.Join(e.Antennas, ", "))
}

func (e *MissingBeamError) Unwrap() error { return ErrMissingBeam }

// Class is one group of antennas sharing a beam model.
type Class struct {
	Key   string // dish diameter or beam image key
	Model beam.Model
}

// Resolution is the antenna-to-class mapping for one dataset.
type Resolution struct {
	DatasetID string
	// AntennaClass maps antenna index to class index; -1 marks an antenna
	// with no dish.
	AntennaClass []int
	// Classes lists every class known to the resolver, in index order.
	Classes []Class
}

// NumClasses returns the number of classes.
func (r *Resolution) NumClasses() int { return len(r.Classes) }

// ClassOf returns the class index of antenna ant, or -1.
func (r *Resolution) ClassOf(ant int) int {
	if ant < 0 || ant >= len(r.AntennaClass) {
		return -1
	}
	return r.AntennaClass[ant]
}

// Keys returns the class keys in index order.
func (r *Resolution) Keys() []string {
	keys := make([]string, len(r.Classes))
	for i, c := range r.Classes {
		keys[i] = c.Key
	}
	return keys
}

// Models returns the beam model of each class in index order.
func (r *Resolution) Models() []beam.Model {
	models := make([]beam.Model, len(r.Classes))
	for i, c := range r.Classes {
		models[i] = c.Model
	}
	return models
}

// Resolver maps antennas to classes, caching the result per dataset.
type Resolver struct {
	registry *beam.Registry
	table    *beam.Table

	keyToClass map[string]int
	classes    []Class
	last       *Resolution
}

// NewResolver returns a resolver backed by registry. table may be nil, in
// which case antennas are grouped by dish diameter.
func NewResolver(registry *beam.Registry, table *beam.Table) *Resolver {
	return &Resolver{
		registry:   registry,
		table:      table,
		keyToClass: make(map[string]int),
	}
}

// Resolve returns the class mapping for the dataset identified by datasetID.
// The mapping is recomputed only when datasetID differs from the previous
// call; changed reports whether that happened.
func (r *Resolver) Resolve(datasetID string, ants *vis.AntennaTable) (res *Resolution, changed bool, err error) {
	if r.last != nil && r.last.DatasetID == datasetID {
		return r.last, false, nil
	}
	if ants == nil {
		return nil, false, fmt.Errorf("dataset %s: %w", datasetID, ErrNoDishSize)
	}

	before := len(r.classes)
	var mapping []int
	if r.table == nil {
		mapping, err = r.byDiameter(ants)
	} else {
		mapping, err = r.byTable(ants)
	}
	if err != nil {
		return nil, false, err
	}
	if len(r.classes) == 0 {
		return nil, false, fmt.Errorf("dataset %s: %w", datasetID, ErrNoDishSize)
	}

	res = &Resolution{
		DatasetID:    datasetID,
		AntennaClass: mapping,
		Classes:      append([]Class(nil), r.classes...),
	}
	r.last = res
	monitoring.Logf("[AntennaClass] dataset=%s antennas=%d classes=%d (new=%d) keys=%v",
		datasetID, len(ants.Antennas), len(r.classes), len(r.classes)-before, res.Keys())
	return res, true, nil
}

// Last returns the most recent resolution, or nil.
func (r *Resolver) Last() *Resolution { return r.last }

// DiameterKey is the canonical grouping key for a dish diameter.
func DiameterKey(d float64) string {
	return strconv.FormatFloat(d, 'g', -1, 64)
}

func (r *Resolver) byDiameter(ants *vis.AntennaTable) ([]int, error) {
	mapping := make([]int, len(ants.Antennas))
	for i, a := range ants.Antennas {
		mapping[i] = -1
		if a.DishDiameter <= 0 {
			continue
		}
		key := DiameterKey(a.DishDiameter)
		if idx, ok := r.keyToClass[key]; ok {
			mapping[i] = idx
			continue
		}
		model, err := r.registry.Resolve(ants.Telescope, a.Name, a.DishDiameter)
		if err != nil {
			return nil, fmt.Errorf("antenna %s: %w", a.Name, err)
		}
		mapping[i] = r.addClass(key, model)
	}
	return mapping, nil
}

func (r *Resolver) byTable(ants *vis.AntennaTable) ([]int, error) {
	mapping := make([]int, len(ants.Antennas))
	var missing []string
	for i, a := range ants.Antennas {
		mapping[i] = -1
		entry, ok := r.table.Match(a.Name)
		if !ok {
			missing = append(missing, a.Name)
			continue
		}
		key := r.table.Entries[entry].Image
		if idx, ok := r.keyToClass[key]; ok {
			mapping[i] = idx
			continue
		}
		model, err := r.registry.Image(key)
		if err != nil {
			return nil, fmt.Errorf("antenna %s: %w", a.Name, err)
		}
		mapping[i] = r.addClass(key, model)
	}
	if len(missing) > 0 {
		return nil, &MissingBeamError{Antennas: missing}
	}
	return mapping, nil
}

func (r *Resolver) addClass(key string, model beam.Model) int {
	idx := len(r.classes)
	r.classes = append(r.classes, Class{Key: key, Model: model})
	r.keyToClass[key] = idx
	return idx
}
