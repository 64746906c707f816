package beam

import (
	"fmt"
	"math"
	"sort"
)

// Registry resolves antennas to beam models. One Registry is built per
// imaging run and handed to the antenna-class resolver.
type Registry struct {
	kind   Kind
	images map[string]*ImageModel
}

// NewRegistry returns a registry that builds models of the given family for
// diameter-keyed lookups.
func NewRegistry(kind Kind) *Registry {
	return &Registry{kind: kind, images: make(map[string]*ImageModel)}
}

// Kind returns the family used for diameter-keyed lookups.
func (r *Registry) Kind() Kind { return r.kind }

// RegisterImage makes a voltage-pattern image available under key, both for
// explicit beam tables and for diameter matching in the image family.
func (r *Registry) RegisterImage(key string, m *ImageModel) {
	r.images[key] = m
}

// Image returns the image registered under key.
func (r *Registry) Image(key string) (*ImageModel, error) {
	m, ok := r.images[key]
	if !ok {
		return nil, fmt.Errorf("%w: no voltage pattern image %q", ErrUnsupportedBeam, key)
	}
	return m, nil
}

// Resolve returns the model for an antenna identified by telescope, name and
// dish diameter.
func (r *Registry) Resolve(telescope, antennaName string, diameter float64) (Model, error) {
	switch r.kind {
	case KindAiry:
		if diameter <= 0 {
			return nil, fmt.Errorf("%w: antenna %s has no dish", ErrUnsupportedBeam, antennaName)
		}
		return NewAiryForDish(telescope, diameter), nil
	case KindImage:
		return r.imageForDiameter(antennaName, diameter)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedBeam, r.kind)
	}
}

// imageForDiameter picks the registered image whose dish diameter is
// closest to diameter, within one metre.
func (r *Registry) imageForDiameter(antennaName string, diameter float64) (*ImageModel, error) {
	keys := make([]string, 0, len(r.images))
	for k := range r.images {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var best *ImageModel
	bestDist := math.Inf(1)
	for _, k := range keys {
		m := r.images[k]
		if d := math.Abs(m.DishDiameter - diameter); d < 1 && d < bestDist {
			best, bestDist = m, d
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: no voltage pattern image for %gm dish (antenna %s)",
			ErrUnsupportedBeam, diameter, antennaName)
	}
	return best, nil
}
