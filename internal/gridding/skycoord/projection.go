package skycoord

import "math"

// Projection is an orthographic (SIN) direction coordinate with a linear
// spectral axis.
type Projection struct {
	Ref              Direction
	RefPixX, RefPixY float64
	IncX, IncY       float64 // radians per pixel; IncX is normally negative
	RefFreq, FreqInc float64 // Hz
}

var _ CoordinateSystem = (*Projection)(nil)

// NewProjection builds a square-pixel projection centred on ref, with the
// reference pixel at the image centre (nx/2, ny/2) and RA increasing to the
// left.
func NewProjection(ref Direction, nx, ny int, cell float64, refFreq, freqInc float64) *Projection {
	return &Projection{
		Ref:     ref,
		RefPixX: float64(nx / 2),
		RefPixY: float64(ny / 2),
		IncX:    -cell,
		IncY:    cell,
		RefFreq: refFreq,
		FreqInc: freqInc,
	}
}

// DirectionCosines returns the (l, m) direction cosines of dir relative to
// the reference direction, and whether dir lies on the visible hemisphere.
func (p *Projection) DirectionCosines(dir Direction) (l, m float64, ok bool) {
	dLon := dir.Lon - p.Ref.Lon
	sinLat, cosLat := math.Sincos(dir.Lat)
	sinLat0, cosLat0 := math.Sincos(p.Ref.Lat)
	sinDLon, cosDLon := math.Sincos(dLon)

	l = cosLat * sinDLon
	m = sinLat*cosLat0 - cosLat*sinLat0*cosDLon
	n := sinLat*sinLat0 + cosLat*cosLat0*cosDLon
	return l, m, n >= 0
}

// WorldToPixel implements CoordinateSystem.
func (p *Projection) WorldToPixel(dir Direction) (x, y float64, ok bool) {
	l, m, ok := p.DirectionCosines(dir)
	if !ok {
		return 0, 0, false
	}
	x = p.RefPixX + l/p.IncX
	y = p.RefPixY + m/p.IncY
	return x, y, true
}

// PixelToWorld implements CoordinateSystem.
func (p *Projection) PixelToWorld(x, y float64) Direction {
	l := (x - p.RefPixX) * p.IncX
	m := (y - p.RefPixY) * p.IncY
	r2 := l*l + m*m
	if r2 > 1 {
		r2 = 1
	}
	n := math.Sqrt(1 - r2)
	sinLat0, cosLat0 := math.Sincos(p.Ref.Lat)
	lat := math.Asin(math.Max(-1, math.Min(1, m*cosLat0+n*sinLat0)))
	lon := p.Ref.Lon + math.Atan2(l, n*cosLat0-m*sinLat0)
	return Direction{Lon: lon, Lat: lat}
}

// Increment implements CoordinateSystem.
func (p *Projection) Increment() (dx, dy float64) { return p.IncX, p.IncY }

// ReferencePixel implements CoordinateSystem.
func (p *Projection) ReferencePixel() (x, y float64) { return p.RefPixX, p.RefPixY }

// ReferenceDirection implements CoordinateSystem.
func (p *Projection) ReferenceDirection() Direction { return p.Ref }

// SpectralReference implements CoordinateSystem.
func (p *Projection) SpectralReference() (refFreq, freqInc float64) {
	return p.RefFreq, p.FreqInc
}
