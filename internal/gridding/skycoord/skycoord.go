package skycoord

import (
	"fmt"
	"math"
)

// Direction is a position on the celestial sphere, in radians.
type Direction struct {
	Lon float64 // right ascension or longitude
	Lat float64 // declination or latitude
}

// NewDirectionDeg builds a Direction from degrees.
func NewDirectionDeg(lonDeg, latDeg float64) Direction {
	return Direction{Lon: lonDeg * math.Pi / 180, Lat: latDeg * math.Pi / 180}
}

// Separation returns the great-circle distance to o in radians.
func (d Direction) Separation(o Direction) float64 {
	sdLat := math.Sin((o.Lat - d.Lat) / 2)
	sdLon := math.Sin((o.Lon - d.Lon) / 2)
	h := sdLat*sdLat + math.Cos(d.Lat)*math.Cos(o.Lat)*sdLon*sdLon
	return 2 * math.Asin(math.Min(1, math.Sqrt(h)))
}

func (d Direction) String() string {
	return fmt.Sprintf("(%.6fdeg, %.6fdeg)", d.Lon*180/math.Pi, d.Lat*180/math.Pi)
}

// CoordinateSystem converts between sky directions and pixel positions of a
// two-dimensional image with an attached spectral axis.
type CoordinateSystem interface {
	// WorldToPixel projects dir onto the pixel grid. ok is false when the
	// direction lies on the far hemisphere and has no projection.
	WorldToPixel(dir Direction) (x, y float64, ok bool)
	PixelToWorld(x, y float64) Direction
	// Increment returns the pixel size along each axis in radians.
	Increment() (dx, dy float64)
	ReferencePixel() (x, y float64)
	ReferenceDirection() Direction
	// SpectralReference returns the frequency of the first channel and the
	// channel increment, both in Hz.
	SpectralReference() (refFreq, freqInc float64)
}

// Image couples a coordinate system with the pixel dimensions of the image
// it describes.
type Image struct {
	Coords CoordinateSystem
	NX, NY int
}

// Contains reports whether the integer pixel (x, y) lies inside the image.
func (im Image) Contains(x, y int) bool {
	return x >= 0 && x < im.NX && y >= 0 && y < im.NY
}
