package beam

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/hetgrid/internal/gridding/skycoord"
)

// ErrUnsupportedBeam is returned when a requested beam family, or a dish
// geometry within a family, has no implementation.
var ErrUnsupportedBeam = errors.New("unsupported beam model")

// Kind identifies a beam model family.
type Kind int

const (
	KindAiry Kind = iota
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindAiry:
		return "airy"
	case KindImage:
		return "image"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind converts a configuration string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "airy", "":
		return KindAiry, nil
	case "image":
		return KindImage, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedBeam, s)
}

// Model applies an antenna's response to a screen.
type Model interface {
	Kind() Kind
	// ApplyVoltagePattern multiplies every screen pixel by the complex
	// voltage response of an antenna pointed at pointing.
	ApplyVoltagePattern(s *Screen, pointing skycoord.Direction)
	// ApplyPowerPattern multiplies every screen pixel by the power response
	// (voltage amplitude squared).
	ApplyPowerPattern(s *Screen, pointing skycoord.Direction)
	// SupportRadius returns the radius, in pixels of cs, outside which the
	// pattern is treated as zero at the reference frequency of cs.
	SupportRadius(cs skycoord.CoordinateSystem) int
}

// Screen is a square complex image on which beam patterns are evaluated.
// Data is row-major: Data[y*Size+x].
type Screen struct {
	Size   int
	Coords *skycoord.Projection
	Freq   float64
	Data   []complex128
}

// NewScreen allocates a zeroed screen.
func NewScreen(size int, coords *skycoord.Projection, freq float64) *Screen {
	return &Screen{Size: size, Coords: coords, Freq: freq, Data: make([]complex128, size*size)}
}

// Fill sets every pixel to v.
func (s *Screen) Fill(v complex128) {
	for i := range s.Data {
		s.Data[i] = v
	}
}

// MaskBelow zeroes every pixel whose amplitude does not exceed threshold.
func (s *Screen) MaskBelow(threshold float64) {
	for i, v := range s.Data {
		if cmplxAbs(v) <= threshold {
			s.Data[i] = 0
		}
	}
}

// applyRadial multiplies each pixel by f(r), where r is the angular offset
// of the pixel from pointing in radians. Offsets are taken in direction
// cosines of the screen projection, accurate for the small fields a
// primary beam covers.
func (s *Screen) applyRadial(pointing skycoord.Direction, f func(r float64) complex128) {
	l0, m0, ok := s.Coords.DirectionCosines(pointing)
	if !ok {
		s.Fill(0)
		return
	}
	rx, ry := s.Coords.ReferencePixel()
	dx, dy := s.Coords.Increment()
	for y := 0; y < s.Size; y++ {
		dm := (float64(y)-ry)*dy - m0
		row := s.Data[y*s.Size : (y+1)*s.Size]
		for x := range row {
			if row[x] == 0 {
				continue
			}
			dl := (float64(x)-rx)*dx - l0
			row[x] *= f(math.Hypot(dl, dm))
		}
	}
}

// applyOffset is like applyRadial but passes the (l, m) offset components.
func (s *Screen) applyOffset(pointing skycoord.Direction, f func(dl, dm float64) complex128) {
	l0, m0, ok := s.Coords.DirectionCosines(pointing)
	if !ok {
		s.Fill(0)
		return
	}
	rx, ry := s.Coords.ReferencePixel()
	dx, dy := s.Coords.Increment()
	for y := 0; y < s.Size; y++ {
		dm := (float64(y)-ry)*dy - m0
		row := s.Data[y*s.Size : (y+1)*s.Size]
		for x := range row {
			if row[x] == 0 {
				continue
			}
			row[x] *= f((float64(x)-rx)*dx-l0, dm)
		}
	}
}

func cmplxAbs(v complex128) float64 {
	return math.Hypot(real(v), imag(v))
}
