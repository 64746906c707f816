package beam

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	json "github.com/KevinWang15/go-json5"

	"github.com/banshee-data/hetgrid/internal/gridding/skycoord"
)

// ImageModel is a voltage pattern sampled on a square grid centred on the
// beam axis. The pattern is sampled at RefFreq and scaled linearly with
// frequency when applied.
type ImageModel struct {
	Size         int
	Increment    float64 // radians per sample at RefFreq
	RefFreq      float64 // Hz
	DishDiameter float64 // metres, used to match dishes to images
	Data         []complex128
}

var _ Model = (*ImageModel)(nil)

// Kind implements Model.
func (m *ImageModel) Kind() Kind { return KindImage }

// Voltage returns the nearest sample of the pattern at the offset (dl, dm)
// radians and frequency freq. Offsets outside the image evaluate to zero.
func (m *ImageModel) Voltage(dl, dm, freq float64) complex128 {
	scale := 1.0
	if freq > 0 && m.RefFreq > 0 {
		scale = freq / m.RefFreq
	}
	c := m.Size / 2
	ix := int(math.Round(dl*scale/m.Increment)) + c
	iy := int(math.Round(dm*scale/m.Increment)) + c
	if ix < 0 || ix >= m.Size || iy < 0 || iy >= m.Size {
		return 0
	}
	return m.Data[iy*m.Size+ix]
}

// ApplyVoltagePattern implements Model.
func (m *ImageModel) ApplyVoltagePattern(s *Screen, pointing skycoord.Direction) {
	s.applyOffset(pointing, func(dl, dm float64) complex128 {
		return m.Voltage(dl, dm, s.Freq)
	})
}

// ApplyPowerPattern implements Model.
func (m *ImageModel) ApplyPowerPattern(s *Screen, pointing skycoord.Direction) {
	s.applyOffset(pointing, func(dl, dm float64) complex128 {
		v := cmplxAbs(m.Voltage(dl, dm, s.Freq))
		return complex(v*v, 0)
	})
}

// SupportRadius implements Model.
func (m *ImageModel) SupportRadius(cs skycoord.CoordinateSystem) int {
	dx, _ := cs.Increment()
	if dx == 0 {
		return 0
	}
	radius := float64(m.Size/2) * m.Increment
	f0, _ := cs.SpectralReference()
	if f0 > 0 && m.RefFreq > 0 {
		radius *= m.RefFreq / f0
	}
	return int(math.Ceil(radius/math.Abs(dx) - 1e-9))
}

// imageFile is the on-disk form of an ImageModel.
type imageFile struct {
	Size            int       `json:"size"`
	IncrementArcsec float64   `json:"increment_arcsec"`
	RefFreqHz       float64   `json:"ref_freq_hz"`
	DishDiameter    float64   `json:"dish_diameter"`
	Real            []float64 `json:"real"`
	Imag            []float64 `json:"imag,omitempty"`
}

// LoadImageModel reads a voltage-pattern image from a JSON5 file. The imag
// array may be omitted for a purely real pattern.
func LoadImageModel(path string) (*ImageModel, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read beam image: %w", err)
	}
	var f imageFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse beam image %s: %w", path, err)
	}
	n := f.Size * f.Size
	if f.Size <= 0 || len(f.Real) != n || (f.Imag != nil && len(f.Imag) != n) {
		return nil, fmt.Errorf("beam image %s: size %d does not match %d real / %d imag samples",
			path, f.Size, len(f.Real), len(f.Imag))
	}
	if f.IncrementArcsec <= 0 {
		return nil, fmt.Errorf("beam image %s: increment_arcsec must be positive", path)
	}
	m := &ImageModel{
		Size:         f.Size,
		Increment:    f.IncrementArcsec * arcsecToRad,
		RefFreq:      f.RefFreqHz,
		DishDiameter: f.DishDiameter,
		Data:         make([]complex128, n),
	}
	for i := range m.Data {
		im := 0.0
		if f.Imag != nil {
			im = f.Imag[i]
		}
		m.Data[i] = complex(f.Real[i], im)
	}
	return m, nil
}
