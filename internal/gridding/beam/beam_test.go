package beam

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hetgrid/internal/gridding/skycoord"
)

func TestParseKind(t *testing.T) {
	t.Parallel()
	k, err := ParseKind("airy")
	require.NoError(t, err)
	assert.Equal(t, KindAiry, k)

	k, err = ParseKind("image")
	require.NoError(t, err)
	assert.Equal(t, KindImage, k)
	assert.Equal(t, "image", k.String())

	_, err = ParseKind("gaussian")
	assert.True(t, errors.Is(err, ErrUnsupportedBeam))
}

func TestNewAiryForDish(t *testing.T) {
	t.Parallel()
	alma := NewAiryForDish("ALMA", 12)
	assert.Equal(t, 10.7, alma.Diameter)
	assert.Equal(t, 0.75, alma.Blockage)

	// The effective-diameter override is ALMA only.
	other := NewAiryForDish("VLA", 12)
	assert.Equal(t, 12.0, other.Diameter)
	assert.InDelta(t, 0.96, other.Blockage, 1e-12)

	vla := NewAiryForDish("VLA", 25)
	assert.InDelta(t, 2.0, vla.Blockage, 1e-12)
	assert.InDelta(t, 150*arcsecToRad, vla.CutoffRadius(100e9), 1e-15)
	assert.InDelta(t, 1500*arcsecToRad, vla.CutoffRadius(10e9), 1e-15)
}

func TestAiryModel_Voltage(t *testing.T) {
	t.Parallel()
	m := &AiryModel{Diameter: 25, MaxRadius: math.Pi, RefFreq: 1e9}
	freq := 1e9

	assert.InDelta(t, 1.0, m.Voltage(0, freq), 1e-12)

	// First null of an unblocked aperture at x = 3.8317.
	lambda := speedOfLight / freq
	rNull := 3.8317059702 * lambda / (math.Pi * m.Diameter)
	assert.InDelta(t, 0.0, m.Voltage(rNull, freq), 1e-6)

	// Main lobe decreases monotonically.
	prev := 1.0
	for i := 1; i < 10; i++ {
		v := m.Voltage(rNull*float64(i)/10, freq)
		assert.Less(t, v, prev)
		prev = v
	}

	// Beyond the cutoff the pattern is zero.
	m.MaxRadius = rNull / 2
	assert.Zero(t, m.Voltage(rNull*0.6, freq))
}

func testScreen(size int, cell, freq float64) (*Screen, skycoord.Direction) {
	centre := skycoord.NewDirectionDeg(45, 30)
	p := skycoord.NewProjection(centre, size, size, cell, freq, 0)
	return NewScreen(size, p, freq), centre
}

func TestAiryModel_ApplyPatterns(t *testing.T) {
	t.Parallel()
	m := NewAiryForDish("VLA", 25)
	vp, centre := testScreen(32, 60*arcsecToRad, 1.4e9)
	pb, _ := testScreen(32, 60*arcsecToRad, 1.4e9)
	vp.Fill(1)
	pb.Fill(1)

	m.ApplyVoltagePattern(vp, centre)
	m.ApplyPowerPattern(pb, centre)

	assert.InDelta(t, 1.0, real(vp.Data[16*32+16]), 1e-12)
	for i := range vp.Data {
		v := real(vp.Data[i])
		assert.InDelta(t, v*v, real(pb.Data[i]), 1e-12)
		assert.Zero(t, imag(vp.Data[i]))
	}
	// Symmetric about the pointing.
	assert.InDelta(t, real(vp.Data[16*32+20]), real(vp.Data[16*32+12]), 1e-9)
	assert.InDelta(t, real(vp.Data[20*32+16]), real(vp.Data[12*32+16]), 1e-9)
}

func TestScreen_MaskBelow(t *testing.T) {
	t.Parallel()
	s := &Screen{Size: 2, Data: []complex128{1, 0.01, complex(0, 0.2), 0.05}}
	s.MaskBelow(0.05)
	assert.Equal(t, []complex128{1, 0, complex(0, 0.2), 0}, s.Data)
}

func TestAiryModel_SupportRadius(t *testing.T) {
	t.Parallel()
	m := NewAiryForDish("ALMA", 12)
	cs := skycoord.NewProjection(skycoord.Direction{}, 64, 64, 1*arcsecToRad, 100e9, 0)
	assert.Equal(t, 150, m.SupportRadius(cs))
}

func TestImageModel_Voltage(t *testing.T) {
	t.Parallel()
	m := &ImageModel{Size: 5, Increment: 10 * arcsecToRad, RefFreq: 1e9, Data: make([]complex128, 25)}
	m.Data[2*5+2] = 1
	m.Data[2*5+3] = complex(0.5, 0.1)

	assert.Equal(t, complex128(1), m.Voltage(0, 0, 1e9))
	assert.Equal(t, complex(0.5, 0.1), m.Voltage(10*arcsecToRad, 0, 1e9))
	// At twice the frequency the beam is half the size.
	assert.Equal(t, complex(0.5, 0.1), m.Voltage(5*arcsecToRad, 0, 2e9))
	assert.Zero(t, m.Voltage(100*arcsecToRad, 0, 1e9))
}

func TestImageModel_PowerIsAmplitudeSquared(t *testing.T) {
	t.Parallel()
	img := &ImageModel{Size: 3, Increment: 1e-3, RefFreq: 1e9, Data: []complex128{
		0, 0, 0,
		0, complex(0.6, 0.8), 0,
		0, 0, 0,
	}}
	s, centre := testScreen(1, 1e-3, 1e9)
	s.Fill(1)
	img.ApplyPowerPattern(s, centre)
	assert.InDelta(t, 1.0, real(s.Data[0]), 1e-12)

	s.Fill(1)
	img.ApplyVoltagePattern(s, centre)
	assert.InDelta(t, 0.6, real(s.Data[0]), 1e-12)
	assert.InDelta(t, 0.8, imag(s.Data[0]), 1e-12)
}

func TestLoadImageModel(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "vp.json5")
	content := `{
  // 2x2 test pattern
  size: 2,
  increment_arcsec: 30,
  ref_freq_hz: 1e11,
  dish_diameter: 7,
  real: [1, 0.5, 0.5, 0.25,],
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	m, err := LoadImageModel(path)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Size)
	assert.Equal(t, 7.0, m.DishDiameter)
	assert.InDelta(t, 30*arcsecToRad, m.Increment, 1e-15)
	assert.Equal(t, complex(0.25, 0), m.Data[3])
}

func TestLoadImageModel_SizeMismatch(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "vp.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"size": 3, "increment_arcsec": 1, "real": [1]}`), 0644))
	_, err := LoadImageModel(path)
	assert.Error(t, err)
}

func TestLoadTable(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "beams.json5")
	content := `{
  entries: [
    {antennas: ["*"], image: "alma-12m"},
    // CM stations use the 7m pattern
    {antennas: ["CM01", "CM02"], image: "alma-7m"},
  ],
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	tab, err := LoadTable(path)
	require.NoError(t, err)
	require.Len(t, tab.Entries, 2)

	idx, ok := tab.Match("DA41")
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = tab.Match("CM02")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestTable_NoMatch(t *testing.T) {
	t.Parallel()
	tab := &Table{Entries: []TableEntry{{Antennas: []string{"A"}, Image: "x"}}}
	_, ok := tab.Match("B")
	assert.False(t, ok)
}

func TestLoadTable_EntryWithoutImage(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "beams.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"entries": [{"antennas": ["*"]}]}`), 0644))
	_, err := LoadTable(path)
	assert.Error(t, err)
}

func TestRegistry_Resolve(t *testing.T) {
	t.Parallel()
	airy := NewRegistry(KindAiry)
	m, err := airy.Resolve("ALMA", "DA41", 12)
	require.NoError(t, err)
	assert.Equal(t, KindAiry, m.Kind())
	assert.Equal(t, 10.7, m.(*AiryModel).Diameter)

	_, err = airy.Resolve("VLA", "pad", 0)
	assert.True(t, errors.Is(err, ErrUnsupportedBeam))

	images := NewRegistry(KindImage)
	seven := &ImageModel{Size: 1, Increment: 1, DishDiameter: 7, Data: []complex128{1}}
	twelve := &ImageModel{Size: 1, Increment: 1, DishDiameter: 12, Data: []complex128{1}}
	images.RegisterImage("alma-7m", seven)
	images.RegisterImage("alma-12m", twelve)

	m, err = images.Resolve("ALMA", "CM01", 7.2)
	require.NoError(t, err)
	assert.Same(t, seven, m)

	_, err = images.Resolve("ALMA", "TP01", 25)
	assert.True(t, errors.Is(err, ErrUnsupportedBeam))

	got, err := images.Image("alma-12m")
	require.NoError(t, err)
	assert.Same(t, twelve, got)
	_, err = images.Image("missing")
	assert.True(t, errors.Is(err, ErrUnsupportedBeam))
}
