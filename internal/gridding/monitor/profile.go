package monitor

import (
	"fmt"
	"math/cmplx"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/hetgrid/internal/gridding/convfunc"
	"github.com/banshee-data/hetgrid/internal/gridding/planes"
	"github.com/banshee-data/hetgrid/internal/monitoring"
)

// KernelPlotter writes amplitude profiles of cached kernels as PNG files.
type KernelPlotter struct {
	outputDir string
	// Width and Height size each image.
	Width, Height vg.Length
}

// NewKernelPlotter returns a plotter writing into outputDir, creating it if
// needed.
func NewKernelPlotter(outputDir string) (*KernelPlotter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &KernelPlotter{outputDir: outputDir, Width: 10 * vg.Inch, Height: 5 * vg.Inch}, nil
}

// OutputDir returns the directory plots are written to.
func (kp *KernelPlotter) OutputDir() string { return kp.outputDir }

// PlotEntry writes one PNG for e: the amplitude of every antenna-pair plane
// of the first frequency plane, along the row through the kernel centre,
// against offset in image pixels. Zero-support planes are omitted. It
// returns the file path.
func (kp *KernelPlotter) PlotEntry(e *convfunc.Entry, oversampling int) (string, error) {
	if e.State != convfunc.StateReady {
		return "", fmt.Errorf("entry %v is %v, not ready", e.Fingerprint, e.State)
	}
	k := &e.ConvFunc
	size := k.Size
	s := float64(max(oversampling, 1))

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Convolution functions at %v (size %d, freq %.4g Hz)", e.Fingerprint, size, e.BeamFreqs[0])
	p.X.Label.Text = "Offset (pixels)"
	p.Y.Label.Text = "|C|"
	p.Legend.Top = true
	p.Legend.Left = false

	colors := generateColors(k.NPlane)
	n := len(e.ClassKeys)
	for plane := 0; plane < k.NPlane; plane++ {
		if e.Support[plane] == 0 {
			continue
		}
		row := k.Plane(plane, 0, 0)[(size/2)*size : (size/2+1)*size]
		pts := make(plotter.XYs, size)
		for ix, v := range row {
			pts[ix] = plotter.XY{X: float64(ix-size/2) / s, Y: cmplx.Abs(v)}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return "", fmt.Errorf("plane %d line: %w", plane, err)
		}
		line.Color = colors[plane]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(planeLabel(e.ClassKeys, plane, n, e.Support[plane]), line)
	}

	path := filepath.Join(kp.outputDir, fmt.Sprintf("cf_%04d_%04d.png", e.Fingerprint.X, e.Fingerprint.Y))
	if err := p.Save(kp.Width, kp.Height, path); err != nil {
		return "", fmt.Errorf("save kernel plot: %w", err)
	}
	return path, nil
}

// PlotCache writes one PNG per ready entry of c and returns the paths.
func (kp *KernelPlotter) PlotCache(c *convfunc.Cache) ([]string, error) {
	var paths []string
	for _, e := range c.Entries() {
		if e.State != convfunc.StateReady {
			continue
		}
		path, err := kp.PlotEntry(e, c.Config().Oversampling)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	monitoring.Logf("[KernelPlotter] wrote %d plots to %s", len(paths), kp.outputDir)
	return paths, nil
}

// planeLabel names an antenna-pair plane by its class keys.
func planeLabel(keys []string, plane, n, support int) string {
	i, j, ok := planes.Pair(plane, n)
	if !ok || j >= len(keys) {
		return fmt.Sprintf("plane %d (support %d)", plane, support)
	}
	return fmt.Sprintf("%s x %s (support %d)", keys[i], keys[j], support)
}
