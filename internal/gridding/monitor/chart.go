package monitor

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/hetgrid/internal/gridding/convfunc"
)

// RenderCacheReport writes an HTML page with two bar charts: the support
// radius of every antenna-pair plane of every ready entry, and the cache's
// activity counters.
func RenderCacheReport(w io.Writer, c *convfunc.Cache) error {
	page := components.NewPage()
	page.PageTitle = "Convolution function cache"
	page.AddCharts(supportChart(c), statsChart(c.Stats()))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render cache report: %w", err)
	}
	return nil
}

func supportChart(c *convfunc.Cache) *charts.Bar {
	var ready []*convfunc.Entry
	var widest *convfunc.Entry
	for _, e := range c.Entries() {
		if e.State != convfunc.StateReady {
			continue
		}
		ready = append(ready, e)
		if widest == nil || e.NumPlanes() > widest.NumPlanes() {
			widest = e
		}
	}

	var x []string
	if widest != nil {
		n := len(widest.ClassKeys)
		for p := 0; p < widest.NumPlanes(); p++ {
			x = append(x, planeLabel(widest.ClassKeys, p, n, widest.Support[p]))
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Support per antenna-pair plane",
			Subtitle: fmt.Sprintf("image=%dx%d oversampling=%d entries=%d", c.Image().NX, c.Image().NY, c.Config().Oversampling, len(ready)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "support (pixels)"}),
	)
	bar.SetXAxis(x)
	for _, e := range ready {
		data := make([]opts.BarData, len(x))
		for p := range data {
			if p < len(e.Support) {
				data[p] = opts.BarData{Value: e.Support[p]}
			}
		}
		bar.AddSeries(e.Fingerprint.String(), data)
	}
	return bar
}

func statsChart(st convfunc.Stats) *charts.Bar {
	x := []string{"Hits", "Misses", "Builds", "Rebuilds", "Out of field"}
	y := []opts.BarData{
		{Value: st.Hits},
		{Value: st.Misses},
		{Value: st.Builds},
		{Value: st.Rebuilds},
		{Value: st.OutOfField},
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: "Cache activity", Subtitle: fmt.Sprintf("build time %s", st.BuildTime)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("calls", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}
