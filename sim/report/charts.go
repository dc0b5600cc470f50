package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/davecoulter/KNmodel/sim"
)

// ChartConfig holds the layout shared by every chart of a report page.
type ChartConfig struct {
	Title  string
	Width  string
	Height string
	Theme  string
}

// DefaultChartConfig returns the report page layout.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Title:  "GW + kilonova detections",
		Width:  "900px",
		Height: "450px",
		Theme:  "light",
	}
}

func (c ChartConfig) globalOpts(title, xName, yName string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Width:  c.Width,
			Height: c.Height,
			Theme:  c.Theme,
		}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: c.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: xName}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
	}
}

// CountChart is a grouped bar chart of the per-trial count distribution of
// each category.
func CountChart(res *sim.AggregateResult, cfg ChartConfig) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(cfg.globalOpts("Number of events", "N", "P(N)")...)

	labels := make([]string, DefaultMaxCount)
	for i := range labels {
		labels[i] = strconv.Itoa(i)
	}
	bar.SetXAxis(labels)
	for _, c := range sim.Categories {
		hist := CountHistogram(res.Category(c).Counts, DefaultMaxCount)
		data := make([]opts.BarData, len(hist))
		for i, v := range hist {
			data[i] = opts.BarData{Value: v}
		}
		bar.AddSeries(c.String(), data)
	}
	return bar
}

// densityChart plots one KDE line per category that has a usable sample.
func densityChart(title, xName, yName string, grid []float64, format string,
	sample func(sim.Category) []float64, cfg ChartConfig) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(cfg.globalOpts(title, xName, yName)...)

	labels := make([]string, len(grid))
	for i, x := range grid {
		labels[i] = fmt.Sprintf(format, x)
	}
	line.SetXAxis(labels)
	for _, c := range sim.Categories {
		density := densityOrNil(fmt.Sprintf("%s %s", c, xName), sample(c), grid)
		if density == nil {
			continue
		}
		data := make([]opts.LineData, len(density))
		for i, v := range density {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(c.String(), data)
	}
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return line
}

// DistanceChart plots P(D) for every category.
func DistanceChart(res *sim.AggregateResult, cfg ChartConfig) *charts.Line {
	return densityChart("Distance of detected events", "D (Mpc)", "P(D)", Grid(0, 399, 400), "%.0f", res.Distances, cfg)
}

// MagnitudeChart plots the apparent-magnitude density for every category.
func MagnitudeChart(res *sim.AggregateResult, cfg ChartConfig) *charts.Line {
	return densityChart("Apparent magnitude of detected events", "mag (AB)", "P(mag)", MagnitudeGrid(), "%.1f", res.Magnitudes, cfg)
}

// RenderHTML writes a self-contained page with the count histogram and the
// distance and magnitude densities.
func RenderHTML(w io.Writer, res *sim.AggregateResult, cfg ChartConfig) error {
	page := components.NewPage()
	page.PageTitle = cfg.Title
	page.AddCharts(
		CountChart(res, cfg),
		DistanceChart(res, cfg),
		MagnitudeChart(res, cfg),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}
