// Package chart renders reports and price histories as standalone HTML
// charts with go-echarts.
package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"CurrencyLens/internal/calculator"
	"CurrencyLens/internal/model"
)

// Bar colors.
const (
	HighlightColor = "red"
	BaseColor      = "skyblue"
)

// Renderer is implemented by every go-echarts chart.
type Renderer interface {
	Render(w io.Writer) error
}

// AxisName returns the y-axis caption for a metric, e.g. "VaR (%)".
func AxisName(m model.MetricInfo) string {
	short := m.Name
	switch m.Name {
	case calculator.NameVaR:
		short = "VaR"
	case calculator.NameVolatility:
		short = "Volatility"
	case calculator.NameDrawdown, calculator.NameInverseDrawdown:
		short = "Max Drawdown"
	case calculator.NameDepreciation:
		short = "Depreciation"
	}
	if m.Unit == model.UnitPercent {
		return short + " (%)"
	}
	return short
}

// StatusText is the caption shown in place of bars when a report is empty.
func StatusText(s model.Status) string {
	switch s {
	case model.StatusNoDataAvailable:
		return "No data available"
	case model.StatusNoValidResults:
		return "No valid results for this window"
	}
	return ""
}

// Bar draws one bar per entry in discovery order. The entry selected by the
// metric's highlight policy is drawn in HighlightColor.
func Bar(r *model.Report) *charts.Bar {
	bar := charts.NewBar()
	subtitle := r.Window.String()
	if r.Empty() {
		subtitle = StatusText(r.Status)
	}
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: r.Metric.Label, Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: r.Metric.Label, Subtitle: subtitle}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Currency"}),
		charts.WithYAxisOpts(opts.YAxis{Name: AxisName(r.Metric)}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)

	names := make([]string, 0, len(r.Entries))
	items := make([]opts.BarData, 0, len(r.Entries))
	for _, e := range r.Entries {
		color := BaseColor
		if r.IsHighlighted(e) {
			color = HighlightColor
		}
		names = append(names, e.Instrument)
		items = append(items, opts.BarData{
			Name:      e.Instrument,
			Value:     round(e.Value, 4),
			ItemStyle: &opts.ItemStyle{Color: color, BorderColor: "black"},
		})
	}
	bar.SetXAxis(names).AddSeries(AxisName(r.Metric), items)
	return bar
}

// History draws the price history of one instrument in ascending date order.
func History(s model.Series) *charts.Line {
	sorted := s.Sorted()
	line := charts.NewLine()
	subtitle := "no observations"
	if first, last, ok := sorted.Bounds(); ok {
		subtitle = model.Window{Start: first, End: last}.String()
	}
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: s.Name, Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: s.Name + " exchange rate", Subtitle: subtitle}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Price"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	dates := make([]string, 0, sorted.Len())
	points := make([]opts.LineData, 0, sorted.Len())
	for _, o := range sorted.Observations {
		dates = append(dates, o.Date.Format(model.DateFormat))
		points = append(points, opts.LineData{Value: o.Price})
	}
	line.SetXAxis(dates).AddSeries(s.Name, points)
	return line
}

// WriteFile renders c into dir/name.html and returns the path.
func WriteFile(dir, name string, c Renderer) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %q: %w", dir, err)
	}
	path := filepath.Join(dir, name+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %q: %w", path, err)
	}
	if err := c.Render(f); err != nil {
		f.Close()
		return "", fmt.Errorf("render %q: %w", path, err)
	}
	return path, f.Close()
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
