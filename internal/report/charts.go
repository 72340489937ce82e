// Package report renders comparison results into figures for the paper
// pipeline. It consumes the evaluation results as plain structured data and
// never feeds anything back into the core packages.
package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	montana "github.com/montanaflynn/stats"

	"github.com/ferroscan/segeval/internal/crossval"
	"github.com/ferroscan/segeval/internal/stats"
)

// ComparisonHTML renders an HTML page with a mean-metric bar chart and a
// per-fold distribution boxplot for every model in the comparison.
func ComparisonHTML(w io.Writer, mc *crossval.ModelComparison) error {
	if len(mc.Models) == 0 {
		return fmt.Errorf("comparison has no models to render")
	}

	names := make([]string, 0, len(mc.Models))
	means := make([]opts.BarData, 0, len(mc.Models))
	boxes := make([]opts.BoxPlotData, 0, len(mc.Models))

	for _, m := range mc.Models {
		series, err := m.Run.MetricSeries(mc.PrimaryMetric)
		if err != nil {
			return err
		}
		finite := stats.Finite(series)
		if len(finite) == 0 {
			return fmt.Errorf("model %s has no finite %s values to render", m.Name, mc.PrimaryMetric)
		}
		summary, err := fiveNumberSummary(finite)
		if err != nil {
			return fmt.Errorf("summarising %s: %w", m.Name, err)
		}

		names = append(names, m.Name)
		means = append(means, opts.BarData{Value: m.Mean})
		boxes = append(boxes, opts.BoxPlotData{Name: m.Name, Value: summary})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Mean %s by model", mc.PrimaryMetric),
			Subtitle: fmt.Sprintf("best: %s", mc.Best),
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: mc.PrimaryMetric}),
	)
	bar.SetXAxis(names).AddSeries(mc.PrimaryMetric, means)

	box := charts.NewBoxPlot()
	box.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Per-fold %s distribution", mc.PrimaryMetric),
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: mc.PrimaryMetric}),
	)
	box.SetXAxis(names).AddSeries(mc.PrimaryMetric, boxes)

	page := components.NewPage()
	page.AddCharts(bar, box)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render comparison page: %w", err)
	}
	return nil
}

// fiveNumberSummary returns [min, q1, median, q3, max] as echarts boxplots
// expect.
func fiveNumberSummary(data []float64) ([]float64, error) {
	d := montana.Float64Data(data)
	min, err := montana.Min(d)
	if err != nil {
		return nil, err
	}
	max, err := montana.Max(d)
	if err != nil {
		return nil, err
	}
	q, err := montana.Quartile(d)
	if err != nil {
		// Quartile needs at least 4 observations; degrade to the median
		// for tiny fold counts.
		median, merr := montana.Median(d)
		if merr != nil {
			return nil, merr
		}
		return []float64{min, median, median, median, max}, nil
	}
	return []float64{min, q.Q1, q.Q2, q.Q3, max}, nil
}
