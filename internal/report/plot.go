package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ferroscan/segeval/internal/crossval"
)

// linePalette colours one line per model, cycling when models outnumber it.
var linePalette = []color.RGBA{
	{R: 31, G: 119, B: 180, A: 255},
	{R: 255, G: 127, B: 14, A: 255},
	{R: 44, G: 160, B: 44, A: 255},
	{R: 214, G: 39, B: 40, A: 255},
	{R: 148, G: 103, B: 189, A: 255},
}

// FoldSeriesPNG plots every model's per-fold primary metric as a line over
// fold index and saves it as a PNG. Failed or NaN folds leave gaps in the x
// positions rather than fabricated values.
func FoldSeriesPNG(filename string, mc *crossval.ModelComparison) error {
	if len(mc.Models) == 0 {
		return fmt.Errorf("comparison has no models to plot")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Per-fold %s", mc.PrimaryMetric)
	p.X.Label.Text = "fold"
	p.Y.Label.Text = mc.PrimaryMetric
	p.Legend.Top = true

	plotted := 0
	for i, m := range mc.Models {
		pts := make(plotter.XYs, 0, len(m.Run.Outcomes))
		for _, o := range m.Run.Outcomes {
			if o.Failed() {
				continue
			}
			v, ok := o.Result.Value(mc.PrimaryMetric)
			if !ok || math.IsNaN(v) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(o.Index), Y: v})
		}
		if len(pts) == 0 {
			continue
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("line for %s: %w", m.Name, err)
		}
		line.Width = vg.Points(1)
		line.Color = linePalette[i%len(linePalette)]

		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("points for %s: %w", m.Name, err)
		}
		scatter.GlyphStyle.Color = line.Color
		scatter.GlyphStyle.Radius = vg.Points(2)

		p.Add(line, scatter)
		p.Legend.Add(m.Name, line)
		plotted++
	}
	if plotted == 0 {
		return fmt.Errorf("no finite %s values to plot", mc.PrimaryMetric)
	}

	if err := p.Save(10*vg.Inch, 5*vg.Inch, filename); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
