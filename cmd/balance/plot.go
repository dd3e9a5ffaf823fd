package main

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// writeLossPlot renders the fit's loss trajectory to a PNG so convergence
// can be eyeballed without scraping verbose logs.
func writeLossPlot(path string, trace []float64) error {
	if len(trace) == 0 {
		return fmt.Errorf("no loss trajectory recorded")
	}

	p := plot.New()
	p.Title.Text = "Factorization loss"
	p.X.Label.Text = "evaluation"
	p.Y.Label.Text = "masked squared residual"

	pts := make(plotter.XYs, len(trace))
	for i, v := range trace {
		pts[i] = plotter.XY{X: float64(i), Y: v}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build loss line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
