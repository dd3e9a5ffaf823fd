package main

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/weaklabel/internal/balance"
)

// writeConfusionReport renders one heatmap per source of the estimated
// P(emitted value | true class) into a standalone HTML page.
func writeConfusionReport(path string, md *balance.Model) error {
	cps := md.CondProbs()
	k := md.K()
	kLF := md.KLF()

	classLabels := make([]string, k)
	for y := 0; y < k; y++ {
		classLabels[y] = fmt.Sprintf("class %d", y+1)
	}
	valueLabels := make([]string, kLF)
	for v := 0; v < kLF; v++ {
		emitted := v + k + 1 - kLF // k0 + v
		if kLF > k && v == 0 {
			valueLabels[v] = "abstain"
		} else {
			valueLabels[v] = fmt.Sprintf("emit %d", emitted)
		}
	}

	page := components.NewPage()
	for i := 0; i < md.Sources(); i++ {
		data := make([]opts.HeatMapData, 0, k*kLF)
		for y := 0; y < k; y++ {
			for v := 0; v < kLF; v++ {
				data = append(data, opts.HeatMapData{
					Value: [3]interface{}{y, v, cps.At(i, v, y)},
				})
			}
		}

		hm := charts.NewHeatMap()
		hm.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Source %d", i)}),
			charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: classLabels, Name: "true class"}),
			charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: valueLabels, Name: "emitted value"}),
			charts.WithVisualMapOpts(opts.VisualMap{
				Show:       opts.Bool(true),
				Calculable: opts.Bool(true),
				Min:        0,
				Max:        1,
				InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#31688e", "#35b779", "#fde725"}},
			}),
		)
		hm.AddSeries("cond probs", data)
		page.AddCharts(hm)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}
