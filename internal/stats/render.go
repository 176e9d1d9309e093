package stats

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"graphbirl/internal/model"
)

// RenderTraceChart writes an HTML line chart of the post-burn reward trace,
// one series per reward dimension.
func RenderTraceChart(path string, trace [][]float64, thin int) error {
	series := BuildTraceSeries(trace, thin)
	if len(series) == 0 {
		return fmt.Errorf("trace is empty")
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "reward trace",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	steps := make([]string, 0, len(series[0]))
	for _, point := range series[0] {
		steps = append(steps, fmt.Sprintf("%d", point.Index))
	}
	line = line.SetXAxis(steps)

	for k, dimension := range series {
		items := make([]opts.LineData, 0, len(dimension))
		for _, point := range dimension {
			items = append(items, opts.LineData{Value: point.Value})
		}
		line.AddSeries(fmt.Sprintf("reward_%d", k), items)
	}

	return renderPage(path, line)
}

// RenderLossChart writes an HTML line chart of the quality-loss history.
func RenderLossChart(path string, loss []float64) error {
	points := BuildLossPlot(loss, 0, 1)
	if len(points) == 0 {
		return fmt.Errorf("loss history is empty")
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "quality loss",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	steps := make([]string, 0, len(points))
	items := make([]opts.LineData, 0, len(points))
	for _, point := range points {
		steps = append(steps, fmt.Sprintf("%d", point.Index))
		items = append(items, opts.LineData{Value: point.Value})
	}
	line.SetXAxis(steps).AddSeries("loss", items)

	return renderPage(path, line)
}

// RenderAcceptanceChart writes an HTML line chart of the windowed acceptance
// rate over the chain steps.
func RenderAcceptanceChart(path string, acceptEvents []int, totalSteps, window int) error {
	points := BuildAcceptanceRate(acceptEvents, totalSteps, window)
	if len(points) == 0 {
		return fmt.Errorf("no chain steps to chart")
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "acceptance rate",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	steps := make([]string, 0, len(points))
	items := make([]opts.LineData, 0, len(points))
	for _, point := range points {
		steps = append(steps, fmt.Sprintf("%d", point.Index))
		items = append(items, opts.LineData{Value: point.Value})
	}
	line.SetXAxis(steps).AddSeries("acceptance", items)

	return renderPage(path, line)
}

// RenderRunCharts writes trace.html, loss.html and accept.html into the run
// directory.
func RenderRunCharts(runDir string, diagnostics model.ChainDiagnostics, thin int) error {
	if len(diagnostics.Trace) > 0 {
		if err := RenderTraceChart(filepath.Join(runDir, "trace.html"), diagnostics.Trace, thin); err != nil {
			return err
		}
	}
	if len(diagnostics.LossHistory) > 0 {
		if err := RenderLossChart(filepath.Join(runDir, "loss.html"), diagnostics.LossHistory); err != nil {
			return err
		}
	}
	if steps := chainStepHorizon(diagnostics); steps > 0 {
		if err := RenderAcceptanceChart(filepath.Join(runDir, "accept.html"), diagnostics.AcceptEvents, steps, 0); err != nil {
			return err
		}
	}
	return nil
}

// chainStepHorizon estimates the recorded chain length: the walk covers the
// post-burn steps, and accept events may reach further back into the chain.
func chainStepHorizon(diagnostics model.ChainDiagnostics) int {
	steps := len(diagnostics.Walk)
	for _, event := range diagnostics.AcceptEvents {
		if event > steps {
			steps = event
		}
	}
	return steps
}

func renderPage(path string, chart components.Charter) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	page := components.NewPage()
	page.AddCharts(chart)
	return page.Render(file)
}
