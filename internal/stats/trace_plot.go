package stats

type PlotPoint struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// BuildTraceSeries turns a post-burn reward trace into one plot series per
// reward dimension, sampling every thin-th step to keep charts readable on
// long chains. A thin of 1 keeps every step.
func BuildTraceSeries(trace [][]float64, thin int) [][]PlotPoint {
	if thin <= 0 {
		thin = 1
	}
	if len(trace) == 0 {
		return nil
	}

	dim := len(trace[0])
	series := make([][]PlotPoint, dim)
	for step := 0; step < len(trace); step += thin {
		reward := trace[step]
		if len(reward) != dim {
			continue
		}
		for k := 0; k < dim; k++ {
			series[k] = append(series[k], PlotPoint{Index: step, Value: reward[k]})
		}
	}
	return series
}

func BuildLossPlot(loss []float64, startIndex, step int) []PlotPoint {
	if step <= 0 {
		step = 1
	}
	if startIndex < 0 {
		startIndex = 0
	}
	points := make([]PlotPoint, 0, len(loss))
	index := startIndex
	for _, value := range loss {
		points = append(points, PlotPoint{Index: index, Value: value})
		index += step
	}
	return points
}

// BuildAcceptanceRate computes the fraction of accepted proposals over
// consecutive windows of chain steps. Accept events carry the 1-based step at
// which a proposal was accepted.
func BuildAcceptanceRate(acceptEvents []int, totalSteps, window int) []PlotPoint {
	if totalSteps <= 0 {
		return nil
	}
	if window <= 0 {
		window = 50
	}

	accepted := make(map[int]bool, len(acceptEvents))
	for _, step := range acceptEvents {
		accepted[step] = true
	}

	points := make([]PlotPoint, 0, totalSteps/window+1)
	for start := 1; start <= totalSteps; start += window {
		end := start + window - 1
		if end > totalSteps {
			end = totalSteps
		}
		count := 0
		for step := start; step <= end; step++ {
			if accepted[step] {
				count++
			}
		}
		points = append(points, PlotPoint{
			Index: end,
			Value: float64(count) / float64(end-start+1),
		})
	}
	return points
}
