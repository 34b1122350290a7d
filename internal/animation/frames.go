package animation

import (
	"math"

	"github.com/data-studio/backend/internal/chart"
	"github.com/data-studio/backend/internal/models"
)

// labelRevealFraction is the point in a pie animation after which slice
// labels are drawn.
const labelRevealFraction = 0.8

// FrameAt builds the chart data for one animation frame. progress is the
// eased position in [0,1]. The returned data shares no mutable state with
// the base, and the render options pin the y axis so it stays still across
// frames.
func FrameAt(base *chart.Data, progress float64) (*chart.Data, chart.RenderOptions) {
	opts := chart.RenderOptions{
		Opacity: math.Min(1, progress*1.2),
	}

	frame := &chart.Data{
		Spec:        base.Spec,
		Labels:      base.Labels,
		X:           base.X,
		Y:           base.Y,
		XLabels:     base.XLabels,
		SeriesNames: base.SeriesNames,
	}

	switch base.Spec.Type {
	case models.ChartTypeBar:
		opts.YMax = base.MaxValue() * 1.1
		frame.Values = scaleValues(base.Values, progress)

	case models.ChartTypeStackedBar, models.ChartTypeGroupedBar:
		opts.YMax = base.MaxValue() * 1.1
		frame.Series = make([][]float64, len(base.Series))
		for i, s := range base.Series {
			frame.Series[i] = scaleValues(s, progress)
		}

	case models.ChartTypeLine, models.ChartTypeScatter:
		opts.YMax = base.MaxValue() * 1.1
		n := revealCount(len(base.Y), progress)
		frame.X = base.X[:n]
		frame.Y = base.Y[:n]
		if len(base.XLabels) > 0 {
			frame.XLabels = base.XLabels[:n]
		}

	case models.ChartTypePie:
		frame.Labels, frame.Values = growSlices(base.Labels, base.Values, progress)
	}

	return frame, opts
}

// scaleValues multiplies every value by progress.
func scaleValues(values []float64, progress float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v * progress
	}
	return out
}

// revealCount returns how many points of an n-point series are visible at
// the given progress. At least two, so a line is always drawable.
func revealCount(n int, progress float64) int {
	c := int(math.Round(progress * float64(n)))
	if c < 2 {
		c = 2
	}
	if c > n {
		c = n
	}
	return c
}

// growSlices reveals pie slices cumulatively: progress sweeps through the
// total, fully revealed slices keep their value and the slice at the sweep
// front grows. Labels appear only near the end so they do not flicker over
// moving slices.
func growSlices(labels []string, values []float64, progress float64) ([]string, []float64) {
	total := 0.0
	for _, v := range values {
		total += v
	}
	if total <= 0 {
		return labels, values
	}

	reveal := progress * total
	// Keep at least a sliver visible so the first frame draws.
	if min := total * 0.005; reveal < min {
		reveal = min
	}

	showLabels := progress >= labelRevealFraction

	var outLabels []string
	var outValues []float64
	acc := 0.0
	for i, v := range values {
		if acc >= reveal {
			break
		}
		part := v
		if acc+v > reveal {
			part = reveal - acc
		}
		acc += v

		label := ""
		if showLabels {
			label = labels[i]
		}
		outLabels = append(outLabels, label)
		outValues = append(outValues, part)
	}

	return outLabels, outValues
}
