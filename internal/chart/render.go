package chart

import (
	"bytes"
	"fmt"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/data-studio/backend/internal/models"
)

// palette is the series color cycle.
var palette = []drawing.Color{
	drawing.ColorFromHex("4F46E5"),
	drawing.ColorFromHex("06B6D4"),
	drawing.ColorFromHex("F59E0B"),
	drawing.ColorFromHex("EF4444"),
	drawing.ColorFromHex("10B981"),
	drawing.ColorFromHex("8B5CF6"),
}

func seriesColor(i int) drawing.Color {
	return palette[i%len(palette)]
}

// RenderOptions tunes a single render call.
type RenderOptions struct {
	// YMax fixes the top of the y axis. Zero means autoscale. Animation
	// frames use a fixed axis so it does not jump between frames.
	YMax float64

	// Opacity scales the alpha of plotted elements, 0..1. Zero means opaque.
	Opacity float64
}

// Render draws the chart as a PNG.
func Render(d *Data, opts RenderOptions) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch d.Spec.Type {
	case models.ChartTypeBar, models.ChartTypeGroupedBar:
		err = renderBars(d, opts, &buf)
	case models.ChartTypeStackedBar:
		err = renderStackedBars(d, opts, &buf)
	case models.ChartTypeLine, models.ChartTypeScatter:
		err = renderXY(d, opts, &buf)
	case models.ChartTypePie:
		err = renderPie(d, opts, &buf)
	default:
		err = fmt.Errorf("unsupported chart type: %s", d.Spec.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("render %s chart: %w", d.Spec.Type, err)
	}
	return buf.Bytes(), nil
}

func renderBars(d *Data, opts RenderOptions, buf *bytes.Buffer) error {
	var bars []gochart.Value

	if d.Spec.Type == models.ChartTypeGroupedBar {
		// One bar per (category, series) pair, series colors cycling
		// within each group.
		for i, label := range d.Labels {
			for s := range d.Series {
				v := gochart.Value{
					Value: d.Series[s][i],
					Style: barStyle(seriesColor(s), opts),
				}
				if s == 0 {
					v.Label = label
				}
				bars = append(bars, v)
			}
		}
	} else {
		for i, label := range d.Labels {
			bars = append(bars, gochart.Value{
				Value: d.Values[i],
				Label: label,
				Style: barStyle(seriesColor(0), opts),
			})
		}
	}

	if len(bars) == 0 {
		return fmt.Errorf("no bars to draw")
	}

	graph := gochart.BarChart{
		Title:    d.Spec.Title,
		Width:    d.Spec.Width,
		Height:   d.Spec.Height,
		BarWidth: barWidth(d.Spec.Width, len(bars)),
		Bars:     bars,
	}
	if opts.YMax > 0 {
		graph.YAxis = gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: opts.YMax},
		}
	}

	return graph.Render(gochart.PNG, buf)
}

func renderStackedBars(d *Data, opts RenderOptions, buf *bytes.Buffer) error {
	// StackedBarChart normalizes each bar to its own total, so absolute
	// heights are expressed by padding every bar up to a shared maximum
	// with a transparent filler segment.
	yMax := opts.YMax
	if yMax <= 0 {
		yMax = d.MaxValue() * 1.1
	}
	if yMax <= 0 {
		yMax = 1
	}

	filler := gochart.Style{
		FillColor:   drawing.ColorTransparent,
		StrokeColor: drawing.ColorTransparent,
		StrokeWidth: gochart.Disabled,
	}

	bars := make([]gochart.StackedBar, 0, len(d.Labels))
	for i, label := range d.Labels {
		values := make([]gochart.Value, 0, len(d.Series)+1)
		total := 0.0
		for s := range d.Series {
			v := d.Series[s][i]
			if v <= 0 {
				continue
			}
			total += v
			values = append(values, gochart.Value{
				Value: v,
				Label: d.SeriesNames[s],
				Style: barStyle(seriesColor(s), opts),
			})
		}
		if total < yMax {
			values = append(values, gochart.Value{Value: yMax - total, Style: filler})
		}
		if len(values) == 0 {
			continue
		}
		bars = append(bars, gochart.StackedBar{
			Name:   label,
			Width:  barWidth(d.Spec.Width, len(d.Labels)),
			Values: values,
		})
	}

	if len(bars) == 0 {
		return fmt.Errorf("no bars to draw")
	}

	graph := gochart.StackedBarChart{
		Title:  d.Spec.Title,
		Width:  d.Spec.Width,
		Height: d.Spec.Height,
		Bars:   bars,
	}

	return graph.Render(gochart.PNG, buf)
}

func renderXY(d *Data, opts RenderOptions, buf *bytes.Buffer) error {
	style := gochart.Style{
		StrokeColor: applyOpacity(seriesColor(0), opts),
		StrokeWidth: 2.5,
	}
	if d.Spec.Type == models.ChartTypeScatter {
		style = gochart.Style{
			StrokeWidth: gochart.Disabled,
			DotWidth:    5,
			DotColor:    applyOpacity(seriesColor(0), opts),
		}
	}

	graph := gochart.Chart{
		Title:  d.Spec.Title,
		Width:  d.Spec.Width,
		Height: d.Spec.Height,
		XAxis:  gochart.XAxis{Name: d.Spec.X},
		YAxis:  gochart.YAxis{Name: d.Spec.Y},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    d.Spec.Y,
				XValues: d.X,
				YValues: d.Y,
				Style:   style,
			},
		},
	}

	if len(d.XLabels) > 0 {
		labels := d.XLabels
		graph.XAxis.ValueFormatter = func(v interface{}) string {
			f, ok := v.(float64)
			if !ok {
				return ""
			}
			i := int(math.Round(f))
			if i < 0 || i >= len(labels) || math.Abs(f-float64(i)) > 0.01 {
				return ""
			}
			return labels[i]
		}
	}
	if opts.YMax > 0 {
		graph.YAxis.Range = &gochart.ContinuousRange{Min: 0, Max: opts.YMax}
	}

	return graph.Render(gochart.PNG, buf)
}

func renderPie(d *Data, opts RenderOptions, buf *bytes.Buffer) error {
	values := make([]gochart.Value, 0, len(d.Labels))
	for i, label := range d.Labels {
		if d.Values[i] <= 0 {
			continue
		}
		values = append(values, gochart.Value{
			Value: d.Values[i],
			Label: label,
			Style: gochart.Style{
				FillColor: applyOpacity(seriesColor(i), opts),
			},
		})
	}
	if len(values) == 0 {
		return fmt.Errorf("no slices to draw")
	}

	graph := gochart.PieChart{
		Title:  d.Spec.Title,
		Width:  d.Spec.Width,
		Height: d.Spec.Height,
		Values: values,
	}

	return graph.Render(gochart.PNG, buf)
}

func barStyle(c drawing.Color, opts RenderOptions) gochart.Style {
	c = applyOpacity(c, opts)
	return gochart.Style{
		FillColor:   c,
		StrokeColor: c,
		StrokeWidth: 0,
	}
}

func applyOpacity(c drawing.Color, opts RenderOptions) drawing.Color {
	if opts.Opacity <= 0 || opts.Opacity >= 1 {
		return c
	}
	return c.WithAlpha(uint8(opts.Opacity * 255))
}

func barWidth(chartWidth, bars int) int {
	if bars == 0 {
		return 10
	}
	w := (chartWidth - 100) / (bars * 2)
	if w < 10 {
		w = 10
	}
	if w > 60 {
		w = 60
	}
	return w
}
