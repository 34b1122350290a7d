package chart

import (
	"fmt"

	"github.com/data-studio/backend/internal/dataset"
	"github.com/data-studio/backend/internal/models"
)

// Data is the extracted, render-ready form of one chart: the spec plus the
// column vectors it plots. Which fields are populated depends on the chart
// type.
type Data struct {
	Spec models.ChartSpec

	// Bar and pie charts.
	Labels []string
	Values []float64

	// Line and scatter charts. XLabels is set instead of X when the x
	// column holds dates; points are then plotted by position.
	X       []float64
	Y       []float64
	XLabels []string

	// Stacked and grouped bars: one vector per series, aligned with Labels.
	Series      [][]float64
	SeriesNames []string
}

// BuildData pulls the chart's column vectors out of the row store. The spec
// must already have passed ValidateSpec.
func BuildData(store *dataset.RowStore, spec models.ChartSpec) (*Data, error) {
	schema := store.Schema()
	data := &Data{Spec: spec}

	switch spec.Type {
	case models.ChartTypeBar:
		labelIdx, err := columnIndex(schema, spec.X)
		if err != nil {
			return nil, err
		}
		valueIdx, err := columnIndex(schema, spec.Y)
		if err != nil {
			return nil, err
		}
		data.Labels, data.Values, err = store.LabelValuePairs(labelIdx, valueIdx)
		if err != nil {
			return nil, err
		}
		if len(data.Values) == 0 {
			return nil, fmt.Errorf("no plottable rows for columns %q and %q", spec.X, spec.Y)
		}

	case models.ChartTypePie:
		labelIdx, err := columnIndex(schema, spec.Labels)
		if err != nil {
			return nil, err
		}
		valueIdx, err := columnIndex(schema, spec.Values)
		if err != nil {
			return nil, err
		}
		labels, values, err := store.LabelValuePairs(labelIdx, valueIdx)
		if err != nil {
			return nil, err
		}
		// Pie slices must be positive.
		for i, v := range values {
			if v > 0 {
				data.Labels = append(data.Labels, labels[i])
				data.Values = append(data.Values, v)
			}
		}
		if len(data.Values) == 0 {
			return nil, fmt.Errorf("no positive values in column %q for a pie chart", spec.Values)
		}

	case models.ChartTypeLine, models.ChartTypeScatter:
		xIdx, err := columnIndex(schema, spec.X)
		if err != nil {
			return nil, err
		}
		yIdx, err := columnIndex(schema, spec.Y)
		if err != nil {
			return nil, err
		}
		xCol, _ := schema.Column(spec.X)
		if xCol.Type == models.ColumnTypeDate {
			labels, values, err := store.LabelValuePairs(xIdx, yIdx)
			if err != nil {
				return nil, err
			}
			data.XLabels = labels
			data.Y = values
			data.X = make([]float64, len(values))
			for i := range data.X {
				data.X[i] = float64(i)
			}
		} else {
			data.X, data.Y, err = store.NumericPairs(xIdx, yIdx)
			if err != nil {
				return nil, err
			}
		}
		if len(data.Y) < 2 {
			return nil, fmt.Errorf("columns %q and %q have fewer than two plottable points", spec.X, spec.Y)
		}

	case models.ChartTypeStackedBar, models.ChartTypeGroupedBar:
		labelIdx, err := columnIndex(schema, spec.X)
		if err != nil {
			return nil, err
		}
		seriesIdx := make([]int, len(spec.SeriesColumns))
		for i, name := range spec.SeriesColumns {
			seriesIdx[i], err = columnIndex(schema, name)
			if err != nil {
				return nil, err
			}
		}
		data.Labels, data.Series, err = store.SeriesValues(labelIdx, seriesIdx)
		if err != nil {
			return nil, err
		}
		data.SeriesNames = spec.SeriesColumns
		if len(data.Labels) == 0 {
			return nil, fmt.Errorf("no plottable rows for column %q", spec.X)
		}

	default:
		return nil, fmt.Errorf("unsupported chart type: %s", spec.Type)
	}

	return data, nil
}

// MaxValue returns the largest value the chart plots, for y-axis sizing.
func (d *Data) MaxValue() float64 {
	max := 0.0
	consider := func(v float64) {
		if v > max {
			max = v
		}
	}
	for _, v := range d.Values {
		consider(v)
	}
	for _, v := range d.Y {
		consider(v)
	}
	if d.Spec.Type == models.ChartTypeStackedBar {
		for i := range d.Labels {
			sum := 0.0
			for _, s := range d.Series {
				if i < len(s) {
					sum += s[i]
				}
			}
			consider(sum)
		}
	} else {
		for _, s := range d.Series {
			for _, v := range s {
				consider(v)
			}
		}
	}
	return max
}

func columnIndex(schema *models.Schema, name string) (int, error) {
	for i, c := range schema.Columns {
		if c.Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("column %q is not in the dataset", name)
}
