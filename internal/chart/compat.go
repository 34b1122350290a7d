package chart

import (
	"fmt"

	"github.com/data-studio/backend/internal/models"
)

// Default chart dimensions.
const (
	DefaultWidth  = 960
	DefaultHeight = 540
)

// ColumnOptions lists which columns can serve each axis of a chart type.
type ColumnOptions struct {
	X []string `json:"x"`
	Y []string `json:"y"`
}

// CompatibleColumns returns the columns usable for the given chart type.
// Bars take a categorical x axis, lines and scatters a numeric one (dates
// are allowed on the x axis of a line). Pies reuse X for labels and Y for
// values.
func CompatibleColumns(schema *models.Schema, chartType models.ChartType) (*ColumnOptions, error) {
	switch chartType {
	case models.ChartTypeBar, models.ChartTypeStackedBar, models.ChartTypeGroupedBar:
		return &ColumnOptions{
			X: append(schema.CategoricalColumns(), schema.DateColumns()...),
			Y: schema.NumericColumns(),
		}, nil
	case models.ChartTypeLine:
		return &ColumnOptions{
			X: append(schema.NumericColumns(), schema.DateColumns()...),
			Y: schema.NumericColumns(),
		}, nil
	case models.ChartTypeScatter:
		return &ColumnOptions{
			X: schema.NumericColumns(),
			Y: schema.NumericColumns(),
		}, nil
	case models.ChartTypePie:
		return &ColumnOptions{
			X: schema.CategoricalColumns(),
			Y: schema.NumericColumns(),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported chart type: %s", chartType)
	}
}

// ValidateSpec checks a chart spec against the dataset schema and fills in
// defaults. It returns a copy of the spec ready to render.
func ValidateSpec(schema *models.Schema, spec models.ChartSpec) (models.ChartSpec, error) {
	if !models.ValidChartType(spec.Type) {
		return spec, fmt.Errorf("unsupported chart type: %s", spec.Type)
	}

	if spec.Width <= 0 {
		spec.Width = DefaultWidth
	}
	if spec.Height <= 0 {
		spec.Height = DefaultHeight
	}

	// Pie charts accept either Labels/Values or the generic X/Y mapping.
	if spec.Type == models.ChartTypePie {
		if spec.Labels == "" {
			spec.Labels = spec.X
		}
		if spec.Values == "" {
			spec.Values = spec.Y
		}
		if spec.Labels == "" || spec.Values == "" {
			return spec, fmt.Errorf("pie chart requires labels and values columns")
		}
	}

	opts, err := CompatibleColumns(schema, spec.Type)
	if err != nil {
		return spec, err
	}

	switch spec.Type {
	case models.ChartTypePie:
		if !contains(opts.X, spec.Labels) {
			return spec, fmt.Errorf("column %q cannot be used as pie labels", spec.Labels)
		}
		if !contains(opts.Y, spec.Values) {
			return spec, fmt.Errorf("column %q cannot be used as pie values", spec.Values)
		}
	case models.ChartTypeStackedBar, models.ChartTypeGroupedBar:
		if !contains(opts.X, spec.X) {
			return spec, fmt.Errorf("column %q cannot be used as the x axis of a %s chart", spec.X, spec.Type)
		}
		series := spec.SeriesColumns
		if len(series) == 0 && spec.Y != "" {
			series = []string{spec.Y}
		}
		if len(series) == 0 {
			return spec, fmt.Errorf("%s chart requires at least one series column", spec.Type)
		}
		for _, name := range series {
			if !contains(opts.Y, name) {
				return spec, fmt.Errorf("column %q cannot be used as a %s series", name, spec.Type)
			}
		}
		spec.SeriesColumns = series
	default:
		if !contains(opts.X, spec.X) {
			return spec, fmt.Errorf("column %q cannot be used as the x axis of a %s chart", spec.X, spec.Type)
		}
		if !contains(opts.Y, spec.Y) {
			return spec, fmt.Errorf("column %q cannot be used as the y axis of a %s chart", spec.Y, spec.Type)
		}
	}

	if spec.Title == "" {
		spec.Title = defaultTitle(spec)
	}

	return spec, nil
}

func defaultTitle(spec models.ChartSpec) string {
	switch spec.Type {
	case models.ChartTypePie:
		return fmt.Sprintf("%s by %s", spec.Values, spec.Labels)
	case models.ChartTypeStackedBar, models.ChartTypeGroupedBar:
		return fmt.Sprintf("Series by %s", spec.X)
	default:
		return fmt.Sprintf("%s by %s", spec.Y, spec.X)
	}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
