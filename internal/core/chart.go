package core

import (
	"fmt"
	"math"

	"easysql-backend/internal/datasource"
	"easysql-backend/pkg/api"
)

const (
	ChartTable     = "table"
	ChartMetric    = "metric"
	ChartBar       = "bar"
	ChartLine      = "line"
	ChartPie       = "pie"
	ChartScatter   = "scatter"
	ChartHistogram = "histogram"
)

func numericColumns(result *api.ResultPayload) []string {
	var cols []string
	for _, c := range result.Columns {
		if c.Kind == string(datasource.KindNumeric) {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

func timeColumns(result *api.ResultPayload) []string {
	var cols []string
	for _, c := range result.Columns {
		if c.Kind == string(datasource.KindTime) {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

func hasColumn(result *api.ResultPayload, name string) bool {
	for _, c := range result.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// SuggestChart picks the chart type that best fits the shape of a result:
// a single numeric column is a metric, one category against one measure is a
// bar chart (line once it grows past 20 rows), several measures or a time
// axis make a line chart, and anything else falls back to a plain table.
func SuggestChart(result *api.ResultPayload) string {
	if len(result.Rows) == 0 {
		return ChartTable
	}

	numCols := len(result.Columns)
	numeric := numericColumns(result)
	nonNumeric := numCols - len(numeric)

	if numCols == 1 && len(numeric) == 1 {
		return ChartMetric
	}

	if numCols == 2 && len(numeric) == 1 && nonNumeric == 1 {
		if len(result.Rows) <= 20 {
			return ChartBar
		}
		return ChartLine
	}

	if len(numeric) >= 2 {
		return ChartLine
	}

	if len(timeColumns(result)) > 0 && len(numeric) > 0 {
		return ChartLine
	}

	return ChartTable
}

// BuildChart resolves a chart request against a result, filling unset columns
// with the same defaults the suggestion heuristic assumes.
func BuildChart(result *api.ResultPayload, req api.ChartRequest) (*api.ChartSpec, error) {
	if len(result.Columns) == 0 {
		return nil, fmt.Errorf("cannot chart an empty result")
	}

	for _, name := range chartColumns(req) {
		if !hasColumn(result, name) {
			return nil, fmt.Errorf("unknown column %q", name)
		}
	}

	cols := result.Columns
	numeric := numericColumns(result)

	spec := &api.ChartSpec{Type: req.Type, Title: req.Title}

	switch req.Type {
	case ChartBar:
		spec.XColumn = req.XColumn
		if spec.XColumn == "" {
			spec.XColumn = cols[0].Name
		}
		spec.YColumn = req.YColumn
		if spec.YColumn == "" {
			if len(cols) > 1 {
				spec.YColumn = cols[1].Name
			} else {
				spec.YColumn = cols[0].Name
			}
		}
		if spec.Title == "" {
			spec.Title = "Bar Chart"
		}
	case ChartLine:
		spec.XColumn = req.XColumn
		if spec.XColumn == "" {
			spec.XColumn = cols[0].Name
		}
		spec.YColumns = req.YColumns
		if len(spec.YColumns) == 0 {
			if len(numeric) > 0 {
				spec.YColumns = numeric
			} else if len(cols) > 1 {
				spec.YColumns = []string{cols[1].Name}
			} else {
				return nil, fmt.Errorf("line chart requires a numeric column")
			}
		}
		if spec.Title == "" {
			spec.Title = "Line Chart"
		}
	case ChartPie:
		spec.NamesColumn = req.NamesColumn
		if spec.NamesColumn == "" {
			spec.NamesColumn = cols[0].Name
		}
		spec.ValuesColumn = req.ValuesColumn
		if spec.ValuesColumn == "" {
			if len(numeric) > 0 {
				spec.ValuesColumn = numeric[0]
			} else if len(cols) > 1 {
				spec.ValuesColumn = cols[1].Name
			} else {
				return nil, fmt.Errorf("pie chart requires a values column")
			}
		}
		if spec.Title == "" {
			spec.Title = "Pie Chart"
		}
	case ChartScatter:
		if len(numeric) == 0 && (req.XColumn == "" || req.YColumn == "") {
			return nil, fmt.Errorf("scatter plot requires numeric columns")
		}
		spec.XColumn = req.XColumn
		if spec.XColumn == "" {
			spec.XColumn = numeric[0]
		}
		spec.YColumn = req.YColumn
		if spec.YColumn == "" {
			if len(numeric) > 1 {
				spec.YColumn = numeric[1]
			} else {
				spec.YColumn = numeric[0]
			}
		}
		if spec.Title == "" {
			spec.Title = "Scatter Plot"
		}
	case ChartHistogram:
		spec.Column = req.Column
		if spec.Column == "" {
			if len(numeric) > 0 {
				spec.Column = numeric[0]
			} else {
				spec.Column = cols[0].Name
			}
		}
		if spec.Title == "" {
			spec.Title = "Histogram"
		}
	default:
		return nil, fmt.Errorf("unsupported chart type: %s", req.Type)
	}

	return spec, nil
}

func chartColumns(req api.ChartRequest) []string {
	var names []string
	for _, name := range []string{req.XColumn, req.YColumn, req.NamesColumn, req.ValuesColumn, req.Column} {
		if name != "" {
			names = append(names, name)
		}
	}
	return append(names, req.YColumns...)
}

// Summarize computes descriptive statistics for every numeric column.
func Summarize(result *api.ResultPayload) []api.ColumnSummary {
	var summaries []api.ColumnSummary

	for i, col := range result.Columns {
		if col.Kind != string(datasource.KindNumeric) {
			continue
		}

		var values []float64
		for _, row := range result.Rows {
			if v, ok := toFloat(row[i]); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}

		summary := api.ColumnSummary{Column: col.Name, Count: len(values), Min: values[0], Max: values[0]}
		for _, v := range values {
			summary.Sum += v
			summary.Min = math.Min(summary.Min, v)
			summary.Max = math.Max(summary.Max, v)
		}
		summary.Mean = summary.Sum / float64(len(values))

		if len(values) > 1 {
			var ss float64
			for _, v := range values {
				ss += (v - summary.Mean) * (v - summary.Mean)
			}
			summary.StdDev = math.Sqrt(ss / float64(len(values)-1))
		}

		summaries = append(summaries, summary)
	}

	return summaries
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
