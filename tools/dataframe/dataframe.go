// Package dataframe provides the tabular analysis capability: loading CSV or
// JSON data into named in-memory datasets, summarizing them, and producing
// chart specifications.
package dataframe

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai/jsonschema"
	"gonum.org/v1/gonum/stat"

	"github.com/atlasagent/atlas/tools"
)

const previewRows = 5

// dataset is a column-ordered table of string cells.
type dataset struct {
	columns []string
	rows    [][]string
}

// Toolkit holds named datasets for the lifetime of the process. Datasets are
// shared across turns, which matches load-then-analyze tool sequences within
// a conversation.
type Toolkit struct {
	mu       sync.Mutex
	datasets map[string]*dataset
}

func NewToolkit() *Toolkit {
	return &Toolkit{datasets: make(map[string]*dataset)}
}

func (t *Toolkit) Name() string { return "data_analysis" }

func (t *Toolkit) Description() string {
	return "Analyze tabular datasets, compute statistics, and generate tables or charts"
}

func (t *Toolkit) Operations() []tools.Operation {
	nameProp := jsonschema.Definition{Type: jsonschema.String, Description: "Dataset name (default \"default\")"}
	return []tools.Operation{
		{
			Name:        "load_csv",
			Description: "Load data from a CSV file path or raw CSV content. Returns a summary of the loaded data.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"source": {Type: jsonschema.String, Description: "File path or raw CSV content"},
					"name":   nameProp,
				},
				Required: []string{"source"},
			},
		},
		{
			Name:        "load_json",
			Description: "Load data from a JSON array of flat objects. Returns a summary of the loaded data.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"data": {Type: jsonschema.String, Description: "JSON array of objects"},
					"name": nameProp,
				},
				Required: []string{"data"},
			},
		},
		{
			Name:        "describe",
			Description: "Compute count, mean, std, min, max and median for the numeric columns of a dataset.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"name": nameProp,
					"columns": {
						Type:        jsonschema.Array,
						Description: "Specific columns to analyze (optional)",
						Items:       &jsonschema.Definition{Type: jsonschema.String},
					},
				},
			},
		},
		{
			Name:        "aggregate",
			Description: "Group a dataset by a column and aggregate another column with sum, mean, count, min or max.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"name":     nameProp,
					"group_by": {Type: jsonschema.String, Description: "Column to group by"},
					"column":   {Type: jsonschema.String, Description: "Column to aggregate"},
					"fn":       {Type: jsonschema.String, Description: "Aggregation: sum, mean, count, min, max", Enum: []string{"sum", "mean", "count", "min", "max"}},
				},
				Required: []string{"group_by", "column", "fn"},
			},
		},
		{
			Name:        "filter_rows",
			Description: "Filter a dataset's rows by comparing one column to a value; stores the result as a new dataset.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"name":   nameProp,
					"column": {Type: jsonschema.String, Description: "Column to compare"},
					"op":     {Type: jsonschema.String, Description: "Comparison: eq, ne, gt, lt, ge, le, contains", Enum: []string{"eq", "ne", "gt", "lt", "ge", "le", "contains"}},
					"value":  {Type: jsonschema.String, Description: "Value to compare against"},
					"as":     {Type: jsonschema.String, Description: "Name for the filtered dataset (default <name>_filtered)"},
				},
				Required: []string{"column", "op", "value"},
			},
		},
		{
			Name:        "create_chart",
			Description: "Build a chart specification (JSON) from a dataset. Wrap the result in a chart artifact to deliver it.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"name":       nameProp,
					"chart_type": {Type: jsonschema.String, Description: "bar, line, pie or scatter", Enum: []string{"bar", "line", "pie", "scatter"}},
					"x":          {Type: jsonschema.String, Description: "Column for the x axis / labels"},
					"y":          {Type: jsonschema.String, Description: "Numeric column for the y axis / values"},
					"title":      {Type: jsonschema.String, Description: "Chart title"},
				},
				Required: []string{"chart_type", "x", "y"},
			},
		},
	}
}

func (t *Toolkit) Invoke(ctx context.Context, op string, input map[string]any) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch op {
	case "load_csv":
		return t.loadCSV(input)
	case "load_json":
		return t.loadJSON(input)
	case "describe":
		return t.describe(input)
	case "aggregate":
		return t.aggregate(input)
	case "filter_rows":
		return t.filterRows(input)
	case "create_chart":
		return t.createChart(input)
	default:
		return "", fmt.Errorf("unknown operation: %s", op)
	}
}

func datasetName(input map[string]any) string {
	if n := tools.StrParam(input, "name"); n != "" {
		return n
	}
	return "default"
}

func (t *Toolkit) get(name string) (*dataset, error) {
	ds, ok := t.datasets[name]
	if !ok {
		return nil, fmt.Errorf("dataset %q not found", name)
	}
	return ds, nil
}

func (t *Toolkit) loadCSV(input map[string]any) (string, error) {
	source := tools.StrParam(input, "source")
	if source == "" {
		return "", errors.New("source is required")
	}
	name := datasetName(input)

	content := source
	// A single line without commas is treated as a file path.
	if !strings.Contains(source, "\n") && (strings.HasSuffix(source, ".csv") || strings.ContainsAny(source, "/\\")) {
		b, err := os.ReadFile(source)
		if err != nil {
			return "", fmt.Errorf("read csv file: %w", err)
		}
		content = string(b)
	}

	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return "", errors.New("empty csv input")
	}
	ds := &dataset{columns: records[0]}
	for _, rec := range records[1:] {
		row := make([]string, len(ds.columns))
		copy(row, rec)
		ds.rows = append(ds.rows, row)
	}
	t.datasets[name] = ds
	return t.summary(name, ds)
}

func (t *Toolkit) loadJSON(input map[string]any) (string, error) {
	data := tools.StrParam(input, "data")
	if data == "" {
		return "", errors.New("data is required")
	}
	name := datasetName(input)

	var objects []map[string]any
	if err := json.Unmarshal([]byte(data), &objects); err != nil {
		return "", fmt.Errorf("parse json: %w", err)
	}
	if len(objects) == 0 {
		return "", errors.New("empty json input")
	}

	// Stable column order: sorted keys of the first object, then any extras.
	seen := map[string]bool{}
	var columns []string
	for k := range objects[0] {
		columns = append(columns, k)
		seen[k] = true
	}
	sort.Strings(columns)
	for _, obj := range objects[1:] {
		var extras []string
		for k := range obj {
			if !seen[k] {
				extras = append(extras, k)
				seen[k] = true
			}
		}
		sort.Strings(extras)
		columns = append(columns, extras...)
	}

	ds := &dataset{columns: columns}
	for _, obj := range objects {
		row := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := obj[col]; ok && v != nil {
				row[i] = fmt.Sprint(v)
			}
		}
		ds.rows = append(ds.rows, row)
	}
	t.datasets[name] = ds
	return t.summary(name, ds)
}

func (t *Toolkit) summary(name string, ds *dataset) (string, error) {
	preview := []map[string]string{}
	for i, row := range ds.rows {
		if i >= previewRows {
			break
		}
		rec := map[string]string{}
		for j, col := range ds.columns {
			rec[col] = row[j]
		}
		preview = append(preview, rec)
	}
	dtypes := map[string]string{}
	for j, col := range ds.columns {
		if len(ds.numericColumn(j)) == len(ds.rows) && len(ds.rows) > 0 {
			dtypes[col] = "numeric"
		} else {
			dtypes[col] = "string"
		}
	}
	out, err := json.Marshal(map[string]any{
		"name":    name,
		"shape":   map[string]int{"rows": len(ds.rows), "columns": len(ds.columns)},
		"columns": ds.columns,
		"dtypes":  dtypes,
		"preview": preview,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// numericColumn returns the parseable values of column j, skipping blanks and
// non-numeric cells.
func (ds *dataset) numericColumn(j int) []float64 {
	var vals []float64
	for _, row := range ds.rows {
		if j >= len(row) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[j]), 64)
		if err == nil {
			vals = append(vals, v)
		}
	}
	return vals
}

func (ds *dataset) columnIndex(name string) (int, error) {
	for j, col := range ds.columns {
		if col == name {
			return j, nil
		}
	}
	return 0, fmt.Errorf("column %q not found", name)
}

type columnStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

func (t *Toolkit) describe(input map[string]any) (string, error) {
	name := datasetName(input)
	ds, err := t.get(name)
	if err != nil {
		return "", err
	}

	wanted := map[string]bool{}
	if raw, ok := input["columns"].([]any); ok {
		for _, c := range raw {
			if s, ok := c.(string); ok {
				wanted[s] = true
			}
		}
	}

	statistics := map[string]columnStats{}
	for j, col := range ds.columns {
		if len(wanted) > 0 && !wanted[col] {
			continue
		}
		vals := ds.numericColumn(j)
		if len(vals) == 0 {
			continue
		}
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		statistics[col] = columnStats{
			Count:  len(vals),
			Mean:   stat.Mean(vals, nil),
			Std:    stat.StdDev(vals, nil),
			Min:    sorted[0],
			Max:    sorted[len(sorted)-1],
			Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		}
	}
	out, err := json.Marshal(map[string]any{
		"dataset":       name,
		"total_rows":    len(ds.rows),
		"total_columns": len(ds.columns),
		"statistics":    statistics,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (t *Toolkit) aggregate(input map[string]any) (string, error) {
	name := datasetName(input)
	ds, err := t.get(name)
	if err != nil {
		return "", err
	}
	groupBy := tools.StrParam(input, "group_by")
	column := tools.StrParam(input, "column")
	fn := tools.StrParam(input, "fn")

	gi, err := ds.columnIndex(groupBy)
	if err != nil {
		return "", err
	}
	ci, err := ds.columnIndex(column)
	if err != nil {
		return "", err
	}

	groups := map[string][]float64{}
	var order []string
	for _, row := range ds.rows {
		key := row[gi]
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		v, perr := strconv.ParseFloat(strings.TrimSpace(row[ci]), 64)
		if perr == nil {
			groups[key] = append(groups[key], v)
		} else if fn == "count" {
			groups[key] = append(groups[key], 0)
		}
	}

	type groupResult struct {
		Group string  `json:"group"`
		Value float64 `json:"value"`
	}
	var results []groupResult
	for _, key := range order {
		vals := groups[key]
		var v float64
		switch fn {
		case "count":
			v = float64(len(vals))
		case "sum":
			for _, x := range vals {
				v += x
			}
		case "mean":
			if len(vals) > 0 {
				v = stat.Mean(vals, nil)
			}
		case "min":
			if len(vals) > 0 {
				v = vals[0]
				for _, x := range vals[1:] {
					if x < v {
						v = x
					}
				}
			}
		case "max":
			if len(vals) > 0 {
				v = vals[0]
				for _, x := range vals[1:] {
					if x > v {
						v = x
					}
				}
			}
		default:
			return "", fmt.Errorf("unknown aggregation %q", fn)
		}
		results = append(results, groupResult{Group: key, Value: v})
	}
	out, err := json.Marshal(map[string]any{
		"dataset":  name,
		"group_by": groupBy,
		"column":   column,
		"fn":       fn,
		"groups":   results,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (t *Toolkit) filterRows(input map[string]any) (string, error) {
	name := datasetName(input)
	ds, err := t.get(name)
	if err != nil {
		return "", err
	}
	column := tools.StrParam(input, "column")
	op := tools.StrParam(input, "op")
	value := tools.StrParam(input, "value")
	as := tools.StrParam(input, "as")
	if as == "" {
		as = name + "_filtered"
	}

	ci, err := ds.columnIndex(column)
	if err != nil {
		return "", err
	}

	numValue, numErr := strconv.ParseFloat(value, 64)
	match := func(cell string) bool {
		if numErr == nil {
			if cv, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err == nil {
				switch op {
				case "eq":
					return cv == numValue
				case "ne":
					return cv != numValue
				case "gt":
					return cv > numValue
				case "lt":
					return cv < numValue
				case "ge":
					return cv >= numValue
				case "le":
					return cv <= numValue
				}
			}
		}
		switch op {
		case "eq":
			return cell == value
		case "ne":
			return cell != value
		case "contains":
			return strings.Contains(cell, value)
		}
		return false
	}

	filtered := &dataset{columns: append([]string(nil), ds.columns...)}
	for _, row := range ds.rows {
		if match(row[ci]) {
			filtered.rows = append(filtered.rows, row)
		}
	}
	t.datasets[as] = filtered
	out, err := json.Marshal(map[string]any{
		"dataset":   as,
		"from":      name,
		"row_count": len(filtered.rows),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (t *Toolkit) createChart(input map[string]any) (string, error) {
	name := datasetName(input)
	ds, err := t.get(name)
	if err != nil {
		return "", err
	}
	chartType := tools.StrParam(input, "chart_type")
	x := tools.StrParam(input, "x")
	y := tools.StrParam(input, "y")
	title := tools.StrParam(input, "title")

	xi, err := ds.columnIndex(x)
	if err != nil {
		return "", err
	}
	yi, err := ds.columnIndex(y)
	if err != nil {
		return "", err
	}

	var labels []string
	var values []float64
	for _, row := range ds.rows {
		v, perr := strconv.ParseFloat(strings.TrimSpace(row[yi]), 64)
		if perr != nil {
			continue
		}
		labels = append(labels, row[xi])
		values = append(values, v)
	}
	out, err := json.Marshal(map[string]any{
		"type":  chartType,
		"title": title,
		"x":     map[string]any{"label": x, "values": labels},
		"series": []map[string]any{
			{"name": y, "values": values},
		},
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
