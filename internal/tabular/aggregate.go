package tabular

import (
	"fmt"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
)

// AggFunc is the closed set of supported aggregation functions.
type AggFunc string

const (
	AggSum     AggFunc = "sum"
	AggMean    AggFunc = "mean"
	AggMin     AggFunc = "min"
	AggMax     AggFunc = "max"
	AggCount   AggFunc = "count"
	AggFirst   AggFunc = "first"
	AggLast    AggFunc = "last"
	AggStd     AggFunc = "std"
	AggVar     AggFunc = "var"
	AggMedian  AggFunc = "median"
	AggNUnique AggFunc = "n_unique"
)

// ParseAggFunc resolves a function name; ok is false for unsupported names.
func ParseAggFunc(name string) (AggFunc, bool) {
	switch fn := AggFunc(strings.ToLower(strings.TrimSpace(name))); fn {
	case AggSum, AggMean, AggMin, AggMax, AggCount, AggFirst, AggLast, AggStd, AggVar, AggMedian, AggNUnique:
		return fn, true
	default:
		return "", false
	}
}

// Aggregation requests Func applied over Column.
type Aggregation struct {
	Column string
	Func   string
}

// OutputName is the result column, e.g. "oil_prod_sum".
func (a Aggregation) OutputName() string {
	return a.Column + "_" + strings.ToLower(strings.TrimSpace(a.Func))
}

// AggregationsFromMap converts a column -> function mapping into aggregations ordered by column.
func AggregationsFromMap(m map[string]string) []Aggregation {
	columns := make([]string, 0, len(m))
	for column := range m {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	aggs := make([]Aggregation, 0, len(columns))
	for _, column := range columns {
		aggs = append(aggs, Aggregation{Column: column, Func: m[column]})
	}
	return aggs
}

type resolvedAgg struct {
	column string
	fn     AggFunc
	output string
}

type group struct {
	key    []any
	values map[string][]any
}

// Aggregate groups records by groupBy (first-seen order) and applies aggs to each group.
// With no groupBy fields the whole input forms a single group.
func Aggregate[T Record](e *Engine, records []T, groupBy []string, aggs []Aggregation) []Row {
	if len(records) == 0 {
		return []Row{}
	}

	columns := Columns(records)
	validGroupBy := make([]string, 0, len(groupBy))
	for _, field := range groupBy {
		if contains(columns, field) {
			validGroupBy = append(validGroupBy, field)
			continue
		}
		e.logger.Warn("skip unknown group-by field", zap.String("field", field))
	}
	if len(groupBy) > 0 && len(validGroupBy) == 0 {
		e.logger.Warn("none of the group-by fields exist",
			zap.Strings("group_by", groupBy), zap.Strings("available", columns))
		return []Row{}
	}

	resolved := make([]resolvedAgg, 0, len(aggs))
	for _, agg := range aggs {
		if !contains(columns, agg.Column) {
			e.logger.Warn("skip aggregation on unknown column", zap.String("column", agg.Column))
			continue
		}
		fn, ok := ParseAggFunc(agg.Func)
		if !ok {
			e.logger.Warn("skip unsupported aggregation function",
				zap.String("column", agg.Column), zap.String("function", agg.Func))
			continue
		}
		resolved = append(resolved, resolvedAgg{column: agg.Column, fn: fn, output: agg.OutputName()})
	}

	if len(resolved) == 0 {
		e.logger.Warn("no valid aggregation expressions")
		if len(validGroupBy) == 0 {
			return []Row{}
		}
		return distinct(records, validGroupBy)
	}

	groups := groupRecords(records, validGroupBy, resolved)
	rows := make([]Row, 0, len(groups))
	for _, g := range groups {
		row := make(Row, len(validGroupBy)+len(resolved))
		for i, field := range validGroupBy {
			row[field] = g.key[i]
		}
		for _, agg := range resolved {
			value, err := apply(agg.fn, g.values[agg.column])
			if err != nil {
				e.logger.Debug("aggregation yielded null",
					zap.String("output", agg.output), zap.Error(err))
			}
			row[agg.output] = value
		}
		rows = append(rows, row)
	}
	return rows
}

func groupRecords[T Record](records []T, groupBy []string, aggs []resolvedAgg) []*group {
	index := make(map[string]*group)
	var order []*group

	var sources []string
	for _, agg := range aggs {
		if !contains(sources, agg.column) {
			sources = append(sources, agg.column)
		}
	}

	for _, record := range records {
		key := make([]any, len(groupBy))
		for i, field := range groupBy {
			v, _ := record.Value(field)
			key[i] = normalize(v)
		}

		id := compositeKey(key)
		g, ok := index[id]
		if !ok {
			g = &group{key: key, values: make(map[string][]any, len(sources))}
			index[id] = g
			order = append(order, g)
		}
		for _, column := range sources {
			v, _ := record.Value(column)
			g.values[column] = append(g.values[column], normalize(v))
		}
	}
	return order
}

func distinct[T Record](records []T, fields []string) []Row {
	seen := make(map[string]struct{})
	rows := []Row{}
	for _, record := range records {
		key := make([]any, len(fields))
		for i, field := range fields {
			v, _ := record.Value(field)
			key[i] = normalize(v)
		}
		id := compositeKey(key)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		row := make(Row, len(fields))
		for i, field := range fields {
			row[field] = key[i]
		}
		rows = append(rows, row)
	}
	return rows
}

// apply evaluates fn over a group's column values. Nulls are ignored; an error means the
// result is null.
func apply(fn AggFunc, values []any) (any, error) {
	present := make([]any, 0, len(values))
	for _, v := range values {
		if v != nil {
			present = append(present, v)
		}
	}

	switch fn {
	case AggCount:
		return float64(len(present)), nil
	case AggNUnique:
		seen := make(map[string]struct{}, len(values))
		for _, v := range values {
			seen[keyOf(v)] = struct{}{}
		}
		return float64(len(seen)), nil
	case AggFirst:
		if len(values) == 0 {
			return nil, nil
		}
		return values[0], nil
	case AggLast:
		if len(values) == 0 {
			return nil, nil
		}
		return values[len(values)-1], nil
	case AggMin, AggMax:
		return extreme(fn, present)
	}

	if len(present) == 0 {
		return nil, fmt.Errorf("%s over no values", fn)
	}
	data, err := numeric(present)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	var out float64
	switch fn {
	case AggSum:
		out, err = stats.Sum(data)
	case AggMean:
		out, err = stats.Mean(data)
	case AggMedian:
		out, err = stats.Median(data)
	case AggStd:
		if len(data) < 2 {
			return nil, fmt.Errorf("std needs at least two values")
		}
		out, err = stats.StandardDeviationSample(data)
	case AggVar:
		if len(data) < 2 {
			return nil, fmt.Errorf("var needs at least two values")
		}
		out, err = stats.SampleVariance(data)
	default:
		return nil, fmt.Errorf("unsupported aggregation %q", fn)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func extreme(fn AggFunc, values []any) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	best := values[0]
	for _, v := range values[1:] {
		cmp, ok := compare(v, best)
		if !ok {
			return nil, fmt.Errorf("%s over mixed value kinds", fn)
		}
		if (fn == AggMin && cmp < 0) || (fn == AggMax && cmp > 0) {
			best = v
		}
	}
	return best, nil
}

func numeric(values []any) (stats.Float64Data, error) {
	data := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("non-numeric value %v (%T)", v, v)
		}
		data = append(data, f)
	}
	return data, nil
}
