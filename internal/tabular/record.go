package tabular

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Record exposes named columns of a single row.
type Record interface {
	Fields() []string
	Value(field string) (any, bool)
}

// Row is a flat field -> value mapping. A nil value represents a null cell.
type Row map[string]any

// Fields returns the row's columns in lexical order.
func (r Row) Fields() []string {
	fields := make([]string, 0, len(r))
	for field := range r {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Value returns the value stored under field.
func (r Row) Value(field string) (any, bool) {
	v, ok := r[field]
	return v, ok
}

// Engine runs filter, aggregate and join operations. It holds no state besides its logger,
// so a single instance can be shared between goroutines.
type Engine struct {
	logger *zap.Logger
}

// NewEngine builds an engine that reports diagnostics to logger.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Columns returns the union of the records' fields in first-seen order.
func Columns[T Record](records []T) []string {
	seen := make(map[string]struct{})
	var columns []string
	for _, record := range records {
		for _, field := range record.Fields() {
			if _, ok := seen[field]; ok {
				continue
			}
			seen[field] = struct{}{}
			columns = append(columns, field)
		}
	}
	return columns
}

// ToRow materializes every column of record, filling absent ones with nil.
func ToRow(record Record, columns []string) Row {
	row := make(Row, len(columns))
	for _, column := range columns {
		v, _ := record.Value(column)
		row[column] = normalize(v)
	}
	return row
}

func contains(columns []string, name string) bool {
	for _, column := range columns {
		if column == name {
			return true
		}
	}
	return false
}

// normalize folds the numeric kinds into float64 so values compare across record types.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case *time.Time:
		if n == nil {
			return nil
		}
		return *n
	case *string:
		if n == nil {
			return nil
		}
		return *n
	case *float64:
		if n == nil {
			return nil
		}
		return *n
	default:
		return v
	}
}

// keyOf renders a value into a hashable key where two keys are equal exactly when the values are.
func keyOf(v any) string {
	switch x := normalize(v).(type) {
	case nil:
		return "\x00null"
	case time.Time:
		return "t:" + x.UTC().Format(time.RFC3339Nano)
	case float64:
		return fmt.Sprintf("f:%v", x)
	case string:
		return "s:" + x
	default:
		return fmt.Sprintf("%T:%v", x, x)
	}
}

func compositeKey(values []any) string {
	key := ""
	for i, v := range values {
		if i > 0 {
			key += "\x1f"
		}
		key += keyOf(v)
	}
	return key
}
