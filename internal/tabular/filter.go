package tabular

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrUnknownOperator is returned when a criterion key names an operator outside the supported set.
var ErrUnknownOperator = errors.New("unknown filter operator")

const operatorSeparator = "__"

// Operator enumerates the supported comparison operators.
type Operator string

const (
	OpEq Operator = "eq"
	OpNe Operator = "ne"
	OpGt Operator = "gt"
	OpGe Operator = "ge"
	OpLt Operator = "lt"
	OpLe Operator = "le"
)

// Criterion is a raw criteria entry as received at the boundary, e.g. {"oil_prod__gt", 100}.
type Criterion struct {
	Key   string
	Value any
}

// Condition is a parsed criterion.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// ParseOperator validates an operator name.
func ParseOperator(name string) (Operator, error) {
	switch op := Operator(strings.ToLower(name)); op {
	case OpEq, OpNe, OpGt, OpGe, OpLt, OpLe:
		return op, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOperator, name)
	}
}

// ParseCondition splits a "field" or "field__operator" key into a Condition.
func ParseCondition(key string, value any) (Condition, error) {
	field, opName, found := strings.Cut(key, operatorSeparator)
	if !found {
		return Condition{Field: key, Operator: OpEq, Value: value}, nil
	}
	op, err := ParseOperator(opName)
	if err != nil {
		return Condition{}, fmt.Errorf("criterion %q: %w", key, err)
	}
	return Condition{Field: field, Operator: op, Value: value}, nil
}

// ParseCriteria parses criteria in order.
func ParseCriteria(criteria []Criterion) ([]Condition, error) {
	conditions := make([]Condition, 0, len(criteria))
	for _, c := range criteria {
		cond, err := ParseCondition(c.Key, c.Value)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, cond)
	}
	return conditions, nil
}

// CriteriaFromMap converts a decoded JSON object into criteria ordered by key.
func CriteriaFromMap(m map[string]any) []Criterion {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	criteria := make([]Criterion, 0, len(keys))
	for _, k := range keys {
		criteria = append(criteria, Criterion{Key: k, Value: m[k]})
	}
	return criteria
}

// Filter keeps the records satisfying every condition, preserving their relative order.
// Conditions on unknown fields are skipped.
func Filter[T Record](e *Engine, records []T, conditions []Condition) []T {
	result := append([]T(nil), records...)
	if len(conditions) == 0 || len(result) == 0 {
		return result
	}

	columns := Columns(records)
	for _, cond := range conditions {
		if !contains(columns, cond.Field) {
			e.logger.Warn("skip criterion on unknown field",
				zap.String("field", cond.Field), zap.Strings("available", columns))
			continue
		}

		want, ok := criterionValue(e, result, cond)
		if !ok {
			return result[:0]
		}

		kept := result[:0:0]
		for _, record := range result {
			got, _ := record.Value(cond.Field)
			if matches(normalize(got), cond.Operator, want) {
				kept = append(kept, record)
			}
		}

		result = kept
		if len(result) == 0 {
			break
		}
	}
	return result
}

// criterionValue resolves the comparison operand for cond. String operands against date
// columns are parsed once; a failed parse means no record can satisfy the condition.
func criterionValue[T Record](e *Engine, records []T, cond Condition) (any, bool) {
	want := normalize(cond.Value)
	raw, isString := want.(string)
	if !isString || !isDateColumn(records, cond.Field) {
		return want, true
	}

	parsed, err := ParseDate(raw)
	if err != nil {
		e.logger.Warn("unparseable date criterion, no record can match",
			zap.String("field", cond.Field), zap.String("value", raw), zap.Error(err))
		return nil, false
	}
	return parsed, true
}

func isDateColumn[T Record](records []T, field string) bool {
	for _, record := range records {
		v, _ := record.Value(field)
		switch normalize(v).(type) {
		case time.Time:
			return true
		case nil:
			continue
		default:
			return false
		}
	}
	return false
}

// ParseDate accepts ISO-8601 calendar dates and RFC 3339 timestamps.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return t, nil
}

func matches(got any, op Operator, want any) bool {
	switch {
	case want == nil:
		switch op {
		case OpEq:
			return got == nil
		case OpNe:
			return got != nil
		default:
			return false
		}
	case got == nil:
		return op == OpNe
	}

	cmp, comparable := compare(got, want)
	switch op {
	case OpEq:
		return comparable && cmp == 0
	case OpNe:
		return !comparable || cmp != 0
	}
	if !comparable {
		return false
	}
	switch op {
	case OpGt:
		return cmp > 0
	case OpGe:
		return cmp >= 0
	case OpLt:
		return cmp < 0
	case OpLe:
		return cmp <= 0
	}
	return false
}

// compare orders two non-nil values of the same kind. Values of different kinds are
// incomparable; booleans only support equality.
func compare(a, b any) (int, bool) {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case bool:
		y, ok := b.(bool)
		if !ok || x != y {
			return 0, false
		}
		return 0, true
	}
	return 0, false
}
