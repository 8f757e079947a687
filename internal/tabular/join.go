package tabular

import "go.uber.org/zap"

// JoinKey is the calendar-date column shared by production, price and exchange-rate records.
const JoinKey = "reference_date"

const collisionSuffix = "_right"

// Join left-outer-joins production with prices and then with rates on JoinKey.
// Empty or keyless right-hand tables are skipped. Duplicate right-hand keys multiply rows.
func Join[P, Q, R Record](e *Engine, production []P, prices []Q, rates []R) []Row {
	if len(production) == 0 {
		return []Row{}
	}

	columns := Columns(production)
	rows := make([]Row, 0, len(production))
	for _, record := range production {
		rows = append(rows, ToRow(record, columns))
	}

	rows = joinStep(e, "prices", rows, prices)
	rows = joinStep(e, "exchange_rates", rows, rates)
	return rows
}

func joinStep[T Record](e *Engine, name string, left []Row, right []T) []Row {
	if len(right) == 0 {
		e.logger.Debug("skip join with empty table", zap.String("table", name))
		return left
	}

	rightColumns := Columns(right)
	if !contains(rightColumns, JoinKey) {
		e.logger.Warn("skip join, key column missing",
			zap.String("table", name), zap.String("key", JoinKey))
		return left
	}

	index := make(map[string][]Row)
	for _, record := range right {
		row := ToRow(record, rightColumns)
		if row[JoinKey] == nil {
			continue
		}
		id := keyOf(row[JoinKey])
		index[id] = append(index[id], row)
	}

	leftColumns := make([]string, 0)
	if len(left) > 0 {
		leftColumns = left[0].Fields()
	}
	rename := make(map[string]string, len(rightColumns))
	for _, column := range rightColumns {
		if column == JoinKey {
			continue
		}
		out := column
		for contains(leftColumns, out) {
			out += collisionSuffix
		}
		rename[column] = out
	}

	joined := make([]Row, 0, len(left))
	for _, l := range left {
		var matches []Row
		if key := l[JoinKey]; key != nil {
			matches = index[keyOf(key)]
		}

		if len(matches) == 0 {
			row := copyRow(l, len(rename))
			for _, out := range rename {
				row[out] = nil
			}
			joined = append(joined, row)
			continue
		}

		for _, r := range matches {
			row := copyRow(l, len(rename))
			for column, out := range rename {
				row[out] = r[column]
			}
			joined = append(joined, row)
		}
	}
	return joined
}

func copyRow(r Row, extra int) Row {
	out := make(Row, len(r)+extra)
	for k, v := range r {
		out[k] = v
	}
	return out
}
