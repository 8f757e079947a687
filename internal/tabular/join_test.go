package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func samplePrices() []Row {
	return []Row{
		{"reference_date": day("2024-01-01"), "field_code": "F1", "price": 80.0},
	}
}

func sampleRates() []Row {
	return []Row{
		{"reference_date": day("2024-01-01"), "rate": 4.9},
		{"reference_date": day("2024-02-01"), "rate": 5.1},
	}
}

func TestJoin_EmptyProduction(t *testing.T) {
	got := Join(NewEngine(nil), []Row{}, samplePrices(), sampleRates())
	assert.Empty(t, got)
}

func TestJoin_LeftOuter(t *testing.T) {
	got := Join(NewEngine(nil), sampleRows(), samplePrices(), sampleRates())

	require.Len(t, got, 4)
	assert.Equal(t, Row{
		"reference_date": day("2024-01-01"), "well_code": "W1", "oil_prod": 100.0,
		"field_code": "F1", "price": 80.0, "rate": 4.9,
	}, got[0])
	assert.Equal(t, Row{
		"reference_date": day("2024-02-01"), "well_code": "W1", "oil_prod": 90.0,
		"field_code": nil, "price": nil, "rate": 5.1,
	}, got[2])
}

func TestJoin_DuplicateKeysMultiplyRows(t *testing.T) {
	prices := append(samplePrices(), Row{"reference_date": day("2024-01-01"), "field_code": "F2", "price": 82.0})

	got := Join(NewEngine(nil), sampleRows()[:1], prices, []Row{})

	require.Len(t, got, 2)
	assert.Equal(t, "F1", got[0]["field_code"])
	assert.Equal(t, "F2", got[1]["field_code"])
}

func TestJoin_PreservesProductionColumns(t *testing.T) {
	production := sampleRows()
	got := Join(NewEngine(nil), production, samplePrices(), sampleRates())

	for _, row := range got {
		restricted := Row{}
		for _, column := range Columns(production) {
			restricted[column] = row[column]
		}
		assert.Contains(t, production, restricted)
	}
}

func TestJoin_SkipsKeylessTable(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	e := NewEngine(zap.New(core))

	got := Join(e, sampleRows()[:1], []Row{{"price": 70.0}}, []Row{})

	require.Len(t, got, 1)
	_, hasPrice := got[0]["price"]
	assert.False(t, hasPrice)
	assert.Equal(t, 1, logs.FilterMessage("skip join, key column missing").Len())
}

func TestJoin_ExactDateMatchOnly(t *testing.T) {
	rates := []Row{{"reference_date": day("2024-01-02"), "rate": 5.0}}

	got := Join(NewEngine(nil), sampleRows()[:1], []Row{}, rates)

	require.Len(t, got, 1)
	assert.Nil(t, got[0]["rate"])
}

func TestJoin_CollidingColumnsAreSuffixed(t *testing.T) {
	prices := []Row{{"reference_date": day("2024-01-01"), "well_code": "PX"}}

	got := Join(NewEngine(nil), sampleRows()[:1], prices, []Row{})

	require.Len(t, got, 1)
	assert.Equal(t, "W1", got[0]["well_code"])
	assert.Equal(t, "PX", got[0]["well_code_right"])
}
