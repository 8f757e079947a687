package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/wellcast/internal/config"
	"github.com/mamadbah2/wellcast/internal/domain/models"
)

type memorySheet struct {
	ranges  map[string][][]interface{}
	written map[string][][]interface{}
	reads   map[string]int
	readErr error
}

func (m *memorySheet) WriteRows(_ context.Context, sheetRange string, rows [][]interface{}) error {
	if m.written == nil {
		m.written = make(map[string][][]interface{})
	}
	m.written[sheetRange] = append(m.written[sheetRange], rows...)
	return nil
}

func (m *memorySheet) ReadRange(_ context.Context, sheetRange string) ([][]interface{}, error) {
	if m.reads == nil {
		m.reads = make(map[string]int)
	}
	m.reads[sheetRange]++
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.ranges[sheetRange], nil
}

var testRanges = config.SheetRanges{
	Production:    "Production!A:E",
	Prices:        "Prices!A:D",
	ExchangeRates: "ExchangeRates!A:B",
	Wells:         "Wells!A:D",
}

func newMemoryStore() (*Store, *memorySheet) {
	sheet := &memorySheet{ranges: map[string][][]interface{}{
		"Production!A:E": {
			{"reference_date", "well_code", "oil_prod", "gas_prod", "water_prod"},
			{"2024-03-01", "W1", "800", "1200", "40"},
			{"2024-01-01", "W1", "1,000", "1500", "20"},
			{"2024-02-01T00:00:00Z", "W1", "900", "", ""},
			{"2024-01-01", "W2", "-5", "0", "0"},
			{"2024-02-01", "W2", "abc"},
		},
		"Prices!A:D": {
			{"reference_date", "field_code", "field_name", "price"},
			{"2024-01-01", "F1", "Alpha", "81.5"},
			{"2024-01-02", "F1", "Alpha", "0"},
		},
		"ExchangeRates!A:B": {
			{"2024-01-01", "4.95"},
			{"2024-01-02"},
		},
		"Wells!A:D": {
			{"well_code", "well_name", "field_code", "field_name"},
			{"W1", "Well One", "F1", "Alpha"},
			{"", "orphan", "F9", "Nowhere"},
			{"W2", "Well Two", "F2", "Beta"},
		},
	}}
	return NewStore(sheet, testRanges, nil), sheet
}

func TestStore_ListProductionSkipsBadRows(t *testing.T) {
	store, _ := newMemoryStore()

	got, err := store.ListProduction(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 1000.0, got[1].OilProd)
	assert.Equal(t, 0.0, got[2].GasProd)
}

func TestStore_FindByWellCodeSortsAscending(t *testing.T) {
	store, _ := newMemoryStore()
	end := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)

	got, err := store.FindByWellCode(context.Background(), "W1", nil, &end)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, time.January, got[0].ReferenceDate.Month())
	assert.Equal(t, time.February, got[1].ReferenceDate.Month())
}

func TestStore_PricesAndRates(t *testing.T) {
	store, _ := newMemoryStore()

	prices, err := store.ListPrices(context.Background())
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, models.PriceRecord{
		ReferenceDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), FieldCode: "F1", FieldName: "Alpha", Price: 81.5,
	}, prices[0])

	rates, err := store.ListExchangeRates(context.Background())
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, 4.95, rates[0].Rate)
}

func TestStore_GetByWellCode(t *testing.T) {
	store, _ := newMemoryStore()

	well, err := store.GetByWellCode(context.Background(), "w1")
	require.NoError(t, err)
	require.NotNil(t, well)
	assert.Equal(t, "Alpha", well.FieldName)

	missing, err := store.GetByWellCode(context.Background(), "W9")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_ReadFailure(t *testing.T) {
	store := NewStore(&memorySheet{readErr: errors.New("quota")}, testRanges, nil)

	_, err := store.ListProduction(context.Background())
	assert.ErrorContains(t, err, "quota")
}

func TestStore_AppendPricesAndRates(t *testing.T) {
	store, sheet := newMemoryStore()
	d := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.AppendPrices(context.Background(), []models.PriceRecord{{ReferenceDate: d, FieldCode: "F1", FieldName: "Alpha", Price: 77}}))
	require.NoError(t, store.AppendExchangeRates(context.Background(), []models.ExchangeRateRecord{{ReferenceDate: d, Rate: 5.2}}))

	assert.Equal(t, [][]interface{}{{"2024-05-01", "F1", "Alpha", 77.0}}, sheet.written["Prices!A:D"])
	assert.Equal(t, [][]interface{}{{"2024-05-01", 5.2}}, sheet.written["ExchangeRates!A:B"])
}

func TestStore_FindByWellCodeIgnoresCase(t *testing.T) {
	store, _ := newMemoryStore()

	well, err := store.GetByWellCode(context.Background(), "w1")
	require.NoError(t, err)
	require.NotNil(t, well)

	got, err := store.FindByWellCode(context.Background(), "w1", nil, nil)

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "W1", got[0].WellCode)
}

func TestStore_ListWellsReadsOnce(t *testing.T) {
	store, sheet := newMemoryStore()

	wells, err := store.ListWells(context.Background())

	require.NoError(t, err)
	require.Len(t, wells, 2)
	assert.Equal(t, "W1", wells[0].WellCode)
	assert.Equal(t, models.Well{WellCode: "W2", WellName: "Well Two", FieldCode: "F2", FieldName: "Beta"}, wells[1])
	assert.Equal(t, 1, sheet.reads["Wells!A:D"])
}
