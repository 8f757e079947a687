package financials

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/wellcast/internal/domain/models"
)

type memoryStore struct {
	production []models.ProductionRecord
	prices     []models.PriceRecord
	rates      []models.ExchangeRateRecord
	wells      []models.Well

	wellReads int
	wellErr   error
	priceErr  error
	saveErr   error
	saved     []models.FinancialSummary
}

func (m *memoryStore) ListProduction(context.Context) ([]models.ProductionRecord, error) {
	return m.production, nil
}

func (m *memoryStore) ListPrices(context.Context) ([]models.PriceRecord, error) {
	return m.prices, m.priceErr
}

func (m *memoryStore) ListExchangeRates(context.Context) ([]models.ExchangeRateRecord, error) {
	return m.rates, nil
}

func (m *memoryStore) ListWells(context.Context) ([]models.Well, error) {
	m.wellReads++
	if m.wellErr != nil {
		return nil, m.wellErr
	}
	return m.wells, nil
}

func (m *memoryStore) SaveFinancialSummaries(_ context.Context, summaries []models.FinancialSummary) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, summaries...)
	return nil
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func newStore() *memoryStore {
	return &memoryStore{
		production: []models.ProductionRecord{
			{ReferenceDate: day(1), WellCode: "W1", OilProd: 100.5},
			{ReferenceDate: day(1), WellCode: "W2", OilProd: 30000},
			{ReferenceDate: day(2), WellCode: "W1", OilProd: 90},
		},
		prices: []models.PriceRecord{
			{ReferenceDate: day(1), FieldCode: "F1", FieldName: "Alpha", Price: 80.1},
			{ReferenceDate: day(1), FieldCode: "F2", FieldName: "Beta", Price: 70},
			{ReferenceDate: day(2), FieldCode: "F1", FieldName: "Alpha", Price: 81},
		},
		rates: []models.ExchangeRateRecord{{ReferenceDate: day(1), Rate: 5}},
		wells: []models.Well{
			{WellCode: "W1", FieldCode: "F1"},
			{WellCode: "w2", FieldCode: "F2"},
		},
	}
}

func TestComputeRevenue(t *testing.T) {
	store := newStore()
	svc := NewService(store, store, nil, nil)
	svc.now = func() time.Time { return day(20) }

	got, err := svc.ComputeRevenue(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "W1", got[0].WellCode)
	assert.Equal(t, "F1", got[0].FieldCode)
	assert.Equal(t, "8050.05", got[0].RevenueUSD)
	assert.Equal(t, "40250.25", got[0].RevenueBRL)
	assert.Equal(t, "W2", got[1].WellCode)
	assert.Equal(t, "2100000.00", got[1].RevenueUSD)
	assert.Equal(t, day(20), got[1].CreatedAt)
	assert.Equal(t, got, store.saved)
	assert.Equal(t, 1, store.wellReads)
}

func TestComputeRevenue_Failures(t *testing.T) {
	store := newStore()
	store.priceErr = errors.New("sheet down")
	_, err := NewService(store, store, nil, nil).ComputeRevenue(context.Background())
	assert.ErrorContains(t, err, "load prices")

	store = newStore()
	store.saveErr = errors.New("mongo down")
	_, err = NewService(store, store, nil, nil).ComputeRevenue(context.Background())
	assert.ErrorContains(t, err, "save financial summaries")
}

func TestFieldTotals(t *testing.T) {
	store := newStore()
	store.production = append(store.production, models.ProductionRecord{ReferenceDate: day(3), WellCode: "W9", OilProd: 10})

	got, err := NewService(store, store, nil, nil).FieldTotals(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "", got[0].FieldCode)
	assert.Equal(t, "F1", got[1].FieldCode)
	assert.Len(t, got[1].Productions, 2)
	assert.InDelta(t, 1.0, got[2].TotalOilKBD(), 1e-9)
	assert.Equal(t, 1, store.wellReads)
}

func TestFieldTotals_WellRegistryFailure(t *testing.T) {
	store := newStore()
	store.wellErr = errors.New("quota")

	_, err := NewService(store, store, nil, nil).FieldTotals(context.Background())

	assert.ErrorContains(t, err, "load wells")
}
