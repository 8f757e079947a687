package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/wellcast/internal/decline"
	"github.com/mamadbah2/wellcast/internal/domain/models"
	"github.com/mamadbah2/wellcast/internal/tabular"
)

type fakeStore struct {
	wells      map[string]models.Well
	production []models.ProductionRecord
	prices     []models.PriceRecord
	rates      []models.ExchangeRateRecord

	wellErr, productionErr, priceErr, rateErr error
}

func (f *fakeStore) GetByWellCode(_ context.Context, code string) (*models.Well, error) {
	if f.wellErr != nil {
		return nil, f.wellErr
	}
	w, ok := f.wells[code]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (f *fakeStore) FindByWellCode(_ context.Context, code string, start, end *time.Time) ([]models.ProductionRecord, error) {
	if f.productionErr != nil {
		return nil, f.productionErr
	}
	var out []models.ProductionRecord
	for _, p := range f.production {
		if p.WellCode != code {
			continue
		}
		if start != nil && p.ReferenceDate.Before(*start) {
			continue
		}
		if end != nil && p.ReferenceDate.After(*end) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) ListProduction(context.Context) ([]models.ProductionRecord, error) {
	return f.production, f.productionErr
}

func (f *fakeStore) ListPrices(context.Context) ([]models.PriceRecord, error) {
	return f.prices, f.priceErr
}

func (f *fakeStore) ListExchangeRates(context.Context) ([]models.ExchangeRateRecord, error) {
	return f.rates, f.rateErr
}

func newTestService(store *fakeStore) *Service {
	repos := Repositories{
		Wells:         store,
		Production:    store,
		AllProduction: store,
		Prices:        store,
		ExchangeRates: store,
	}
	return NewService(repos, decline.NewFitter(0, nil), nil, nil)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func decliningWell(code string, points int) []models.ProductionRecord {
	out := make([]models.ProductionRecord, points)
	rate := 1000.0
	for i := range out {
		out[i] = models.ProductionRecord{
			ReferenceDate: date(2023, time.Month(1+i), 1),
			WellCode:      code,
			OilProd:       rate,
			GasProd:       rate * 2,
		}
		rate *= 0.85
	}
	return out
}

func TestAnalyzeDeclineCurve_Hyperbolic(t *testing.T) {
	store := &fakeStore{
		wells:      map[string]models.Well{"W1": {WellCode: "W1", FieldCode: "F1"}},
		production: decliningWell("W1", 7),
	}

	res, err := newTestService(store).AnalyzeDeclineCurve(context.Background(), models.DeclineRequest{
		WellCode: "W1", ModelType: "hyperbolic", ForecastDuration: 180,
	})

	require.NoError(t, err)
	assert.Equal(t, "W1", res.WellCode)
	assert.Equal(t, "hyperbolic", res.ModelType)
	assert.Equal(t, []float64{0, 31, 59, 90, 120, 151, 181}, res.TimeActual)
	assert.Equal(t, res.TimeActual, res.TimeFitted)
	assert.InEpsilon(t, 1000, res.Parameters["qi"], 0.05)
	require.Len(t, res.RateForecast, 180)
	assert.Equal(t, 182.0, res.TimeForecast[0])
	for i := 1; i < len(res.RateForecast); i++ {
		assert.Less(t, res.RateForecast[i], res.RateForecast[i-1])
	}

	var mean float64
	for _, r := range res.RateActual {
		mean += r
	}
	mean /= float64(len(res.RateActual))
	assert.Less(t, res.RMSE, 0.05*mean)
}

func TestAnalyzeDeclineCurve_DateRange(t *testing.T) {
	store := &fakeStore{
		wells:      map[string]models.Well{"W1": {WellCode: "W1"}},
		production: decliningWell("W1", 7),
	}
	start := date(2023, 3, 1)

	res, err := newTestService(store).AnalyzeDeclineCurve(context.Background(), models.DeclineRequest{
		WellCode: "W1", StartDate: &start, ModelType: "exponential", ForecastDuration: 10,
	})

	require.NoError(t, err)
	assert.Len(t, res.TimeActual, 5)
	assert.Equal(t, 0.0, res.TimeActual[0])
	assert.NotContains(t, res.Parameters, "b")
}

func TestAnalyzeDeclineCurve_UnknownWell(t *testing.T) {
	_, err := newTestService(&fakeStore{}).AnalyzeDeclineCurve(context.Background(), models.DeclineRequest{
		WellCode: "NOPE", ModelType: "exponential",
	})

	var notFound *models.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "NOPE", notFound.ID)
}

func TestAnalyzeDeclineCurve_ValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		points int
		model  string
		days   int
	}{
		{"no data", 0, "exponential", 30},
		{"single point", 1, "exponential", 30},
		{"hyperbolic needs three", 2, "hyperbolic", 30},
		{"unknown model", 5, "harmonic", 30},
		{"negative forecast", 5, "exponential", -5},
		{"oversized forecast", 5, "exponential", 2_000_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{
				wells:      map[string]models.Well{"W1": {WellCode: "W1"}},
				production: decliningWell("W1", tt.points),
			}

			_, err := newTestService(store).AnalyzeDeclineCurve(context.Background(), models.DeclineRequest{
				WellCode: "W1", ModelType: tt.model, ForecastDuration: tt.days,
			})

			var validation *models.ValidationError
			assert.ErrorAs(t, err, &validation)
		})
	}
}

type failingFitter struct{}

func (failingFitter) FitAndForecast([]float64, []float64, decline.ModelType, int) (*decline.Forecast, error) {
	return nil, &decline.FittingError{Model: decline.Exponential, Points: 3, Err: errors.New("diverged")}
}

func TestAnalyzeDeclineCurve_FittingErrorIsTranslated(t *testing.T) {
	store := &fakeStore{
		wells:      map[string]models.Well{"W1": {WellCode: "W1"}},
		production: decliningWell("W1", 3),
	}
	svc := NewService(Repositories{Wells: store, Production: store}, failingFitter{}, nil, nil)

	_, err := svc.AnalyzeDeclineCurve(context.Background(), models.DeclineRequest{WellCode: "W1", ModelType: "exponential"})

	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Message, "diverged")
	var fitErr *decline.FittingError
	assert.False(t, errors.As(err, &fitErr))
}

func TestAnalyzeDeclineCurve_RepositoryFailure(t *testing.T) {
	store := &fakeStore{wellErr: errors.New("sheet unavailable")}

	_, err := newTestService(store).AnalyzeDeclineCurve(context.Background(), models.DeclineRequest{WellCode: "W1"})

	require.Error(t, err)
	var validation *models.ValidationError
	assert.False(t, errors.As(err, &validation))
}

func TestAggregateProduction(t *testing.T) {
	store := &fakeStore{production: append(decliningWell("W1", 2), decliningWell("W2", 1)...)}

	rows := newTestService(store).AggregateProduction(context.Background(), models.AggregationRequest{
		GroupByFields:        []string{"well_code"},
		AggregationFunctions: map[string]string{"oil_prod": "sum"},
	})

	assert.Equal(t, []tabular.Row{
		{"well_code": "W1", "oil_prod_sum": 1850.0},
		{"well_code": "W2", "oil_prod_sum": 1000.0},
	}, rows)
}

func TestAggregateProduction_FetchFailure(t *testing.T) {
	store := &fakeStore{productionErr: errors.New("boom")}

	rows := newTestService(store).AggregateProduction(context.Background(), models.AggregationRequest{
		AggregationFunctions: map[string]string{"oil_prod": "sum"},
	})

	assert.Empty(t, rows)
}

func TestFilterProduction(t *testing.T) {
	store := &fakeStore{production: decliningWell("W1", 4)}

	out, err := newTestService(store).FilterProduction(context.Background(), models.FilterRequest{
		Criteria: map[string]any{"reference_date__ge": "2023-03-01", "oil_prod__gt": 700.0},
	})

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "2023-03-01", out[0].ReferenceDate)
}

func TestFilterProduction_MalformedOperator(t *testing.T) {
	_, err := newTestService(&fakeStore{}).FilterProduction(context.Background(), models.FilterRequest{
		Criteria: map[string]any{"oil_prod__approx": 1.0},
	})

	var validation *models.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestJoinTables(t *testing.T) {
	store := &fakeStore{
		production: append(decliningWell("W1", 2), decliningWell("W2", 1)...),
		prices:     []models.PriceRecord{{ReferenceDate: date(2023, 1, 1), FieldCode: "F1", FieldName: "Alpha", Price: 80}},
		rateErr:    errors.New("rates unavailable"),
	}

	rows := newTestService(store).JoinTables(context.Background(), models.JoinRequest{WellCode: "W1"})

	require.Len(t, rows, 2)
	assert.Equal(t, 80.0, rows[0]["price"])
	assert.Nil(t, rows[1]["price"])
	_, hasRate := rows[0]["rate"]
	assert.False(t, hasRate)
}

func TestJoinTables_ProductionFailureAborts(t *testing.T) {
	store := &fakeStore{productionErr: errors.New("boom"), prices: []models.PriceRecord{{Price: 1}}}

	assert.Empty(t, newTestService(store).JoinTables(context.Background(), models.JoinRequest{}))
}

func TestDaysBetween(t *testing.T) {
	first := civilDay(time.Date(2024, 1, 31, 18, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, daysBetween(first, civilDay(date(2024, 2, 1))))
	assert.Equal(t, 29, daysBetween(civilDay(date(2024, 2, 1)), civilDay(date(2024, 3, 1))))
}
