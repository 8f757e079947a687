package analysis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/wellcast/internal/decline"
	"github.com/mamadbah2/wellcast/internal/domain/models"
	"github.com/mamadbah2/wellcast/internal/tabular"
)

// WellLookup resolves wells by code. A nil well with a nil error means "not found".
type WellLookup interface {
	GetByWellCode(ctx context.Context, wellCode string) (*models.Well, error)
}

// ProductionLookup returns a well's production within an optional date range, ascending by date.
type ProductionLookup interface {
	FindByWellCode(ctx context.Context, wellCode string, start, end *time.Time) ([]models.ProductionRecord, error)
}

// ProductionLister returns every production record.
type ProductionLister interface {
	ListProduction(ctx context.Context) ([]models.ProductionRecord, error)
}

// PriceLister returns every price record.
type PriceLister interface {
	ListPrices(ctx context.Context) ([]models.PriceRecord, error)
}

// ExchangeRateLister returns every exchange-rate record.
type ExchangeRateLister interface {
	ListExchangeRates(ctx context.Context) ([]models.ExchangeRateRecord, error)
}

// DeclineFitter fits and extrapolates decline curves.
type DeclineFitter interface {
	FitAndForecast(times, rates []float64, model decline.ModelType, forecastDays int) (*decline.Forecast, error)
}

// Repositories bundles the read collaborators of the analysis workflows.
type Repositories struct {
	Wells         WellLookup
	Production    ProductionLookup
	AllProduction ProductionLister
	Prices        PriceLister
	ExchangeRates ExchangeRateLister
}

// Service runs the analytical use cases over repository snapshots.
type Service struct {
	repos  Repositories
	fitter DeclineFitter
	engine *tabular.Engine
	logger *zap.Logger
}

// NewService wires a new analysis service instance.
func NewService(repos Repositories, fitter DeclineFitter, engine *tabular.Engine, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = tabular.NewEngine(logger.Named("tabular"))
	}
	return &Service{repos: repos, fitter: fitter, engine: engine, logger: logger}
}

// AnalyzeDeclineCurve fits the requested model to a well's oil production and forecasts it.
// It returns *models.NotFoundError for unknown wells and *models.ValidationError for
// unusable input or failed fits.
func (s *Service) AnalyzeDeclineCurve(ctx context.Context, req models.DeclineRequest) (*models.DeclineFitResult, error) {
	well, err := s.repos.Wells.GetByWellCode(ctx, req.WellCode)
	if err != nil {
		return nil, fmt.Errorf("lookup well %s: %w", req.WellCode, err)
	}
	if well == nil {
		return nil, &models.NotFoundError{Resource: "well", ID: req.WellCode}
	}

	production, err := s.repos.Production.FindByWellCode(ctx, req.WellCode, req.StartDate, req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("load production for well %s: %w", req.WellCode, err)
	}
	if len(production) == 0 {
		return nil, models.NewValidationError("no production data available for well %s in the requested date range", req.WellCode)
	}

	times, rates := timeRateSeries(production)

	model, err := decline.ParseModelType(req.ModelType)
	if err != nil {
		return nil, models.NewValidationError("unsupported model type %q, expected exponential or hyperbolic", req.ModelType)
	}
	if len(times) < 2 {
		return nil, models.NewValidationError("insufficient production data points for decline curve analysis (minimum 2 required, got %d)", len(times))
	}
	if need := decline.MinPoints(model); len(times) < need {
		return nil, models.NewValidationError("%s fitting requires at least %d data points, got %d", model, need, len(times))
	}
	if req.ForecastDuration < 0 {
		return nil, models.NewValidationError("forecast_duration must not be negative, got %d", req.ForecastDuration)
	}
	if req.ForecastDuration > decline.MaxForecastDays {
		return nil, models.NewValidationError("forecast_duration must not exceed %d days, got %d", decline.MaxForecastDays, req.ForecastDuration)
	}

	forecast, err := s.fitter.FitAndForecast(times, rates, model, req.ForecastDuration)
	if err != nil {
		s.logger.Warn("decline curve fitting failed",
			zap.String("well_code", req.WellCode), zap.String("model", string(model)), zap.Error(err))
		return nil, models.NewValidationError("error during decline curve fitting: %v", err)
	}

	s.logger.Info("decline curve analysed",
		zap.String("well_code", req.WellCode),
		zap.String("model", string(model)),
		zap.Int("points", len(times)),
		zap.Float64("rmse", forecast.RMSE))

	return &models.DeclineFitResult{
		WellCode:     req.WellCode,
		ModelType:    string(model),
		TimeActual:   times,
		RateActual:   rates,
		TimeFitted:   append([]float64(nil), times...),
		RateFitted:   forecast.Fitted,
		TimeForecast: forecast.ForecastTime,
		RateForecast: forecast.ForecastRate,
		Parameters:   forecast.Parameters,
		RMSE:         forecast.RMSE,
	}, nil
}

// AggregateProduction groups all production records and applies the requested aggregations.
// A failed fetch yields an empty result.
func (s *Service) AggregateProduction(ctx context.Context, req models.AggregationRequest) []tabular.Row {
	production, err := s.repos.AllProduction.ListProduction(ctx)
	if err != nil {
		s.logger.Error("load production for aggregation", zap.Error(err))
		return []tabular.Row{}
	}

	return tabular.Aggregate(s.engine, production, req.GroupByFields, tabular.AggregationsFromMap(req.AggregationFunctions))
}

// FilterProduction returns the production records matching every criterion. Malformed
// criteria produce a *models.ValidationError; a failed fetch yields an empty result.
func (s *Service) FilterProduction(ctx context.Context, req models.FilterRequest) ([]models.ProductionResponse, error) {
	conditions, err := tabular.ParseCriteria(tabular.CriteriaFromMap(req.Criteria))
	if err != nil {
		return nil, models.NewValidationError("invalid filter criteria: %v", err)
	}

	production, err := s.repos.AllProduction.ListProduction(ctx)
	if err != nil {
		s.logger.Error("load production for filtering", zap.Error(err))
		return []models.ProductionResponse{}, nil
	}

	filtered := tabular.Filter(s.engine, production, conditions)
	out := make([]models.ProductionResponse, 0, len(filtered))
	for _, record := range filtered {
		out = append(out, models.NewProductionResponse(record))
	}
	return out, nil
}

// JoinTables joins production with prices and exchange rates by reference date. Failing to
// load production aborts with an empty result; failing to load prices or rates only drops
// that join step.
func (s *Service) JoinTables(ctx context.Context, req models.JoinRequest) []tabular.Row {
	production, err := s.repos.AllProduction.ListProduction(ctx)
	if err != nil {
		s.logger.Error("load production for join", zap.Error(err))
		return []tabular.Row{}
	}

	if req.WellCode != "" {
		production = tabular.Filter(s.engine, production, []tabular.Condition{
			{Field: models.ColWellCode, Operator: tabular.OpEq, Value: req.WellCode},
		})
	}

	prices, err := s.repos.Prices.ListPrices(ctx)
	if err != nil {
		s.logger.Warn("load prices for join, continuing without them", zap.Error(err))
		prices = nil
	}

	rates, err := s.repos.ExchangeRates.ListExchangeRates(ctx)
	if err != nil {
		s.logger.Warn("load exchange rates for join, continuing without them", zap.Error(err))
		rates = nil
	}

	return tabular.Join(s.engine, production, prices, rates)
}

// timeRateSeries maps production onto (days since first record, oil rate) pairs.
func timeRateSeries(production []models.ProductionRecord) ([]float64, []float64) {
	first := civilDay(production[0].ReferenceDate)
	times := make([]float64, len(production))
	rates := make([]float64, len(production))
	for i, p := range production {
		times[i] = float64(daysBetween(first, civilDay(p.ReferenceDate)))
		rates[i] = p.OilProd
	}
	return times, rates
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
