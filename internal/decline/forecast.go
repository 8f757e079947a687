package decline

import (
	"fmt"

	"go.uber.org/zap"
)

// MaxForecastDays bounds the forecast horizon to one hundred years of daily points.
const MaxForecastDays = 36500

// Forecast is the outcome of fitting a model and extrapolating it.
type Forecast struct {
	Model        ModelType
	Fitted       []float64
	ForecastTime []float64
	ForecastRate []float64
	Parameters   Params
	RMSE         float64
}

// FitAndForecast fits model to (times, rates), evaluates the fitted curve over times and
// extrapolates forecastDays daily points past the last observation. Forecast times stay on
// the same absolute axis as times, so the forecast continues the fitted curve.
func (f *Fitter) FitAndForecast(times, rates []float64, model ModelType, forecastDays int) (*Forecast, error) {
	if forecastDays < 0 || forecastDays > MaxForecastDays {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidForecast, forecastDays, MaxForecastDays)
	}

	params, err := f.Fit(model, times, rates)
	if err != nil {
		return nil, err
	}

	fitted, err := Rates(model, times, params)
	if err != nil {
		return nil, err
	}
	rmse, err := RMSE(rates, fitted)
	if err != nil {
		return nil, err
	}

	last := 0.0
	if len(times) > 0 {
		last = times[len(times)-1]
	}
	forecastTime := make([]float64, forecastDays)
	for i := range forecastTime {
		forecastTime[i] = last + float64(i+1)
	}
	forecastRate, err := Rates(model, forecastTime, params)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("decline curve fitted",
		zap.String("model", string(model)),
		zap.Int("points", len(times)),
		zap.Any("params", params),
		zap.Float64("rmse", rmse))

	return &Forecast{
		Model:        model,
		Fitted:       fitted,
		ForecastTime: forecastTime,
		ForecastRate: forecastRate,
		Parameters:   params,
		RMSE:         rmse,
	}, nil
}
