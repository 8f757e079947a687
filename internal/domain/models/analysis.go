package models

import "time"

// DeclineRequest asks for a decline-curve fit of one well.
type DeclineRequest struct {
	WellCode         string     `json:"well_code" binding:"required"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	ModelType        string     `json:"model_type"`
	ForecastDuration int        `json:"forecast_duration"`
}

// DeclineFitResult is the outcome of a decline-curve analysis. It is never persisted.
type DeclineFitResult struct {
	WellCode     string             `json:"well_code"`
	ModelType    string             `json:"model_type"`
	TimeActual   []float64          `json:"time_actual"`
	RateActual   []float64          `json:"rate_actual"`
	TimeFitted   []float64          `json:"time_fitted"`
	RateFitted   []float64          `json:"rate_fitted"`
	TimeForecast []float64          `json:"time_forecast"`
	RateForecast []float64          `json:"rate_forecast"`
	Parameters   map[string]float64 `json:"parameters"`
	RMSE         float64            `json:"rmse"`
}

// AggregationRequest groups production by fields and applies column -> function aggregations.
type AggregationRequest struct {
	GroupByFields        []string          `json:"group_by_fields"`
	AggregationFunctions map[string]string `json:"aggregation_functions"`
}

// FilterRequest carries "field" or "field__operator" criteria.
type FilterRequest struct {
	Criteria map[string]any `json:"criteria"`
}

// JoinRequest optionally restricts the joined production to one well.
type JoinRequest struct {
	WellCode string `json:"well_code,omitempty"`
}
