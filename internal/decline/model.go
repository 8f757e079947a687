package decline

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrUnsupportedModel indicates a model type outside exponential/hyperbolic.
	ErrUnsupportedModel = errors.New("unsupported model type")
	// ErrInsufficientData indicates fewer points than the model requires.
	ErrInsufficientData = errors.New("insufficient data points")
	// ErrLengthMismatch indicates paired series of different lengths.
	ErrLengthMismatch = errors.New("series length mismatch")
	// ErrInvalidSeries indicates non-finite or negative observations.
	ErrInvalidSeries = errors.New("invalid series")
	// ErrInvalidForecast indicates a negative or oversized forecast duration.
	ErrInvalidForecast = errors.New("invalid forecast duration")
)

// ModelType names a decline model family.
type ModelType string

const (
	Exponential ModelType = "exponential"
	Hyperbolic  ModelType = "hyperbolic"
)

// Parameter names as exposed in Params.
const (
	ParamQi = "qi"
	ParamDi = "Di"
	ParamB  = "b"
)

// ParseModelType resolves a model name case-insensitively.
func ParseModelType(name string) (ModelType, error) {
	switch m := ModelType(strings.ToLower(strings.TrimSpace(name))); m {
	case Exponential, Hyperbolic:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedModel, name)
	}
}

// MinPoints is the number of (t, rate) pairs required to fit model.
func MinPoints(model ModelType) int {
	if model == Hyperbolic {
		return 3
	}
	return 2
}

// Params holds fitted parameters keyed by ParamQi, ParamDi and ParamB.
type Params map[string]float64

// ExponentialRate evaluates qi·exp(-Di·t).
func ExponentialRate(t, qi, di float64) float64 {
	return qi * math.Exp(-di*t)
}

// HyperbolicRate evaluates qi / (1 + b·Di·t)^(1/b). b == 0 is the exponential limit.
func HyperbolicRate(t, qi, di, b float64) float64 {
	if b == 0 {
		return ExponentialRate(t, qi, di)
	}
	return qi * math.Exp(-math.Log1p(b*di*t)/b)
}

// Rate evaluates model at t with params.
func Rate(model ModelType, t float64, params Params) (float64, error) {
	switch model {
	case Exponential:
		return ExponentialRate(t, params[ParamQi], params[ParamDi]), nil
	case Hyperbolic:
		return HyperbolicRate(t, params[ParamQi], params[ParamDi], params[ParamB]), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedModel, model)
	}
}

// Rates evaluates model over every time point.
func Rates(model ModelType, times []float64, params Params) ([]float64, error) {
	out := make([]float64, len(times))
	for i, t := range times {
		q, err := Rate(model, t, params)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

// RMSE is sqrt(mean((actual-fitted)^2)). The series must have equal length.
func RMSE(actual, fitted []float64) (float64, error) {
	if len(actual) != len(fitted) {
		return 0, fmt.Errorf("%w: actual=%d fitted=%d", ErrLengthMismatch, len(actual), len(fitted))
	}
	if len(actual) == 0 {
		return 0, nil
	}
	var sum float64
	for i := range actual {
		d := actual[i] - fitted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(actual))), nil
}
