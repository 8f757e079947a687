package decline

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultMaxIterations bounds model evaluations per fit.
	DefaultMaxIterations = 5000

	initialDi = 0.001
	initialB  = 0.5
	minB      = 1e-6
	maxB      = 2.0

	ftol        = 1e-12
	xtol        = 1e-12
	lambdaStart = 1e-3
	lambdaMax   = 1e16
)

var errNotConverged = errors.New("iteration budget exhausted before convergence")

// curve describes a parametric model with analytic partial derivatives and box bounds.
type curve struct {
	model ModelType
	eval  func(t float64, p []float64) float64
	grad  func(t float64, p []float64, out []float64)
	lower []float64
	upper []float64
}

var exponentialCurve = curve{
	model: Exponential,
	eval: func(t float64, p []float64) float64 {
		return ExponentialRate(t, p[0], p[1])
	},
	grad: func(t float64, p []float64, out []float64) {
		e := math.Exp(-p[1] * t)
		out[0] = e
		out[1] = -t * p[0] * e
	},
	lower: []float64{0, 0},
	upper: []float64{math.Inf(1), math.Inf(1)},
}

var hyperbolicCurve = curve{
	model: Hyperbolic,
	eval: func(t float64, p []float64) float64 {
		return HyperbolicRate(t, p[0], p[1], p[2])
	},
	grad: func(t float64, p []float64, out []float64) {
		qi, di, b := p[0], p[1], p[2]
		x := b * di * t
		u := 1 + x
		l := math.Log1p(x)
		base := math.Exp(-l / b)
		f := qi * base
		out[0] = base
		out[1] = -f * t / u
		out[2] = f * (l - x/u) / (b * b)
	},
	lower: []float64{0, 0, minB},
	upper: []float64{math.Inf(1), math.Inf(1), maxB},
}

// Fitter fits decline models by bounded nonlinear least squares.
type Fitter struct {
	maxIterations int
	logger        *zap.Logger
}

// NewFitter builds a Fitter. A non-positive maxIterations selects DefaultMaxIterations.
func NewFitter(maxIterations int, logger *zap.Logger) *Fitter {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fitter{maxIterations: maxIterations, logger: logger}
}

// FitExponential returns qi and Di for qi·exp(-Di·t).
func (f *Fitter) FitExponential(times, rates []float64) (qi, di float64, err error) {
	if err := checkSeries(Exponential, times, rates); err != nil {
		return 0, 0, err
	}
	p, err := f.fit(exponentialCurve, times, rates, []float64{initialQi(rates), initialDi})
	if err != nil {
		return 0, 0, err
	}
	return p[0], p[1], nil
}

// FitHyperbolic returns qi, Di and b for qi/(1+b·Di·t)^(1/b).
func (f *Fitter) FitHyperbolic(times, rates []float64) (qi, di, b float64, err error) {
	if err := checkSeries(Hyperbolic, times, rates); err != nil {
		return 0, 0, 0, err
	}
	p, err := f.fit(hyperbolicCurve, times, rates, []float64{initialQi(rates), initialDi, initialB})
	if err != nil {
		return 0, 0, 0, err
	}
	return p[0], p[1], p[2], nil
}

// Fit dispatches on model and returns the fitted parameter map.
func (f *Fitter) Fit(model ModelType, times, rates []float64) (Params, error) {
	switch model {
	case Exponential:
		qi, di, err := f.FitExponential(times, rates)
		if err != nil {
			return nil, err
		}
		return Params{ParamQi: qi, ParamDi: di}, nil
	case Hyperbolic:
		qi, di, b, err := f.FitHyperbolic(times, rates)
		if err != nil {
			return nil, err
		}
		return Params{ParamQi: qi, ParamDi: di, ParamB: b}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, model)
	}
}

func checkSeries(model ModelType, times, rates []float64) error {
	if len(times) != len(rates) {
		return fmt.Errorf("%w: times=%d rates=%d", ErrLengthMismatch, len(times), len(rates))
	}
	if need := MinPoints(model); len(times) < need {
		return fmt.Errorf("%w: %s needs at least %d, got %d", ErrInsufficientData, model, need, len(times))
	}
	for i := range times {
		if math.IsNaN(times[i]) || math.IsInf(times[i], 0) || math.IsNaN(rates[i]) || math.IsInf(rates[i], 0) {
			return fmt.Errorf("%w: non-finite value at index %d", ErrInvalidSeries, i)
		}
		if rates[i] < 0 {
			return fmt.Errorf("%w: negative rate %v at index %d", ErrInvalidSeries, rates[i], i)
		}
	}
	return nil
}

// initialQi is the first rate, or the series mean when the first rate is not positive,
// falling back to 1 when that is not positive either.
func initialQi(rates []float64) float64 {
	qi := rates[0]
	if qi <= 0 {
		qi = stat.Mean(rates, nil)
	}
	if qi <= 0 {
		qi = 1.0
	}
	return qi
}

// fit runs a Levenberg-Marquardt iteration. Steps are solved by QR on the augmented system
// [J·D⁻¹; √λ·I] in variables scaled by the Jacobian column norms D, so parameters of very
// different magnitude (qi in the millions, Di near 1e-3) stay well conditioned. Parameters
// sitting on a bound whose gradient points outward are held fixed for that step.
func (f *Fitter) fit(c curve, times, rates []float64, p0 []float64) ([]float64, error) {
	n, m := len(times), len(p0)
	p := clampTo(c, p0)
	residuals := make([]float64, n)
	cost := f.cost(c, times, rates, p, residuals)
	evaluations := 1
	lambda := lambdaStart

	jac := make([]float64, n*m)
	row := make([]float64, m)
	scale := make([]float64, m)
	trial := make([]float64, m)
	trialResiduals := make([]float64, n)

	fail := func(err error) error {
		return &FittingError{Model: c.model, Points: n, Iterations: evaluations, Err: err}
	}

	for evaluations < f.maxIterations {
		if math.IsNaN(cost) || math.IsInf(cost, 0) {
			return nil, fail(errors.New("objective is not finite"))
		}
		if cost == 0 {
			return p, nil
		}

		for i, t := range times {
			c.grad(t, p, row)
			copy(jac[i*m:(i+1)*m], row)
		}

		// Column norms are non-decreasing across iterations, as in MINPACK.
		for j := 0; j < m; j++ {
			var norm float64
			for i := 0; i < n; i++ {
				norm += jac[i*m+j] * jac[i*m+j]
			}
			scale[j] = math.Max(scale[j], math.Sqrt(norm))
			if scale[j] == 0 {
				scale[j] = 1
			}
		}

		// g = Jᵀr is the descent direction for 0.5·||r||² with r = y - f(p).
		g := make([]float64, m)
		for i := 0; i < n; i++ {
			for j := 0; j < m; j++ {
				g[j] += jac[i*m+j] * residuals[i]
			}
		}

		free := make([]int, 0, m)
		for j := 0; j < m; j++ {
			if p[j] <= c.lower[j] && g[j] < 0 {
				continue
			}
			if p[j] >= c.upper[j] && g[j] > 0 {
				continue
			}
			free = append(free, j)
		}
		if len(free) == 0 {
			return p, nil
		}

		k := len(free)
		rhs := mat.NewVecDense(n+k, nil)
		for i := 0; i < n; i++ {
			rhs.SetVec(i, residuals[i])
		}

		accepted := false
		for !accepted {
			if lambda > lambdaMax {
				f.logger.Debug("damping saturated, accepting current parameters",
					zap.String("model", string(c.model)), zap.Int("evaluations", evaluations))
				return p, nil
			}
			if evaluations >= f.maxIterations {
				return nil, fail(errNotConverged)
			}

			aug := mat.NewDense(n+k, k, nil)
			for i := 0; i < n; i++ {
				for a, ja := range free {
					aug.Set(i, a, jac[i*m+ja]/scale[ja])
				}
			}
			damping := math.Sqrt(lambda)
			for a := 0; a < k; a++ {
				aug.Set(n+a, a, damping)
			}

			var qr mat.QR
			qr.Factorize(aug)
			var step mat.VecDense
			if err := qr.SolveVecTo(&step, false, rhs); err != nil {
				lambda *= 10
				continue
			}

			copy(trial, p)
			for a, ja := range free {
				trial[ja] += step.AtVec(a) / scale[ja]
			}
			trial = clampTo(c, trial)

			trialCost := f.cost(c, times, rates, trial, trialResiduals)
			evaluations++

			if !(trialCost < cost) {
				lambda *= 10
				continue
			}

			accepted = true
			reduction := cost - trialCost
			stepNorm, paramNorm := 0.0, 0.0
			for j := 0; j < m; j++ {
				d := scale[j] * (trial[j] - p[j])
				stepNorm += d * d
				paramNorm += scale[j] * p[j] * scale[j] * p[j]
			}
			copy(p, trial)
			copy(residuals, trialResiduals)
			cost = trialCost
			lambda = math.Max(lambda/10, 1e-12)

			if reduction <= ftol*cost || math.Sqrt(stepNorm) <= xtol*(math.Sqrt(paramNorm)+xtol) {
				return p, nil
			}
		}
	}
	return nil, fail(errNotConverged)
}

func (f *Fitter) cost(c curve, times, rates, p, residuals []float64) float64 {
	var sum float64
	for i, t := range times {
		r := rates[i] - c.eval(t, p)
		residuals[i] = r
		sum += r * r
	}
	return 0.5 * sum
}

func clampTo(c curve, p []float64) []float64 {
	out := make([]float64, len(p))
	for j, v := range p {
		out[j] = math.Min(math.Max(v, c.lower[j]), c.upper[j])
	}
	return out
}
