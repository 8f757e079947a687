package decline

import "fmt"

// FittingError reports optimizer failure for a model over a number of points.
type FittingError struct {
	Model      ModelType
	Points     int
	Iterations int
	Err        error
}

func (e *FittingError) Error() string {
	return fmt.Sprintf("%s fit over %d points failed after %d iterations: %v", e.Model, e.Points, e.Iterations, e.Err)
}

func (e *FittingError) Unwrap() error {
	return e.Err
}
