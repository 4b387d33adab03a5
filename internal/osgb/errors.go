package osgb

import (
	"errors"
	"fmt"
)

var (
	// ErrConvergence matches every *ConvergenceError.
	ErrConvergence = errors.New("latitude did not converge")
	// ErrInvalidInput matches every *InvalidInputError.
	ErrInvalidInput = errors.New("invalid grid coordinate")
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("invalid projection parameters")
)

// ConvergenceError reports that the footpoint latitude solve did not reach
// tolerance within the iteration budget, or that the series produced a
// non-finite coordinate.
type ConvergenceError struct {
	Easting    float64
	Northing   float64
	Iterations int
	LastStep   float64 // |Δlat| of the final iteration, radians
	NonFinite  bool
}

func (e *ConvergenceError) Error() string {
	if e.NonFinite {
		return fmt.Sprintf("convert (%g, %g): non-finite result after %d iterations", e.Easting, e.Northing, e.Iterations)
	}
	return fmt.Sprintf("convert (%g, %g): no convergence after %d iterations (last step %.3g rad)",
		e.Easting, e.Northing, e.Iterations, e.LastStep)
}

func (e *ConvergenceError) Unwrap() error { return ErrConvergence }

// InvalidInputError reports a NaN or infinite easting or northing.
type InvalidInputError struct {
	Easting  float64
	Northing float64
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("convert (%g, %g): easting and northing must be finite", e.Easting, e.Northing)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// ConfigurationError reports degenerate projection parameters.
type ConfigurationError struct {
	Params string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Params == "" {
		return "projection parameters: " + e.Reason
	}
	return fmt.Sprintf("projection parameters %q: %s", e.Params, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// ErrorKind classifies a conversion error for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrConvergence):
		return "convergence"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "other"
	}
}
