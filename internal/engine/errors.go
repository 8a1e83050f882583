package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter is the single failure kind of the engine. Every
// validation error returned by Estimate and EstimateCost matches it with
// errors.Is.
var ErrInvalidParameter = errors.New("engine: invalid parameter")

// InvalidParameterError names the parameter that failed validation and why.
type InvalidParameterError struct {
	Field  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return e.Reason
}

// Is reports whether target is ErrInvalidParameter.
func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

func invalid(field, format string, args ...any) error {
	return &InvalidParameterError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
