package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for engine and simulation operations.
var (
	// ErrInvalidBody indicates a NaN/Inf position or a non-positive mass.
	ErrInvalidBody = errors.New("dynamo: invalid body")

	// ErrOutOfBounds indicates a body outside the root region of the index.
	ErrOutOfBounds = errors.New("dynamo: body outside world bounds")

	// ErrInvalidState indicates a state vector with NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrDuplicateID indicates a body whose ID is already held by the index.
	ErrDuplicateID = errors.New("dynamo: duplicate body id")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrContextCanceled indicates the simulation was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")

	// ErrDimensionMismatch indicates mismatched state/system dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
