package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidConfig indicates a configuration value outside its valid range.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")

	// ErrEmptyLattice indicates a force field with a zero or negative extent.
	ErrEmptyLattice = errors.New("dynamo: force field lattice is empty")

	// ErrGridTooSmall indicates a cloth grid narrower or shorter than two nodes.
	ErrGridTooSmall = errors.New("dynamo: cloth grid must be at least 2x2")

	// ErrInvalidState indicates a frame containing NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrNotSetup indicates a run was requested before its components were built.
	ErrNotSetup = errors.New("dynamo: experiment not set up")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Frame   int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("frame %d (t=%.4f): %v", e.Frame, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
