package actions

import "errors"

// Domain errors for action-angle transforms.
var (
	// ErrTorusConstruction indicates the forward mapper could not fit a
	// torus to the requested actions: either no bound orbit exists for
	// them or the iterative refinement failed to converge.
	ErrTorusConstruction = errors.New("actions: torus construction failed")

	// ErrActionComputation indicates the inverse finder could not
	// compute actions for a phase-space point: unbracketable turning
	// points or an undefined coordinate singularity.
	ErrActionComputation = errors.New("actions: action computation failed")
)
