package model

import "github.com/rotisserie/eris"

// Sentinel errors for the failure classes callers branch on. Wrap with
// context at the point of failure; check with eris.Is.
var (
	// ErrConfiguration marks malformed input parameters: negative budget or
	// threshold, mismatched identifier sets, contradictory site flags.
	// Non-retryable.
	ErrConfiguration = eris.New("invalid configuration")

	// ErrInfeasible marks a model whose hard constraints admit no solution.
	// Under this formulation all-zero coverage is always feasible, so an
	// infeasible result means the pinned-site/budget constraints themselves
	// contradict, which is a configuration bug, distinct from zero coverage.
	ErrInfeasible = eris.New("model infeasible")

	// ErrSolver marks a solver that failed to run or returned garbage.
	ErrSolver = eris.New("solver error")
)
