package milp

import "context"

// Backend is the external MILP-solving capability: submit a model, get back
// an assignment and an explicit status. Implementations must honor
// Options.TimeLimit and ctx cancellation, and must return the best feasible
// solution found when stopping early instead of blocking indefinitely.
//
// The core treats a Backend as a black box satisfying standard MILP
// semantics: the returned assignment satisfies every submitted constraint,
// or infeasibility is proven, or the time budget is exhausted.
type Backend interface {
	Name() string
	Solve(ctx context.Context, m *Model, opts Options) (*Result, error)
}
