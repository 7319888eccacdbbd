package milp

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// DefaultEnumerateMaxVars bounds exhaustive search to something that
// finishes instantly. 2^22 assignments is the ceiling.
const DefaultEnumerateMaxVars = 22

// Enumerate is an exact backend that tries every binary assignment. It
// exists for tests and tiny instances where a provably correct answer
// matters more than speed; real instances go to an external solver.
// Ties on the objective keep the first assignment found in enumeration
// order, so repeat solves always return the same answer.
type Enumerate struct {
	// MaxVars overrides the variable-count ceiling. 0 = default.
	MaxVars int
}

// Name implements Backend.
func (Enumerate) Name() string { return "enumerate" }

// Solve implements Backend by exhaustive search. Always returns a proven
// status: optimal or infeasible.
func (e Enumerate) Solve(ctx context.Context, m *Model, opts Options) (*Result, error) {
	start := time.Now()
	if err := m.Validate(); err != nil {
		return nil, err
	}

	maxVars := e.MaxVars
	if maxVars == 0 {
		maxVars = DefaultEnumerateMaxVars
	}
	n := len(m.Vars)
	if n > maxVars {
		return nil, eris.Errorf("milp: enumerate supports at most %d variables, model has %d", maxVars, n)
	}

	const tol = 1e-6
	values := make([]float64, n)
	var best []float64
	var bestObj float64

	for mask := uint64(0); mask < 1<<uint(n); mask++ {
		if mask&0xfff == 0 && ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "milp: enumerate")
		}
		for i := 0; i < n; i++ {
			values[i] = float64((mask >> uint(i)) & 1)
		}
		if !m.Feasible(values, tol) {
			continue
		}
		obj := m.Objective(values)
		better := best == nil ||
			(m.Sense == Maximize && obj > bestObj+tol) ||
			(m.Sense == Minimize && obj < bestObj-tol)
		if better {
			best = append(best[:0], values...)
			bestObj = obj
		}
	}

	if best == nil {
		return &Result{Status: StatusInfeasible, Runtime: time.Since(start)}, nil
	}
	return &Result{
		Status:    StatusOptimal,
		Objective: bestObj,
		Values:    best,
		Runtime:   time.Since(start),
	}, nil
}
