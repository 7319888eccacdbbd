// Package milp describes binary integer programs abstractly and hands them
// to an external solving capability behind a narrow Backend interface. The
// package formulates and normalizes; the combinatorial search itself is an
// external, independently verified dependency.
package milp

import (
	"time"

	"github.com/rotisserie/eris"
)

// Sense is the optimization direction.
type Sense int

const (
	Maximize Sense = iota
	Minimize
)

// Relation is a linear constraint comparator.
type Relation int

const (
	LE Relation = iota // Σ terms <= RHS
	GE                 // Σ terms >= RHS
	EQ                 // Σ terms == RHS
)

func (r Relation) String() string {
	switch r {
	case LE:
		return "<="
	case GE:
		return ">="
	case EQ:
		return "="
	}
	return "?"
}

// Var is a binary decision variable. Obj is its objective coefficient.
type Var struct {
	Name string
	Obj  float64
}

// Term is one coefficient·variable entry in a constraint row.
type Term struct {
	Var  int // column index into Model.Vars
	Coef float64
}

// Constraint is a sparse linear row: Σ Coef·x_Var  Rel  RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Rel   Relation
	RHS   float64
}

// Model is a snapshot of one binary program. Built once per solve, consumed
// exactly once by a Backend, never mutated afterward.
type Model struct {
	Name  string
	Sense Sense
	Vars  []Var
	Cons  []Constraint
}

// NewModel returns an empty model with the given name and direction.
func NewModel(name string, sense Sense) *Model {
	return &Model{Name: name, Sense: sense}
}

// AddVar appends a binary variable and returns its column index.
func (m *Model) AddVar(name string, obj float64) int {
	m.Vars = append(m.Vars, Var{Name: name, Obj: obj})
	return len(m.Vars) - 1
}

// AddConstraint appends a sparse row.
func (m *Model) AddConstraint(name string, terms []Term, rel Relation, rhs float64) {
	m.Cons = append(m.Cons, Constraint{Name: name, Terms: terms, Rel: rel, RHS: rhs})
}

// Stats summarizes model size.
type Stats struct {
	Vars     int
	Cons     int
	NonZeros int
}

// Stats returns variable, constraint, and nonzero counts.
func (m *Model) Stats() Stats {
	s := Stats{Vars: len(m.Vars), Cons: len(m.Cons)}
	for _, c := range m.Cons {
		s.NonZeros += len(c.Terms)
	}
	return s
}

// Validate checks internal consistency: at least one variable, every term
// referencing a declared column, no duplicate variable names.
func (m *Model) Validate() error {
	if len(m.Vars) == 0 {
		return eris.New("milp: model has no variables")
	}
	names := make(map[string]bool, len(m.Vars))
	for _, v := range m.Vars {
		if v.Name == "" {
			return eris.New("milp: variable with empty name")
		}
		if names[v.Name] {
			return eris.Errorf("milp: duplicate variable name %q", v.Name)
		}
		names[v.Name] = true
	}
	for _, c := range m.Cons {
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= len(m.Vars) {
				return eris.Errorf("milp: constraint %q references column %d of %d", c.Name, t.Var, len(m.Vars))
			}
		}
	}
	return nil
}

// Objective evaluates the objective at the given assignment.
func (m *Model) Objective(values []float64) float64 {
	var obj float64
	for i, v := range m.Vars {
		obj += v.Obj * values[i]
	}
	return obj
}

// Feasible reports whether the assignment satisfies every constraint, with
// tol absorbing solver round-off.
func (m *Model) Feasible(values []float64, tol float64) bool {
	for _, c := range m.Cons {
		var lhs float64
		for _, t := range c.Terms {
			lhs += t.Coef * values[t.Var]
		}
		switch c.Rel {
		case LE:
			if lhs > c.RHS+tol {
				return false
			}
		case GE:
			if lhs < c.RHS-tol {
				return false
			}
		case EQ:
			if lhs > c.RHS+tol || lhs < c.RHS-tol {
				return false
			}
		}
	}
	return true
}

// Options configures one solver invocation. The zero value means no time
// limit, prove optimality, single solver-chosen thread count.
type Options struct {
	// TimeLimit bounds the solve wall time. The backend returns the best
	// feasible solution found so far rather than blocking past it.
	TimeLimit time.Duration
	// GapTolerance is the relative optimality gap at which the solver may
	// stop and report a feasible (not proven optimal) solution.
	GapTolerance float64
	// Threads caps the solver's internal parallel search. 0 = solver default.
	Threads int
	// WorkDir holds the model and solution files for subprocess backends.
	// Empty means a fresh temp directory per solve.
	WorkDir string
	// KeepFiles leaves the model/solution files in place for debugging.
	KeepFiles bool
}

// Status classifies a solve outcome. Backends must never report Feasible
// work as Optimal; callers rely on the distinction to decide whether to
// re-run with a larger budget.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusFeasible   Status = "feasible"
	StatusInfeasible Status = "infeasible"
	StatusError      Status = "error"
)

// Result is the normalized solver response.
type Result struct {
	Status    Status
	Objective float64
	// Values holds one entry per model column, in declaration order. Only
	// meaningful for Optimal and Feasible results.
	Values []float64
	// Gap is the relative optimality bound for Feasible results, when the
	// solver reported one.
	Gap      float64
	TimedOut bool
	Runtime  time.Duration
}
