package model

import "time"

// SolveStatus classifies the outcome of one solve.
type SolveStatus string

const (
	// StatusOptimal means the solver proved the solution best.
	StatusOptimal SolveStatus = "optimal"
	// StatusFeasible means a solution within the configured gap or found
	// before the time limit ran out, not proven optimal.
	StatusFeasible SolveStatus = "feasible"
	// StatusInfeasible means no assignment satisfies the hard constraints.
	StatusInfeasible SolveStatus = "infeasible"
	// StatusError means the solver failed to produce anything usable.
	StatusError SolveStatus = "error"
)

// Plan is the sole externally visible artifact of a solve: the facility
// decisions mapped back to the domain. Immutable once produced.
type Plan struct {
	ID           string      `json:"id,omitempty"`
	InstanceName string      `json:"instance_name"`
	Status       SolveStatus `json:"status"`

	// CoveredPopulation is the objective value: people within the threshold
	// of some open hospital.
	CoveredPopulation int64 `json:"covered_population"`
	TotalPopulation   int64 `json:"total_population"`

	// OpenedSites lists the new hospitals to open, sorted by site ID.
	OpenedSites []string `json:"opened_sites"`
	// ExistingSites lists the pinned-open hospitals, for reference.
	ExistingSites []string `json:"existing_sites"`

	CoveredHouseholds   int `json:"covered_households"`
	UncoveredHouseholds int `json:"uncovered_households"`

	// UncoverableHouseholds lists households with no site at all within the
	// threshold. Opening more hospitals among the current candidates cannot
	// help them; raising the budget would not either. Computed from the
	// coverage structure, independent of solver decisions.
	UncoverableHouseholds []string `json:"uncoverable_households"`
	UncoverablePopulation int64    `json:"uncoverable_population"`

	// UnservedReachable lists households a candidate site could cover but
	// none of the opened sites does. This is the budget-limited kind of
	// uncovered, where a larger budget might help.
	UnservedReachable []string `json:"unserved_reachable"`

	// Gap is the solver's relative optimality bound for feasible results;
	// zero when proven optimal.
	Gap      float64 `json:"gap,omitempty"`
	TimedOut bool    `json:"timed_out,omitempty"`

	Budget    int           `json:"budget"`
	Threshold float64       `json:"threshold"`
	SolveTime time.Duration `json:"solve_time"`
	Solver    string        `json:"solver,omitempty"`
	CreatedAt time.Time     `json:"created_at,omitempty"`
}

// CoverageRate is the fraction of total population covered.
func (p *Plan) CoverageRate() float64 {
	if p.TotalPopulation == 0 {
		return 0
	}
	return float64(p.CoveredPopulation) / float64(p.TotalPopulation)
}
