package mclp

import (
	"sort"
	"time"

	"github.com/sells-group/coverage-planner/internal/milp"
	"github.com/sells-group/coverage-planner/internal/model"
)

// openTol separates solver 0s from 1s; MILP solvers return values like
// 0.9999999 for binary variables.
const openTol = 0.5

// Extract maps a raw assignment back to the domain. Household coverage is
// derived from the opened sites and the coverage index, not from the y
// values: a solver may leave y_i at zero for a zero-population household
// that an open site reaches, and the report should still call it covered.
// Structural uncoverability comes from the index alone, independent of
// solver outcome.
func (p *Problem) Extract(res *milp.Result) *model.Plan {
	plan := &model.Plan{
		InstanceName:    p.inst.Name,
		Status:          mapStatus(res.Status),
		TotalPopulation: p.inst.TotalPopulation(),
		Budget:          p.inst.Budget,
		Threshold:       p.inst.Threshold,
		Gap:             res.Gap,
		TimedOut:        res.TimedOut,
		SolveTime:       res.Runtime,
		CreatedAt:       time.Now().UTC(),
	}

	for _, s := range p.inst.Sites {
		if s.Existing {
			plan.ExistingSites = append(plan.ExistingSites, s.ID)
		}
	}
	sort.Strings(plan.ExistingSites)

	// Structural facts hold whatever the solver did.
	for _, i := range p.idx.Uncoverable() {
		h := p.inst.Households[i]
		plan.UncoverableHouseholds = append(plan.UncoverableHouseholds, h.ID)
		plan.UncoverablePopulation += h.Population
	}

	if res.Values == nil {
		plan.UncoveredHouseholds = len(p.inst.Households)
		return plan
	}

	open := make([]bool, len(p.inst.Sites))
	for j, s := range p.inst.Sites {
		if res.Values[p.xVar[j]] > openTol {
			open[j] = true
			if !s.Existing {
				plan.OpenedSites = append(plan.OpenedSites, s.ID)
			}
		}
	}
	sort.Strings(plan.OpenedSites)

	for i, h := range p.inst.Households {
		cover := p.idx.Cover(i)
		reached := false
		for _, j := range cover {
			if open[j] {
				reached = true
				break
			}
		}
		switch {
		case reached:
			plan.CoveredHouseholds++
			plan.CoveredPopulation += h.Population
		case len(cover) > 0:
			// A candidate could reach this household but none opened:
			// budget-limited, not structural.
			plan.UncoveredHouseholds++
			plan.UnservedReachable = append(plan.UnservedReachable, h.ID)
		default:
			plan.UncoveredHouseholds++
		}
	}
	sort.Strings(plan.UnservedReachable)

	return plan
}

func mapStatus(s milp.Status) model.SolveStatus {
	switch s {
	case milp.StatusOptimal:
		return model.StatusOptimal
	case milp.StatusFeasible:
		return model.StatusFeasible
	case milp.StatusInfeasible:
		return model.StatusInfeasible
	}
	return model.StatusError
}
