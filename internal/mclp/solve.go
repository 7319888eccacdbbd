package mclp

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/coverage-planner/internal/coverage"
	"github.com/sells-group/coverage-planner/internal/milp"
	"github.com/sells-group/coverage-planner/internal/model"
)

// Params tunes solve behavior beyond the raw solver options.
type Params struct {
	// TieBreak re-solves once after a proven optimum, pinning the covered
	// population and minimizing a rank sum over candidate sites ordered by
	// ID. Alternate optima then collapse to one reproducible site set
	// instead of whatever the solver's search order happened to find.
	TieBreak bool
}

// Solve runs the full pipeline: formulate against the index, hand the model
// to the backend, map the assignment back to a Plan.
//
// Infeasible and timed-out outcomes are reported in the Plan status, not
// returned as errors; only configuration mistakes and solver failures
// error out. A feasible result is never promoted to optimal.
func Solve(ctx context.Context, idx *coverage.Index, inst *model.Instance, backend milp.Backend, opts milp.Options, params Params) (*model.Plan, error) {
	prob, err := Build(idx, inst)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.String("component", "mclp"),
		zap.String("instance", inst.Name),
		zap.String("backend", backend.Name()),
	)
	stats := prob.Stats()
	log.Info("model built",
		zap.Int("vars", stats.Vars),
		zap.Int("constraints", stats.Cons),
		zap.Int("nonzeros", stats.NonZeros),
		zap.Int("coverage_arcs", idx.Arcs()),
	)

	res, err := backend.Solve(ctx, prob.Model, opts)
	if err != nil {
		return nil, eris.Wrapf(model.ErrSolver, "mclp: %s backend: %v", backend.Name(), err)
	}
	if res.Status == milp.StatusError {
		return nil, eris.Wrapf(model.ErrSolver, "mclp: %s returned no usable result", backend.Name())
	}

	if params.TieBreak && res.Status == milp.StatusOptimal {
		if tb, err := solveTieBreak(ctx, prob, res, backend, opts); err != nil {
			log.Warn("tie-break solve failed, keeping first optimum", zap.Error(err))
		} else if tb != nil {
			res = tb
		}
	}

	plan := prob.Extract(res)
	plan.Solver = backend.Name()
	log.Info("solve finished",
		zap.String("status", string(plan.Status)),
		zap.Int64("covered_population", plan.CoveredPopulation),
		zap.Int64("total_population", plan.TotalPopulation),
		zap.Strings("opened_sites", plan.OpenedSites),
		zap.Duration("solve_time", plan.SolveTime),
	)
	return plan, nil
}

// solveTieBreak pins the objective at the proven optimum and minimizes a
// rank-weighted sum over candidate sites, preferring lower site IDs. The
// returned result keeps the original optimal objective.
func solveTieBreak(ctx context.Context, prob *Problem, first *milp.Result, backend milp.Backend, opts milp.Options) (*milp.Result, error) {
	// Rank candidates by ID so the preference is stable across runs and
	// input orderings.
	type cand struct {
		site int
		id   string
	}
	var cands []cand
	for j, s := range prob.inst.Sites {
		if !s.Existing {
			cands = append(cands, cand{site: j, id: s.ID})
		}
	}
	if len(cands) == 0 {
		return nil, nil
	}
	sort.Slice(cands, func(a, b int) bool { return cands[a].id < cands[b].id })

	m := milp.NewModel(prob.Model.Name+"_tiebreak", milp.Minimize)
	m.Vars = make([]milp.Var, len(prob.Model.Vars))
	copy(m.Vars, prob.Model.Vars)
	for i := range m.Vars {
		m.Vars[i].Obj = 0
	}
	for rank, c := range cands {
		m.Vars[prob.xVar[c.site]].Obj = float64(rank + 1)
	}
	m.Cons = append(m.Cons, prob.Model.Cons...)

	// Populations are integral, so a half-unit slack keeps the optimum
	// reachable under solver round-off without admitting a worse plan.
	var objTerms []milp.Term
	for i, h := range prob.inst.Households {
		if h.Population != 0 {
			objTerms = append(objTerms, milp.Term{Var: prob.yVar[i], Coef: float64(h.Population)})
		}
	}
	if len(objTerms) == 0 {
		return nil, nil
	}
	m.AddConstraint("pin_objective", objTerms, milp.GE, first.Objective-0.5)

	res, err := backend.Solve(ctx, m, opts)
	if err != nil {
		return nil, err
	}
	if res.Status != milp.StatusOptimal {
		return nil, eris.Errorf("mclp: tie-break solve ended %s", res.Status)
	}

	return &milp.Result{
		Status:    milp.StatusOptimal,
		Objective: first.Objective,
		Values:    res.Values,
		Runtime:   first.Runtime + res.Runtime,
	}, nil
}
