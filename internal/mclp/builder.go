// Package mclp formulates the maximal covering location problem with
// mandatory facilities as a binary program and maps solver output back to a
// facility plan. Constraints are generated from the sparse coverage index,
// never from the dense household×site relation.
package mclp

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/coverage-planner/internal/coverage"
	"github.com/sells-group/coverage-planner/internal/milp"
	"github.com/sells-group/coverage-planner/internal/model"
)

// Problem couples the built integer program with the column maps needed to
// read an assignment back into site and household decisions.
type Problem struct {
	Model *milp.Model

	inst *model.Instance
	idx  *coverage.Index
	xVar []int // site index -> model column
	yVar []int // household index -> model column
}

// Build encodes the instance against the coverage index:
//
//	max  Σ pop_i · y_i
//	s.t. x_j = 1                      for every existing site
//	     Σ x_j over candidates <= p
//	     y_i <= Σ_{j ∈ cover(i)} x_j  for every household
//
// The linking row for household i references only its cover set, so total
// constraint density is bounded by Σ|cover(i)| rather than n·m. An empty
// cover set degenerates to y_i <= 0: the household is uncoverable no matter
// what opens.
func Build(idx *coverage.Index, inst *model.Instance) (*Problem, error) {
	if inst.Budget < 0 {
		return nil, eris.Wrapf(model.ErrConfiguration, "mclp: negative budget %d", inst.Budget)
	}
	if idx.Households() != len(inst.Households) {
		return nil, eris.Wrapf(model.ErrConfiguration,
			"mclp: index covers %d households, instance has %d", idx.Households(), len(inst.Households))
	}
	if idx.Sites() != len(inst.Sites) {
		return nil, eris.Wrapf(model.ErrConfiguration,
			"mclp: index covers %d sites, instance has %d", idx.Sites(), len(inst.Sites))
	}

	m := milp.NewModel(inst.Name, milp.Maximize)
	p := &Problem{
		Model: m,
		inst:  inst,
		idx:   idx,
		xVar:  make([]int, len(inst.Sites)),
		yVar:  make([]int, len(inst.Households)),
	}

	for j := range inst.Sites {
		p.xVar[j] = m.AddVar(fmt.Sprintf("x_%d", j), 0)
	}
	for i, h := range inst.Households {
		p.yVar[i] = m.AddVar(fmt.Sprintf("y_%d", i), float64(h.Population))
	}

	// Existing hospitals stay open; never a decision.
	for j, s := range inst.Sites {
		if s.Existing {
			m.AddConstraint(fmt.Sprintf("pin_%d", j),
				[]milp.Term{{Var: p.xVar[j], Coef: 1}}, milp.EQ, 1)
		}
	}

	// New-hospital budget over the candidate pool.
	var budgetTerms []milp.Term
	for j, s := range inst.Sites {
		if !s.Existing {
			budgetTerms = append(budgetTerms, milp.Term{Var: p.xVar[j], Coef: 1})
		}
	}
	if len(budgetTerms) > 0 {
		m.AddConstraint("budget", budgetTerms, milp.LE, float64(inst.Budget))
	}

	// Sparse linking rows.
	for i := range inst.Households {
		cover := idx.Cover(i)
		terms := make([]milp.Term, 0, len(cover)+1)
		terms = append(terms, milp.Term{Var: p.yVar[i], Coef: 1})
		for _, j := range cover {
			terms = append(terms, milp.Term{Var: p.xVar[j], Coef: -1})
		}
		m.AddConstraint(fmt.Sprintf("cover_%d", i), terms, milp.LE, 0)
	}

	return p, nil
}

// Stats returns the size of the built program.
func (p *Problem) Stats() milp.Stats { return p.Model.Stats() }
