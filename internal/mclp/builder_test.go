package mclp

import (
	"context"
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/coverage-planner/internal/coverage"
	"github.com/sells-group/coverage-planner/internal/milp"
	"github.com/sells-group/coverage-planner/internal/model"
)

// testInstance assembles an instance from a dense distance table.
func testInstance(t *testing.T, pops []int64, existing []bool, dist [][]float64, threshold float64, budget int) (*model.Instance, *coverage.Index) {
	t.Helper()

	inst := &model.Instance{Name: "test", Threshold: threshold, Budget: budget}
	for i, p := range pops {
		inst.Households = append(inst.Households, model.Household{ID: fmt.Sprintf("H%d", i+1), Population: p})
	}
	for j, ex := range existing {
		id := fmt.Sprintf("CJ%d", j+1)
		if ex {
			id = fmt.Sprintf("EJ%d", j+1)
		}
		inst.Sites = append(inst.Sites, model.Site{ID: id, Existing: ex})
	}

	m := model.NewDistanceMatrix(len(pops), len(existing))
	for i := range dist {
		for j, d := range dist[i] {
			m.Set(i, j, d)
		}
	}
	inst.Distances = m
	require.NoError(t, inst.Validate())

	idx, err := coverage.Build(context.Background(), len(pops), len(existing), threshold, m.Func())
	require.NoError(t, err)
	return inst, idx
}

func TestBuild_Shape(t *testing.T) {
	// 2 households, 1 existing + 2 candidate sites.
	inst, idx := testInstance(t,
		[]int64{10, 20},
		[]bool{true, false, false},
		[][]float64{
			{4, 4, 99},
			{99, 4, 4},
		},
		5, 1)

	prob, err := Build(idx, inst)
	require.NoError(t, err)

	s := prob.Stats()
	assert.Equal(t, 5, s.Vars) // 3 x + 2 y
	// 1 pin + 1 budget + 2 linking rows.
	assert.Equal(t, 4, s.Cons)
	require.NoError(t, prob.Model.Validate())
}

func TestBuild_SparseLinkingRows(t *testing.T) {
	// The linking row for a household must reference exactly its cover set,
	// never a site outside it.
	inst, idx := testInstance(t,
		[]int64{10, 20, 30},
		[]bool{false, false, false, false},
		[][]float64{
			{1, 99, 99, 99},
			{1, 1, 99, 99},
			{99, 99, 99, 99},
		},
		5, 2)

	prob, err := Build(idx, inst)
	require.NoError(t, err)

	rows := make(map[string]milp.Constraint)
	for _, c := range prob.Model.Cons {
		rows[c.Name] = c
	}

	// Household 0: y + (-x_0) only.
	assert.Len(t, rows["cover_0"].Terms, 2)
	// Household 1: y - x_0 - x_1.
	assert.Len(t, rows["cover_1"].Terms, 3)
	// Household 2 is uncoverable: the row degenerates to y <= 0.
	require.Len(t, rows["cover_2"].Terms, 1)
	assert.Equal(t, prob.yVar[2], rows["cover_2"].Terms[0].Var)
	assert.Equal(t, milp.LE, rows["cover_2"].Rel)
	assert.Equal(t, 0.0, rows["cover_2"].RHS)
}

func TestBuild_ConfigurationErrors(t *testing.T) {
	inst, idx := testInstance(t,
		[]int64{10},
		[]bool{false},
		[][]float64{{1}},
		5, 1)

	t.Run("negative budget", func(t *testing.T) {
		bad := *inst
		bad.Budget = -1
		_, err := Build(idx, &bad)
		require.Error(t, err)
		assert.True(t, eris.Is(err, model.ErrConfiguration))
	})

	t.Run("household set mismatch", func(t *testing.T) {
		bad := *inst
		bad.Households = append(bad.Households, model.Household{ID: "H9", Population: 1})
		_, err := Build(idx, &bad)
		require.Error(t, err)
		assert.True(t, eris.Is(err, model.ErrConfiguration))
	})

	t.Run("site set mismatch", func(t *testing.T) {
		bad := *inst
		bad.Sites = append(bad.Sites, model.Site{ID: "CJ9"})
		_, err := Build(idx, &bad)
		require.Error(t, err)
		assert.True(t, eris.Is(err, model.ErrConfiguration))
	})
}

func TestBuild_ExistingPinnedAndBudgetHolds(t *testing.T) {
	// Any feasible assignment keeps existing sites open and at most p
	// candidates; verified exhaustively on a small model.
	inst, idx := testInstance(t,
		[]int64{10, 20},
		[]bool{true, false, false},
		[][]float64{
			{4, 99, 99},
			{99, 4, 4},
		},
		5, 1)

	prob, err := Build(idx, inst)
	require.NoError(t, err)

	res, err := milp.Enumerate{}.Solve(context.Background(), prob.Model, milp.Options{})
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, res.Status)

	// Existing site open.
	assert.Equal(t, 1.0, res.Values[prob.xVar[0]])
	// Budget respected.
	opened := res.Values[prob.xVar[1]] + res.Values[prob.xVar[2]]
	assert.LessOrEqual(t, opened, 1.0)
	// Coverage decision implies an open site in range.
	if res.Values[prob.yVar[1]] > 0.5 {
		assert.True(t, res.Values[prob.xVar[1]] > 0.5 || res.Values[prob.xVar[2]] > 0.5)
	}
}
