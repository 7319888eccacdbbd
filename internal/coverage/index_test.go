package coverage

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/coverage-planner/internal/model"
)

func matrixDist(rows [][]float64) model.DistanceFunc {
	return func(i, j int) float64 { return rows[i][j] }
}

func TestBuild_ExactEquivalence(t *testing.T) {
	// Randomized instance checked against the direct definition.
	rng := rand.New(rand.NewSource(7))
	const n, m = 40, 12
	const threshold = 10.0

	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, m)
		for j := range d[i] {
			d[i][j] = rng.Float64() * 25
		}
	}

	idx, err := Build(context.Background(), n, m, threshold, matrixDist(d))
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		var want []int32
		for j := 0; j < m; j++ {
			if d[i][j] <= threshold {
				want = append(want, int32(j))
			}
		}
		assert.Equal(t, want, idx.Cover(i), "household %d", i)
	}
}

func TestBuild_InverseConsistency(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	const n, m = 25, 9

	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, m)
		for j := range d[i] {
			d[i][j] = rng.Float64() * 20
		}
	}

	idx, err := Build(context.Background(), n, m, 8.0, matrixDist(d))
	require.NoError(t, err)

	inCover := func(i int, j int32) bool {
		for _, s := range idx.Cover(i) {
			if s == j {
				return true
			}
		}
		return false
	}
	inCoveredBy := func(j int32, i int) bool {
		for _, h := range idx.CoveredBy(int(j)) {
			if int(h) == i {
				return true
			}
		}
		return false
	}

	for i := 0; i < n; i++ {
		for j := int32(0); j < int32(m); j++ {
			assert.Equal(t, inCover(i, j), inCoveredBy(j, i), "pair (%d,%d)", i, j)
		}
	}
}

func TestBuild_BoundaryInclusive(t *testing.T) {
	// d == threshold counts as covered.
	d := [][]float64{{5.0, 5.0001}}
	idx, err := Build(context.Background(), 1, 2, 5.0, matrixDist(d))
	require.NoError(t, err)
	assert.Equal(t, []int32{0}, idx.Cover(0))
}

func TestBuild_Uncoverable(t *testing.T) {
	// Nearest site 30 km away, threshold 25 km: structurally uncoverable
	// regardless of any open/close decision.
	d := [][]float64{
		{30.0, 42.5},
		{3.0, 12.0},
		{math.Inf(1), 24.9},
	}
	idx, err := Build(context.Background(), 3, 2, 25.0, matrixDist(d))
	require.NoError(t, err)

	assert.Empty(t, idx.Cover(0))
	assert.Equal(t, []int{0}, idx.Uncoverable())
	assert.Equal(t, 3, idx.Arcs())
}

func TestBuild_Arcs(t *testing.T) {
	d := [][]float64{
		{1, 1, 1},
		{1, 99, 99},
	}
	idx, err := Build(context.Background(), 2, 3, 2.0, matrixDist(d))
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Arcs())
	assert.Equal(t, []int32{0, 1}, idx.CoveredBy(0))
	assert.Equal(t, []int32{0}, idx.CoveredBy(1))
}

func TestBuild_ConfigurationErrors(t *testing.T) {
	dist := matrixDist([][]float64{{1}})

	tests := []struct {
		name       string
		households int
		sites      int
		threshold  float64
		dist       model.DistanceFunc
	}{
		{"no households", 0, 1, 5, dist},
		{"no sites", 1, 0, 5, dist},
		{"zero threshold", 1, 1, 0, dist},
		{"negative threshold", 1, 1, -3, dist},
		{"nil distance", 1, 1, 5, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(context.Background(), tt.households, tt.sites, tt.threshold, tt.dist)
			require.Error(t, err)
			assert.True(t, eris.Is(err, model.ErrConfiguration))
		})
	}
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	slow := func(i, j int) float64 { return 1 }
	_, err := Build(ctx, 10_000, 50, 5, slow)
	require.Error(t, err)
}

func TestBuild_MatrixFunc(t *testing.T) {
	m := model.NewDistanceMatrix(2, 2)
	m.Set(0, 0, 4)
	m.Set(1, 1, 6)
	// Unset entries default to +Inf.

	idx, err := Build(context.Background(), 2, 2, 5.0, m.Func())
	require.NoError(t, err)
	assert.Equal(t, []int32{0}, idx.Cover(0))
	assert.Empty(t, idx.Cover(1))
	assert.Equal(t, []int{1}, idx.Uncoverable())
}
