package cbc

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/coverage-planner/internal/milp"
)

func smallModel() *milp.Model {
	m := milp.NewModel("t", milp.Maximize)
	m.AddVar("x_0", 0)
	m.AddVar("y_0", 100)
	m.AddVar("y_1", 200)
	return m
}

func writeSol(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.sol")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseSolutionFile_Optimal(t *testing.T) {
	// CBC prints nonzero columns only; absent columns are zero.
	path := writeSol(t, `Optimal - objective value 300.00000000
      0 x_0                      1                       0
      2 y_1                      1                     200
`)

	res, err := parseSolutionFile(path, smallModel())
	require.NoError(t, err)
	assert.Equal(t, milp.StatusOptimal, res.Status)
	assert.InDelta(t, 300.0, res.Objective, 1e-9)
	assert.Equal(t, []float64{1, 0, 1}, res.Values)
}

func TestParseSolutionFile_TimeLimit(t *testing.T) {
	path := writeSol(t, `Stopped on time limit - objective value 200.00000000
      0 x_0                      1                       0
`)

	res, err := parseSolutionFile(path, smallModel())
	require.NoError(t, err)
	assert.Equal(t, milp.StatusFeasible, res.Status)
	assert.True(t, res.TimedOut)
	assert.InDelta(t, 200.0, res.Objective, 1e-9)
}

func TestParseSolutionFile_Infeasible(t *testing.T) {
	path := writeSol(t, "Infeasible - objective value 0.00000000\n")

	res, err := parseSolutionFile(path, smallModel())
	require.NoError(t, err)
	assert.Equal(t, milp.StatusInfeasible, res.Status)
	assert.Nil(t, res.Values)
}

func TestParseSolutionFile_Empty(t *testing.T) {
	path := writeSol(t, "")
	_, err := parseSolutionFile(path, smallModel())
	assert.Error(t, err)
}

func TestParseSolutionFile_Missing(t *testing.T) {
	_, err := parseSolutionFile(filepath.Join(t.TempDir(), "nope.sol"), smallModel())
	assert.Error(t, err)
}

func TestBuildArgs(t *testing.T) {
	args := buildArgs("/w/model.lp", "/w/model.sol", milp.Options{
		TimeLimit:    2 * time.Minute,
		GapTolerance: 0.005,
		Threads:      8,
	})

	assert.Equal(t, []string{
		"/w/model.lp",
		"-seconds", "120",
		"-ratioGap", "0.005",
		"-threads", "8",
		"-solve", "-solution", "/w/model.sol",
	}, args)
}

func TestBuildArgs_Defaults(t *testing.T) {
	args := buildArgs("/w/model.lp", "/w/model.sol", milp.Options{})
	assert.Equal(t, []string{"/w/model.lp", "-solve", "-solution", "/w/model.sol"}, args)
}

func TestNew_DefaultBinary(t *testing.T) {
	assert.Equal(t, DefaultBinary, New("").Path)
}
