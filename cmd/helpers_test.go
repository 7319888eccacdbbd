package main

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/coverage-planner/internal/config"
	"github.com/sells-group/coverage-planner/internal/model"
)

func TestSolverBackend(t *testing.T) {
	b, err := solverBackend(config.SolverConfig{Backend: "highs"})
	require.NoError(t, err)
	assert.Equal(t, "highs", b.Name())

	b, err = solverBackend(config.SolverConfig{Backend: "cbc", Binary: "/opt/cbc/bin/cbc"})
	require.NoError(t, err)
	assert.Equal(t, "cbc", b.Name())

	b, err = solverBackend(config.SolverConfig{Backend: "enum"})
	require.NoError(t, err)
	assert.Equal(t, "enumerate", b.Name())

	_, err = solverBackend(config.SolverConfig{Backend: "gurobi"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrConfiguration))
}

func TestSolverOptions(t *testing.T) {
	opts := solverOptions(config.SolverConfig{
		TimeLimitSecs: 120,
		GapTolerance:  0.01,
		Threads:       4,
		KeepFiles:     true,
		WorkDir:       "/tmp/covplan",
	})

	assert.Equal(t, 120*time.Second, opts.TimeLimit)
	assert.Equal(t, 0.01, opts.GapTolerance)
	assert.Equal(t, 4, opts.Threads)
	assert.True(t, opts.KeepFiles)
	assert.Equal(t, "/tmp/covplan", opts.WorkDir)
}
