package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10.0, cfg.Coverage.ThresholdKm)
	assert.Equal(t, 5, cfg.Coverage.Budget)
	assert.Equal(t, "highs", cfg.Solver.Backend)
	assert.Equal(t, 300, cfg.Solver.TimeLimitSecs)
	assert.Equal(t, 0.0, cfg.Solver.GapTolerance)
	assert.False(t, cfg.Solver.TieBreak)
	assert.Equal(t, int64(42), cfg.Generate.Seed)
	assert.Equal(t, 20000, cfg.Generate.Households)
	assert.Equal(t, 15, cfg.Generate.Existing)
	assert.Equal(t, 100, cfg.Generate.Candidates)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "covplan.db", cfg.Store.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
coverage:
  threshold_km: 7.5
  budget: 3
solver:
  backend: cbc
  time_limit_secs: 60
store:
  driver: postgres
  database_url: postgres://localhost/covplan
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7.5, cfg.Coverage.ThresholdKm)
	assert.Equal(t, 3, cfg.Coverage.Budget)
	assert.Equal(t, "cbc", cfg.Solver.Backend)
	assert.Equal(t, 60, cfg.Solver.TimeLimitSecs)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
solver:
  backend: cbc
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("COVPLAN_SOLVER_BACKEND", "highs")
	t.Setenv("COVPLAN_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "highs", cfg.Solver.Backend)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("COVPLAN_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Coverage.ThresholdKm = 10
	cfg.Coverage.Budget = 5
	cfg.Solver.Backend = "highs"
	cfg.Solver.TimeLimitSecs = 300
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = "covplan.db"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateSolve_Valid(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("solve"))
}

func TestValidateSolve_BadBackend(t *testing.T) {
	cfg := validDefaults()
	cfg.Solver.Backend = "gurobi"

	err := cfg.Validate("solve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "solver.backend")
}

func TestValidateSolve_BadThreshold(t *testing.T) {
	cfg := validDefaults()
	cfg.Coverage.ThresholdKm = 0

	err := cfg.Validate("solve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "coverage.threshold_km must be > 0")
}

func TestValidateSolve_GapBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Solver.GapTolerance = -0.1
	err := cfg.Validate("solve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "gap_tolerance")

	cfg.Solver.GapTolerance = 1.0
	err = cfg.Validate("solve")
	assert.Error(t, err)

	cfg.Solver.GapTolerance = 0.05
	assert.NoError(t, cfg.Validate("solve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateStore_PostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("plans")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/covplan"
	assert.NoError(t, cfg.Validate("plans"))
}

func TestValidateStore_SqliteNeedsPath(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Path = ""

	err := cfg.Validate("plans")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.path is required")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
