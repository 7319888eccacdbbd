package generator

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/coverage-planner/internal/model"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Households = 50
	cfg.Existing = 2
	cfg.Candidates = 8
	cfg.Budget = 3
	return cfg
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := Generate(smallConfig())
	require.NoError(t, err)
	b, err := Generate(smallConfig())
	require.NoError(t, err)

	assert.Equal(t, a.Threshold, b.Threshold)
	assert.Equal(t, a.Households, b.Households)
	assert.Equal(t, a.Sites, b.Sites)
	for i := range a.Households {
		for j := range a.Sites {
			assert.Equal(t, a.Distances.At(i, j), b.Distances.At(i, j))
		}
	}
}

func TestGenerate_SeedChangesInstance(t *testing.T) {
	cfg := smallConfig()
	a, err := Generate(cfg)
	require.NoError(t, err)

	cfg.Seed = 7
	b, err := Generate(cfg)
	require.NoError(t, err)

	assert.NotEqual(t, a.Households, b.Households)
}

func TestGenerate_Bounds(t *testing.T) {
	cfg := smallConfig()
	inst, err := Generate(cfg)
	require.NoError(t, err)

	assert.Len(t, inst.Households, cfg.Households)
	assert.Len(t, inst.Sites, cfg.Existing+cfg.Candidates)
	assert.Equal(t, cfg.Existing, len(inst.Sites)-inst.Candidates())
	assert.GreaterOrEqual(t, inst.Threshold, 8.0)
	assert.Less(t, inst.Threshold, 15.01)

	for _, h := range inst.Households {
		assert.GreaterOrEqual(t, h.Population, int64(cfg.MinPopulation))
		assert.Less(t, h.Population, int64(cfg.MaxPopulation))
	}
	for i := range inst.Households {
		for j := range inst.Sites {
			assert.GreaterOrEqual(t, inst.Distances.At(i, j), 0.0)
		}
	}
}

func TestGenerate_FixedThreshold(t *testing.T) {
	cfg := smallConfig()
	cfg.Threshold = 12.5
	inst, err := Generate(cfg)
	require.NoError(t, err)
	assert.Equal(t, 12.5, inst.Threshold)
}

func TestGenerate_ConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no households", func(c *Config) { c.Households = 0 }},
		{"no candidates", func(c *Config) { c.Candidates = 0 }},
		{"negative budget", func(c *Config) { c.Budget = -1 }},
		{"budget over candidates", func(c *Config) { c.Budget = c.Candidates + 1 }},
		{"bad population range", func(c *Config) { c.MaxPopulation = c.MinPopulation }},
		{"zero region", func(c *Config) { c.Region = 0 }},
		{"negative threshold", func(c *Config) { c.Threshold = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := smallConfig()
			tt.mutate(&cfg)
			_, err := Generate(cfg)
			require.Error(t, err)
			assert.True(t, eris.Is(err, model.ErrConfiguration))
		})
	}
}
