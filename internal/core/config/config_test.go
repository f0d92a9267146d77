package config

import (
	"os"
	"path/filepath"
	"testing"

	"aura/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 100, cfg.Budget.MaxKnapsackNodes)
	assert.Equal(t, 50000, cfg.Budget.MaxKnapsackBudget)
	assert.Equal(t, 0.1, cfg.Budget.MinScoreVariance)
	assert.Equal(t, 1200, cfg.Budget.MaxNodeTokens)
	assert.Greater(t, cfg.Expansion.EdgeWeights["EXTENDS"], cfg.Expansion.EdgeWeights["IMPORTS"],
		"inheritance should be weighted higher than imports by default")
	require.NoError(t, Validate(cfg), "default config should validate")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aura.toml")
	content := `
version = 1

[repository]
root = "/srv/repo"
name = "demo"

[budget]
max_tokens = 4000
reserve_tokens = 500

[expansion]
weight_threshold = 0.3

[expansion.edge_weights]
IMPORTS = 0.4
EXTENDS = 0.95
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/repo", cfg.Repository.Root)
	assert.Equal(t, 4000, cfg.Budget.MaxTokens)
	assert.Equal(t, 500, cfg.Budget.ReserveTokens)
	assert.Equal(t, 0.95, cfg.Expansion.EdgeWeights["EXTENDS"])

	// Defaults still fill unset sections.
	assert.NotEmpty(t, cfg.Embedding.Model)
	assert.NotEmpty(t, cfg.Store.Path)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"reserve above max", func(c *Config) { c.Budget.ReserveTokens = c.Budget.MaxTokens }},
		{"zero edge weight", func(c *Config) { c.Expansion.EdgeWeights["IMPORTS"] = 0 }},
		{"threshold too high", func(c *Config) { c.Expansion.WeightThreshold = 1.5 }},
		{"bad log level", func(c *Config) { c.Observability.LogLevel = "loud" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeValidationError), "expected VALIDATION_ERROR, got %v", err)
		})
	}
}
