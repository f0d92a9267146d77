package config

import (
	"os"
	"strings"
	"time"

	"aura/internal/core/errors"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNotFound, "read config file")
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "decode config")
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func ApplyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if cfg.Repository.Root == "" {
		cfg.Repository.Root = "."
	}
	if len(cfg.Analyzer.Languages) == 0 {
		cfg.Analyzer.Languages = []string{"python", "go"}
	}
	if len(cfg.Analyzer.ExcludeDirs) == 0 {
		cfg.Analyzer.ExcludeDirs = []string{".git", "node_modules", "__pycache__", "venv", ".venv", "vendor"}
	}
	if cfg.Analyzer.Workers <= 0 {
		cfg.Analyzer.Workers = 8
	}
	if cfg.Analyzer.MaxFileBytes <= 0 {
		cfg.Analyzer.MaxFileBytes = 2 << 20
	}
	if len(cfg.Expansion.EdgeWeights) == 0 {
		cfg.Expansion.EdgeWeights = map[string]float64{
			"EXTENDS":  0.9,
			"CONTAINS": 0.8,
			"CALLS":    0.7,
			"IMPORTS":  0.5,
		}
	}
	if cfg.Expansion.WeightThreshold <= 0 {
		cfg.Expansion.WeightThreshold = 0.2
	}
	if cfg.Budget.MaxTokens <= 0 {
		cfg.Budget.MaxTokens = 8000
	}
	if cfg.Budget.NodeCeiling <= 0 {
		cfg.Budget.NodeCeiling = 2000
	}
	if cfg.Budget.MaxNodeTokens <= 0 {
		cfg.Budget.MaxNodeTokens = 1200
	}
	if cfg.Budget.MaxKnapsackNodes <= 0 {
		cfg.Budget.MaxKnapsackNodes = 100
	}
	if cfg.Budget.MaxKnapsackBudget <= 0 {
		cfg.Budget.MaxKnapsackBudget = 50000
	}
	if cfg.Budget.MinScoreVariance <= 0 {
		cfg.Budget.MinScoreVariance = 0.1
	}
	if cfg.Budget.KnapsackScaleTarget <= 0 {
		cfg.Budget.KnapsackScaleTarget = 10000
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.RequestsPerMin <= 0 {
		cfg.Embedding.RequestsPerMin = 300
	}
	if cfg.Embedding.MaxInFlight <= 0 {
		cfg.Embedding.MaxInFlight = 4
	}
	if cfg.Embedding.RetryAttempts <= 0 {
		cfg.Embedding.RetryAttempts = 3
	}
	if cfg.Embedding.RetryBackoff <= 0 {
		cfg.Embedding.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.Embedding.Collection == "" {
		cfg.Embedding.Collection = "CodeChunk"
	}
	if cfg.Embedding.SearchLimit <= 0 {
		cfg.Embedding.SearchLimit = 20
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = ".aura/graph.db"
	}
	if cfg.Store.BusyTimeout <= 0 {
		cfg.Store.BusyTimeout = 2 * time.Second
	}
	if cfg.Store.LockTTL <= 0 {
		cfg.Store.LockTTL = 5 * time.Minute
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Observability.Addr == "" {
		cfg.Observability.Addr = "127.0.0.1:9614"
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
}

func Validate(cfg *Config) error {
	if cfg.Version != 1 {
		return errors.Newf(errors.CodeValidationError, "unsupported config version: %d", cfg.Version)
	}
	if cfg.Budget.ReserveTokens < 0 {
		return errors.New(errors.CodeValidationError, "reserve_tokens must not be negative")
	}
	if cfg.Budget.ReserveTokens >= cfg.Budget.MaxTokens {
		return errors.New(errors.CodeValidationError, "reserve_tokens must be below max_tokens")
	}
	for edgeType, weight := range cfg.Expansion.EdgeWeights {
		if weight <= 0 || weight > 1 {
			return errors.Newf(errors.CodeValidationError, "edge weight for %s must be in (0, 1]", edgeType)
		}
	}
	if cfg.Expansion.WeightThreshold >= 1 {
		return errors.New(errors.CodeValidationError, "weight_threshold must be below 1")
	}
	switch strings.ToLower(cfg.Observability.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Newf(errors.CodeValidationError, "unknown log_level: %s", cfg.Observability.LogLevel)
	}
	return nil
}
