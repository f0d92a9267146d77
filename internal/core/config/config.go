package config

import (
	"time"
)

type Config struct {
	Version       int           `toml:"version"`
	Repository    Repository    `toml:"repository"`
	Analyzer      Analyzer      `toml:"analyzer"`
	Expansion     Expansion     `toml:"expansion"`
	Budget        Budget        `toml:"budget"`
	Embedding     Embedding     `toml:"embedding"`
	Store         Store         `toml:"store"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Repository struct {
	Root  string `toml:"root"`
	Name  string `toml:"name"`
	Owner string `toml:"owner"`
}

type Analyzer struct {
	Languages    []string `toml:"languages"`
	ExcludeDirs  []string `toml:"exclude_dirs"`
	ExcludeFiles []string `toml:"exclude_files"`
	Workers      int      `toml:"workers"`
	MaxFileBytes int64    `toml:"max_file_bytes"`
	Authorship   bool     `toml:"authorship"`
}

type Expansion struct {
	// EdgeWeights maps edge type to a traversal multiplier. Empty map
	// disables expansion and the pipeline falls back to entry points only.
	EdgeWeights     map[string]float64 `toml:"edge_weights"`
	WeightThreshold float64            `toml:"weight_threshold"`
}

type Budget struct {
	MaxTokens     int `toml:"max_tokens"`
	ReserveTokens int `toml:"reserve_tokens"`
	NodeCeiling   int `toml:"node_ceiling"`
	// MaxNodeTokens caps a single node's share of the slice; larger nodes
	// are pushed through the summarization ladder.
	MaxNodeTokens int `toml:"max_node_tokens"`

	// Adaptive strategy thresholds. These started life as magic numbers;
	// they are configuration so deployments can tune them.
	MaxKnapsackNodes    int     `toml:"max_knapsack_nodes"`
	MaxKnapsackBudget   int     `toml:"max_knapsack_budget"`
	MinScoreVariance    float64 `toml:"min_score_variance"`
	KnapsackScaleTarget int     `toml:"knapsack_scale_target"`
}

type Embedding struct {
	BaseURL        string        `toml:"base_url"`
	APIKeyEnv      string        `toml:"api_key_env"`
	Model          string        `toml:"model"`
	RequestsPerMin int           `toml:"requests_per_minute"`
	MaxInFlight    int           `toml:"max_in_flight"`
	RetryAttempts  int           `toml:"retry_attempts"`
	RetryBackoff   time.Duration `toml:"retry_backoff"`
	SearchURL      string        `toml:"search_url"`
	Collection     string        `toml:"collection"`
	ScoreThreshold float64       `toml:"score_threshold"`
	SearchLimit    int           `toml:"search_limit"`
}

type Store struct {
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
	LockTTL     time.Duration `toml:"lock_ttl"`
}

type Watch struct {
	Enabled  bool          `toml:"enabled"`
	Debounce time.Duration `toml:"debounce"`
}

type Observability struct {
	Addr     string `toml:"addr"`
	LogLevel string `toml:"log_level"`
}
