// # cmd/aura/main.go
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"aura/internal/core/config"
)

const VERSION = "1.0.0"

const usage = `aura - dependency-aware context slicing for code repositories

Usage:
  aura [flags] <command> [args]

Commands:
  analyze                    Build the full dependency graph and store it
  slice <entry> [entry...]   Build a token-bounded context slice
  update                     Apply git changes since the stored revision
  watch                      Watch the repository and update incrementally
  snapshot save <label>      Snapshot the current graph under a label
  snapshot list              List stored snapshots
  snapshot diff <label>      Diff the current graph against a snapshot
  serve                      Run the metrics and health endpoint only

Flags:
`

var (
	configPath = flag.String("config", "./aura.toml", "Path to config file")
	repoRoot   = flag.String("root", "", "Repository root (overrides config)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")

	// slice flags
	query     = flag.String("query", "", "Semantic query for ranking")
	strategy  = flag.String("strategy", "", "Allocation strategy: greedy, proportional, knapsack, adaptive")
	format    = flag.String("format", "", "Output format: plain, markdown, xml, json")
	maxTokens = flag.Int("max-tokens", 0, "Token budget override")

	// analyze / update flags
	index = flag.Bool("index", false, "Index node embeddings after analysis")
	since = flag.String("since", "", "Base revision for update (defaults to the stored one)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *version {
		fmt.Printf("aura v%s\n", VERSION)
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	setupLogging(cfg)

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("initialization failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath != "./aura.toml" {
			return nil, err
		}
		// No config file is fine for the default path; run on defaults.
		cfg = config.Default()
	}
	if *repoRoot != "" {
		cfg.Repository.Root = *repoRoot
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Observability.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
