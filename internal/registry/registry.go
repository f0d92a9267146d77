// # internal/registry/registry.go

// Package registry wires the pluggable pieces together: language extractors,
// output formatters and allocation strategies are looked up from an explicit
// registry object instead of package-level side effects, so tests and
// embedders can assemble their own.
package registry

import (
	"sort"
	"sync"

	"aura/internal/analyzer"
	"aura/internal/budget"
	"aura/internal/core/config"
	"aura/internal/core/errors"
	"aura/internal/pipeline"
)

type Registry struct {
	mu         sync.RWMutex
	extractors map[string]analyzer.Extractor
	formatters map[string]pipeline.Formatter
	strategies map[string]bool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		extractors: make(map[string]analyzer.Extractor),
		formatters: make(map[string]pipeline.Formatter),
		strategies: make(map[string]bool),
	}
}

// NewDefault returns a registry with everything the binary ships: the
// Python and Go extractors, all output formats and all allocation
// strategies.
func NewDefault() *Registry {
	r := New()
	r.RegisterExtractor(analyzer.NewPythonExtractor())
	r.RegisterExtractor(analyzer.NewGoExtractor())
	for _, name := range pipeline.FormatNames() {
		f, err := pipeline.NewFormatter(name)
		if err != nil {
			continue
		}
		r.RegisterFormatter(f)
	}
	for _, name := range []string{
		budget.StrategyGreedy,
		budget.StrategyProportional,
		budget.StrategyKnapsack,
		budget.StrategyAdaptive,
	} {
		r.RegisterStrategy(name)
	}
	return r
}

func (r *Registry) RegisterExtractor(e analyzer.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[e.Language()] = e
}

// Extractors returns the extractors for the requested languages, skipping
// unknown names.
func (r *Registry) Extractors(languages []string) []analyzer.Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []analyzer.Extractor
	for _, lang := range languages {
		if e, ok := r.extractors[lang]; ok {
			out = append(out, e)
		}
	}
	return out
}

func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.extractors))
	for lang := range r.extractors {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) RegisterFormatter(f pipeline.Formatter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formatters[f.Name()] = f
}

func (r *Registry) Formatter(name string) (pipeline.Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = pipeline.FormatPlain
	}
	f, ok := r.formatters[name]
	if !ok {
		return nil, errors.Newf(errors.CodeNotSupported, "unknown output format %q", name)
	}
	return f, nil
}

func (r *Registry) RegisterStrategy(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[name] = true
}

// Strategy builds the named allocator, defaulting to adaptive.
func (r *Registry) Strategy(name string, cfg config.Budget) (budget.Allocator, error) {
	r.mu.RLock()
	registered := name == "" || r.strategies[name]
	r.mu.RUnlock()
	if !registered {
		return nil, errors.Newf(errors.CodeNotSupported, "unknown allocation strategy %q", name)
	}
	return budget.New(name, cfg)
}
