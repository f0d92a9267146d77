// # internal/registry/registry_test.go
package registry

import (
	"testing"

	"aura/internal/budget"
	"aura/internal/core/config"
	"aura/internal/core/errors"
	"aura/internal/pipeline"
)

func TestDefaultRegistryContents(t *testing.T) {
	r := NewDefault()

	langs := r.Languages()
	if len(langs) != 2 || langs[0] != "go" || langs[1] != "python" {
		t.Errorf("languages = %v, want [go python]", langs)
	}

	if got := r.Extractors([]string{"python", "rust"}); len(got) != 1 {
		t.Errorf("extractors for [python rust] = %d, want 1", len(got))
	}

	for _, name := range pipeline.FormatNames() {
		if _, err := r.Formatter(name); err != nil {
			t.Errorf("formatter %s: %v", name, err)
		}
	}
	if _, err := r.Formatter(""); err != nil {
		t.Errorf("empty format should default to plain: %v", err)
	}
	if _, err := r.Formatter("yaml"); !errors.IsCode(err, errors.CodeNotSupported) {
		t.Errorf("unknown formatter err = %v, want NOT_SUPPORTED", err)
	}
}

func TestStrategyLookup(t *testing.T) {
	r := NewDefault()
	cfg := config.Default().Budget

	for _, name := range []string{budget.StrategyGreedy, budget.StrategyKnapsack, ""} {
		if _, err := r.Strategy(name, cfg); err != nil {
			t.Errorf("strategy %q: %v", name, err)
		}
	}
	if _, err := r.Strategy("optimal", cfg); !errors.IsCode(err, errors.CodeNotSupported) {
		t.Errorf("unknown strategy err = %v, want NOT_SUPPORTED", err)
	}
}
