// # internal/embed/embed_test.go
package embed

import (
	"context"
	"testing"
	"time"

	"aura/internal/core/errors"

	"github.com/weaviate/weaviate/entities/models"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), "test", 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New(errors.CodeUnavailable, "transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), "test", 2, time.Millisecond, func() error {
		calls++
		return errors.New(errors.CodeUnavailable, "down")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := withRetry(ctx, "test", 5, time.Second, func() error {
		calls++
		return errors.New(errors.CodeUnavailable, "down")
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 before cancel surfaced", calls)
	}
}

func TestParseMatchesOrdersByScore(t *testing.T) {
	data := map[string]models.JSONObject{
		"Get": map[string]interface{}{
			"CodeChunk": []interface{}{
				map[string]interface{}{
					"nodeId":      "a.py::low",
					"_additional": map[string]interface{}{"certainty": 0.61},
				},
				map[string]interface{}{
					"nodeId":      "a.py::high",
					"_additional": map[string]interface{}{"certainty": 0.93},
				},
				map[string]interface{}{
					// Missing node id: dropped.
					"_additional": map[string]interface{}{"certainty": 0.99},
				},
			},
		},
	}

	matches := parseMatches(data, "CodeChunk")
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}
	if matches[0].NodeID != "a.py::high" {
		t.Errorf("best match = %s, want a.py::high", matches[0].NodeID)
	}
	if matches[0].Score != 0.93 {
		t.Errorf("best score = %f, want 0.93", matches[0].Score)
	}
}

func TestParseMatchesToleratesMalformedResponse(t *testing.T) {
	cases := []map[string]models.JSONObject{
		nil,
		{"Get": "not a map"},
		{"Get": map[string]interface{}{"Other": []interface{}{}}},
	}
	for _, data := range cases {
		if got := parseMatches(data, "CodeChunk"); len(got) != 0 {
			t.Errorf("expected no matches, got %d", len(got))
		}
	}
}

func TestObjectIDIsStable(t *testing.T) {
	a := objectID("pkg/core.py::Engine")
	b := objectID("pkg/core.py::Engine")
	if a != b {
		t.Errorf("same node produced different ids: %s vs %s", a, b)
	}
	if a == objectID("pkg/core.py::Other") {
		t.Error("different nodes collided")
	}
}
