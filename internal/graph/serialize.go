// # internal/graph/serialize.go
package graph

import (
	"encoding/json"
	"strings"

	"aura/internal/core/errors"
)

// Serialization notes:
//   - Node, Edge and Graph have a canonical JSON form.
//   - Unknown top-level keys prefixed "x-" are vendor/extension data and
//     round-trip through Extra.
//   - Edge.Type is an open value set; no validation on it here.

const vendorPrefix = "x-"

type nodeAlias Node

func (n *Node) MarshalJSON() ([]byte, error) {
	return marshalWithExtra((*nodeAlias)(n), n.Extra)
}

func (n *Node) UnmarshalJSON(data []byte) error {
	extra, err := unmarshalWithExtra(data, (*nodeAlias)(n))
	if err != nil {
		return err
	}
	n.Extra = extra
	if n.ID == "" {
		return errors.New(errors.CodeValidationError, "node is missing id")
	}
	return nil
}

type edgeAlias Edge

func (e *Edge) MarshalJSON() ([]byte, error) {
	return marshalWithExtra((*edgeAlias)(e), e.Extra)
}

func (e *Edge) UnmarshalJSON(data []byte) error {
	extra, err := unmarshalWithExtra(data, (*edgeAlias)(e))
	if err != nil {
		return err
	}
	e.Extra = extra
	if e.Source == "" || e.Target == "" {
		return errors.New(errors.CodeValidationError, "edge is missing source or target")
	}
	return nil
}

// DecodeGraph parses the canonical JSON form and rebuilds internal indexes.
func DecodeGraph(data []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "decode graph")
	}
	g.rebuildIndexes()
	return &g, nil
}

// EncodeGraph renders the canonical JSON form.
func EncodeGraph(g *Graph) ([]byte, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "encode graph")
	}
	return data, nil
}

func marshalWithExtra(v any, extra map[string]any) ([]byte, error) {
	base, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return base, nil
	}
	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, val := range extra {
		if strings.HasPrefix(k, vendorPrefix) {
			merged[k] = val
		}
	}
	return json.Marshal(merged)
}

func unmarshalWithExtra(data []byte, v any) (map[string]any, error) {
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	var extra map[string]any
	for k, val := range raw {
		if !strings.HasPrefix(k, vendorPrefix) {
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		var decoded any
		if err := json.Unmarshal(val, &decoded); err != nil {
			return nil, err
		}
		extra[k] = decoded
	}
	return extra, nil
}
