// # internal/graph/hash.go
package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
)

// ContentHash returns a stable hash over every node property except the id.
// Two nodes with equal content hash are considered unchanged by the differ.
func ContentHash(n *Node) string {
	h := sha256.New()

	writeField := func(label, value string) {
		h.Write([]byte(label))
		h.Write([]byte{0})
		h.Write([]byte(value))
		h.Write([]byte{0})
	}

	writeField("type", n.Type)
	writeField("name", n.Name)
	writeField("path", n.Path)
	if n.Lines != nil {
		writeField("lines", strconv.Itoa(n.Lines[0])+":"+strconv.Itoa(n.Lines[1]))
	}
	writeField("docstring", n.Docstring)
	writeField("content", n.Content)
	if n.Authors != nil {
		writeField("primary", n.Authors.Primary)
		contributors := append([]string(nil), n.Authors.Contributors...)
		sort.Strings(contributors)
		for _, c := range contributors {
			writeField("contributor", c)
		}
		keys := make([]string, 0, len(n.Authors.LineCounts))
		for k := range n.Authors.LineCounts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			writeField("lines:"+k, strconv.Itoa(n.Authors.LineCounts[k]))
		}
	}
	if len(n.Extra) > 0 {
		keys := make([]string, 0, len(n.Extra))
		for k := range n.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			raw, _ := json.Marshal(n.Extra[k])
			writeField(k, string(raw))
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}
