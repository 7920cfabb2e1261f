// Package conversation holds the single implementation of the conversation
// identity function. Every component that needs a conversation key — the
// message repository, the hub's room naming, the read-side queries — must
// call ID rather than re-derive the key inline.
package conversation

import (
	"sort"
	"strings"
)

const prefix = "conv_"

// ID derives the stable conversation key for a pair of participant
// identities. It is deterministic and symmetric: ID(a, b) == ID(b, a).
func ID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return prefix + strings.Join(ids, "_")
}
