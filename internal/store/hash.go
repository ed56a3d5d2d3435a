package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// ContentHash returns the hex SHA-256 of a file's contents.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// ComputeConfigHash computes a deterministic hash of everything that shapes
// analysis output besides the source itself: the front-end name and the
// taxonomy's kind sets and block keywords. Order within a set does not
// affect the hash.
func ComputeConfigHash(frontend string, lexical, block, dynamic, keywords []string) string {
	h := sha256.New()
	fmt.Fprintf(h, "frontend:%s\n", frontend)
	for _, set := range []struct {
		label string
		items []string
	}{
		{"lexical", lexical},
		{"block", block},
		{"dynamic", dynamic},
		{"keywords", keywords},
	} {
		sorted := make([]string, len(set.items))
		copy(sorted, set.items)
		sort.Strings(sorted)
		fmt.Fprintf(h, "%s:%s\n", set.label, strings.Join(sorted, ","))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
