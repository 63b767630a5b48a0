// Package keywords prepares the crawl's keyword list.
package keywords

import (
	"math/rand"
	"strings"
)

// Normalize trims and collapses inner whitespace, dropping entries that end
// up empty. Duplicates after normalization are removed, first occurrence
// wins.
func Normalize(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, kw := range in {
		kw = strings.Join(strings.Fields(kw), " ")
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// Shuffle returns a randomly ordered copy so runs do not hammer the same
// keyword order every day.
func Shuffle(in []string, rng *rand.Rand) []string {
	out := append([]string(nil), in...)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
