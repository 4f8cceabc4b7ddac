package novelty

import "strings"

// DefaultNGramSize is the phrase length used for Jaccard comparison
const DefaultNGramSize = 3

// NGrams builds the set of n consecutive tokens joined by a single space.
// Sequences shorter than n produce an empty set.
func NGrams(tokens []string, n int) map[string]struct{} {
	if n <= 0 {
		n = DefaultNGramSize
	}
	if len(tokens) < n {
		return map[string]struct{}{}
	}

	set := make(map[string]struct{}, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		set[strings.Join(tokens[i:i+n], " ")] = struct{}{}
	}
	return set
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when both sets are empty
func Jaccard(a, b map[string]struct{}) float64 {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}

	intersection := 0
	for gram := range small {
		if _, ok := large[gram]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		union = 1
	}
	return float64(intersection) / float64(union)
}
