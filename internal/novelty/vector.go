package novelty

import "math"

// Frequency counts occurrences of each distinct token
func Frequency(tokens []string) map[string]int {
	tf := make(map[string]int, len(tokens))
	for _, token := range tokens {
		tf[token]++
	}
	return tf
}

// Cosine returns the cosine similarity of the term-frequency vectors of a and b.
// Terms missing from one side contribute zero; an empty side yields 0.
func Cosine(a, b []string) float64 {
	tfA := Frequency(a)
	tfB := Frequency(b)

	var dotProduct, normA, normB float64
	for term, countA := range tfA {
		normA += float64(countA * countA)
		if countB, ok := tfB[term]; ok {
			dotProduct += float64(countA * countB)
		}
	}
	for _, countB := range tfB {
		normB += float64(countB * countB)
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		denom = 1
	}
	return dotProduct / denom
}
