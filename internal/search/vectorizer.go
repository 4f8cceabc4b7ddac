package search

import (
	"math"

	"github.com/dailypost/backend/internal/novelty"
)

// Vectorizer turns text into a vector
type Vectorizer interface {
	Fit(docs []string)
	Transform(text string) []float64
}

// TFIDFVectorizer implements Term Frequency - Inverse Document Frequency
// over the novelty tokenizer, so markdown markers and stop words are ignored.
type TFIDFVectorizer struct {
	Vocabulary map[string]int
	IDF        map[string]float64
}

func NewTFIDFVectorizer() *TFIDFVectorizer {
	return &TFIDFVectorizer{
		Vocabulary: make(map[string]int),
		IDF:        make(map[string]float64),
	}
}

// Fit rebuilds vocabulary and IDF stats from the corpus
func (v *TFIDFVectorizer) Fit(docs []string) {
	v.Vocabulary = make(map[string]int)
	v.IDF = make(map[string]float64)

	docCount := float64(len(docs))
	wordDocCounts := make(map[string]int)

	for _, doc := range docs {
		seenInDoc := make(map[string]bool)
		for _, token := range novelty.Tokenize(novelty.StripMarkup(doc)) {
			if !seenInDoc[token] {
				wordDocCounts[token]++
				seenInDoc[token] = true
			}
			if _, exists := v.Vocabulary[token]; !exists {
				v.Vocabulary[token] = len(v.Vocabulary)
			}
		}
	}

	for word, count := range wordDocCounts {
		// smoothed so terms present in every document keep a positive weight
		v.IDF[word] = math.Log((docCount+1)/(float64(count)+1)) + 1
	}
}

// Transform converts text to a vector based on the learned vocabulary
func (v *TFIDFVectorizer) Transform(text string) []float64 {
	vector := make([]float64, len(v.Vocabulary))
	tokens := novelty.Tokenize(novelty.StripMarkup(text))
	if len(tokens) == 0 {
		return vector
	}

	for token, count := range novelty.Frequency(tokens) {
		if idx, exists := v.Vocabulary[token]; exists {
			vector[idx] = (float64(count) / float64(len(tokens))) * v.IDF[token]
		}
	}

	return vector
}
