package search

import (
	"math"
	"sort"
	"sync"

	"github.com/dailypost/backend/internal/feed"
)

// SearchResult holds a matching document and its score
type SearchResult struct {
	Document *Document
	Score    float64
}

// VectorStore holds the indexed posts. Index replaces the whole corpus so
// every vector shares the current vocabulary.
type VectorStore struct {
	mu         sync.RWMutex
	documents  []*Document
	vectorizer Vectorizer
}

func NewVectorStore() *VectorStore {
	return &VectorStore{
		documents:  make([]*Document, 0),
		vectorizer: NewTFIDFVectorizer(),
	}
}

// Index trains the vectorizer on docs and replaces the indexed documents
func (vs *VectorStore) Index(docs []*Document) {
	rawTexts := make([]string, len(docs))
	for i, d := range docs {
		rawTexts[i] = d.Content
	}

	vs.mu.Lock()
	defer vs.mu.Unlock()

	vs.vectorizer.Fit(rawTexts)
	for _, d := range docs {
		d.Vector = vs.vectorizer.Transform(d.Content)
	}
	vs.documents = docs
}

// IndexPosts replaces the index with the given feed posts
func (vs *VectorStore) IndexPosts(posts feed.Posts) {
	vs.Index(DocumentsFromPosts(posts))
}

// Len returns the number of indexed documents
func (vs *VectorStore) Len() int {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return len(vs.documents)
}

// Search finds the most similar documents to the query
func (vs *VectorStore) Search(query string, topK int) []SearchResult {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	queryVector := vs.vectorizer.Transform(query)
	var results []SearchResult

	for _, doc := range vs.documents {
		score := CosineSimilarity(queryVector, doc.Vector)
		if score > 0 {
			results = append(results, SearchResult{
				Document: doc,
				Score:    score,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && len(results) > topK {
		return results[:topK]
	}
	return results
}

// CosineSimilarity calculates the cosine similarity between two dense vectors
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
