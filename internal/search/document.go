package search

import "github.com/dailypost/backend/internal/feed"

// Document represents a searchable post
type Document struct {
	ID      string
	Title   string
	Content string
	Vector  []float64
}

// DocumentsFromPosts converts feed posts into unindexed documents
func DocumentsFromPosts(posts feed.Posts) []*Document {
	docs := make([]*Document, 0, len(posts))
	for _, p := range posts {
		docs = append(docs, &Document{
			ID:      p.ID,
			Title:   p.Title,
			Content: p.Text(),
		})
	}
	return docs
}
