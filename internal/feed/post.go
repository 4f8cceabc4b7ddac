// Package feed defines the post model shared by the generator, storage and API.
package feed

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Post is one entry of the JSON feed consumed by the site
type Post struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
	Content  string    `json:"content"`
	HTML     string    `json:"html,omitempty"`
	Angle    string    `json:"angle,omitempty"`
	Attempts int       `json:"attempts,omitempty"`
	// Novel is false when the post was accepted only because attempts ran out
	Novel bool `json:"novel"`
}

// NewPost assigns an ID and renders the markdown body
func NewPost(title, content string, date time.Time) (*Post, error) {
	html, err := RenderHTML(content)
	if err != nil {
		return nil, fmt.Errorf("failed to render post body: %w", err)
	}
	return &Post{
		ID:      uuid.New().String(),
		Title:   strings.TrimSpace(title),
		Date:    date.UTC(),
		Content: content,
		HTML:    html,
		Novel:   true,
	}, nil
}

// Text is the title and body the novelty guard compares
func (p *Post) Text() string {
	return p.Title + "\n\n" + p.Content
}

func (p *Post) String() string {
	return fmt.Sprintf("%s %s %q: %s", p.Date.Format("2006-01-02"), p.ID, p.Title, Truncate(p.Content, 80))
}

// Posts orders newest first
type Posts []*Post

func (ps Posts) Len() int           { return len(ps) }
func (ps Posts) Swap(i, j int)      { ps[i], ps[j] = ps[j], ps[i] }
func (ps Posts) Less(i, j int) bool { return ps[i].Date.After(ps[j].Date) }

// Sorted returns a newest-first copy; posts with equal dates keep feed order reversed
func (ps Posts) Sorted() Posts {
	out := make(Posts, len(ps))
	for i, p := range ps {
		out[len(ps)-1-i] = p
	}
	sort.Stable(out)
	return out
}

// Latest returns the newest post or nil
func (ps Posts) Latest() *Post {
	sorted := ps.Sorted()
	if len(sorted) == 0 {
		return nil
	}
	return sorted[0]
}

// Recent returns up to n newest posts, newest first. n <= 0 returns none.
func (ps Posts) Recent(n int) Posts {
	if n <= 0 {
		return Posts{}
	}
	sorted := ps.Sorted()
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Archive returns every post except the latest, newest first
func (ps Posts) Archive() Posts {
	sorted := ps.Sorted()
	if len(sorted) <= 1 {
		return Posts{}
	}
	return sorted[1:]
}

// Texts returns the guard reference texts in slice order
func (ps Posts) Texts() []string {
	texts := make([]string, len(ps))
	for i, p := range ps {
		texts[i] = p.Text()
	}
	return texts
}

func (ps Posts) Titles() []string {
	titles := make([]string, len(ps))
	for i, p := range ps {
		titles[i] = p.Title
	}
	return titles
}

// Find returns the post with the given ID
func (ps Posts) Find(id string) (*Post, bool) {
	for _, p := range ps {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}
