package feed

import (
	"errors"
	"strings"
	"time"

	atom "github.com/thomas11/atomgenerator"
)

// Site identifies the published feed
type Site struct {
	Title     string
	BaseURL   string
	Author    string
	AuthorURI string
}

// PostURL is the permalink the site renderer resolves for a post
func (s Site) PostURL(p *Post) string {
	base := s.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + "?post=" + p.ID
}

// RenderAtom renders posts, newest first, as an Atom document
func RenderAtom(site Site, posts Posts) ([]byte, error) {
	sorted := posts.Sorted()

	updated := time.Now().UTC()
	if len(sorted) > 0 {
		updated = sorted[0].Date
	}

	f := atom.Feed{
		Title:   site.Title,
		Link:    site.BaseURL,
		PubDate: updated,
	}
	f.AddAuthor(atom.Author{
		Name: site.Author,
		Uri:  site.AuthorURI,
	})

	for _, p := range sorted {
		f.AddEntry(&atom.Entry{
			Title:       p.Title,
			Description: excerpt(p.Content, 200),
			Link:        site.PostURL(p),
			PubDate:     p.Date,
			Content:     p.HTML,
		})
	}

	if errs := f.Validate(); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return f.GenXml()
}

func excerpt(text string, limit int) string {
	text = strings.Join(strings.Fields(strings.Trim(text, "# \n")), " ")
	if len(text) <= limit {
		return text
	}
	cut := strings.LastIndex(text[:runeBoundary(text, limit)], " ")
	if cut <= 0 {
		cut = runeBoundary(text, limit)
	}
	return text[:cut] + "..."
}
