package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/net/html"

	"github.com/dailypost/backend/internal/config"
	"github.com/dailypost/backend/internal/feed"
)

// ErrDisallowed is returned when robots.txt forbids fetching a URL
var ErrDisallowed = errors.New("blocked by robots.txt")

// FetchResult contains the extracted data from a webpage
type FetchResult struct {
	URL        string
	Title      string
	Text       string // visible text, whitespace collapsed
	StatusCode int
}

type robotsEntry struct {
	robots    *robotstxt.RobotsData
	fetchTime time.Time
}

// Fetcher reads remote pages and published feeds
type Fetcher struct {
	client      *http.Client
	userAgent   string
	robotsCheck bool
	robotsTTL   time.Duration
	throttle    *hostThrottle

	mu          sync.Mutex
	robotsCache map[string]*robotsEntry
}

func NewFetcher(cfg config.FetcherConfig) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent:   cfg.UserAgent,
		robotsCheck: cfg.EnableRobotsCheck,
		robotsTTL:   cfg.RobotsCacheDuration,
		throttle:    newHostThrottle(cfg.MinDelay),
		robotsCache: make(map[string]*robotsEntry),
	}
}

// Fetch downloads a webpage and extracts its title and visible text
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if err := f.checkRobots(ctx, rawURL); err != nil {
		return nil, err
	}

	resp, err := f.get(ctx, rawURL, "text/html")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	result := &FetchResult{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
	}

	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	if err := parseHTML(resp.Body, result); err != nil {
		return nil, fmt.Errorf("parsing error: %w", err)
	}

	return result, nil
}

// FetchFeed downloads a published JSON feed
func (f *Fetcher) FetchFeed(ctx context.Context, rawURL string) (feed.Posts, error) {
	resp, err := f.get(ctx, rawURL, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	var posts feed.Posts
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, fmt.Errorf("failed to decode feed from %s: %w", rawURL, err)
	}
	return posts, nil
}

// get issues a GET after waiting out the per-host delay. robots.txt lookups
// pass through here too, so they count against the host.
func (f *Fetcher) get(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := f.throttle.wait(ctx, req.URL.Host); err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	return resp, nil
}

// checkRobots returns ErrDisallowed when the host's robots.txt forbids rawURL.
// Failing to obtain robots.txt allows the request.
func (f *Fetcher) checkRobots(ctx context.Context, rawURL string) error {
	if !f.robotsCheck {
		return nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	robots, err := f.robotsFor(ctx, parsed)
	if err != nil || robots == nil {
		return nil
	}

	if !robots.TestAgent(parsed.EscapedPath(), f.userAgent) {
		return fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
	}
	return nil
}

func (f *Fetcher) robotsFor(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	key := target.Scheme + "://" + target.Host

	f.mu.Lock()
	entry, ok := f.robotsCache[key]
	f.mu.Unlock()
	if ok && time.Since(entry.fetchTime) < f.robotsTTL {
		return entry.robots, nil
	}

	resp, err := f.get(ctx, key+"/robots.txt", "text/plain")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
	}

	f.mu.Lock()
	f.robotsCache[key] = &robotsEntry{robots: robots, fetchTime: time.Now()}
	f.mu.Unlock()

	return robots, nil
}

// parseHTML extracts the title and visible text using the standard tokenizer
func parseHTML(body io.Reader, result *FetchResult) error {
	tokenizer := html.NewTokenizer(body)
	var textBuilder strings.Builder
	skipDepth := 0
	inTitle := false

	for {
		tokenType := tokenizer.Next()

		switch tokenType {
		case html.ErrorToken:
			if tokenizer.Err() == io.EOF {
				result.Text = cleanText(textBuilder.String())
				return nil
			}
			return tokenizer.Err()

		case html.StartTagToken:
			token := tokenizer.Token()
			switch token.Data {
			case "script", "style", "nav", "header", "footer", "noscript":
				skipDepth++
			case "title":
				inTitle = true
			}

		case html.EndTagToken:
			token := tokenizer.Token()
			switch token.Data {
			case "script", "style", "nav", "header", "footer", "noscript":
				if skipDepth > 0 {
					skipDepth--
				}
			case "title":
				inTitle = false
			}

		case html.TextToken:
			text := strings.TrimSpace(tokenizer.Token().Data)
			if text == "" {
				continue
			}
			if inTitle {
				result.Title = text
				continue
			}
			if skipDepth == 0 {
				textBuilder.WriteString(text + " ")
			}
		}
	}
}

// cleanText removes excessive whitespace
func cleanText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
