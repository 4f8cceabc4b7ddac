package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dailypost/backend/internal/config"
	"github.com/dailypost/backend/internal/feed"
	"github.com/dailypost/backend/internal/fetcher"
	"github.com/dailypost/backend/internal/novelty"
	"github.com/dailypost/backend/internal/provider"
	"github.com/dailypost/backend/internal/storage"
)

var (
	// ErrAlreadyRunning is returned when Run is called while a run is in progress
	ErrAlreadyRunning = errors.New("generation already running")
	// ErrEmptyDraft is returned when the model produced no usable text
	ErrEmptyDraft = errors.New("model returned an empty draft")
	// ErrProvider wraps failures reported by the model provider
	ErrProvider = errors.New("model provider failed")
)

// Generator orchestrates history loading, generation, the novelty guard and
// persistence for one daily post.
type Generator struct {
	Config  *config.Config
	Logger  *logrus.Entry
	Storage storage.FeedStorage
	LLM     provider.LLMProvider
	Guard   *novelty.Guard
	Fetcher *fetcher.Fetcher
	Now     func() time.Time

	mu      sync.RWMutex
	running bool
	stats   Stats
}

// Stats summarizes generator activity since start
type Stats struct {
	Runs      int64     `json:"runs"`
	Accepted  int64     `json:"accepted"`
	Exhausted int64     `json:"exhausted"`
	Failed    int64     `json:"failed"`
	State     State     `json:"state"`
	LastError string    `json:"last_error,omitempty"`
	LastRun   time.Time `json:"last_run"`
	LastPost  string    `json:"last_post,omitempty"`
}

// RunOptions override configuration for a single run
type RunOptions struct {
	Topic  string
	DryRun bool
}

// Result describes a finished run
type Result struct {
	Post     *feed.Post `json:"post"`
	State    State      `json:"state"`
	Attempts []Attempt  `json:"attempts"`
	Saved    bool       `json:"saved"`
}

type draft struct {
	provider.Draft
	angle string
}

func (d draft) text() string {
	return d.Title + "\n\n" + d.Body
}

func NewGenerator(cfg *config.Config, logger *logrus.Entry, store storage.FeedStorage, llm provider.LLMProvider, f *fetcher.Fetcher) *Generator {
	return &Generator{
		Config:  cfg,
		Logger:  logger,
		Storage: store,
		LLM:     llm,
		Guard:   novelty.NewGuard(cfg.Novelty),
		Fetcher: f,
		Now:     time.Now,
		stats:   Stats{State: StateIdle},
	}
}

// Run generates one post, regenerating rejected drafts up to the configured
// bound. When every attempt is rejected the last draft is still published.
func (g *Generator) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	if !g.begin() {
		return nil, ErrAlreadyRunning
	}
	defer g.end()

	if g.Config.Generator.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Config.Generator.Timeout)
		defer cancel()
	}

	result, err := g.run(ctx, opts)
	g.record(result, err)
	return result, err
}

func (g *Generator) run(ctx context.Context, opts RunOptions) (*Result, error) {
	log := g.Logger.WithField("provider", g.LLM.Name())

	history, err := g.History(ctx)
	if err != nil {
		return nil, err
	}
	references := history.Texts()
	titles := history.Titles()
	log.WithField("references", len(references)).Info("Loaded post history")

	topic := opts.Topic
	if topic == "" {
		topic = g.Config.Generator.Topic
	}

	produce := func(ctx context.Context, attempt int, hint string) (draft, string, error) {
		angle := g.angle(attempt)
		prompt := provider.BuildPostPrompt(provider.PromptRequest{
			Topic:        topic,
			Angle:        angle,
			RecentTitles: titles,
			Hint:         hint,
		})

		text, err := g.LLM.Generate(ctx, prompt)
		if err != nil {
			return draft{}, angle, fmt.Errorf("generation attempt %d: %w: %w", attempt, ErrProvider, err)
		}
		d := provider.ParseDraft(text)
		if strings.TrimSpace(d.Body) == "" {
			return draft{}, angle, fmt.Errorf("generation attempt %d: %w", attempt, ErrEmptyDraft)
		}
		return draft{Draft: d, angle: angle}, angle, nil
	}

	evaluate := func(d draft) novelty.Verdict {
		return g.Guard.Evaluate(d.text(), references)
	}

	outcome, err := Loop(ctx, g.Config.Generator.MaxAttempts, produce, evaluate, Step{
		OnState: g.setState,
		OnVerdict: func(a Attempt) {
			entry := log.WithFields(logrus.Fields{"attempt": a.Number, "angle": a.Angle})
			if a.Verdict.Accepted {
				entry.Info("Draft accepted by novelty guard")
				return
			}
			if m := a.Verdict.Match; m != nil {
				entry = entry.WithFields(logrus.Fields{
					"reference": m.Index,
					"cosine":    fmt.Sprintf("%.3f", m.Cosine),
					"jaccard":   fmt.Sprintf("%.3f", m.Jaccard),
				})
			}
			entry.Warn("Draft rejected as too similar")
		},
	})
	if err != nil {
		return nil, err
	}

	if outcome.State == StateExhausted {
		log.WithField("attempts", len(outcome.Attempts)).Warn("Attempts exhausted, keeping last draft")
	}

	post, err := feed.NewPost(outcome.Candidate.Title, outcome.Candidate.Body, g.Now())
	if err != nil {
		return nil, err
	}
	post.Angle = outcome.Candidate.angle
	post.Attempts = len(outcome.Attempts)
	post.Novel = outcome.Accepted()

	result := &Result{
		Post:     post,
		State:    outcome.State,
		Attempts: outcome.Attempts,
	}

	if opts.DryRun || g.Config.Generator.DryRun {
		log.WithField("title", post.Title).Info("Dry run, post not saved")
		return result, nil
	}

	if err := g.Storage.Append(post); err != nil {
		return nil, fmt.Errorf("failed to save post: %w", err)
	}
	result.Saved = true
	log.WithFields(logrus.Fields{"id": post.ID, "title": post.Title}).Info("Post appended to feed")

	if err := g.WriteAtom(); err != nil {
		log.WithError(err).Error("Failed to render atom feed")
	}

	return result, nil
}

// History returns the reference posts, newest first, from the published feed
// when a remote URL is configured and from local storage otherwise.
func (g *Generator) History(ctx context.Context) (feed.Posts, error) {
	window := g.Config.Feed.HistoryWindow

	if g.Config.Feed.RemoteURL != "" && g.Fetcher != nil {
		posts, err := g.Fetcher.FetchFeed(ctx, g.Config.Feed.RemoteURL)
		if err != nil {
			return nil, fmt.Errorf("failed to load remote history: %w", err)
		}
		return posts.Recent(window), nil
	}

	posts, err := g.Storage.Recent(window)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return posts, nil
}

// CheckResult is the guard verdict plus per-post scores for a manual check
type CheckResult struct {
	Verdict novelty.Verdict `json:"verdict"`
	Scores  []PostScore     `json:"scores"`
}

// PostScore pairs a history post with its similarity to the checked text
type PostScore struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Cosine  float64 `json:"cosine"`
	Jaccard float64 `json:"jaccard"`
	Exceeds bool    `json:"exceeds"`
}

// Check evaluates text against the current history without generating anything
func (g *Generator) Check(ctx context.Context, text string) (*CheckResult, error) {
	history, err := g.History(ctx)
	if err != nil {
		return nil, err
	}
	references := history.Texts()

	result := &CheckResult{
		Verdict: g.Guard.Evaluate(text, references),
		Scores:  make([]PostScore, len(history)),
	}
	for i, s := range g.Guard.Report(text, references) {
		result.Scores[i] = PostScore{
			ID:      history[i].ID,
			Title:   history[i].Title,
			Cosine:  s.Cosine,
			Jaccard: s.Jaccard,
			Exceeds: g.Guard.Exceeds(s),
		}
	}
	return result, nil
}

// WriteAtom re-renders the Atom feed from storage when an atom path is set
func (g *Generator) WriteAtom() error {
	if g.Config.Feed.AtomPath == "" {
		return nil
	}
	posts, err := g.Storage.Load()
	if err != nil {
		return err
	}
	data, err := feed.RenderAtom(g.site(), posts)
	if err != nil {
		return err
	}
	return storage.WriteAtomic(g.Config.Feed.AtomPath, data)
}

func (g *Generator) site() feed.Site {
	return feed.Site{
		Title:     g.Config.Feed.SiteTitle,
		BaseURL:   g.Config.Feed.BaseURL,
		Author:    g.Config.Feed.Author,
		AuthorURI: g.Config.Feed.AuthorURI,
	}
}

// angle rotates through the configured angles, one per attempt
func (g *Generator) angle(attempt int) string {
	angles := g.Config.Generator.Angles
	if len(angles) == 0 {
		return ""
	}
	return angles[(attempt-1)%len(angles)]
}

// IsRunning reports whether a run is in progress
func (g *Generator) IsRunning() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.running
}

// Stats returns a snapshot of the run counters
func (g *Generator) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.stats
}

func (g *Generator) begin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return false
	}
	g.running = true
	g.stats.Runs++
	g.stats.LastRun = g.Now()
	return true
}

func (g *Generator) end() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.running = false
}

func (g *Generator) setState(s State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stats.State = s
}

func (g *Generator) record(result *Result, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err != nil {
		g.stats.Failed++
		g.stats.LastError = err.Error()
		g.stats.State = StateIdle
		return
	}
	g.stats.LastError = ""
	g.stats.LastPost = result.Post.ID
	switch result.State {
	case StateAccepted:
		g.stats.Accepted++
	case StateExhausted:
		g.stats.Exhausted++
	}
}
