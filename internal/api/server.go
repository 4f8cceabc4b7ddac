package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dailypost/backend/internal/feed"
	"github.com/dailypost/backend/internal/generator"
	"github.com/dailypost/backend/internal/search"
)

type feedWatcher interface {
	Watch(ctx context.Context, interval time.Duration, onChange func(), onError func(error)) error
}

type Server struct {
	Generator *generator.Generator
	Index     *search.VectorStore
	Logger    *logrus.Entry
	Router    *http.ServeMux

	started time.Time
}

func NewServer(gen *generator.Generator, index *search.VectorStore, logger *logrus.Entry) *Server {
	s := &Server{
		Generator: gen,
		Index:     index,
		Logger:    logger,
		Router:    http.NewServeMux(),
		started:   time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.HandleFunc("/feed.json", s.handleFeed)
	s.Router.HandleFunc("/api/v1/posts", s.handlePosts)
	s.Router.HandleFunc("/api/v1/posts/", s.handlePost)
	s.Router.HandleFunc("/api/v1/search", s.handleSearch)
	s.Router.HandleFunc("/api/v1/check", s.handleCheck)
	s.Router.HandleFunc("/api/v1/generate", s.handleGenerate)
	s.Router.HandleFunc("/api/v1/status", s.handleStatus)
}

// Start serves the API until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Infof("Starting API Server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.Logger.Info("Shutting down API Server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Reindex reloads the feed into the search index
func (s *Server) Reindex() error {
	posts, err := s.Generator.Storage.Load()
	if err != nil {
		return err
	}
	s.Index.IndexPosts(posts)
	s.Logger.WithField("posts", len(posts)).Debug("Search index rebuilt")
	return nil
}

// WatchFeed rebuilds the index whenever the feed file changes on disk.
// It returns immediately when storage cannot be watched.
func (s *Server) WatchFeed(ctx context.Context, interval time.Duration) error {
	w, ok := s.Generator.Storage.(feedWatcher)
	if !ok {
		s.Logger.Warn("Feed storage does not support watching")
		return nil
	}
	return w.Watch(ctx, interval, func() {
		if err := s.Reindex(); err != nil {
			s.Logger.WithError(err).Error("Failed to reindex feed")
		}
	}, func(err error) {
		s.Logger.WithError(err).Warn("Feed watcher error")
	})
}

// Responses
type ErrorResponse struct {
	Error string `json:"error"`
}

type PostSummary struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Date  time.Time `json:"date"`
}

type PostsResponse struct {
	Latest  *feed.Post    `json:"latest"`
	Archive []PostSummary `json:"archive"`
}

type SearchResponse struct {
	Query   string             `json:"query"`
	Results []SearchResultView `json:"results"`
}

type SearchResultView struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
	Text  string  `json:"snippet"`
}

type CheckRequest struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type CheckResponse struct {
	Source string `json:"source"`
	*generator.CheckResult
}

type GenerateRequest struct {
	Topic  string `json:"topic"`
	DryRun bool   `json:"dry_run"`
}

type StatusResponse struct {
	Running   bool            `json:"running"`
	Posts     int             `json:"posts"`
	Generator generator.Stats `json:"generator"`
	Uptime    string          `json:"uptime"`
}

// Handlers

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	posts, err := s.Generator.Storage.Load()
	if err != nil {
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	jsonResponse(w, http.StatusOK, posts)
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	posts, err := s.Generator.Storage.Load()
	if err != nil {
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	archive := posts.Archive()
	resp := PostsResponse{
		Latest:  posts.Latest(),
		Archive: make([]PostSummary, len(archive)),
	}
	for i, p := range archive {
		resp.Archive[i] = PostSummary{ID: p.ID, Title: p.Title, Date: p.Date}
	}
	jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/posts/")
	posts, err := s.Generator.Storage.Load()
	if err != nil {
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	var post *feed.Post
	if id == "latest" {
		post = posts.Latest()
	} else if p, ok := posts.Find(id); ok {
		post = p
	}
	if post == nil {
		jsonResponse(w, http.StatusNotFound, ErrorResponse{Error: "Post not found"})
		return
	}
	jsonResponse(w, http.StatusOK, post)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Query 'q' is required"})
		return
	}

	hits := s.Index.Search(query, 5)

	response := SearchResponse{
		Query:   query,
		Results: make([]SearchResultView, len(hits)),
	}

	for i, hit := range hits {
		response.Results[i] = SearchResultView{
			ID:    hit.Document.ID,
			Title: hit.Document.Title,
			Score: hit.Score,
			Text:  feed.Truncate(hit.Document.Content, 200),
		}
	}

	jsonResponse(w, http.StatusOK, response)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON"})
		return
	}

	text, source := req.Text, "text"
	switch {
	case req.Text != "":
	case req.URL != "":
		if s.Generator.Fetcher == nil {
			jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "URL checks are not enabled"})
			return
		}
		page, err := s.Generator.Fetcher.Fetch(r.Context(), req.URL)
		if err != nil {
			jsonResponse(w, http.StatusBadGateway, ErrorResponse{Error: err.Error()})
			return
		}
		text, source = page.Title+"\n\n"+page.Text, req.URL
	default:
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Either 'text' or 'url' is required"})
		return
	}

	result, err := s.Generator.Check(r.Context(), text)
	if err != nil {
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	jsonResponse(w, http.StatusOK, CheckResponse{Source: source, CheckResult: result})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req GenerateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON"})
			return
		}
	}

	result, err := s.Generator.Run(r.Context(), generator.RunOptions{Topic: req.Topic, DryRun: req.DryRun})
	if errors.Is(err, generator.ErrAlreadyRunning) {
		jsonResponse(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		s.Logger.WithError(err).Error("Generation failed")
		jsonResponse(w, generateErrorStatus(err), ErrorResponse{Error: err.Error()})
		return
	}

	if result.Saved {
		if err := s.Reindex(); err != nil {
			s.Logger.WithError(err).Error("Failed to reindex feed")
		}
	}

	jsonResponse(w, http.StatusOK, result)
}

// generateErrorStatus reports model failures as 502 and everything else,
// such as feed read or write errors, as 500.
func generateErrorStatus(err error) int {
	if errors.Is(err, generator.ErrProvider) || errors.Is(err, generator.ErrEmptyDraft) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Running:   s.Generator.IsRunning(),
		Posts:     s.Index.Len(),
		Generator: s.Generator.Stats(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	}

	jsonResponse(w, http.StatusOK, resp)
}

func jsonResponse(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
