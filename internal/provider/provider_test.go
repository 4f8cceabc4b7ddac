package provider_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailypost/backend/internal/config"
	"github.com/dailypost/backend/internal/provider"
)

type MockTransport struct {
	Response *http.Response
	Err      error
	Request  *http.Request
}

func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.Request = req
	return m.Response, m.Err
}

func TestOllamaGenerate(t *testing.T) {
	mockResponse := `{"response": "# Title\nBody text."}`
	mockTransport := &MockTransport{
		Response: &http.Response{
			StatusCode: 200,
			Body:       io.NopCloser(strings.NewReader(mockResponse)),
		},
	}

	p := provider.NewOllamaProvider("http://mock-ollama/api/generate", "llama2")
	p.Client = &http.Client{Transport: mockTransport}

	ans, err := p.Generate(context.Background(), "Write a post")
	assert.NoError(t, err)
	assert.Equal(t, "# Title\nBody text.", ans)
	assert.Equal(t, "http://mock-ollama/api/generate", mockTransport.Request.URL.String())
}

func TestOpenAIGenerate(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-fake", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"choices": [{"message": {"content": "Paris"}}]}`))
	}))
	defer server.Close()

	p := provider.NewOpenAIProvider(server.URL, "gpt-4o-mini", "sk-fake")
	p.Temperature = 0.7

	ans, err := p.Generate(context.Background(), "Capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris", ans)
	assert.Equal(t, "gpt-4o-mini", captured["model"])
	assert.Equal(t, 0.7, captured["temperature"])
	messages := captured["messages"].([]interface{})
	require.Len(t, messages, 2)
	assert.Equal(t, "Capital of France?", messages[1].(map[string]interface{})["content"])
}

func TestOpenAIGenerate_Errors(t *testing.T) {
	status := http.StatusTooManyRequests
	body := `{}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	defer server.Close()

	p := provider.NewOpenAIProvider(server.URL, "gpt-4o-mini", "")
	_, err := p.Generate(context.Background(), "hi")
	assert.ErrorContains(t, err, "429")

	status = http.StatusOK
	body = `{"choices": []}`
	_, err = p.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, provider.ErrNoChoices)
}

func TestOllamaGenerate_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response": "late"}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := provider.NewOllamaProvider(server.URL, "llama2")
	_, err := p.Generate(ctx, "hi")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProviderFactory(t *testing.T) {
	p1 := provider.NewOllamaProvider("", "llama2")
	assert.Equal(t, "ollama", p1.Name())

	p2 := provider.NewOpenAIProvider("", "gpt-4", "key")
	assert.Equal(t, "openai", p2.Name())
	assert.Equal(t, provider.OpenAIURL, p2.BaseURL)

	cfg := config.Default().LLM
	assert.Equal(t, "ollama", provider.New(cfg, nil).Name())

	cfg.Provider = "OpenAI"
	assert.Equal(t, "openai", provider.New(cfg, nil).Name())

	cfg.Provider = "deepseek"
	ds := provider.New(cfg, nil).(*provider.OpenAIProvider)
	assert.Equal(t, "deepseek", ds.Name())
	assert.Equal(t, provider.DeepSeekURL, ds.BaseURL)
	assert.Equal(t, "deepseek-chat", ds.Model)
}

func TestBuildPostPrompt(t *testing.T) {
	prompt := provider.BuildPostPrompt(provider.PromptRequest{
		Topic:        "observability",
		Angle:        "a checklist readers can apply today",
		RecentTitles: []string{"Tracing 101", "Log levels that matter"},
		Hint:         "avoid repeating phrases",
	})

	assert.Contains(t, prompt, "Topic: observability")
	assert.Contains(t, prompt, "Angle: a checklist readers can apply today")
	assert.Contains(t, prompt, "- Tracing 101\n- Log levels that matter\n")
	assert.Contains(t, prompt, "Guidance: avoid repeating phrases.")
	assert.True(t, strings.HasSuffix(prompt, "POST:\n"))

	plain := provider.BuildPostPrompt(provider.PromptRequest{Topic: "go"})
	assert.NotContains(t, plain, "Angle:")
	assert.NotContains(t, plain, "Guidance")
	assert.NotContains(t, plain, "Recent posts")
}

func TestParseDraft(t *testing.T) {
	tests := []struct {
		name  string
		input string
		title string
		body  string
	}{
		{"heading", "# Retry budgets\n\nKeep retries bounded.", "Retry budgets", "Keep retries bounded."},
		{"bold first line", "\n\n**Backpressure basics**\nQueues fill up.", "Backpressure basics", "Queues fill up."},
		{"thinking block", "<think>plan the post</think>\n## Idempotency keys\nUse them.", "Idempotency keys", "Use them."},
		{"single line", "Just a title", "Just a title", "Just a title"},
		{"empty", "   ", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := provider.ParseDraft(tt.input)
			assert.Equal(t, tt.title, d.Title)
			assert.Equal(t, tt.body, d.Body)
		})
	}
}
