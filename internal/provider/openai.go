package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const (
	OpenAIURL   = "https://api.openai.com/v1/chat/completions"
	DeepSeekURL = "https://api.deepseek.com/chat/completions"
)

// ErrNoChoices is returned when a chat completion comes back empty
var ErrNoChoices = errors.New("no choices returned from chat completion")

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint
type OpenAIProvider struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	Client      *http.Client

	label string
}

func NewOpenAIProvider(baseURL, model, apiKey string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = OpenAIURL
	}
	return &OpenAIProvider{
		BaseURL: baseURL,
		Model:   model,
		APIKey:  apiKey,
		Client:  http.DefaultClient,
	}
}

func (p *OpenAIProvider) Name() string {
	if p.label != "" {
		return p.label
	}
	return "openai"
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model": p.Model,
		"messages": []map[string]string{
			{"role": "system", "content": "You write concise, original technical blog posts."},
			{"role": "user", "content": prompt},
		},
		"stream": false,
	}
	if p.Temperature > 0 {
		payload["temperature"] = p.Temperature
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned status: %d", p.Name(), resp.StatusCode)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode %s response: %w", p.Name(), err)
	}

	if len(result.Choices) == 0 {
		return "", ErrNoChoices
	}

	return result.Choices[0].Message.Content, nil
}
