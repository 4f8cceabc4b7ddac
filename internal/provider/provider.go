package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dailypost/backend/internal/config"
)

// LLMProvider defines the interface for AI model integration
type LLMProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// New builds the provider named in cfg. Unknown names fall back to Ollama.
func New(cfg config.LLMConfig, client *http.Client) LLMProvider {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		p := NewOpenAIProvider(cfg.BaseURL, cfg.Model, cfg.APIKey)
		p.Temperature = cfg.Temperature
		p.Client = client
		return p
	case "deepseek":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DeepSeekURL
		}
		model := cfg.Model
		if model == "" || model == config.Default().LLM.Model {
			model = "deepseek-chat"
		}
		p := NewOpenAIProvider(baseURL, model, cfg.APIKey)
		p.Temperature = cfg.Temperature
		p.Client = client
		p.label = "deepseek"
		return p
	default:
		p := NewOllamaProvider(cfg.BaseURL, cfg.Model)
		p.Temperature = cfg.Temperature
		p.Client = client
		return p
	}
}

// PromptRequest carries everything the post prompt is built from
type PromptRequest struct {
	Topic        string
	Angle        string
	RecentTitles []string
	Hint         string
}

// BuildPostPrompt asks for one markdown post with a leading "# " title line
func BuildPostPrompt(req PromptRequest) string {
	var b strings.Builder

	b.WriteString("You are writing today's entry for a technical blog.\n")
	fmt.Fprintf(&b, "Topic: %s\n", req.Topic)
	if req.Angle != "" {
		fmt.Fprintf(&b, "Angle: %s\n", req.Angle)
	}
	b.WriteString("\nWrite 250-400 words of markdown. Start with a single line \"# <title>\", " +
		"then the body. Use one concrete example. Do not add a preamble or closing remarks.\n")

	if len(req.RecentTitles) > 0 {
		b.WriteString("\nRecent posts already cover the following, do not repeat them:\n")
		for _, title := range req.RecentTitles {
			fmt.Fprintf(&b, "- %s\n", title)
		}
	}

	if req.Hint != "" {
		fmt.Fprintf(&b, "\nThe previous draft was too similar to an earlier post. Guidance: %s.\n", req.Hint)
	}

	b.WriteString("\nPOST:\n")
	return b.String()
}

// Draft is a generated post split into title and body
type Draft struct {
	Title string
	Body  string
}

// ParseDraft takes the first "# " heading (or else the first non-empty line)
// as the title and everything after it as the body.
func ParseDraft(text string) Draft {
	text = strings.TrimSpace(stripThinking(text))
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		title := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		title = strings.Trim(title, "*_ ")
		body := strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
		if body == "" {
			body = title
		}
		return Draft{Title: title, Body: body}
	}
	return Draft{}
}

// stripThinking drops a leading <think>...</think> block some local models emit
func stripThinking(text string) string {
	start := strings.Index(text, "<think>")
	if start < 0 {
		return text
	}
	end := strings.Index(text[start:], "</think>")
	if end < 0 {
		return text
	}
	return text[:start] + text[start+end+len("</think>"):]
}
