package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Claude speaks the Anthropic messages API.
const (
	DefaultClaudeBaseURL = "https://api.anthropic.com"
	DefaultClaudeModel   = "claude-sonnet-4-20250514"

	anthropicVersion = "2023-06-01"
)

// ClaudeProvider is the premium fallback provider.
type ClaudeProvider struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

// ClaudeConfig configures a ClaudeProvider. Zero fields take defaults.
type ClaudeConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	HTTPClient  *http.Client
}

// NewClaudeProvider builds a provider from config. The API key is required.
func NewClaudeProvider(cfg ClaudeConfig) (*ClaudeProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("claude: api key is required")
	}
	p := &ClaudeProvider{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		client:      cfg.HTTPClient,
	}
	if p.baseURL == "" {
		p.baseURL = DefaultClaudeBaseURL
	}
	if p.model == "" {
		p.model = DefaultClaudeModel
	}
	if p.maxTokens == 0 {
		p.maxTokens = 500
	}
	if p.temperature == 0 {
		p.temperature = 0.7
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: 60 * time.Second}
	}
	return p, nil
}

func (p *ClaudeProvider) Name() string  { return "claude" }
func (p *ClaudeProvider) Model() string { return p.model }

func (p *ClaudeProvider) Temperature() float64 { return p.temperature }

type claudeRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate sends a messages request with the persona as the system prompt.
func (p *ClaudeProvider) Generate(ctx context.Context, system, user string) (*Completion, error) {
	body, err := json.Marshal(claudeRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
		System:      system,
		Messages:    []chatMessage{{Role: "user", Content: user}},
	})
	if err != nil {
		return nil, fmt.Errorf("claude: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("claude: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("claude: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("claude: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("claude: status %d: %s", resp.StatusCode, truncateBody(data))
	}

	var cr claudeResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return nil, fmt.Errorf("claude: decode response: %w", err)
	}
	if cr.Error != nil {
		return nil, fmt.Errorf("claude: api error: %s", cr.Error.Message)
	}
	var text string
	for _, block := range cr.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, fmt.Errorf("claude: empty content")
	}
	return &Completion{
		Text:             text,
		PromptTokens:     cr.Usage.InputTokens,
		CompletionTokens: cr.Usage.OutputTokens,
	}, nil
}
