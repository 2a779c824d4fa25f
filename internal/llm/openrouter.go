package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/dagbok-backend/internal/config"
)

const defaultModel = "openai/gpt-4o-mini"

// ChatResult carries the rewritten text plus the token usage the provider
// reports, which feeds cost accounting.
type ChatResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

func (r *ChatResult) TotalTokens() int {
	return r.PromptTokens + r.CompletionTokens
}

// Provider is the outbound LLM contract. The OpenRouter client implements
// it; tests substitute fakes.
type Provider interface {
	Chat(ctx context.Context, model, systemPrompt, message string) (*ChatResult, error)
}

// Client calls the OpenRouter chat completions API. It is treated as an
// untrusted, possibly slow collaborator: 10s connect timeout, 60s total.
type Client struct {
	apiKey  string
	baseURL string
	referer string
	title   string
	client  *http.Client
}

func NewClient(cfg config.OpenRouterConfig) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		referer: cfg.Referer,
		title:   cfg.Title,
		client: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
			},
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) Chat(ctx context.Context, model, systemPrompt, message string) (*ChatResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("OpenRouter API key is missing")
	}

	if model == "" {
		model = defaultModel
	}

	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: message},
		},
		Temperature: 0.7,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", c.referer)
	req.Header.Set("X-Title", c.title)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call OpenRouter: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var result chatResponse
		if err := json.Unmarshal(body, &result); err == nil && result.Error != nil {
			return nil, fmt.Errorf("OpenRouter API error (HTTP %d): %s", resp.StatusCode, result.Error.Message)
		}
		return nil, fmt.Errorf("OpenRouter API error: HTTP %d - %s", resp.StatusCode, truncate(body, 2000))
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Error != nil {
		return nil, fmt.Errorf("OpenRouter API error: %s", result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("no choices in OpenRouter response")
	}

	text := result.Choices[0].Message.Content
	if text == "" {
		text = result.Choices[0].Text
	}
	if text == "" {
		return nil, fmt.Errorf("no message content in OpenRouter response")
	}

	return &ChatResult{
		Text:             text,
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
	}, nil
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
