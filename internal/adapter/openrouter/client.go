// Package openrouter is a minimal client for OpenAI-compatible chat
// completion endpoints such as OpenRouter.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultURL is the OpenRouter chat completions endpoint.
const DefaultURL = "https://openrouter.ai/api/v1/chat/completions"

// ErrEmptyReply is returned when the endpoint answers without any choices.
var ErrEmptyReply = errors.New("openrouter: empty reply")

// Client sends single-turn prompts at temperature 0.
type Client struct {
	apiKey     string
	model      string
	url        string
	httpClient *http.Client
}

// NewClient creates a chat client. The per-call deadline comes from the
// caller's context; timeout bounds the whole HTTP exchange as a backstop.
func NewClient(apiKey, model, url string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type response struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Complete sends a system and user message and returns the first choice.
func (c *Client) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	body, err := json.Marshal(request{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("openrouter API error: status %d: %s", resp.StatusCode, msg)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyReply
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
