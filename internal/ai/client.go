// Package ai calls OpenAI-compatible chat-completions endpoints to
// generate explanations for captured mistakes. The scheduler never
// depends on this package; explanations are opaque text to it.
package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const systemPrompt = "You are a patient tutor. Analyze the mistake the student made, explain the correct approach step by step, and point out the underlying concept they missed. Answer in the language of the question."

// Config holds the endpoints and models for the two explanation
// backends: a text model and a vision model for photographed
// questions.
type Config struct {
	TextBaseURL   string
	TextAPIKey    string
	TextModel     string
	VisionBaseURL string
	VisionAPIKey  string
	VisionModel   string
}

// Client generates explanations over HTTP.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a client. The vision backend is optional; ExplainImage
// fails if it is not configured.
func New(cfg Config) (*Client, error) {
	if cfg.TextBaseURL == "" || cfg.TextAPIKey == "" {
		return nil, fmt.Errorf("text explanation backend is not configured")
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Explain asks the text model to explain a mistake.
func (c *Client) Explain(ctx context.Context, question string) (string, error) {
	req := chatRequest{
		Model: c.cfg.TextModel,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: question},
		},
	}
	return c.complete(ctx, c.cfg.TextBaseURL, c.cfg.TextAPIKey, req)
}

// ExplainImage asks the vision model to explain a photographed
// question. The image travels inline as a base64 data URL.
func (c *Client) ExplainImage(ctx context.Context, question string, image []byte, mime string) (string, error) {
	if c.cfg.VisionBaseURL == "" || c.cfg.VisionAPIKey == "" {
		return "", fmt.Errorf("vision explanation backend is not configured")
	}
	if mime == "" {
		mime = "image/jpeg"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(image))

	content := []map[string]any{
		{"type": "text", "text": question},
		{"type": "image_url", "image_url": map[string]string{"url": dataURL}},
	}
	req := chatRequest{
		Model: c.cfg.VisionModel,
		Messages: []message{
			{Role: "user", Content: content},
		},
	}
	return c.complete(ctx, c.cfg.VisionBaseURL, c.cfg.VisionAPIKey, req)
}

func (c *Client) complete(ctx context.Context, baseURL, apiKey string, req chatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimSuffix(baseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call explanation backend: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	// Error responses may not be JSON at all (proxies, gateways), so a
	// bad status wins over a decode failure.
	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("explanation backend returned status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("explanation backend error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("explanation backend returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("explanation backend returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
