// Package ark is a thin client for the Volcengine Ark chat-completion
// API (OpenAI-compatible wire format), supporting buffered and streamed
// completions.
package ark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://ark.cn-beijing.volces.com/api/v3"

// Params are the per-model generation settings forwarded verbatim.
type Params struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// UpstreamError carries the decoded error body of a non-2xx upstream
// response when one was present.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream API error: status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client with the fixed 60s upstream call timeout.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// NewClientWithBaseURL is used by tests to point at a fake upstream.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) newRequest(ctx context.Context, model, systemPrompt, userMessage string, params Params, stream bool) (*http.Request, error) {
	payload := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		TopP:        params.TopP,
		Stream:      stream,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return req, nil
}

func upstreamError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	// Prefer the decoded error body when the upstream sent one.
	var decoded struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	body := string(raw)
	if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Error.Message != "" {
		body = decoded.Error.Message
	}
	return &UpstreamError{StatusCode: resp.StatusCode, Body: body}
}

// Complete issues a single buffered chat-completion request and returns
// the first choice's message content. No retries: a failed attempt
// surfaces immediately.
func (c *Client) Complete(ctx context.Context, model, systemPrompt, userMessage string, params Params) (string, error) {
	req, err := c.newRequest(ctx, model, systemPrompt, userMessage, params, false)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", upstreamError(resp)
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode chat completion response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("chat completion response contained no choices")
	}
	return result.Choices[0].Message.Content, nil
}
