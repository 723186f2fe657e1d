// Package push notifies the sibling realtime server which users should
// receive a news summary. The sibling owns actual socket delivery; this
// process only decides who and what.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type broadcastMessage struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type broadcastRequest struct {
	UserIDs []string         `json:"user_ids"`
	Message broadcastMessage `json:"message"`
}

// Broadcast posts the summary payload to the realtime server.
func (c *Client) Broadcast(ctx context.Context, userIDs []string, content string) error {
	payload := broadcastRequest{
		UserIDs: userIDs,
		Message: broadcastMessage{
			ID:        uuid.NewString(),
			Content:   content,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode broadcast payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/broadcast-news", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build broadcast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("broadcast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("realtime server error: status %d", resp.StatusCode)
	}
	return nil
}
