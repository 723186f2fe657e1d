// Package news fetches articles from the NewsAPI service and flattens
// them into plain-text digests for prompt grounding.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://newsapi.org/v2"

// Article is one news item. Only articles with a non-empty description
// contribute to a digest.
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type apiResponse struct {
	Status   string    `json:"status"`
	Message  string    `json:"message"`
	Articles []Article `json:"articles"`
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// NewClientWithBaseURL is used by tests to point at a fake NewsAPI.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]Article, error) {
	u := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build news request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news request failed: %w", err)
	}
	defer resp.Body.Close()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode news response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || result.Status != "ok" {
		return nil, fmt.Errorf("news API error: status %d: %s", resp.StatusCode, result.Message)
	}
	return result.Articles, nil
}

// searchEverything queries /everything by keyword for one language,
// sorted by relevance.
func (c *Client) searchEverything(ctx context.Context, q, language string, pageSize int) ([]Article, error) {
	query := url.Values{}
	query.Set("q", q)
	query.Set("language", language)
	query.Set("sortBy", "relevancy")
	query.Set("pageSize", strconv.Itoa(pageSize))
	return c.get(ctx, "/everything", query)
}

// topHeadlines queries /top-headlines. country and language are each
// optional; NewsAPI rejects requests with neither, so callers always
// pass at least one.
func (c *Client) topHeadlines(ctx context.Context, country, language string, pageSize int) ([]Article, error) {
	query := url.Values{}
	if country != "" {
		query.Set("country", country)
	}
	if language != "" {
		query.Set("language", language)
	}
	query.Set("pageSize", strconv.Itoa(pageSize))
	return c.get(ctx, "/top-headlines", query)
}
