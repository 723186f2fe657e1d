package core

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aidialog/ark-relay/internal/ark"
	"github.com/aidialog/ark-relay/internal/news"
)

// newsServer serves empty search results and one canned headline, so
// every search cascades down to top headlines.
func newsServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/top-headlines" {
			fmt.Fprint(w, `{"status":"ok","articles":[{"title":"头条新闻","description":"今日要闻"}]}`)
			return
		}
		fmt.Fprint(w, `{"status":"ok","articles":[]}`)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

// newTestRelay wires a relay whose LLM endpoint is unreachable, so
// keyword extraction always falls back to text stripping.
func newTestRelay(t *testing.T, newsURL string) *Relay {
	t.Helper()
	llm := ark.NewClientWithBaseURL("test-key", "http://127.0.0.1:1")
	aggregator := news.NewAggregator(news.NewClientWithBaseURL("test-key", newsURL))
	extractor := news.NewExtractor(llm)
	return NewRelay(llm, extractor, aggregator)
}

func TestNoNewsIntentKeepsGenericPrompt(t *testing.T) {
	srv, requests := newsServer(t)
	r := newTestRelay(t, srv.URL)

	prompt := r.SelectSystemPrompt(context.Background(), "给我讲个笑话")
	if prompt != genericAssistantPrompt {
		t.Errorf("prompt = %q, want the generic assistant prompt", prompt)
	}
	if *requests != 0 {
		t.Errorf("no news lookups expected without intent, got %d", *requests)
	}
}

func TestSportsIntentSelectsSportsTemplate(t *testing.T) {
	srv, _ := newsServer(t)
	r := newTestRelay(t, srv.URL)

	prompt := r.SelectSystemPrompt(context.Background(), "今天体育新闻")
	if !strings.Contains(prompt, "体育新闻分析师") {
		t.Errorf("expected the sports analyst template, got %q", prompt)
	}
	// Empty search results fall back to the top-headlines digest, which
	// is interpolated into the template.
	if !strings.Contains(prompt, "- 头条新闻: 今日要闻") {
		t.Errorf("expected headlines digest in prompt, got %q", prompt)
	}
}

func TestTopicSelectionFirstMatchOrder(t *testing.T) {
	srv, _ := newsServer(t)
	r := newTestRelay(t, srv.URL)

	tests := []struct {
		message string
		marker  string
	}{
		{"今天体育新闻", "体育新闻分析师"},
		{"最新科技资讯", "科技新闻评论员"},
		{"有什么娱乐新闻", "娱乐新闻编辑"},
		{"今天有什么新闻", "新闻播报助手"},
		// Sports wins over tech when both markers are present.
		{"体育科技新闻", "体育新闻分析师"},
	}
	for _, tt := range tests {
		prompt := r.SelectSystemPrompt(context.Background(), tt.message)
		if !strings.Contains(prompt, tt.marker) {
			t.Errorf("SelectSystemPrompt(%q): want template %q, got %q", tt.message, tt.marker, prompt)
		}
	}
}

func TestMessageCacheLastWriteWins(t *testing.T) {
	c := &MessageCache{}
	if got := c.Get(); got != "" {
		t.Errorf("empty cache returned %q", got)
	}
	c.Set("first")
	c.Set("second")
	if got := c.Get(); got != "second" {
		t.Errorf("cache = %q, want last write", got)
	}
}
