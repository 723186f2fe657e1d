package news

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// NoNewsDigest is the placeholder returned when every provider lookup
// failed or came back empty. The digest is always text and never an
// error: a degraded answer beats a broken chat response.
const NoNewsDigest = "暂时没有获取到最新新闻资讯。"

const (
	nativeLanguage   = "zh"
	fallbackLanguage = "en"
	nativeCountry    = "cn"
	searchPageSize   = 10
	headlinePageSize = 10
)

// Aggregator turns keyword queries into flat news digests with
// cascading provider fallbacks.
type Aggregator struct {
	client *Client
}

func NewAggregator(client *Client) *Aggregator {
	return &Aggregator{client: client}
}

// strategy returns a digest, or "" to signal the next strategy in the
// chain should be tried. The final strategy always terminates the chain
// with non-empty text.
type strategy func(ctx context.Context) string

func (a *Aggregator) runCascade(ctx context.Context, strategies []strategy) string {
	for _, s := range strategies {
		if digest := s(ctx); digest != "" {
			return digest
		}
	}
	return NoNewsDigest
}

// Search builds a digest for the given keywords: native-language
// relevance search, then the fallback language, then top headlines.
// Empty keywords delegate straight to TopHeadlines.
func (a *Aggregator) Search(ctx context.Context, keywords string) string {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return a.TopHeadlines(ctx)
	}

	return a.runCascade(ctx, []strategy{
		func(ctx context.Context) string {
			return a.tryEverything(ctx, keywords, nativeLanguage)
		},
		func(ctx context.Context) string {
			return a.tryEverything(ctx, keywords, fallbackLanguage)
		},
		func(ctx context.Context) string {
			return a.TopHeadlines(ctx)
		},
	})
}

// TopHeadlines builds a generic digest: native-country headlines, then
// fallback-language headlines with no country filter, then the explicit
// failure string.
func (a *Aggregator) TopHeadlines(ctx context.Context) string {
	return a.runCascade(ctx, []strategy{
		func(ctx context.Context) string {
			return a.tryHeadlines(ctx, nativeCountry, "")
		},
		func(ctx context.Context) string {
			return a.tryHeadlines(ctx, "", fallbackLanguage)
		},
	})
}

func (a *Aggregator) tryEverything(ctx context.Context, keywords, language string) string {
	articles, err := a.client.searchEverything(ctx, keywords, language, searchPageSize)
	if err != nil {
		log.Printf("News search failed (q=%q, lang=%s): %v", keywords, language, err)
		return ""
	}
	return FormatDigest(articles)
}

func (a *Aggregator) tryHeadlines(ctx context.Context, country, language string) string {
	articles, err := a.client.topHeadlines(ctx, country, language, headlinePageSize)
	if err != nil {
		log.Printf("Top headlines failed (country=%q, lang=%q): %v", country, language, err)
		return ""
	}
	return FormatDigest(articles)
}

// FormatDigest flattens articles into newline-joined "- title: description"
// lines, dropping articles without a description. Returns "" when nothing
// qualifies so the caller can fall through to the next strategy.
func FormatDigest(articles []Article) string {
	var lines []string
	for _, a := range articles {
		if strings.TrimSpace(a.Description) == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", a.Title, a.Description))
	}
	return strings.Join(lines, "\n")
}
