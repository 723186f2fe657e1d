package core

import (
	"context"
	"fmt"
	"log"

	"github.com/aidialog/ark-relay/internal/ark"
	"github.com/aidialog/ark-relay/internal/news"
)

const (
	summaryModel       = "deepseek-r1-250120"
	summaryInstruction = "你是一个新闻摘要助手。请将以下新闻资讯浓缩为5到7条要点，" +
		"每条一行，以 • 开头，语言简洁准确。"
)

var summaryParams = ark.Params{
	MaxTokens:   800,
	Temperature: 0.5,
	TopP:        0.9,
}

// SubscriberSource supplies the users to notify: subscribed AND
// connected at the moment the job fires.
type SubscriberSource interface {
	ActiveSubscribers() []string
}

// Broadcaster hands the summary to the external realtime transport,
// which owns actual socket delivery.
type Broadcaster interface {
	Broadcast(ctx context.Context, userIDs []string, content string) error
}

// SummaryService produces the periodic news summary and pushes it to
// active subscribers. It is the body of the recurring scheduler job.
type SummaryService struct {
	relay       *Relay
	aggregator  *news.Aggregator
	extractor   *news.Extractor
	subscribers SubscriberSource
	broadcaster Broadcaster
}

func NewSummaryService(relay *Relay, aggregator *news.Aggregator, extractor *news.Extractor, subscribers SubscriberSource, broadcaster Broadcaster) *SummaryService {
	return &SummaryService{
		relay:       relay,
		aggregator:  aggregator,
		extractor:   extractor,
		subscribers: subscribers,
		broadcaster: broadcaster,
	}
}

// Run generates and delivers one news summary. query overrides the
// keyword source when non-empty (admin trigger); otherwise the last
// observed chat message drives the search, falling back to generic top
// headlines. Every failure is absorbed into the returned status string:
// a recurring job must survive failures to fire again next period.
func (s *SummaryService) Run(ctx context.Context, query string) (summary string, status string) {
	digest := s.buildDigest(ctx, query)

	summary, err := s.relay.llm.Complete(ctx, summaryModel, summaryInstruction, digest, summaryParams)
	if err != nil {
		log.Printf("News summarization failed: %v", err)
		return "", fmt.Sprintf("摘要生成失败: %v", err)
	}

	userIDs := s.subscribers.ActiveSubscribers()
	if len(userIDs) == 0 {
		return summary, "没有活跃的订阅用户，跳过推送"
	}

	if err := s.broadcaster.Broadcast(ctx, userIDs, summary); err != nil {
		log.Printf("News summary broadcast failed: %v", err)
		return summary, fmt.Sprintf("推送失败: %v", err)
	}
	return summary, fmt.Sprintf("新闻摘要已推送给 %d 位用户", len(userIDs))
}

func (s *SummaryService) buildDigest(ctx context.Context, query string) string {
	if query == "" {
		query = s.relay.LastMessage()
	}
	if query == "" {
		return s.aggregator.TopHeadlines(ctx)
	}

	keywords := s.extractor.ExtractKeywords(ctx, query)
	if keywords == "" {
		keywords = news.StripNewsWords(query)
	}
	return s.aggregator.Search(ctx, keywords)
}
