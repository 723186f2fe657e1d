package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/aidialog/ark-relay/internal/news"
)

const genericAssistantPrompt = "你是一个友好的AI助手，可以提供有帮助、安全、准确的信息。"

// newsIntentKeywords trigger news-grounded prompting when any of them
// appears in the user message (case-insensitive).
var newsIntentKeywords = []string{
	"新闻", "资讯", "时事", "头条", "最新消息", "最近发生", "news",
}

// Topic markers are checked in order; the first match wins.
var (
	sportsMarkers        = []string{"体育", "赛事", "比赛", "sports"}
	techMarkers          = []string{"科技", "技术", "数码", "tech"}
	entertainmentMarkers = []string{"娱乐", "明星", "影视", "entertainment"}
)

const (
	sportsTemplate = "你是一位专业的体育新闻分析师。请结合以下最新体育资讯回答用户的问题，" +
		"分析要客观准确：\n\n%s"
	techTemplate = "你是一位资深的科技新闻评论员。请结合以下最新科技资讯回答用户的问题，" +
		"注意解释清楚技术背景：\n\n%s"
	entertainmentTemplate = "你是一位娱乐新闻编辑。请结合以下最新娱乐资讯回答用户的问题，" +
		"语气轻松活泼：\n\n%s"
	genericNewsTemplate = "你是一个新闻播报助手。请结合以下最新新闻资讯回答用户的问题，" +
		"信息要准确、简洁：\n\n%s"
)

func containsAny(message string, keywords []string) bool {
	lower := strings.ToLower(message)
	for _, k := range keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// SelectSystemPrompt decides the system prompt for a chat message. A
// message without news intent keeps the generic assistant prompt; a
// matched message gets a news-grounded instruction built from a fresh
// digest.
func (r *Relay) SelectSystemPrompt(ctx context.Context, message string) string {
	if !containsAny(message, newsIntentKeywords) {
		return genericAssistantPrompt
	}

	keywords := r.extractor.ExtractKeywords(ctx, message)
	if keywords == "" {
		keywords = news.StripNewsWords(message)
	}
	digest := r.aggregator.Search(ctx, keywords)

	template := genericNewsTemplate
	switch {
	case containsAny(message, sportsMarkers):
		template = sportsTemplate
	case containsAny(message, techMarkers):
		template = techTemplate
	case containsAny(message, entertainmentMarkers):
		template = entertainmentTemplate
	}
	return fmt.Sprintf(template, digest)
}
