package news

import (
	"context"
	"log"
	"strings"

	"github.com/aidialog/ark-relay/internal/ark"
)

const (
	keywordModel       = "deepseek-r1-250120"
	keywordInstruction = "你是一个搜索关键词提取助手。从用户消息中提取3到5个适合新闻搜索的英文关键词" +
		"（中文专有名词请转写为英文），用逗号分隔输出，不要输出任何其他内容。"
)

// Completer is the slice of the upstream client the extractor needs.
type Completer interface {
	Complete(ctx context.Context, model, systemPrompt, userMessage string, params ark.Params) (string, error)
}

// Extractor reduces a free-form user message to a short search string
// via the LLM, with a naive text-stripping fallback.
type Extractor struct {
	completer Completer
}

func NewExtractor(completer Completer) *Extractor {
	return &Extractor{completer: completer}
}

// ExtractKeywords asks the model for a comma-joined keyword list. Any
// failure returns "" so the caller falls back to StripNewsWords; an
// empty result is never a hard error.
func (e *Extractor) ExtractKeywords(ctx context.Context, message string) string {
	params := ark.Params{
		MaxTokens:   60,
		Temperature: 0.3,
		TopP:        0.9,
	}

	keywords, err := e.completer.Complete(ctx, keywordModel, keywordInstruction, message, params)
	if err != nil {
		log.Printf("Keyword extraction failed, falling back to raw message: %v", err)
		return ""
	}
	return strings.TrimSpace(keywords)
}

// Generic news nouns carry no search signal and are stripped before the
// remainder is used verbatim as the query.
var genericNewsWords = []string{
	"新闻", "资讯", "消息", "头条", "报道", "最新", "今天", "今日",
	"news", "latest",
}

// StripNewsWords is the caller-invoked fallback when extraction yields
// nothing: remove generic news nouns and return the remainder.
func StripNewsWords(message string) string {
	out := message
	for _, w := range genericNewsWords {
		out = strings.ReplaceAll(out, w, "")
	}
	return strings.TrimSpace(out)
}
