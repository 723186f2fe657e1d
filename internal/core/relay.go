package core

import (
	"context"
	"sync"

	"github.com/aidialog/ark-relay/internal/ark"
	"github.com/aidialog/ark-relay/internal/catalog"
	"github.com/aidialog/ark-relay/internal/news"
)

// MessageCache is a single-slot, last-write-wins cache of the most
// recent inbound chat message. It is advisory context for the summary
// job, not a correctness-critical value.
type MessageCache struct {
	mu   sync.Mutex
	last string
}

func (c *MessageCache) Set(message string) {
	c.mu.Lock()
	c.last = message
	c.mu.Unlock()
}

func (c *MessageCache) Get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Relay forwards chat messages to the upstream LLM, choosing the system
// prompt per message and recording the message for the summary job.
type Relay struct {
	llm        *ark.Client
	extractor  *news.Extractor
	aggregator *news.Aggregator
	lastMsg    *MessageCache
}

func NewRelay(llm *ark.Client, extractor *news.Extractor, aggregator *news.Aggregator) *Relay {
	return &Relay{
		llm:        llm,
		extractor:  extractor,
		aggregator: aggregator,
		lastMsg:    &MessageCache{},
	}
}

// LastMessage exposes the cache to the summary job.
func (r *Relay) LastMessage() string {
	return r.lastMsg.Get()
}

func profileParams(p catalog.Profile) ark.Params {
	return ark.Params{
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		TopP:        p.TopP,
	}
}

// Complete runs a buffered chat exchange for the given model profile.
func (r *Relay) Complete(ctx context.Context, profile catalog.Profile, message string) (string, error) {
	r.lastMsg.Set(message)
	systemPrompt := r.SelectSystemPrompt(ctx, message)
	return r.llm.Complete(ctx, profile.ID, systemPrompt, message, profileParams(profile))
}

// StreamComplete runs a streamed chat exchange. The caller owns the
// returned stream and must close it.
func (r *Relay) StreamComplete(ctx context.Context, profile catalog.Profile, message string) (*ark.Stream, error) {
	r.lastMsg.Set(message)
	systemPrompt := r.SelectSystemPrompt(ctx, message)
	return r.llm.StreamComplete(ctx, profile.ID, systemPrompt, message, profileParams(profile))
}
