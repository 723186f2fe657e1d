package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aidialog/ark-relay/internal/catalog"
	"github.com/aidialog/ark-relay/internal/store"
)

// ErrChatNotFound is surfaced by PostMessage for unknown chat ids.
var ErrChatNotFound = fmt.Errorf("chat not found")

// ChatService persists conversations alongside the relay. History is a
// convenience: relay failures on a stored message produce a canned
// assistant reply rather than losing the user's message.
type ChatService struct {
	dbStore *store.SQLiteStore
	relay   *Relay
}

func NewChatService(db *store.SQLiteStore, relay *Relay) *ChatService {
	return &ChatService{dbStore: db, relay: relay}
}

func modelMetadata(profile catalog.Profile) string {
	meta, err := json.Marshal(map[string]string{"id": profile.ID, "name": profile.Name})
	if err != nil {
		return ""
	}
	return string(meta)
}

func (s *ChatService) CreateChat(title string) (*store.Chat, error) {
	return s.dbStore.CreateChat(title)
}

func (s *ChatService) GetChats() ([]store.Chat, error) {
	return s.dbStore.GetChats()
}

func (s *ChatService) GetFeatureCards() ([]store.FeatureCard, error) {
	return s.dbStore.GetFeatureCards()
}

func (s *ChatService) GetChatDetails(chatID string) (*store.Chat, []store.Message, error) {
	chat, err := s.dbStore.GetChatByID(chatID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get chat: %w", err)
	}
	if chat == nil {
		return nil, nil, nil // Not found
	}

	messages, err := s.dbStore.GetMessagesByChatID(chatID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get messages for chat: %w", err)
	}
	return chat, messages, nil
}

// PostMessage stores the user message, generates the assistant reply via
// the relay and stores that too. Both sides of the exchange are returned
// so the client sees the stored records, ids and timestamps included.
func (s *ChatService) PostMessage(ctx context.Context, chatID string, profile catalog.Profile, userContent string) (*store.Message, *store.Message, error) {
	chat, err := s.dbStore.GetChatByID(chatID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to verify chat: %w", err)
	}
	if chat == nil {
		return nil, nil, ErrChatNotFound
	}

	userMsg := store.Message{
		ChatID:  chatID,
		Content: userContent,
		IsUser:  true,
	}
	if err := s.dbStore.CreateMessage(&userMsg); err != nil {
		return nil, nil, fmt.Errorf("failed to store user message: %w", err)
	}

	reply, err := s.relay.Complete(ctx, profile, userContent)
	if err != nil {
		log.Printf("Error generating reply for chat %s: %v", chatID, err)
		reply = "抱歉，生成回复时出现问题。请稍后再试。"
	}

	assistantMsg := store.Message{
		ChatID:   chatID,
		Content:  reply,
		IsUser:   false,
		Metadata: modelMetadata(profile),
	}
	if err := s.dbStore.CreateMessage(&assistantMsg); err != nil {
		return nil, nil, fmt.Errorf("failed to store assistant message: %w", err)
	}

	return &userMsg, &assistantMsg, nil
}
