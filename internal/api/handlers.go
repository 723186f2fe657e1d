package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aidialog/ark-relay/internal/ark"
	"github.com/aidialog/ark-relay/internal/catalog"
	"github.com/aidialog/ark-relay/internal/config"
	"github.com/aidialog/ark-relay/internal/core"
	"github.com/aidialog/ark-relay/internal/news"
	"github.com/aidialog/ark-relay/internal/store"
	"github.com/aidialog/ark-relay/internal/subs"
)

type APIHandler struct {
	catalog     *catalog.Catalog
	relay       *core.Relay
	chatService *core.ChatService
	aggregator  *news.Aggregator
	registry    *subs.Registry
	summary     *core.SummaryService
}

func NewAPIHandler(cat *catalog.Catalog, relay *core.Relay, cs *core.ChatService, agg *news.Aggregator, registry *subs.Registry, summary *core.SummaryService) *APIHandler {
	return &APIHandler{
		catalog:     cat,
		relay:       relay,
		chatService: cs,
		aggregator:  agg,
		registry:    registry,
		summary:     summary,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Models

type modelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *APIHandler) GetModelsHandler(w http.ResponseWriter, r *http.Request) {
	profiles := h.catalog.List()
	models := make([]modelInfo, 0, len(profiles))
	for _, p := range profiles {
		models = append(models, modelInfo{ID: p.ID, Name: p.Name, Description: p.Description})
	}
	writeJSON(w, http.StatusOK, models)
}

// Chat relay

type chatRequest struct {
	Message string `json:"message"`
	ModelID string `json:"model_id"`
	Stream  bool   `json:"stream"`
}

type chatModel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type chatResponse struct {
	Response string    `json:"response"`
	Model    chatModel `json:"model"`
}

// resolveChatRequest validates the request body against the catalog and
// returns the resolved profile.
func (h *APIHandler) resolveChatRequest(w http.ResponseWriter, req chatRequest) (catalog.Profile, bool) {
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "消息不能为空")
		return catalog.Profile{}, false
	}

	modelID := req.ModelID
	if modelID == "" {
		modelID = h.catalog.DefaultID()
	}
	profile, ok := h.catalog.Get(modelID)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("无效的模型ID: %s。请使用有效的模型ID。", modelID))
		return catalog.Profile{}, false
	}

	if config.AppConfig.ArkAPIKey == "" {
		writeError(w, http.StatusInternalServerError, "API密钥未设置。请设置ARK_API_KEY环境变量。")
		return catalog.Profile{}, false
	}
	return profile, true
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	profile, ok := h.resolveChatRequest(w, req)
	if !ok {
		return
	}

	if req.Stream {
		h.streamChat(w, r, profile, req.Message)
		return
	}

	reply, err := h.relay.Complete(r.Context(), profile, req.Message)
	if err != nil {
		log.Printf("Chat completion failed (model=%s): %v", profile.ID, err)
		writeError(w, http.StatusInternalServerError, upstreamErrorMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response: reply,
		Model:    chatModel{ID: profile.ID, Name: profile.Name},
	})
}

func upstreamErrorMessage(err error) string {
	var ue *ark.UpstreamError
	if errors.As(err, &ue) {
		return fmt.Sprintf("API请求失败: %s", ue.Body)
	}
	return fmt.Sprintf("API请求失败: %v", err)
}

type streamFrame struct {
	Content string    `json:"content"`
	Model   chatModel `json:"model"`
}

// streamChat re-frames the upstream event stream for the client. The
// stream is closed on every exit path: completion, client disconnect and
// upstream error.
func (h *APIHandler) streamChat(w http.ResponseWriter, r *http.Request, profile catalog.Profile, message string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported by connection")
		return
	}

	stream, err := h.relay.StreamComplete(r.Context(), profile, message)
	if err != nil {
		log.Printf("Chat stream failed to start (model=%s): %v", profile.ID, err)
		writeError(w, http.StatusInternalServerError, upstreamErrorMessage(err))
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	model := chatModel{ID: profile.ID, Name: profile.Name}
	for {
		chunk, err := stream.Recv()
		if err != nil {
			// Transport error mid-stream: the partial stream simply
			// ends, no trailing error frame is defined.
			log.Printf("Chat stream aborted (model=%s): %v", profile.ID, err)
			return
		}
		if chunk.Done {
			fmt.Fprint(w, "data: [DONE]\n\n")
			flusher.Flush()
			return
		}

		frame, err := json.Marshal(streamFrame{Content: chunk.Content, Model: model})
		if err != nil {
			log.Printf("Failed to encode stream frame: %v", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", frame); err != nil {
			// Client went away; stop at this yield attempt.
			return
		}
		flusher.Flush()
	}
}

// News

func (h *APIHandler) TestNewsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	digest := h.aggregator.Search(r.Context(), query)
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"news":   digest,
	})
}

// Subscription lifecycle

type clientRequest struct {
	UserID string `json:"user_id"`
}

func decodeClientRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return "", false
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id 不能为空")
		return "", false
	}
	return req.UserID, true
}

func (h *APIHandler) RegisterClientHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := decodeClientRequest(w, r)
	if !ok {
		return
	}
	h.registry.RegisterConnection(userID)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("客户端 %s 已注册", userID),
	})
}

func (h *APIHandler) UnregisterClientHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := decodeClientRequest(w, r)
	if !ok {
		return
	}
	h.registry.UnregisterConnection(userID)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("客户端 %s 已注销", userID),
	})
}

func (h *APIHandler) SubscribeNewsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := decodeClientRequest(w, r)
	if !ok {
		return
	}
	nextUpdate := h.registry.Subscribe(userID)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "success",
		"message":     "新闻订阅已开启",
		"next_update": nextUpdate.UTC().Format(time.RFC3339),
	})
}

func (h *APIHandler) UnsubscribeNewsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := decodeClientRequest(w, r)
	if !ok {
		return
	}
	if err := h.registry.Unsubscribe(userID); err != nil {
		if errors.Is(err, subs.ErrNotSubscribed) {
			writeError(w, http.StatusNotFound, "该用户没有新闻订阅")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "新闻订阅已取消",
	})
}

func (h *APIHandler) NewsStatusHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id 不能为空")
		return
	}

	status := h.registry.Status(userID)
	resp := map[string]any{
		"status":     "success",
		"subscribed": status.Subscribed,
	}
	if status.Subscribed {
		resp["next_update"] = status.NextUpdate.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Admin

// AdminAuthMiddleware gates the manual summary trigger behind the
// configured admin key.
func (h *APIHandler) AdminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if config.AppConfig.AdminAPIKey == "" || key != config.AppConfig.AdminAPIKey {
			writeError(w, http.StatusUnauthorized, "无效的管理密钥")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *APIHandler) TriggerNewsSummaryHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	summary, status := h.summary.Run(r.Context(), query)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": status,
		"summary": summary,
	})
}

// Feature cards

func (h *APIHandler) GetFeatureCardsHandler(w http.ResponseWriter, r *http.Request) {
	cards, err := h.chatService.GetFeatureCards()
	if err != nil {
		log.Printf("Error fetching feature cards: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get feature cards")
		return
	}
	if cards == nil {
		cards = []store.FeatureCard{}
	}
	writeJSON(w, http.StatusOK, cards)
}

// Chat history

type createChatRequest struct {
	Title string `json:"title"`
}

func (h *APIHandler) CreateChatHandler(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	chat, err := h.chatService.CreateChat(req.Title)
	if err != nil {
		log.Printf("Error creating chat: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create chat")
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

func (h *APIHandler) ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chatService.GetChats()
	if err != nil {
		log.Printf("Error listing chats: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list chats")
		return
	}
	if chats == nil {
		chats = []store.Chat{}
	}
	writeJSON(w, http.StatusOK, chats)
}

type chatDetailsResponse struct {
	*store.Chat
	Messages []store.Message `json:"messages"`
}

func (h *APIHandler) GetChatDetailsHandler(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	chat, messages, err := h.chatService.GetChatDetails(chatID)
	if err != nil {
		log.Printf("Error getting chat details for chat %s: %v", chatID, err)
		writeError(w, http.StatusInternalServerError, "Failed to get chat details")
		return
	}
	if chat == nil {
		writeError(w, http.StatusNotFound, "Chat not found")
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}
	writeJSON(w, http.StatusOK, chatDetailsResponse{Chat: chat, Messages: messages})
}

func (h *APIHandler) GetChatMessagesHandler(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	chat, messages, err := h.chatService.GetChatDetails(chatID)
	if err != nil {
		log.Printf("Error getting messages for chat %s: %v", chatID, err)
		writeError(w, http.StatusInternalServerError, "Failed to get messages")
		return
	}
	if chat == nil {
		writeError(w, http.StatusNotFound, "Chat not found")
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// messageExchange is the response to posting a chat message: the stored
// user message and the stored assistant reply.
type messageExchange struct {
	UserMessage *store.Message `json:"user_message"`
	AIMessage   *store.Message `json:"ai_message"`
}

func (h *APIHandler) PostChatMessageHandler(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	profile, ok := h.resolveChatRequest(w, req)
	if !ok {
		return
	}

	userMsg, aiMsg, err := h.chatService.PostMessage(r.Context(), chatID, profile, req.Message)
	if err != nil {
		if errors.Is(err, core.ErrChatNotFound) {
			writeError(w, http.StatusNotFound, "Chat not found")
			return
		}
		log.Printf("Error posting message to chat %s: %v", chatID, err)
		writeError(w, http.StatusInternalServerError, "Failed to post message")
		return
	}
	writeJSON(w, http.StatusCreated, messageExchange{UserMessage: userMsg, AIMessage: aiMsg})
}

// Health

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
