package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Get("/health", apiHandler.HealthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", apiHandler.HealthHandler)
		r.Get("/models", apiHandler.GetModelsHandler)
		r.Post("/chat", apiHandler.ChatHandler)
		r.Get("/test-news", apiHandler.TestNewsHandler)
		r.Get("/feature-cards", apiHandler.GetFeatureCardsHandler)

		// Subscription lifecycle
		r.Post("/register-client", apiHandler.RegisterClientHandler)
		r.Post("/unregister-client", apiHandler.UnregisterClientHandler)
		r.Post("/subscribe-news", apiHandler.SubscribeNewsHandler)
		r.Post("/unsubscribe-news", apiHandler.UnsubscribeNewsHandler)
		r.Get("/news-status", apiHandler.NewsStatusHandler)

		// Admin-only manual trigger
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.AdminAuthMiddleware)
			r.Post("/trigger-news-summary", apiHandler.TriggerNewsSummaryHandler)
		})

		// Chat history
		r.Post("/chats", apiHandler.CreateChatHandler)
		r.Get("/chats", apiHandler.ListChatsHandler)
		r.Get("/chats/{chatID}", apiHandler.GetChatDetailsHandler)
		r.Get("/chats/{chatID}/messages", apiHandler.GetChatMessagesHandler)
		r.Post("/chats/{chatID}/messages", apiHandler.PostChatMessageHandler)
	})

	return r
}
