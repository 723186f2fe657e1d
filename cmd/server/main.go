package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aidialog/ark-relay/internal/api"
	"github.com/aidialog/ark-relay/internal/ark"
	"github.com/aidialog/ark-relay/internal/catalog"
	"github.com/aidialog/ark-relay/internal/config"
	"github.com/aidialog/ark-relay/internal/core"
	"github.com/aidialog/ark-relay/internal/news"
	"github.com/aidialog/ark-relay/internal/push"
	"github.com/aidialog/ark-relay/internal/sched"
	"github.com/aidialog/ark-relay/internal/store"
	"github.com/aidialog/ark-relay/internal/subs"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Model catalog
	modelCatalog, err := catalog.Load(config.AppConfig.ModelsConfig)
	if err != nil {
		log.Fatalf("Failed to load model catalog: %v", err)
	}

	// Initialize database store for chat history
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// Upstream and news clients
	arkClient := ark.NewClient(config.AppConfig.ArkAPIKey)
	newsClient := news.NewClient(config.AppConfig.NewsAPIKey)
	aggregator := news.NewAggregator(newsClient)
	extractor := news.NewExtractor(arkClient)

	// Core services
	relay := core.NewRelay(arkClient, extractor, aggregator)
	chatService := core.NewChatService(dbStore, relay)

	// Summary pipeline: scheduler <- registry, job -> push transport.
	pushClient := push.NewClient(config.AppConfig.RealtimeURL)

	var summaryService *core.SummaryService
	scheduler := sched.New(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		_, status := summaryService.Run(ctx, "")
		log.Printf("Scheduled news summary: %s", status)
	})
	defer scheduler.Stop()

	registry := subs.NewRegistry(scheduler)
	summaryService = core.NewSummaryService(relay, aggregator, extractor, registry, pushClient)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(modelCatalog, relay, chatService, aggregator, registry, summaryService)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: streamed chat responses hold the connection
		// for as long as the upstream keeps producing chunks.
		IdleTimeout: 120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give active connections time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
