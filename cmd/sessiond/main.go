// Package main is the entry point for the chat session service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chatframe/sessiond/internal/backend"
	"github.com/chatframe/sessiond/internal/config"
	"github.com/chatframe/sessiond/internal/events"
	"github.com/chatframe/sessiond/internal/handler"
	"github.com/chatframe/sessiond/internal/middleware"
	"github.com/chatframe/sessiond/internal/persist"
	"github.com/chatframe/sessiond/internal/store"
	"github.com/chatframe/sessiond/pkg/logger"
	"github.com/chatframe/sessiond/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting session service")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "sessiond", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Initialize persistence
	persistStore, err := newPersistStore(cfg)
	if err != nil {
		log.Error("failed to create persistence store", zap.Error(err))
		os.Exit(1)
	}
	defer persistStore.Close()

	// Initialize chat backend client
	backendClient, err := backend.NewClient(backend.Kind(cfg.BackendKind), backend.Config{
		WebhookURL:     cfg.WebhookURL,
		WebhookTimeout: cfg.WebhookTimeout,
		APIKey:         backendAPIKey(cfg),
		Model:          cfg.BackendModel,
	})
	if err != nil {
		log.Error("failed to create backend client", zap.Error(err))
		os.Exit(1)
	}
	log.Info("chat backend ready", zap.String("backend", backendClient.Name()))

	// Initialize event fan-out
	hub := events.NewHub()
	notifier := events.Notifier(hub)
	var natsPub *events.NATSPublisher
	if cfg.NATSURL != "" {
		natsPub, err = events.ConnectNATS(events.NATSConfig{
			URL:   cfg.NATSURL,
			Token: cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsPub.Close()
		notifier = events.Multi(hub, natsPub)
	}

	// Initialize session store
	sessionStore := store.New(backendClient, persistStore, notifier, log, store.Options{
		InitialMessages:       cfg.InitialMessages,
		ResumePreviousSession: cfg.ResumePreviousSession,
	})

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(persistStore, natsPub)
	sessionHandler := handler.NewSessionHandler(sessionStore, log)
	conversationHandler := handler.NewConversationHandler(sessionStore, log)
	messageHandler := handler.NewMessageHandler(sessionStore, log)
	eventHandler := handler.NewEventHandler(hub, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		// Sessions
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Start)
			r.Post("/resume", sessionHandler.Resume)
			r.Post("/{id}/switch", sessionHandler.Switch)
			r.Get("/{id}/messages", sessionHandler.Messages)
		})

		// Conversations
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)
			r.Post("/{id}/open", conversationHandler.Open)
		})

		// Messages
		r.Post("/messages", messageHandler.Send)

		// Store event stream
		r.Get("/events", eventHandler.Stream)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func newPersistStore(cfg *config.Config) (persist.Store, error) {
	switch persist.Driver(cfg.StorageDriver) {
	case persist.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return persist.NewStore(persist.DriverRedis,
			persist.WithRedisClient(client),
			persist.WithRedisTTL(cfg.RedisTTL),
		)
	case persist.DriverMemory:
		return persist.NewStore(persist.DriverMemory)
	default:
		return persist.NewStore(persist.DriverFile, persist.WithFilePath(cfg.StorageFile))
	}
}

func backendAPIKey(cfg *config.Config) string {
	switch backend.Kind(cfg.BackendKind) {
	case backend.KindAnthropic:
		return cfg.AnthropicAPIKey
	case backend.KindOpenAI:
		return cfg.OpenAIAPIKey
	default:
		return ""
	}
}
