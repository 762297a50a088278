// Package main is the entry point for the API server.
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

	"github.com/clearway-ai/chat-gateway/internal/config"
	"github.com/clearway-ai/chat-gateway/internal/events"
	"github.com/clearway-ai/chat-gateway/internal/handler"
	"github.com/clearway-ai/chat-gateway/internal/llm"
	"github.com/clearway-ai/chat-gateway/internal/middleware"
	"github.com/clearway-ai/chat-gateway/internal/service"
	"github.com/clearway-ai/chat-gateway/internal/store"
	"github.com/clearway-ai/chat-gateway/pkg/logger"
	"github.com/clearway-ai/chat-gateway/pkg/tracing"
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

	log.Infow("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "chat-gateway", cfg.TracingEndpoint)
		if err != nil {
			log.Warnw("failed to initialize tracing", "error", err)
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open the persistent store; migrations run here.
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		log.Errorw("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// Connect to NATS when event publishing is enabled
	var eventClient *events.Client
	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		eventClient, err = events.Connect(events.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Errorw("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer eventClient.Close()

		publisher = events.NewPublisher(eventClient)
		if err := publisher.EnsureStream(ctx); err != nil {
			log.Errorw("failed to ensure event stream", "error", err)
			os.Exit(1)
		}
	}

	// Initialize services
	sessionSvc := service.NewSessionService(st, publisher, log)
	if err := sessionSvc.Init(ctx); err != nil {
		log.Errorw("failed to hydrate state", "error", err)
		os.Exit(1)
	}
	chatSvc := service.NewChatService(sessionSvc, nil, llm.Provider(cfg.Provider), cfg.FallbackKey(), log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(st, eventClient)
	sessionHandler := handler.NewSessionHandler(sessionSvc, chatSvc, log)
	chatHandler := handler.NewChatHandler(chatSvc, log)
	generateHandler := handler.NewGenerateHandler(chatSvc, log)
	analyzeHandler := handler.NewAnalyzeHandler(chatSvc, log)
	titleHandler := handler.NewTitleHandler(chatSvc, log)
	settingsHandler := handler.NewSettingsHandler(sessionSvc, log)
	credentialHandler := handler.NewCredentialHandler(sessionSvc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", middleware.APIKeyHeader, "X-Image-Size", "X-Image-Quality", "X-Replicate-Key"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.JWTSecret != "" {
			r.Use(middleware.Auth(cfg.JWTSecret))
		}
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Use(middleware.ProviderKey)

		// Sessions
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)
			r.Get("/", sessionHandler.List)
			r.Delete("/", sessionHandler.DeleteAll)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Put("/", sessionHandler.Update)
				r.Delete("/", sessionHandler.Delete)
				r.Post("/activate", sessionHandler.Activate)
				r.Get("/messages", sessionHandler.Messages)
			})
		})

		// Completions
		r.Post("/chat", chatHandler.Send)
		r.Put("/chat/{messageID}", chatHandler.Edit)

		// Image generation and analysis
		r.Post("/images", generateHandler.Image)
		r.Post("/images/replicate", generateHandler.ReplicateImage)
		r.Post("/images/analyze", analyzeHandler.Image)

		// Document analysis
		r.Post("/files", analyzeHandler.Document)
		r.Post("/files/pdf", analyzeHandler.PDF)

		// Title generation
		r.Post("/titles", titleHandler.Generate)

		// Settings
		r.Get("/settings", settingsHandler.Get)
		r.Patch("/settings", settingsHandler.Patch)

		// Stored provider credential
		r.Get("/credentials", credentialHandler.Status)
		r.Put("/credentials", credentialHandler.Put)
		r.Delete("/credentials", credentialHandler.Delete)
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
		log.Infow("server listening", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	chatSvc.CancelAll()

	log.Infow("server stopped")
}
