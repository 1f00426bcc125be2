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
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/convergo/drafting-platform/internal/composer"
	"github.com/convergo/drafting-platform/internal/config"
	"github.com/convergo/drafting-platform/internal/events"
	"github.com/convergo/drafting-platform/internal/guardrail"
	"github.com/convergo/drafting-platform/internal/handler"
	"github.com/convergo/drafting-platform/internal/llm"
	"github.com/convergo/drafting-platform/internal/middleware"
	"github.com/convergo/drafting-platform/internal/service"
	"github.com/convergo/drafting-platform/internal/store"
	"github.com/convergo/drafting-platform/internal/transcript"
	"github.com/convergo/drafting-platform/internal/wp"
	"github.com/convergo/drafting-platform/pkg/logger"
	"github.com/convergo/drafting-platform/pkg/tracing"
)

func main() {
	godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "drafting-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open storage
	st, err := store.NewSQLiteStore(cfg.SQLitePath)
	if err != nil {
		log.Error("failed to open store", zap.Error(err))
		os.Exit(1)
	}
	defer st.Close()

	// Connect to NATS for lifecycle events, if configured
	var eventPublisher *events.Publisher
	if cfg.NATSURL != "" {
		eventPublisher, err = events.Connect(ctx, events.Config{
			URL:   cfg.NATSURL,
			Token: cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("failed to connect to NATS, lifecycle events disabled", zap.Error(err))
		} else {
			defer eventPublisher.Close()
		}
	}

	// Initialize LLM client
	var llmClient llm.Client
	switch {
	case cfg.DefaultLLM == string(llm.ProviderAnthropic) && cfg.AnthropicAPIKey != "":
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
		if err != nil {
			log.Warn("failed to create Anthropic client, generation features disabled", zap.Error(err))
		}
	case cfg.OpenAIAPIKey != "":
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
		if err != nil {
			log.Warn("failed to create OpenAI client, generation features disabled", zap.Error(err))
		}
	default:
		log.Warn("no generation API key configured, drafting disabled")
	}

	// OPENAI_MODEL only applies to the OpenAI backend; Anthropic uses the
	// client default.
	modelName := cfg.OpenAIModel
	if llmClient != nil && llmClient.Name() == string(llm.ProviderAnthropic) {
		modelName = ""
	}

	var draftComposer service.DraftComposer
	if llmClient != nil {
		draftComposer = composer.New(llmClient, modelName, cfg.OpenAITimeout, log)
	}

	var draftPublisher service.DraftPublisher
	if cfg.WPBaseURL != "" {
		draftPublisher = wp.NewClient(
			cfg.WPBaseURL, cfg.WPUsername, cfg.WPAppPassword,
			wp.DefaultRetryPolicy(cfg.WPTimeout), log)
	} else {
		log.Warn("WP_BASE_URL not configured, publishing disabled")
	}

	limits := guardrail.Limits{
		MessageMaxChars:    cfg.MessageMaxChars,
		SessionMaxMessages: cfg.SessionMaxMessages,
	}
	caps := transcript.Caps{
		MaxMessages: cfg.DraftMaxMessages,
		MaxChars:    cfg.DraftMaxChars,
	}

	// Initialize services
	conversationSvc := service.NewConversationService(st, log)
	messageSvc := service.NewMessageService(st, limits, llmClient, modelName, cfg.OpenAITimeout, log)
	sessionSvc := service.NewSessionService(st, draftComposer, draftPublisher, caps, eventPublisher, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(st, eventPublisher)
	sessionHandler := handler.NewSessionHandler(sessionSvc, log)
	messageHandler := handler.NewMessageHandler(messageSvc, conversationSvc, log)
	chatHandler := handler.NewChatHandler(messageSvc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
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
		r.Use(middleware.Auth(cfg.APIToken))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/start", sessionHandler.Start)
			r.Post("/end", sessionHandler.End)
		})

		r.Get("/messages", messageHandler.List)
		r.Post("/messages", messageHandler.Write)

		r.Post("/chat", chatHandler.Chat)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
