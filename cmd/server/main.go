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

	"pastelchat/internal/config"
	"pastelchat/internal/handlers"
	"pastelchat/internal/middleware"
	"pastelchat/internal/router"
	"pastelchat/internal/services"
	"pastelchat/internal/websocket"
)

func main() {
	log.Println("🚀 Starting Pastel Chat...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Printf("✓ Environment variables loaded (provider %s, model %s)", cfg.Provider, cfg.Model)

	// ──── Step 2: Initialize Completion Client ────
	completer, err := newCompleter(cfg)
	if err != nil {
		log.Fatalf("✗ Completion client initialization failed: %v", err)
	}
	defer completer.Close()
	log.Println("✓ Completion client initialized")

	// ──── Step 3: Initialize Services ────
	trimmer, err := services.NewHistoryTrimmer(cfg.MaxHistoryTokens)
	if err != nil {
		log.Fatalf("✗ Tokenizer initialization failed: %v", err)
	}
	if trimmer != nil {
		log.Printf("✓ History trimming enabled (%d tokens)", cfg.MaxHistoryTokens)
	}

	chatService := services.NewChatService(
		completer,
		trimmer,
		cfg.Model,
		cfg.SystemPrompt,
		cfg.UpstreamTimeout,
		cfg.ConcurrentUpstream,
	)

	sessions := middleware.NewSessions(cfg.SessionSecret, cfg.Env == "production")
	if sessions != nil {
		log.Println("✓ Session cookies enabled")
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
		defer rateLimiter.Stop()
	}

	// ──── Step 4: Initialize Handlers ────
	pageHandler := handlers.NewPageHandler(cfg.Model, sessions)
	chatHandler := handlers.NewChatHandler(chatService, cfg.MaxBodyBytes)
	wsHub := websocket.NewHub(chatService, cfg.AllowedOrigin, cfg.MaxBodyBytes)
	if rateLimiter != nil {
		wsHub.LimitFrames(rateLimiter)
	}

	// ──── Step 5: Start HTTP Server ────
	r := router.New(
		pageHandler,
		chatHandler,
		wsHub,
		sessions,
		rateLimiter,
		cfg.AllowedOrigin,
		cfg.TrustProxy,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	idle := make(chan struct{})
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		wsHub.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
		close(idle)
	}()

	log.Printf("✓ Pastel Chat ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/chat", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/chat/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	<-idle
}

func newCompleter(cfg *config.Config) (services.Completer, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return services.NewGeminiCompleter(context.Background(), cfg.APIKey)
	default:
		return services.NewOpenAICompleter(cfg.APIKey, cfg.OpenAIBaseURL, cfg.UpstreamTimeout), nil
	}
}
