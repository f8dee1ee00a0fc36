package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"pastelchat/internal/handlers"
	"pastelchat/internal/middleware"
	"pastelchat/internal/websocket"
)

func New(
	pageHandler *handlers.PageHandler,
	chatHandler *handlers.ChatHandler,
	wsHub *websocket.Hub,
	sessions *middleware.Sessions,
	rateLimiter *middleware.RateLimiter,
	allowedOrigin string,
	trustProxy bool,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	// RealIP rewrites RemoteAddr from client-supplied headers, which would let
	// callers pick their own rate-limit bucket unless a proxy sets them.
	if trustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(allowedOrigin))

	// Health check
	r.Get("/health", handlers.Health)

	r.Get("/", pageHandler.Index)

	r.Route("/api", func(r chi.Router) {
		if rateLimiter != nil {
			r.Use(rateLimiter.Middleware)
		}
		r.Use(sessions.Middleware)

		r.Post("/chat", chatHandler.Chat)
		r.Get("/chat/ws", wsHub.HandleWebSocket)
	})

	return r
}
