package websocket

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pastelchat/internal/middleware"
	"pastelchat/internal/models"
	"pastelchat/internal/services"
)

const writeWait = 10 * time.Second

type chatReplier interface {
	ReplyToBody(ctx context.Context, body []byte) (string, error)
}

type frameLimiter interface {
	Allow(ip string) bool
}

// Hub serves the chat contract over WebSocket. Every text frame is a chat
// request body and gets exactly one reply frame; frames on one connection
// are answered in the order they arrive. Frames larger than maxBodyBytes
// close the connection with CloseMessageTooBig.
type Hub struct {
	mu            sync.RWMutex
	connections   map[uuid.UUID]*websocket.Conn
	chat          chatReplier
	upgrader      websocket.Upgrader
	allowedOrigin string
	maxBodyBytes  int64
	limiter       frameLimiter
}

func NewHub(chat chatReplier, allowedOrigin string, maxBodyBytes int64) *Hub {
	h := &Hub{
		connections:   make(map[uuid.UUID]*websocket.Conn),
		chat:          chat,
		allowedOrigin: allowedOrigin,
		maxBodyBytes:  maxBodyBytes,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// LimitFrames charges every incoming frame against the client's rate limit,
// not only the upgrade request. Must be called before serving.
func (h *Hub) LimitFrames(l frameLimiter) {
	h.limiter = l
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	if h.maxBodyBytes > 0 {
		conn.SetReadLimit(h.maxBodyBytes)
	}

	id := uuid.New()
	ip := middleware.ClientIP(r)
	h.registerConnection(id, conn)

	go func() {
		defer h.unregisterConnection(id, conn)
		h.serve(r.Context(), conn, ip)
	}()
}

func (h *Hub) serve(ctx context.Context, conn *websocket.Conn, ip string) {
	// The request context ends when the handler returns; keep only its values.
	ctx = context.WithoutCancel(ctx)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				log.Printf("ws: frame over %d bytes from %s, closing", h.maxBodyBytes, ip)
			}
			return
		}

		resp := h.respond(ctx, ip, data)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func (h *Hub) respond(ctx context.Context, ip string, data []byte) interface{} {
	if h.limiter != nil && !h.limiter.Allow(ip) {
		return models.ErrorResponse{Error: middleware.TooManyRequestsMessage}
	}

	reply, err := h.chat.ReplyToBody(ctx, data)
	if err != nil {
		if !services.IsValidationError(err) {
			log.Printf("ws: upstream call failed: %v", err)
		}
		return models.ErrorResponse{Error: err.Error()}
	}
	return models.ChatResponse{Reply: reply}
}

func (h *Hub) registerConnection(id uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[id] = conn
	log.Printf("WebSocket connected: %s (total: %d)", id, len(h.connections))
}

func (h *Hub) unregisterConnection(id uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()
	delete(h.connections, id)

	log.Printf("WebSocket disconnected: %s", id)
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Close sends a close frame to every open connection. http.Server.Shutdown
// does not track hijacked connections, so the server calls this on exit.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, conn := range h.connections {
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	}
}

// checkOrigin accepts same-host pages, the configured CORS origin, and
// non-browser clients that send no Origin header.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if h.allowedOrigin != "" && origin == h.allowedOrigin {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}
