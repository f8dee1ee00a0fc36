package handlers

import (
	"context"
	"io"
	"log"
	"net/http"

	"pastelchat/internal/middleware"
	"pastelchat/internal/models"
	"pastelchat/internal/services"
)

type chatReplier interface {
	ReplyToBody(ctx context.Context, body []byte) (string, error)
}

type ChatHandler struct {
	chat         chatReplier
	maxBodyBytes int64
}

func NewChatHandler(chat chatReplier, maxBodyBytes int64) *ChatHandler {
	return &ChatHandler{
		chat:         chat,
		maxBodyBytes: maxBodyBytes,
	}
}

// Chat relays the posted conversation upstream and returns {"reply": ...}.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp(services.ErrInvalidBody.Error()))
		return
	}

	reply, err := h.chat.ReplyToBody(r.Context(), body)
	if err != nil {
		if services.IsValidationError(err) {
			writeJSON(w, http.StatusBadRequest, errorResp(err.Error()))
			return
		}
		log.Printf("chat: upstream call failed (request %s): %v", r.Header.Get(middleware.RequestIDHeader), err)
		writeJSON(w, http.StatusInternalServerError, errorResp(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{Reply: reply})
}
