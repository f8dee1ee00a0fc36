package handlers

import (
	"html"
	"log"
	"net/http"
	"strings"

	"pastelchat/internal/middleware"
	"pastelchat/internal/web"
)

type PageHandler struct {
	page     []byte
	sessions *middleware.Sessions
}

// NewPageHandler renders the page once; the model name is fixed for the
// lifetime of the process.
func NewPageHandler(model string, sessions *middleware.Sessions) *PageHandler {
	page := strings.Replace(web.IndexHTML, web.ModelPlaceholder, html.EscapeString(model), 1)
	return &PageHandler{
		page:     []byte(page),
		sessions: sessions,
	}
}

func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Issue(w); err != nil {
		log.Printf("page: failed to issue session: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(h.page)
}
