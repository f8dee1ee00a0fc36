package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"pastelchat/internal/middleware"
	"pastelchat/internal/services"
)

type echoReplier struct{}

// ReplyToBody validates like the real service and echoes the last message.
func (echoReplier) ReplyToBody(ctx context.Context, body []byte) (string, error) {
	history, err := services.DecodeChatRequest(body)
	if err != nil {
		return "", err
	}
	if len(history) == 0 {
		return "", nil
	}
	return "echo: " + history[len(history)-1].Content, nil
}

type countingReplier struct {
	calls atomic.Int32
}

func (c *countingReplier) ReplyToBody(ctx context.Context, body []byte) (string, error) {
	c.calls.Add(1)
	return "accepted", nil
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

func TestHub_RepliesInOrder(t *testing.T) {
	hub := NewHub(echoReplier{}, "", 1<<20)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn := dial(t, srv, nil)
	defer conn.Close()

	bodies := []string{
		`{"messages":[{"role":"user","content":"one"}]}`,
		`{"messages":"not-a-list"}`,
		`{"messages":[{"role":"user","content":"two"}]}`,
	}
	for _, b := range bodies {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(b)); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	expected := []map[string]string{
		{"reply": "echo: one"},
		{"error": "invalid messages"},
		{"reply": "echo: two"},
	}
	for i, want := range expected {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got map[string]string
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("frame %d: read failed: %v", i, err)
		}
		for k, v := range want {
			if got[k] != v {
				t.Errorf("frame %d: expected %s=%q, got %+v", i, k, v, got)
			}
		}
	}
}

func TestHub_TracksConnections(t *testing.T) {
	hub := NewHub(echoReplier{}, "", 1<<20)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn := dial(t, srv, nil)

	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Count() != 1 {
		t.Fatalf("expected 1 tracked connection, got %d", hub.Count())
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Count() != 0 {
		t.Fatalf("expected connection to be released, got %d", hub.Count())
	}
}

func TestHub_CheckOrigin(t *testing.T) {
	hub := NewHub(echoReplier{}, "https://chat.example.com", 1<<20)

	tests := []struct {
		name   string
		host   string
		origin string
		want   bool
	}{
		{"no origin", "localhost:7860", "", true},
		{"same host", "localhost:7860", "http://localhost:7860", true},
		{"configured origin", "api.example.com", "https://chat.example.com", true},
		{"foreign origin", "localhost:7860", "https://evil.example", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/chat/ws", nil)
			req.Host = tc.host
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if got := hub.checkOrigin(req); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestHub_RejectsOversizedFrame(t *testing.T) {
	replier := &countingReplier{}
	hub := NewHub(replier, "", 64)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn := dial(t, srv, nil)
	defer conn.Close()

	body := `{"messages":[{"role":"user","content":"` + strings.Repeat("x", 200) + `"}]}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(body)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseMessageTooBig) {
		t.Fatalf("expected close %d, got %v", websocket.CloseMessageTooBig, err)
	}
	if n := replier.calls.Load(); n != 0 {
		t.Errorf("oversized frame must not reach the chat service, got %d calls", n)
	}
}

func TestHub_AcceptsFrameWithinLimit(t *testing.T) {
	replier := &countingReplier{}
	hub := NewHub(replier, "", 64)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn := dial(t, srv, nil)
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"messages":[]}`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got map[string]string
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got["reply"] != "accepted" {
		t.Errorf("unexpected frame %+v", got)
	}
}

func TestHub_RateLimitsFrames(t *testing.T) {
	limiter := middleware.NewRateLimiter(2, time.Minute)
	defer limiter.Stop()

	replier := &countingReplier{}
	hub := NewHub(replier, "", 1<<20)
	hub.LimitFrames(limiter)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn := dial(t, srv, nil)
	defer conn.Close()

	var got []map[string]string
	for i := 0; i < 3; i++ {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"messages":[]}`)); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var frame map[string]string
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read failed: %v", err)
		}
		got = append(got, frame)
	}

	if got[0]["reply"] != "accepted" || got[1]["reply"] != "accepted" {
		t.Errorf("expected first two frames answered, got %+v", got)
	}
	if got[2]["error"] != middleware.TooManyRequestsMessage {
		t.Errorf("expected third frame rate limited, got %+v", got[2])
	}
	if n := replier.calls.Load(); n != 2 {
		t.Errorf("expected 2 calls to the chat service, got %d", n)
	}
}
