package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pastelchat/internal/models"
)

// Transport delivers the full history to the server and returns the reply text.
type Transport interface {
	Send(ctx context.Context, history []models.ChatMessage) (string, error)
	Close() error
}

// ServerError is a non-2xx response from the chat endpoint.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	msg := "Server error: " + http.StatusText(e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

var errMalformedResponse = errors.New("Malformed server response")

// primeSession loads the page once so that a server running with session
// cookies hands one out before the first API call. Failures are ignored; the
// API call reports them.
func primeSession(ctx context.Context, client *http.Client, pageURL string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func newHTTPClient(timeout time.Duration) *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{Timeout: timeout, Jar: jar}
}

type chatResult struct {
	Reply *string `json:"reply"`
	Error string  `json:"error"`
}

// HTTPTransport posts to /api/chat.
type HTTPTransport struct {
	mu       sync.Mutex
	pageURL  string
	endpoint string
	client   *http.Client
	primed   bool
}

func NewHTTPTransport(serverURL string, timeout time.Duration) *HTTPTransport {
	base := strings.TrimSuffix(serverURL, "/")
	return &HTTPTransport{
		pageURL:  base + "/",
		endpoint: base + "/api/chat",
		client:   newHTTPClient(timeout),
	}
}

func (t *HTTPTransport) Send(ctx context.Context, history []models.ChatMessage) (string, error) {
	t.mu.Lock()
	if !t.primed {
		primeSession(ctx, t.client, t.pageURL)
		t.primed = true
	}
	t.mu.Unlock()

	body, err := json.Marshal(models.ChatRequest{Messages: history})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result chatResult
	data, _ := io.ReadAll(resp.Body)
	decodeErr := json.Unmarshal(data, &result)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ServerError{Status: resp.StatusCode, Message: result.Error}
	}
	if decodeErr != nil || result.Reply == nil {
		return "", errMalformedResponse
	}
	return *result.Reply, nil
}

func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

// WSTransport keeps one WebSocket open to /api/chat/ws and exchanges one
// frame pair per turn.
type WSTransport struct {
	mu       sync.Mutex
	pageURL  string
	endpoint string
	timeout  time.Duration
	client   *http.Client
	conn     *websocket.Conn
}

func NewWSTransport(serverURL string, timeout time.Duration) (*WSTransport, error) {
	base := strings.TrimSuffix(serverURL, "/")
	u, err := url.Parse(base + "/api/chat/ws")
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return &WSTransport{
		pageURL:  base + "/",
		endpoint: u.String(),
		timeout:  timeout,
		client:   newHTTPClient(timeout),
	}, nil
}

func (t *WSTransport) Send(ctx context.Context, history []models.ChatMessage) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		primeSession(ctx, t.client, t.pageURL)
		dialer := *websocket.DefaultDialer
		dialer.Jar = t.client.Jar
		conn, _, err := dialer.DialContext(ctx, t.endpoint, nil)
		if err != nil {
			return "", err
		}
		t.conn = conn
	}

	deadline := time.Now().Add(t.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	t.conn.SetWriteDeadline(deadline)
	t.conn.SetReadDeadline(deadline)

	if err := t.conn.WriteJSON(models.ChatRequest{Messages: history}); err != nil {
		t.reset()
		return "", err
	}

	var result chatResult
	if err := t.conn.ReadJSON(&result); err != nil {
		t.reset()
		return "", err
	}
	if result.Reply == nil {
		if result.Error != "" {
			return "", errors.New(result.Error)
		}
		return "", errMalformedResponse
	}
	return *result.Reply, nil
}

// reset drops a connection whose frame exchange failed so the next turn redials.
func (t *WSTransport) reset() {
	t.conn.Close()
	t.conn = nil
}

func (t *WSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	err := t.conn.Close()
	t.conn = nil
	return err
}
