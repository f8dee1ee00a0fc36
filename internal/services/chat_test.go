package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"pastelchat/internal/models"
)

type stubCompleter struct {
	mu       sync.Mutex
	reply    string
	err      error
	block    bool
	requests []CompletionRequest
}

func (s *stubCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.reply, s.err
}

func (s *stubCompleter) Close() error { return nil }

func TestChatService_Reply(t *testing.T) {
	stub := &stubCompleter{reply: "  hello there!\n"}
	svc := NewChatService(stub, nil, "gpt-4o-mini", "be cute", time.Second, 2)

	reply, err := svc.Reply(context.Background(), []models.ChatMessage{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "hello there!" {
		t.Errorf("expected trimmed reply, got %q", reply)
	}

	if len(stub.requests) != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", len(stub.requests))
	}
	req := stub.requests[0]
	if req.Model != "gpt-4o-mini" {
		t.Errorf("expected model gpt-4o-mini, got %q", req.Model)
	}
	if req.MaxTokens != 512 {
		t.Errorf("expected max tokens 512, got %d", req.MaxTokens)
	}
	if req.Temperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %v", req.Temperature)
	}
	if len(req.Messages) != 2 ||
		req.Messages[0] != (models.ChatMessage{Role: "system", Content: "be cute"}) ||
		req.Messages[1] != (models.ChatMessage{Role: "user", Content: "hi"}) {
		t.Errorf("unexpected upstream messages: %+v", req.Messages)
	}
}

func TestChatService_UpstreamErrorNotRetried(t *testing.T) {
	stub := &stubCompleter{err: errors.New("Incorrect API key provided")}
	svc := NewChatService(stub, nil, "m", "sys", time.Second, 1)

	_, err := svc.Reply(context.Background(), nil)
	if err == nil || err.Error() != "Incorrect API key provided" {
		t.Fatalf("expected upstream error text to pass through, got %v", err)
	}
	if len(stub.requests) != 1 {
		t.Errorf("expected one attempt, got %d", len(stub.requests))
	}
}

func TestChatService_Timeout(t *testing.T) {
	stub := &stubCompleter{block: true}
	svc := NewChatService(stub, nil, "m", "sys", 20*time.Millisecond, 1)

	_, err := svc.Reply(context.Background(), []models.ChatMessage{{Role: "user", Content: "hi"}})
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Fatalf("expected ErrUpstreamTimeout, got %v", err)
	}
	if !strings.Contains(err.Error(), "20ms") {
		t.Errorf("expected timeout duration in message, got %q", err.Error())
	}
}

func TestChatService_ReleasesSlots(t *testing.T) {
	stub := &stubCompleter{reply: "ok"}
	svc := NewChatService(stub, nil, "m", "sys", time.Second, 1)

	for i := 0; i < 3; i++ {
		if _, err := svc.Reply(context.Background(), nil); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
	}
}

func TestChatService_CallerCancellation(t *testing.T) {
	stub := &stubCompleter{block: true}
	svc := NewChatService(stub, nil, "m", "sys", time.Minute, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Reply(ctx, nil)
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if errors.Is(err, ErrUpstreamTimeout) {
		t.Errorf("cancellation should not be reported as a timeout: %v", err)
	}
}
