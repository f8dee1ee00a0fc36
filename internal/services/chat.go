package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pastelchat/internal/models"
)

// Fixed sampling parameters for every upstream call.
const (
	MaxReplyTokens     = 512
	DefaultCallTimeout = 60 * time.Second
)

const Temperature float32 = 0.7

var ErrUpstreamTimeout = errors.New("upstream request timed out")

// ChatService turns a validated conversation into a single upstream call.
// It holds no conversation state; all fields are read-only after construction.
type ChatService struct {
	completer    Completer
	trimmer      *HistoryTrimmer
	model        string
	systemPrompt string
	timeout      time.Duration
	rateChan     chan struct{} // Token bucket
}

func NewChatService(
	completer Completer,
	trimmer *HistoryTrimmer,
	model string,
	systemPrompt string,
	timeout time.Duration,
	concurrentReqs int,
) *ChatService {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	if concurrentReqs < 1 {
		concurrentReqs = 1
	}

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &ChatService{
		completer:    completer,
		trimmer:      trimmer,
		model:        model,
		systemPrompt: systemPrompt,
		timeout:      timeout,
		rateChan:     rateChan,
	}
}

// Model is the configured upstream model identifier.
func (s *ChatService) Model() string {
	return s.model
}

// Reply prepends the system instruction to history, calls the upstream model
// once and returns the trimmed text of the first choice. Errors are never retried.
func (s *ChatService) Reply(ctx context.Context, history []models.ChatMessage) (string, error) {
	messages, err := s.trimmer.Trim(BuildUpstream(s.systemPrompt, history))
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.acquireRate(ctx); err != nil {
		return "", s.deadlineError(ctx, err)
	}
	defer s.releaseRate()

	text, err := s.completer.Complete(ctx, CompletionRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   MaxReplyTokens,
		Temperature: Temperature,
	})
	if err != nil {
		return "", s.deadlineError(ctx, err)
	}

	return strings.TrimSpace(text), nil
}

// acquireRate blocks until an upstream slot is available
func (s *ChatService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChatService) releaseRate() {
	s.rateChan <- struct{}{}
}

func (s *ChatService) deadlineError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrUpstreamTimeout, s.timeout)
	}
	return err
}

// ReplyToBody decodes a raw chat request body and replies to it. Validation
// failures are returned before any upstream call is made.
func (s *ChatService) ReplyToBody(ctx context.Context, body []byte) (string, error) {
	history, err := DecodeChatRequest(body)
	if err != nil {
		return "", err
	}
	return s.Reply(ctx, history)
}

// IsValidationError reports whether err was caused by the request itself
// rather than by the upstream call.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidBody) || errors.Is(err, ErrInvalidMessages)
}
