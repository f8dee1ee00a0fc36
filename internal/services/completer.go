package services

import (
	"context"
	"errors"

	"pastelchat/internal/models"
)

var ErrNoChoices = errors.New("upstream returned no choices")

// CompletionRequest is a provider-neutral chat completion call.
type CompletionRequest struct {
	Model       string
	Messages    []models.ChatMessage
	MaxTokens   int
	Temperature float32
}

// Completer sends one completion request to an upstream language model and
// returns the text of the first choice. Implementations must be safe for
// concurrent use.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Close() error
}
