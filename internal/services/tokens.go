package services

import (
	"fmt"
	"strings"

	"github.com/tiktoken-go/tokenizer"

	"pastelchat/internal/models"
)

// perMessageOverhead approximates the framing tokens the API adds to every message.
const perMessageOverhead = 8

// HistoryTrimmer drops the oldest conversation messages until the upstream
// request fits within a token budget. A nil trimmer or a zero budget leaves
// requests untouched.
type HistoryTrimmer struct {
	maxTokens int
	codec     tokenizer.Codec
}

func NewHistoryTrimmer(maxTokens int) (*HistoryTrimmer, error) {
	if maxTokens <= 0 {
		return nil, nil
	}
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	return &HistoryTrimmer{maxTokens: maxTokens, codec: codec}, nil
}

// Trim expects messages[0] to be the system instruction. The system message
// and the most recent message are always kept.
func (t *HistoryTrimmer) Trim(messages []models.ChatMessage) ([]models.ChatMessage, error) {
	if t == nil || len(messages) <= 2 {
		return messages, nil
	}

	head := messages[:1]
	rest := messages[1:]
	for len(rest) > 1 {
		n, err := t.Count(append(append([]models.ChatMessage{}, head...), rest...))
		if err != nil {
			return nil, err
		}
		if n <= t.maxTokens {
			break
		}
		rest = rest[1:]
	}

	out := make([]models.ChatMessage, 0, len(rest)+1)
	out = append(out, head...)
	return append(out, rest...), nil
}

// Count returns the approximate prompt size of messages in tokens.
func (t *HistoryTrimmer) Count(messages []models.ChatMessage) (int, error) {
	var text strings.Builder
	for _, m := range messages {
		text.WriteString(m.Content)
		text.WriteString("\n")
	}
	ids, _, err := t.codec.Encode(text.String())
	if err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}
	return len(ids) + len(messages)*perMessageOverhead, nil
}
