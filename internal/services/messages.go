package services

import (
	"bytes"
	"encoding/json"
	"errors"

	"pastelchat/internal/models"
)

var (
	ErrInvalidBody     = errors.New("invalid request body")
	ErrInvalidMessages = errors.New("invalid messages")
)

// DecodeChatRequest parses a chat request body and returns the conversation
// entries that survive validation, in their original order.
//
// A missing "messages" field is an empty conversation. A "messages" value that
// is not an array fails with ErrInvalidMessages. Individual entries that are
// not objects with a string role of "user" or "assistant" and a string
// content are dropped rather than failing the request.
func DecodeChatRequest(body []byte) ([]models.ChatMessage, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil || envelope == nil {
		return nil, ErrInvalidBody
	}

	raw, ok := envelope["messages"]
	if !ok {
		return []models.ChatMessage{}, nil
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrInvalidMessages
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, ErrInvalidMessages
	}

	messages := make([]models.ChatMessage, 0, len(entries))
	for _, entry := range entries {
		if msg, ok := models.DecodeMessage(entry); ok {
			messages = append(messages, msg)
		}
	}
	return messages, nil
}

// BuildUpstream prepends the system instruction to the conversation. The
// input is filtered again so callers that did not go through
// DecodeChatRequest still produce a well-formed upstream request.
func BuildUpstream(systemPrompt string, history []models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(history)+1)
	out = append(out, models.ChatMessage{Role: models.RoleSystem, Content: systemPrompt})
	for _, m := range history {
		if m.Role != models.RoleUser && m.Role != models.RoleAssistant {
			continue
		}
		out = append(out, m)
	}
	return out
}
