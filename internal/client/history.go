// Package client is the conversation-owning side of the chat: it keeps the
// history in a key-value store, renders it and runs one request/response
// cycle per user turn against the server.
package client

import (
	"context"
	"encoding/json"

	"pastelchat/internal/models"
	"pastelchat/internal/repository"
)

// StorageKey is the single key the conversation history is stored under.
const StorageKey = "cute_chat_history"

// Placeholder is the transient assistant content shown while a reply is pending.
const Placeholder = "…"

// LoadHistory returns the stored conversation. Missing, unreadable or
// corrupt data yields an empty history; entries that are not valid
// user/assistant messages are skipped.
func LoadHistory(ctx context.Context, store repository.StateStore) []models.ChatMessage {
	raw, ok, err := store.Get(ctx, StorageKey)
	if err != nil || !ok || raw == "" {
		return []models.ChatMessage{}
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return []models.ChatMessage{}
	}

	history := make([]models.ChatMessage, 0, len(entries))
	for _, e := range entries {
		if m, ok := models.DecodeMessage(e); ok {
			history = append(history, m)
		}
	}
	return history
}

// SaveHistory overwrites the stored conversation with history.
func SaveHistory(ctx context.Context, store repository.StateStore, history []models.ChatMessage) error {
	if history == nil {
		history = []models.ChatMessage{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return err
	}
	return store.Set(ctx, StorageKey, string(data))
}

// ClearHistory removes the stored conversation.
func ClearHistory(ctx context.Context, store repository.StateStore) error {
	return store.Delete(ctx, StorageKey)
}
