package client

import (
	"context"
	"strings"

	"pastelchat/internal/models"
	"pastelchat/internal/repository"
)

// Conversation runs chat turns against a Transport and persists history in a
// StateStore. It does not serialize concurrent SendMessage calls; callers that
// send from several goroutines may see replies stored out of order.
type Conversation struct {
	store     repository.StateStore
	transport Transport
	render    func([]models.ChatMessage)
}

// NewConversation wires a store and transport. render is called with the
// visible history after every change and may be nil.
func NewConversation(store repository.StateStore, transport Transport, render func([]models.ChatMessage)) *Conversation {
	if render == nil {
		render = func([]models.ChatMessage) {}
	}
	return &Conversation{store: store, transport: transport, render: render}
}

// History returns the persisted conversation.
func (c *Conversation) History(ctx context.Context) []models.ChatMessage {
	return LoadHistory(ctx, c.store)
}

// SendMessage runs one turn. Blank input is ignored and reports sent == false.
// Transport failures become an "Error: ..." assistant message rather than an
// error return; the returned error is only for storage failures.
func (c *Conversation) SendMessage(ctx context.Context, input string) (sent bool, err error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return false, nil
	}

	history := LoadHistory(ctx, c.store)
	history = append(history, models.ChatMessage{Role: models.RoleUser, Content: text})
	if err := SaveHistory(ctx, c.store, history); err != nil {
		return true, err
	}
	c.render(history)

	// The placeholder is shown but never persisted or sent.
	pending := make([]models.ChatMessage, len(history), len(history)+1)
	copy(pending, history)
	pending = append(pending, models.ChatMessage{Role: models.RoleAssistant, Content: Placeholder})
	c.render(pending)

	reply, sendErr := c.transport.Send(ctx, history)
	if sendErr != nil {
		reply = "Error: " + sendErr.Error()
	}
	history = append(history, models.ChatMessage{Role: models.RoleAssistant, Content: reply})

	if err := SaveHistory(ctx, c.store, history); err != nil {
		return true, err
	}
	c.render(history)
	return true, nil
}
