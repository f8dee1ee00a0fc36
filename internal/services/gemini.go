package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"pastelchat/internal/models"
)

var (
	errEmptyConversation = errors.New("gemini: conversation has no user or assistant messages")
	errLastTurnNotUser   = errors.New("gemini: conversation must end with a user message")
)

// GeminiCompleter maps the chat contract onto Gemini: the system message
// becomes the system instruction and "assistant" turns become "model" turns.
type GeminiCompleter struct {
	client *genai.Client
}

func NewGeminiCompleter(ctx context.Context, apiKey string) (*GeminiCompleter, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiCompleter{client: client}, nil
}

func (g *GeminiCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := g.client.GenerativeModel(req.Model)
	model.SetTemperature(req.Temperature)
	model.SetMaxOutputTokens(int32(req.MaxTokens))

	system, history, err := toGeminiConversation(req.Messages)
	if err != nil {
		return "", err
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: system}
	}

	cs := model.StartChat()
	cs.History = history[:len(history)-1]
	last := history[len(history)-1]

	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", ErrNoChoices
	}

	cand := resp.Candidates[0]
	if cand.FinishReason != genai.FinishReasonStop && cand.FinishReason != genai.FinishReasonMaxTokens {
		log.Printf("WARNING: Gemini stopped due to %s", cand.FinishReason)
	}
	return extractText(cand), nil
}

// toGeminiConversation splits messages into system instruction parts and chat
// turns. Gemini only answers a user turn, so the last turn must be one.
func toGeminiConversation(messages []models.ChatMessage) ([]genai.Part, []*genai.Content, error) {
	var system []genai.Part
	var history []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			system = append(system, genai.Text(m.Content))
		case models.RoleUser:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		case models.RoleAssistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}
	if len(history) == 0 {
		return nil, nil, errEmptyConversation
	}
	if history[len(history)-1].Role != "user" {
		return nil, nil, errLastTurnNotUser
	}
	return system, history, nil
}

func (g *GeminiCompleter) Close() error {
	return g.client.Close()
}

func extractText(cand *genai.Candidate) string {
	var text strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}
	return text.String()
}
