package services

import (
	"context"
	"time"

	"github.com/PullRequestInc/go-gpt3"

	"pastelchat/internal/models"
)

// OpenAICompleter talks to the OpenAI chat completions API, or to any
// compatible endpoint when a base URL is configured.
type OpenAICompleter struct {
	client gpt3.Client
}

func NewOpenAICompleter(apiKey, baseURL string, timeout time.Duration) *OpenAICompleter {
	// The HTTP timeout is a backstop; ChatService enforces the real deadline
	// through the request context so it can report it precisely.
	opts := []gpt3.ClientOption{gpt3.WithTimeout(timeout + 5*time.Second)}
	if baseURL != "" {
		opts = append(opts, gpt3.WithBaseURL(baseURL))
	}
	return &OpenAICompleter{client: gpt3.NewClient(apiKey, opts...)}
}

func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	temperature := req.Temperature
	resp, err := c.client.ChatCompletion(ctx, gpt3.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    toOpenAIMessages(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAICompleter) Close() error {
	return nil
}

func toOpenAIMessages(input []models.ChatMessage) []gpt3.ChatCompletionRequestMessage {
	output := make([]gpt3.ChatCompletionRequestMessage, 0, len(input))
	for _, m := range input {
		output = append(output, gpt3.ChatCompletionRequestMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return output
}
