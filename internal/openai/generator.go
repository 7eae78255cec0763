package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/civicworks/countychat/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultChatModel is the model used for answer generation when none is configured.
const DefaultChatModel = "gpt-4o-mini"

// ChatAPI defines the interface for streaming chat completion
type ChatAPI interface {
	CreateChatCompletionStream(ctx context.Context, request openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error)
}

// ChatClient streams grounded answers from the OpenAI chat completion API.
type ChatClient struct {
	api       ChatAPI
	model     string
	maxTokens int
}

type ChatConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
}

func NewChatClient(cfg ChatConfig) *ChatClient {
	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &ChatClient{
		api:       openai.NewClient(cfg.APIKey),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Model returns the configured model name.
func (c *ChatClient) Model() string {
	return c.model
}

// StreamChat opens a token stream seeded with the system prompt, prior
// conversation turns in chronological order, and the current user message.
// Each text fragment is handed to onToken as it arrives; a non-nil error from
// onToken stops the stream.
func (c *ChatClient) StreamChat(ctx context.Context, systemPrompt string, history []*domain.Message, userMessage string, onToken func(string) error) error {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})

	for _, msg := range history {
		role := openai.ChatMessageRoleUser
		if msg.Role == domain.MessageRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to open completion stream: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("completion stream failed: %w", err)
		}

		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if err := onToken(delta); err != nil {
			return err
		}
	}
}
