package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/barekit/cinerag/pkg/llm"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrNoChoices is returned when a completion carries no choices.
var ErrNoChoices = errors.New("completion returned no choices")

type Provider struct {
	client *openai.Client
	model  string
}

func New(opts ...option.RequestOption) *Provider {
	client := openai.NewClient(opts...)
	return &Provider{
		client: &client,
		model:  openai.ChatModelGPT4oMini,
	}
}

// SetModel sets the model to use.
func (p *Provider) SetModel(model string) {
	if model != "" {
		p.model = model
	}
}

// Chat runs a completion at temperature 0 and returns the first choice.
func (p *Provider) Chat(ctx context.Context, messages []llm.Message) (*llm.Message, error) {
	openaiMessages, err := p.buildMessages(messages)
	if err != nil {
		return nil, err
	}

	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    openaiMessages,
		Model:       p.model,
		Temperature: openai.Float(0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, ErrNoChoices
	}

	return &llm.Message{
		Role:    llm.RoleAssistant,
		Content: completion.Choices[0].Message.Content,
	}, nil
}

func (p *Provider) buildMessages(messages []llm.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	openaiMessages := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			openaiMessages[i] = openai.SystemMessage(msg.Content)
		case llm.RoleUser:
			openaiMessages[i] = openai.UserMessage(msg.Content)
		case llm.RoleAssistant:
			openaiMessages[i] = openai.AssistantMessage(msg.Content)
		default:
			return nil, fmt.Errorf("unknown role: %s", msg.Role)
		}
	}
	return openaiMessages, nil
}
