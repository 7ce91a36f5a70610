package llm

import (
	"context"
	"errors"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

var _ contractx.ChatModel = (*OpenAIChat)(nil)

// OpenAIChat calls any OpenAI-compatible chat-completions endpoint.
type OpenAIChat struct {
	client *openaisdk.Client
	model  string
}

func NewOpenAIChat(client *openaisdk.Client, model string) *OpenAIChat {
	return &OpenAIChat{client: client, model: model}
}

func (c *OpenAIChat) Name() string {
	return c.model
}

func (c *OpenAIChat) Chat(ctx context.Context, messages []contractx.ChatMessage, opts contractx.ChatOptions) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client is nil")
	}

	return traced(ctx, "openai", c.model, messages, func(ctx context.Context) (string, error) {
		params := openaisdk.ChatCompletionNewParams{
			Model:    c.model,
			Messages: toOpenAIMessages(messages),
		}
		if opts.Temperature >= 0 {
			params.Temperature = openaisdk.Float(opts.Temperature)
		}
		if opts.MaxTokens > 0 {
			params.MaxCompletionTokens = openaisdk.Int(int64(opts.MaxTokens))
		}

		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("no choices returned")
		}
		return resp.Choices[0].Message.Content, nil
	})
}

func toOpenAIMessages(messages []contractx.ChatMessage) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case contractx.RoleSystem:
			out = append(out, openaisdk.SystemMessage(m.Content))
		case contractx.RoleAssistant:
			out = append(out, openaisdk.AssistantMessage(m.Content))
		default:
			out = append(out, openaisdk.UserMessage(m.Content))
		}
	}
	return out
}
