package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

var _ contractx.ChatModel = (*AnthropicChat)(nil)

const defaultAnthropicMaxTokens = 1024

type AnthropicChat struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicChat(apiKey string, model string) *AnthropicChat {
	var opts []option.RequestOption
	if key := strings.TrimSpace(apiKey); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicChat{client: &client, model: model}
}

func (c *AnthropicChat) Name() string {
	return c.model
}

func (c *AnthropicChat) Chat(ctx context.Context, messages []contractx.ChatMessage, opts contractx.ChatOptions) (string, error) {
	if c.client == nil {
		return "", errors.New("anthropic client is nil")
	}

	return traced(ctx, "anthropic", c.model, messages, func(ctx context.Context) (string, error) {
		maxTokens := int64(opts.MaxTokens)
		if maxTokens <= 0 {
			maxTokens = defaultAnthropicMaxTokens
		}

		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(c.model),
			MaxTokens: maxTokens,
		}
		if opts.Temperature >= 0 {
			params.Temperature = anthropic.Float(opts.Temperature)
		}

		for _, m := range messages {
			switch m.Role {
			case contractx.RoleSystem:
				params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
			case contractx.RoleAssistant:
				params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			default:
				params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
			}
		}

		resp, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return "", err
		}

		var sb strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				sb.WriteString(block.AsText().Text)
			}
		}
		return sb.String(), nil
	})
}
