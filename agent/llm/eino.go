package llm

import (
	"context"
	"errors"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

var _ contractx.ChatModel = (*EinoChat)(nil)

// EinoChat adapts an eino chat model (OpenRouter in production) to ChatModel.
type EinoChat struct {
	model einomodel.BaseChatModel
	name  string
}

func NewEinoChat(m einomodel.BaseChatModel, name string) *EinoChat {
	return &EinoChat{model: m, name: name}
}

func (c *EinoChat) Name() string {
	return c.name
}

func (c *EinoChat) Chat(ctx context.Context, messages []contractx.ChatMessage, opts contractx.ChatOptions) (string, error) {
	if c.model == nil {
		return "", errors.New("eino chat model is nil")
	}

	return traced(ctx, "openrouter", c.name, messages, func(ctx context.Context) (string, error) {
		var callOpts []einomodel.Option
		if opts.Temperature >= 0 {
			callOpts = append(callOpts, einomodel.WithTemperature(float32(opts.Temperature)))
		}
		if opts.MaxTokens > 0 {
			callOpts = append(callOpts, einomodel.WithMaxTokens(opts.MaxTokens))
		}

		msg, err := c.model.Generate(ctx, toSchemaMessages(messages), callOpts...)
		if err != nil {
			return "", err
		}
		if msg == nil {
			return "", fmt.Errorf("%w: empty message from %s", contractx.ErrModelInvoke, c.name)
		}
		return msg.Content, nil
	})
}

func toSchemaMessages(messages []contractx.ChatMessage) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case contractx.RoleSystem:
			out = append(out, schema.SystemMessage(m.Content))
		case contractx.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		default:
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}
