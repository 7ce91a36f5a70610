package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	planx "github.com/tanpawarit/vizta/agent/plan"
	promptx "github.com/tanpawarit/vizta/agent/prompt"
)

// ModelClassifier asks a chat model for {intent, agents, reply}, trying the
// fallback model once when the primary fails.
type ModelClassifier struct {
	primary  contractx.ChatModel
	fallback contractx.ChatModel
	prompt   string
	opts     contractx.ChatOptions
}

var _ contractx.Classifier = (*ModelClassifier)(nil)

func NewModelClassifier(primary, fallback contractx.ChatModel, prompt string, opts contractx.ChatOptions) (*ModelClassifier, error) {
	if primary == nil {
		return nil, fmt.Errorf("%w: classifier model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: classifier prompt", contractx.ErrPromptMissing)
	}
	return &ModelClassifier{primary: primary, fallback: fallback, prompt: prompt, opts: opts}, nil
}

type classifierOutput struct {
	Intent string   `json:"intent"`
	Agents []string `json:"agents"`
	Reply  string   `json:"reply"`
}

func (c *ModelClassifier) Classify(ctx context.Context, q contractx.Query, history string) (contractx.Classification, error) {
	if strings.TrimSpace(history) == "" {
		history = "(sin historial)"
	}
	rendered, err := promptx.RenderConversation(ctx, c.prompt, map[string]any{
		"history": history,
		"input":   q.Text,
	})
	if err != nil {
		return contractx.Classification{}, fmt.Errorf("%w: %v", contractx.ErrPromptMissing, err)
	}
	messages := make([]contractx.ChatMessage, 0, len(rendered))
	for _, m := range rendered {
		role := contractx.RoleUser
		if m.Role == schema.System {
			role = contractx.RoleSystem
		}
		messages = append(messages, contractx.ChatMessage{Role: role, Content: m.Content})
	}

	out, err := c.ask(ctx, c.primary, messages)
	if err != nil && c.fallback != nil {
		log.Ctx(ctx).Warn().Err(err).Str("model", c.primary.Name()).Msg("classifier primary failed, trying fallback")
		out, err = c.ask(ctx, c.fallback, messages)
	}
	return out, err
}

func (c *ModelClassifier) ask(ctx context.Context, model contractx.ChatModel, messages []contractx.ChatMessage) (contractx.Classification, error) {
	text, err := model.Chat(ctx, messages, c.opts)
	if err != nil {
		return contractx.Classification{}, fmt.Errorf("%w: %s: %v", contractx.ErrModelInvoke, model.Name(), err)
	}
	return parseClassification(text)
}

func parseClassification(text string) (contractx.Classification, error) {
	clean, err := planx.Sanitize(text)
	if err != nil {
		return contractx.Classification{}, fmt.Errorf("%w: classifier output: %v", contractx.ErrPlanParse, err)
	}
	var raw classifierOutput
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return contractx.Classification{}, fmt.Errorf("%w: classifier output: %v", contractx.ErrPlanParse, err)
	}

	out := contractx.Classification{Reply: strings.TrimSpace(raw.Reply)}
	switch contractx.Intent(strings.ToLower(strings.TrimSpace(raw.Intent))) {
	case contractx.IntentConversational:
		out.Intent = contractx.IntentConversational
	case contractx.IntentAgentic:
		out.Intent = contractx.IntentAgentic
	default:
		return contractx.Classification{}, fmt.Errorf("%w: classifier intent %q", contractx.ErrValidation, raw.Intent)
	}

	for _, a := range raw.Agents {
		switch name := contractx.AgentName(strings.ToLower(strings.TrimSpace(a))); name {
		case contractx.AgentSocial, contractx.AgentPersonal:
			out.Agents = append(out.Agents, name)
		}
	}
	if out.Intent == contractx.IntentConversational && out.Reply == "" {
		return contractx.Classification{}, errors.New("classifier returned a conversational intent without a reply")
	}
	return out, nil
}
