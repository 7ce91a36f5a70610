package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	planx "github.com/tanpawarit/vizta/agent/plan"
	promptx "github.com/tanpawarit/vizta/agent/prompt"
)

var planLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "vizta",
		Subsystem: "reasoning",
		Name:      "plan_duration_seconds",
		Help:      "Time to obtain a validated plan, labelled by model role and outcome.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40},
	},
	[]string{"agent", "role", "outcome"},
)

var _ contractx.PlanBuilder = (*Client)(nil)

type Config struct {
	Agent        contractx.AgentName
	SystemPrompt string
	Tools        []*schema.ToolInfo
	Options      contractx.ChatOptions
	// Timeout bounds each model call independently.
	Timeout time.Duration
}

// Client turns intent text into a validated Plan, trying the primary
// model first and the fallback model once.
type Client struct {
	primary   contractx.ChatModel
	fallback  contractx.ChatModel
	validator *planx.Validator
	cfg       Config
	toolsText string
	now       func() time.Time
}

func New(primary, fallback contractx.ChatModel, cfg Config) (*Client, error) {
	if primary == nil {
		return nil, fmt.Errorf("%w: primary reasoning model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		return nil, fmt.Errorf("%w: system prompt for agent=%s", contractx.ErrPromptMissing, cfg.Agent)
	}

	ids := make([]contractx.ToolID, 0, len(cfg.Tools))
	for _, t := range cfg.Tools {
		if t == nil {
			continue
		}
		ids = append(ids, contractx.ToolID(t.Name))
	}

	return &Client{
		primary:   primary,
		fallback:  fallback,
		validator: planx.NewValidator(ids),
		cfg:       cfg,
		toolsText: describeTools(cfg.Tools),
		now:       time.Now,
	}, nil
}

type attempt struct {
	plan      contractx.Plan
	err       error
	reachable bool
}

func (c *Client) BuildPlan(ctx context.Context, intent string, extraContext string) (contractx.Plan, error) {
	intent = strings.TrimSpace(intent)
	if intent == "" {
		return contractx.Plan{}, fmt.Errorf("%w: intent text is empty", contractx.ErrValidation)
	}

	messages, err := c.messages(ctx, intent, extraContext)
	if err != nil {
		return contractx.Plan{}, err
	}

	first := c.try(ctx, c.primary, messages, false)
	if first.err == nil {
		return first.plan, nil
	}

	logger := log.Ctx(ctx).With().Str("agent", string(c.cfg.Agent)).Logger()
	logger.Warn().Err(first.err).Str("model", c.primary.Name()).Msg("primary reasoning failed, trying fallback")

	if c.fallback == nil {
		return contractx.Plan{}, classify(first, attempt{err: errors.New("no fallback model configured")})
	}

	second := c.try(ctx, c.fallback, messages, true)
	if second.err == nil {
		return second.plan, nil
	}

	logger.Error().Err(second.err).Str("model", c.fallback.Name()).Msg("fallback reasoning failed")
	return contractx.Plan{}, classify(first, second)
}

func (c *Client) try(ctx context.Context, model contractx.ChatModel, messages []contractx.ChatMessage, isFallback bool) attempt {
	role := "primary"
	if isFallback {
		role = "fallback"
	}

	callCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := c.now()
	text, err := model.Chat(callCtx, messages, c.cfg.Options)
	latency := c.now().Sub(start)
	if err != nil {
		planLatency.WithLabelValues(string(c.cfg.Agent), role, "unreachable").Observe(latency.Seconds())
		return attempt{err: err}
	}

	plan, err := c.validator.Parse(text)
	if err != nil {
		planLatency.WithLabelValues(string(c.cfg.Agent), role, "invalid").Observe(latency.Seconds())
		return attempt{err: err, reachable: true}
	}

	planLatency.WithLabelValues(string(c.cfg.Agent), role, "ok").Observe(latency.Seconds())
	plan.Meta = contractx.PlanMeta{
		Model:     model.Name(),
		Fallback:  isFallback,
		Latency:   latency,
		Timestamp: c.now().UTC(),
	}

	log.Ctx(ctx).Debug().
		Str("agent", string(c.cfg.Agent)).
		Str("model", model.Name()).
		Str("action", string(plan.Action)).
		Str("tool", string(plan.Tool)).
		Dur("latency", latency).
		Msg("plan built")

	return attempt{plan: plan, reachable: true}
}

// classify maps two failed attempts onto the error kinds callers branch on.
func classify(first, second attempt) error {
	switch {
	case second.reachable:
		return second.err
	case first.reachable:
		return first.err
	default:
		return fmt.Errorf("%w: primary: %v; fallback: %v", contractx.ErrReasoningUnavailable, first.err, second.err)
	}
}

func (c *Client) messages(ctx context.Context, intent string, extraContext string) ([]contractx.ChatMessage, error) {
	input := intent
	if extra := strings.TrimSpace(extraContext); extra != "" {
		input = intent + "\n\n" + extra
	}

	rendered, err := promptx.RenderConversation(ctx, c.cfg.SystemPrompt, map[string]any{
		"date":  c.now().Format("2006-01-02"),
		"tools": c.toolsText,
		"input": input,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrPromptMissing, err)
	}

	out := make([]contractx.ChatMessage, 0, len(rendered))
	for _, m := range rendered {
		role := contractx.RoleUser
		switch m.Role {
		case schema.System:
			role = contractx.RoleSystem
		case schema.Assistant:
			role = contractx.RoleAssistant
		}
		out = append(out, contractx.ChatMessage{Role: role, Content: m.Content})
	}
	return out, nil
}

func describeTools(tools []*schema.ToolInfo) string {
	var sb strings.Builder
	for _, t := range tools {
		if t == nil {
			continue
		}
		fmt.Fprintf(&sb, "- %s: %s\n", t.Name, t.Desc)
	}
	return strings.TrimRight(sb.String(), "\n")
}
