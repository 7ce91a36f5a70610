package specialist

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	llmx "github.com/tanpawarit/vizta/agent/llm"
	promptx "github.com/tanpawarit/vizta/agent/prompt"
	reasoningx "github.com/tanpawarit/vizta/agent/reasoning"
	toolx "github.com/tanpawarit/vizta/agent/tool"
	openrouterx "github.com/tanpawarit/vizta/pkg/openrouter"
)

// Config is the environment-driven part of the registry.
type Config struct {
	PlanTimeout time.Duration `envconfig:"PLAN_TIMEOUT" split_words:"true" default:"40s"`
	EarlyStop   int           `envconfig:"EARLY_STOP" split_words:"true" default:"7"`
}

type RegistryConfig struct {
	LLM         llmx.Config
	Router      openrouterx.Config
	Executor    TaskRunner
	Memory      Memory
	Agents      []contractx.AgentName
	PlanTimeout time.Duration
	EarlyStop   int
}

// NewRegistry builds one reasoning client per agent and the agents on top
// of them.
func NewRegistry(ctx context.Context, cfg RegistryConfig) (map[contractx.AgentName]contractx.Specialist, error) {
	if err := cfg.LLM.Validate(); err != nil {
		return nil, err
	}
	agents := cfg.Agents
	if len(agents) == 0 {
		agents = []contractx.AgentName{contractx.AgentSocial, contractx.AgentPersonal}
	}

	prompts := promptx.LoadPromptSet()
	out := make(map[contractx.AgentName]contractx.Specialist, len(agents))

	for _, name := range agents {
		var (
			purpose llmx.Purpose
			system  string
			build   func(context.Context, Deps) (*Agent, error)
		)
		switch name {
		case contractx.AgentSocial:
			purpose, system, build = llmx.PurposeSocial, prompts.Social, NewSocial
		case contractx.AgentPersonal:
			purpose, system, build = llmx.PurposePersonal, prompts.Personal, NewPersonal
		default:
			return nil, fmt.Errorf("%w: unknown agent %q", contractx.ErrValidation, name)
		}

		primary, fallback, err := llmx.Build(ctx, cfg.LLM, cfg.Router, purpose)
		if err != nil {
			return nil, err
		}
		planner, err := reasoningx.New(primary, fallback, reasoningx.Config{
			Agent:        name,
			SystemPrompt: system,
			Tools:        toolx.InfosFor(name),
			Options:      cfg.LLM.Options(),
			Timeout:      cfg.PlanTimeout,
		})
		if err != nil {
			return nil, err
		}

		agent, err := build(ctx, Deps{Planner: planner, Executor: cfg.Executor, Memory: cfg.Memory, EarlyStop: cfg.EarlyStop})
		if err != nil {
			return nil, err
		}
		out[name] = agent
	}
	return out, nil
}
