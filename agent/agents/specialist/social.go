package specialist

import (
	"context"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	toolx "github.com/tanpawarit/vizta/agent/tool"
)

const profileLimit = 20

// NewSocial builds the agent that answers questions about public social
// content. A resolved identity is always followed by a profile fetch.
func NewSocial(ctx context.Context, deps Deps) (*Agent, error) {
	return newAgent(ctx, contractx.AgentSocial, toolx.IDsFor(contractx.AgentSocial), deps, behavior{
		follow: followResolvedIdentity,
	})
}

func followResolvedIdentity(step stepOutcome) *contractx.PlanStep {
	if step.Tool != contractx.ToolIdentityResolve || !step.ok() {
		return nil
	}
	res, ok := step.Result.Data.(contractx.Resolution)
	if !ok || !res.Found || res.Handle == "" {
		return nil
	}
	return &contractx.PlanStep{
		Tool: contractx.ToolSocialProfile,
		Args: map[string]any{"username": res.Handle, "limit": profileLimit},
	}
}
