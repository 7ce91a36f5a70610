package specialist

import (
	"context"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	toolx "github.com/tanpawarit/vizta/agent/tool"
)

// NewPersonal builds the agent over the user's own projects, codex and
// decisions. Every call is scoped to the requesting user.
func NewPersonal(ctx context.Context, deps Deps) (*Agent, error) {
	return newAgent(ctx, contractx.AgentPersonal, toolx.IDsFor(contractx.AgentPersonal), deps, behavior{
		args: personalArgs,
	})
}

func personalArgs(task contractx.AgentTask, _ contractx.ToolID, planned map[string]any) map[string]any {
	args := make(map[string]any, len(planned)+1)
	for k, v := range planned {
		args[k] = v
	}
	args["user_id"] = task.Query.UserID
	return args
}
