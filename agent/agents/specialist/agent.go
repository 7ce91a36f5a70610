package specialist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	memoryx "github.com/tanpawarit/vizta/agent/memory"
)

// TaskRunner executes one task against the tool registry.
type TaskRunner interface {
	Run(ctx context.Context, task *contractx.Task) (contractx.ToolResult, error)
}

// Memory is the slice of the memory layer an agent uses.
type Memory interface {
	Enhance(ctx context.Context, query string) memoryx.Enhancement
	PersistAsync(ctx context.Context, tool contractx.ToolID, result contractx.ToolResult, query string)
}

type Deps struct {
	Planner  contractx.PlanBuilder
	Executor TaskRunner
	Memory   Memory
	// EarlyStop overrides DefaultEarlyStop when positive.
	EarlyStop int
}

// behavior holds what differs between agents; the runtime is shared.
type behavior struct {
	// args returns the arguments sent to the executor for a plan step.
	args func(task contractx.AgentTask, tool contractx.ToolID, planned map[string]any) map[string]any
	// follow inspects a finished step and may schedule one more step.
	follow func(step stepOutcome) *contractx.PlanStep
}

// Agent is a specialist that owns one tool set and runs its own
// plan, execute and memory loop.
type Agent struct {
	name      contractx.AgentName
	tools     []contractx.ToolID
	deps      Deps
	behavior  behavior
	earlyStop int
	runner    compose.Runnable[contractx.AgentTask, *runState]
	newID     func() string
	now       func() time.Time
}

var _ contractx.Specialist = (*Agent)(nil)

func newAgent(ctx context.Context, name contractx.AgentName, tools []contractx.ToolID, deps Deps, b behavior) (*Agent, error) {
	if deps.Planner == nil {
		return nil, fmt.Errorf("%w: agent=%s requires a plan builder", contractx.ErrValidation, name)
	}
	if deps.Executor == nil {
		return nil, fmt.Errorf("%w: agent=%s requires a task executor", contractx.ErrValidation, name)
	}
	if b.args == nil {
		b.args = func(_ contractx.AgentTask, _ contractx.ToolID, planned map[string]any) map[string]any { return planned }
	}

	earlyStop := deps.EarlyStop
	if earlyStop <= 0 {
		earlyStop = DefaultEarlyStop
	}

	a := &Agent{
		name:      name,
		tools:     tools,
		deps:      deps,
		behavior:  b,
		earlyStop: earlyStop,
		newID:     uuid.NewString,
		now:       time.Now,
	}

	runner, err := compileRuntimeGraph(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("%w: compile runtime graph for agent=%s: %v", contractx.ErrModelInvoke, name, err)
	}
	a.runner = runner
	return a, nil
}

func (a *Agent) Name() contractx.AgentName { return a.name }

func (a *Agent) Tools() []contractx.ToolID {
	out := make([]contractx.ToolID, len(a.tools))
	copy(out, a.tools)
	return out
}

// Handle runs the agent for one task. Plan-stage failures are returned as
// errors; tool failures come back as an unsuccessful AgentResult.
func (a *Agent) Handle(ctx context.Context, task contractx.AgentTask) (contractx.AgentResult, error) {
	if strings.TrimSpace(task.Query.Text) == "" {
		return contractx.AgentResult{}, fmt.Errorf("%w: agent task query is empty", contractx.ErrValidation)
	}
	st, err := a.runner.Invoke(ctx, task)
	if err != nil {
		return contractx.AgentResult{AgentName: a.name, Error: err.Error(), Message: err.Error()}, err
	}
	if st.Err != nil {
		return st.Result, st.Err
	}
	return st.Result, nil
}

func (a *Agent) declares(tool contractx.ToolID) bool {
	for _, t := range a.tools {
		if t == tool {
			return true
		}
	}
	return false
}
