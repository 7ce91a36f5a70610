package specialist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	memoryx "github.com/tanpawarit/vizta/agent/memory"
)

type runState struct {
	Task    contractx.AgentTask
	Memory  memoryx.Enhancement
	Plan    contractx.Plan
	Steps   []stepOutcome
	Result  contractx.AgentResult
	Err     error
	Started time.Time
}

const (
	nodePrepare = "prepare"
	nodeMemory  = "enhance_memory"
	nodePlan    = "build_plan"
	nodeClarify = "clarify"
	nodeExecute = "execute"
	nodeFinish  = "finish"
)

func compileRuntimeGraph(ctx context.Context, a *Agent) (compose.Runnable[contractx.AgentTask, *runState], error) {
	graph := compose.NewGraph[contractx.AgentTask, *runState]()

	if err := graph.AddLambdaNode(nodePrepare,
		compose.InvokableLambda(func(ctx context.Context, task contractx.AgentTask) (*runState, error) {
			if task.ID == "" {
				task.ID = a.newID()
			}
			return &runState{Task: task, Started: a.now()}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodePrepare, err)
	}

	if err := graph.AddLambdaNode(nodeMemory,
		compose.InvokableLambda(func(ctx context.Context, st *runState) (*runState, error) {
			st.Memory = memoryx.Enhancement{Query: st.Task.Query.Text, EnhancedQuery: st.Task.Query.Text}
			if a.deps.Memory != nil {
				st.Memory = a.deps.Memory.Enhance(ctx, st.Task.Query.Text)
			}
			return st, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeMemory, err)
	}

	if err := graph.AddLambdaNode(nodePlan,
		compose.InvokableLambda(func(ctx context.Context, st *runState) (*runState, error) {
			plan, err := a.deps.Planner.BuildPlan(ctx, st.Task.Query.Text, planContext(st))
			if err != nil {
				st.Err = err
				return st, nil
			}
			st.Plan = plan
			return st, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodePlan, err)
	}

	if err := graph.AddLambdaNode(nodeClarify,
		compose.InvokableLambda(func(ctx context.Context, st *runState) (*runState, error) {
			question := strings.TrimSpace(st.Plan.FollowUp)
			if question == "" {
				question = "¿Podrías darme más detalles sobre lo que necesitas?"
			}
			st.Result = contractx.AgentResult{
				Success:        true,
				Message:        question,
				RelevanceScore: 3,
				ContextNote:    "se solicitó una aclaración",
			}
			return st, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeClarify, err)
	}

	if err := graph.AddLambdaNode(nodeExecute,
		compose.InvokableLambda(func(ctx context.Context, st *runState) (*runState, error) {
			a.execute(ctx, st)
			return st, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeExecute, err)
	}

	if err := graph.AddLambdaNode(nodeFinish,
		compose.InvokableLambda(func(ctx context.Context, st *runState) (*runState, error) {
			a.finish(ctx, st)
			return st, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeFinish, err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, st *runState) (string, error) {
			switch {
			case st.Err != nil:
				return nodeFinish, nil
			case st.Plan.Action == contractx.ActionNeedsClarification:
				return nodeClarify, nil
			default:
				return nodeExecute, nil
			}
		},
		map[string]bool{nodeClarify: true, nodeExecute: true, nodeFinish: true},
	)
	if err := graph.AddBranch(nodePlan, branch); err != nil {
		return nil, fmt.Errorf("add plan branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, nodePrepare},
		{nodePrepare, nodeMemory},
		{nodeMemory, nodePlan},
		{nodeClarify, nodeFinish},
		{nodeExecute, nodeFinish},
		{nodeFinish, compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	return graph.Compile(ctx, compose.WithGraphName("specialist."+string(a.name)))
}

func planContext(st *runState) string {
	var parts []string
	if c := strings.TrimSpace(st.Memory.Context); c != "" {
		parts = append(parts, c)
	}
	if h := strings.TrimSpace(st.Task.History); h != "" {
		parts = append(parts, "Conversación reciente:\n"+h)
	}
	return strings.Join(parts, "\n\n")
}

func (a *Agent) finish(ctx context.Context, st *runState) {
	logger := log.Ctx(ctx).With().Str("agent", string(a.name)).Str("task_id", st.Task.ID).Logger()

	if st.Err != nil {
		st.Result = contractx.AgentResult{
			Success: false,
			Message: "No pude planificar la consulta.",
			Error:   st.Err.Error(),
		}
		logger.Warn().Err(st.Err).Msg("plan stage failed")
	}

	st.Result.AgentName = a.name
	st.Result.RelevanceScore = clampScore(st.Result.RelevanceScore)
	if !st.Result.Success {
		st.Result.RelevanceScore = 0
	}

	logger.Info().
		Str("action", string(st.Plan.Action)).
		Bool("success", st.Result.Success).
		Int("relevance", st.Result.RelevanceScore).
		Int("steps", len(st.Steps)).
		Dur("latency", a.now().Sub(st.Started)).
		Msg("agent finished")
}
