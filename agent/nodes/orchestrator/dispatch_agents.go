package orchestratornode

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

// DispatchAgents runs the selected agents concurrently and waits for all
// of them. An agent error or panic becomes that agent's failed result.
func DispatchAgents(
	ctx context.Context,
	in *GraphState,
	specialists map[contractx.AgentName]contractx.Specialist,
	timeout time.Duration,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	results := make([]contractx.AgentResult, len(in.Agents))
	var g errgroup.Group
	for i, name := range in.Agents {
		g.Go(func() error {
			results[i] = runAgent(ctx, name, specialists[name], contractx.AgentTask{
				ID:      uuid.NewString(),
				Query:   in.Query,
				History: in.History,
			}, timeout)
			return nil
		})
	}
	_ = g.Wait()

	in.Results = results
	return in, nil
}

func runAgent(
	ctx context.Context,
	name contractx.AgentName,
	sp contractx.Specialist,
	task contractx.AgentTask,
	timeout time.Duration,
) (res contractx.AgentResult) {
	logger := log.Ctx(ctx).With().Str("agent", string(name)).Str("task_id", task.ID).Logger()

	if sp == nil {
		msg := fmt.Sprintf("agent %s is not available", name)
		return contractx.AgentResult{AgentName: name, Message: msg, Error: msg}
	}

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("agent %s panicked: %v", name, r)
			logger.Error().Str("panic", fmt.Sprint(r)).Msg("agent panicked")
			res = contractx.AgentResult{AgentName: name, Message: msg, Error: msg}
		}
	}()

	agentCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		agentCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := sp.Handle(agentCtx, task)
	res.AgentName = name
	if err != nil {
		logger.Warn().Err(err).Msg("agent failed")
		res.Success = false
		res.RelevanceScore = 0
		if res.Error == "" {
			res.Error = err.Error()
		}
		if res.Message == "" {
			res.Message = err.Error()
		}
	}
	return res
}
