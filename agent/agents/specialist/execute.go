package specialist

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

// DefaultEarlyStop is the relevance at which a multi-step plan stops.
const DefaultEarlyStop = 7

type stepOutcome struct {
	Tool      contractx.ToolID
	Result    contractx.ToolResult
	Err       error
	Relevance int
}

func (o stepOutcome) ok() bool {
	return o.Err == nil && o.Result.Success
}

func planSteps(p contractx.Plan) []contractx.PlanStep {
	if len(p.Steps) > 0 {
		return p.Steps
	}
	if p.Tool != "" {
		return []contractx.PlanStep{{Tool: p.Tool, Args: p.Args}}
	}
	return nil
}

func (a *Agent) execute(ctx context.Context, st *runState) {
	logger := log.Ctx(ctx).With().Str("agent", string(a.name)).Str("task_id", st.Task.ID).Logger()

	steps := planSteps(st.Plan)
	followed := map[string]struct{}{}
	for i, step := range steps {
		if key := followKey(step); key != "" {
			if _, done := followed[key]; done {
				logger.Debug().Str("tool", string(step.Tool)).Msg("planned step already run as follow-up")
				continue
			}
		}

		out := a.runStep(ctx, st, step)
		st.Steps = append(st.Steps, out)

		if a.behavior.follow != nil {
			if next := a.behavior.follow(out); next != nil {
				if key := followKey(*next); key != "" {
					followed[key] = struct{}{}
				}
				out = a.runStep(ctx, st, *next)
				st.Steps = append(st.Steps, out)
			}
		}

		if out.ok() && out.Relevance >= a.earlyStop && i < len(steps)-1 {
			logger.Debug().
				Str("tool", string(out.Tool)).
				Int("relevance", out.Relevance).
				Int("skipped", len(steps)-i-1).
				Msg("early stop on relevant result")
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	st.Result = a.summarize(st)
}

// followKey identifies a step by tool and target handle. Steps without a
// handle have no key.
func followKey(step contractx.PlanStep) string {
	handle := ""
	for _, k := range []string{"username", "handle"} {
		if v, ok := step.Args[k].(string); ok && strings.TrimSpace(v) != "" {
			handle = v
			break
		}
	}
	handle = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
	if handle == "" {
		return ""
	}
	return string(step.Tool) + ":" + handle
}

func (a *Agent) runStep(ctx context.Context, st *runState, step contractx.PlanStep) stepOutcome {
	out := stepOutcome{Tool: step.Tool}
	if !a.declares(step.Tool) {
		out.Err = fmt.Errorf("%w: %s is not available to agent %s", contractx.ErrUnknownTool, step.Tool, a.name)
		out.Result = contractx.ToolResult{Tool: step.Tool, Error: out.Err.Error()}
		return out
	}

	task := &contractx.Task{
		ID:        a.newID(),
		AgentName: a.name,
		Tool:      step.Tool,
		Args:      a.behavior.args(st.Task, step.Tool, step.Args),
		Status:    contractx.TaskPending,
		StartedAt: a.now(),
	}

	out.Result, out.Err = a.deps.Executor.Run(ctx, task)
	if !out.ok() {
		return out
	}

	out.Relevance = Score(st.Task.Query.Text, out.Result)
	if a.deps.Memory != nil {
		a.deps.Memory.PersistAsync(ctx, step.Tool, out.Result, st.Task.Query.Text)
	}
	return out
}

func (a *Agent) summarize(st *runState) contractx.AgentResult {
	res := contractx.AgentResult{}
	if len(st.Steps) == 0 {
		res.Message = "El plan no incluyó ninguna herramienta."
		res.Error = "empty plan"
		return res
	}

	var (
		messages []string
		notes    []string
		data     []any
		firstErr string
	)
	for _, s := range st.Steps {
		res.Tools = appendTool(res.Tools, s.Tool)
		if !s.ok() {
			msg := failureText(s)
			notes = append(notes, fmt.Sprintf("%s: %s", s.Tool, msg))
			if firstErr == "" {
				firstErr = msg
			}
			continue
		}
		messages = append(messages, formatResult(s.Result))
		notes = append(notes, fmt.Sprintf("%s: %s", s.Tool, strings.TrimSpace(s.Result.Summary)))
		data = append(data, s.Result.Data)
		res.RelevanceScore = max(res.RelevanceScore, s.Relevance)
	}
	res.ContextNote = strings.Join(notes, "; ")

	if len(messages) == 0 {
		res.Message = firstErr
		res.Error = firstErr
		return res
	}

	res.Success = true
	res.Message = strings.Join(messages, "\n\n")
	if len(data) == 1 {
		res.Data = data[0]
	} else {
		res.Data = data
	}
	return res
}

func failureText(s stepOutcome) string {
	if s.Err != nil {
		return s.Err.Error()
	}
	if e := strings.TrimSpace(s.Result.Error); e != "" {
		return e
	}
	return fmt.Sprintf("%s no devolvió resultados", s.Tool)
}

func appendTool(tools []contractx.ToolID, t contractx.ToolID) []contractx.ToolID {
	for _, x := range tools {
		if x == t {
			return tools
		}
	}
	return append(tools, t)
}
