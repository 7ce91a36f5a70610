package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	nodex "github.com/tanpawarit/vizta/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/vizta/agent/state"
)

const failureMessage = "Lo siento, ocurrió un error procesando tu consulta."

type Config struct {
	AgentTimeout time.Duration `split_words:"true" default:"90s"`
	HistoryTurns int           `split_words:"true" default:"10"`
}

type Deps struct {
	Specialists    map[contractx.AgentName]contractx.Specialist
	Classifier     contractx.Classifier
	History        statex.Store
	Telemetry      contractx.TelemetrySink
	PostProcessors []contractx.PostProcessor
}

// Orchestrator classifies a query, runs the chosen specialist agents and
// merges their results into one response.
type Orchestrator struct {
	deps      Deps
	cfg       Config
	available []contractx.AgentName

	graphRunner compose.Runnable[nodex.GraphInput, contractx.Response]

	now func() time.Time
}

func New(deps Deps, cfg Config) (*Orchestrator, error) {
	if len(deps.Specialists) == 0 {
		return nil, fmt.Errorf("%w: at least one specialist agent is required", contractx.ErrValidation)
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = statex.DefaultHistoryTurns
	}

	available := make([]contractx.AgentName, 0, len(deps.Specialists))
	for name, sp := range deps.Specialists {
		if sp == nil {
			return nil, fmt.Errorf("%w: specialist %s is nil", contractx.ErrValidation, name)
		}
		available = append(available, name)
	}
	sort.Slice(available, func(i, j int) bool { return rank(available[i]) < rank(available[j]) })

	o := &Orchestrator{
		deps:      deps,
		cfg:       cfg,
		available: available,
		now:       time.Now,
	}

	graphRunner, err := o.compileHandleQueryGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Handle always returns a response. Errors and panics become a failure
// response whose Diagnostic keeps the original message.
func (o *Orchestrator) Handle(ctx context.Context, q contractx.Query) (resp contractx.Response) {
	started := o.now()
	logger := log.Ctx(ctx).With().Str("session_id", q.SessionID).Str("user_id", q.UserID).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("panic", fmt.Sprint(r)).Msg("orchestration panicked")
			resp = o.failure(q, started, fmt.Sprintf("panic: %v", r))
			nodex.EmitTelemetry(ctx, o.deps.Telemetry, q, resp)
		}
	}()

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{Query: q})
	if err != nil {
		logger.Error().Err(err).Msg("orchestration failed")
		resp = o.failure(q, started, err.Error())
		nodex.EmitTelemetry(ctx, o.deps.Telemetry, q, resp)
		return resp
	}
	return out
}

func (o *Orchestrator) failure(q contractx.Query, started time.Time, diagnostic string) contractx.Response {
	now := o.now()
	return contractx.Response{
		SessionID:  q.SessionID,
		Success:    false,
		Message:    failureMessage,
		Diagnostic: diagnostic,
		Latency:    now.Sub(started),
		Timestamp:  now.UTC(),
	}
}

// Agents lists the registered agents in routing order.
func (o *Orchestrator) Agents() []contractx.AgentName {
	return append([]contractx.AgentName(nil), o.available...)
}

func rank(name contractx.AgentName) int {
	switch name {
	case contractx.AgentSocial:
		return 0
	case contractx.AgentPersonal:
		return 1
	default:
		return 2
	}
}
