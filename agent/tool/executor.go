package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

var (
	toolAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vizta",
			Subsystem: "tool",
			Name:      "attempts_total",
			Help:      "Tool handler attempts by outcome.",
		},
		[]string{"tool", "outcome"},
	)
	toolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vizta",
			Subsystem: "tool",
			Name:      "attempt_duration_seconds",
			Help:      "Duration of a single tool handler attempt.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool"},
	)
)

// Handler performs one attempt of a tool. A returned error counts as a
// failed attempt; a ToolResult with Success=false is a final answer.
type Handler func(ctx context.Context, args map[string]any) (contractx.ToolResult, error)

type Registry map[contractx.ToolID]Handler

type Config struct {
	Timeout         time.Duration            `envconfig:"TIMEOUT" default:"30s"`
	Timeouts        map[string]time.Duration `envconfig:"TIMEOUTS"`
	MaxAttempts     int                      `envconfig:"MAX_ATTEMPTS" split_words:"true" default:"2"`
	RatePerSecond   float64                  `envconfig:"RATE_PER_SECOND" split_words:"true" default:"5"`
	Burst           int                      `envconfig:"BURST" default:"5"`
	DefaultLocation string                   `envconfig:"DEFAULT_LOCATION" split_words:"true" default:"guatemala"`
}

// Executor runs tasks against the registry. Only a task's Status,
// Attempts and Result fields are written.
type Executor struct {
	cfg        Config
	registry   Registry
	limiters   map[contractx.ToolID]*rate.Limiter
	normalizer Normalizer
}

func NewExecutor(cfg Config, registry Registry) *Executor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	limiters := make(map[contractx.ToolID]*rate.Limiter, len(registry))
	for id := range registry {
		limit := rate.Inf
		if cfg.RatePerSecond > 0 {
			limit = rate.Limit(cfg.RatePerSecond)
		}
		limiters[id] = rate.NewLimiter(limit, cfg.Burst)
	}

	return &Executor{
		cfg:        cfg,
		registry:   registry,
		limiters:   limiters,
		normalizer: Normalizer{DefaultLocation: cfg.DefaultLocation},
	}
}

func (e *Executor) Has(id contractx.ToolID) bool {
	_, ok := e.registry[id]
	return ok
}

func (e *Executor) Run(ctx context.Context, task *contractx.Task) (contractx.ToolResult, error) {
	if task == nil {
		return contractx.ToolResult{}, fmt.Errorf("%w: task is nil", contractx.ErrValidation)
	}

	handler, ok := e.registry[task.Tool]
	if !ok {
		err := fmt.Errorf("%w: %s", contractx.ErrUnknownTool, task.Tool)
		result := contractx.ToolResult{Tool: task.Tool, Error: err.Error()}
		task.Status = contractx.TaskFailed
		task.Result = &result
		return result, err
	}

	logger := log.Ctx(ctx).With().
		Str("task_id", task.ID).
		Str("agent", string(task.AgentName)).
		Str("tool", string(task.Tool)).
		Logger()

	args := e.normalizer.Args(task.Tool, task.Args)
	task.Status = contractx.TaskRunning

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		task.Attempts = attempt

		result, err := e.attempt(ctx, task.Tool, handler, args)
		if err == nil {
			result.Tool = task.Tool
			task.Status = contractx.TaskSucceeded
			if !result.Success {
				task.Status = contractx.TaskFailed
			}
			task.Result = &result
			logger.Debug().Int("attempt", attempt).Bool("success", result.Success).Msg("tool finished")
			return result, nil
		}

		lastErr = err
		logger.Warn().Err(err).Int("attempt", attempt).Msg("tool attempt failed")
		if ctx.Err() != nil {
			break
		}
	}

	result := contractx.ToolResult{Tool: task.Tool, Error: lastErr.Error()}
	task.Status = contractx.TaskFailed
	task.Result = &result
	return result, &contractx.ToolExecutionError{Tool: task.Tool, Attempts: task.Attempts, Err: lastErr}
}

func (e *Executor) attempt(ctx context.Context, id contractx.ToolID, h Handler, args map[string]any) (contractx.ToolResult, error) {
	if l := e.limiters[id]; l != nil {
		if err := l.Wait(ctx); err != nil {
			toolAttempts.WithLabelValues(string(id), "throttled").Inc()
			return contractx.ToolResult{}, err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout(id))
	defer cancel()

	start := time.Now()
	result, err := h(callCtx, args)
	toolDuration.WithLabelValues(string(id)).Observe(time.Since(start).Seconds())

	if err == nil && callCtx.Err() != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%s timed out after %s", id, e.timeout(id))
	}
	if err != nil {
		toolAttempts.WithLabelValues(string(id), "error").Inc()
		return contractx.ToolResult{}, err
	}
	toolAttempts.WithLabelValues(string(id), "ok").Inc()
	return result, nil
}

func (e *Executor) timeout(id contractx.ToolID) time.Duration {
	if d, ok := e.cfg.Timeouts[string(id)]; ok && d > 0 {
		return d
	}
	if e.cfg.Timeout > 0 {
		return e.cfg.Timeout
	}
	return 30 * time.Second
}
