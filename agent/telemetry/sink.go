package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

// MultiSink fans one event out to every sink and joins their errors.
type MultiSink []contractx.TelemetrySink

var _ contractx.TelemetrySink = MultiSink(nil)

func (m MultiSink) Emit(ctx context.Context, ev contractx.TelemetryEvent) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}

// LogSink writes each event as one structured log line.
type LogSink struct{}

func (LogSink) Emit(ctx context.Context, ev contractx.TelemetryEvent) error {
	agents := make([]string, len(ev.Agents))
	for i, a := range ev.Agents {
		agents[i] = string(a)
	}
	tools := make([]string, len(ev.Tools))
	for i, t := range ev.Tools {
		tools[i] = string(t)
	}

	e := log.Ctx(ctx).Info()
	if !ev.Success {
		e = log.Ctx(ctx).Warn()
	}
	e.Str("event_id", ev.ID).
		Str("user_id", ev.UserID).
		Str("session_id", ev.SessionID).
		Str("intent", string(ev.Intent)).
		Strs("agents", agents).
		Strs("tools", tools).
		Int64("latency_ms", ev.Latency.Milliseconds()).
		Bool("success", ev.Success).
		Str("error", ev.Error).
		Msg("orchestration pass")
	return nil
}
