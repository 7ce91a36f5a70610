package orchestratornode

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

// Finalize stamps the response with session, latency and time.
func Finalize(in *GraphState, now time.Time) (contractx.Response, error) {
	if in == nil {
		return contractx.Response{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	resp := in.Response
	resp.SessionID = in.Query.SessionID
	if resp.Intent == "" {
		resp.Intent = in.Classification.Intent
	}
	resp.Latency = now.Sub(in.Started)
	resp.Timestamp = now.UTC()
	in.Response = resp
	return resp, nil
}

// TelemetryEvent summarizes a finished pass.
func TelemetryEvent(q contractx.Query, resp contractx.Response) contractx.TelemetryEvent {
	var tools []contractx.ToolID
	seen := map[contractx.ToolID]bool{}
	for _, c := range resp.Contributions {
		for _, t := range c.Tools {
			if !seen[t] {
				seen[t] = true
				tools = append(tools, t)
			}
		}
	}
	errText := ""
	if !resp.Success {
		errText = resp.Diagnostic
	}
	return contractx.TelemetryEvent{
		ID:        uuid.NewString(),
		UserID:    q.UserID,
		SessionID: q.SessionID,
		Intent:    resp.Intent,
		Agents:    resp.Agents,
		Tools:     tools,
		Latency:   resp.Latency,
		Success:   resp.Success,
		Error:     errText,
		Timestamp: resp.Timestamp,
	}
}

// EmitTelemetry sends one event for the pass. Sink failures are logged only.
func EmitTelemetry(ctx context.Context, sink contractx.TelemetrySink, q contractx.Query, resp contractx.Response) {
	if sink == nil {
		return
	}
	if err := sink.Emit(ctx, TelemetryEvent(q, resp)); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("telemetry emit failed")
	}
}
