package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	"github.com/tanpawarit/vizta/pkg/pgstore"
)

// EventWriter is the relational write path for orchestration events.
type EventWriter interface {
	RecordEvent(ctx context.Context, ev *pgstore.OrchestrationEvent) error
}

// UsageWriter is the relational write path for usage records.
type UsageWriter interface {
	RecordUsage(ctx context.Context, rec *pgstore.UsageRecord) error
}

// PgSink stores every event in the orchestration_events table.
type PgSink struct {
	Writer EventWriter
}

func (s PgSink) Emit(ctx context.Context, ev contractx.TelemetryEvent) error {
	if s.Writer == nil {
		return nil
	}
	id := ev.ID
	if id == "" {
		id = uuid.NewString()
	}
	created := ev.Timestamp
	if created.IsZero() {
		created = time.Now()
	}
	row := &pgstore.OrchestrationEvent{
		ID:        id,
		UserID:    ev.UserID,
		SessionID: ev.SessionID,
		Intent:    string(ev.Intent),
		Agents:    agentNames(ev.Agents),
		Tools:     toolNames(ev.Tools),
		LatencyMs: ev.Latency.Milliseconds(),
		Success:   ev.Success,
		Error:     ev.Error,
		CreatedAt: created.UTC(),
	}
	if err := s.Writer.RecordEvent(ctx, row); err != nil {
		return fmt.Errorf("record orchestration event: %w", err)
	}
	return nil
}

// UsageRecorder writes one usage row for every successful agentic pass.
type UsageRecorder struct {
	Writer UsageWriter
	now    func() time.Time
}

var _ contractx.PostProcessor = UsageRecorder{}

func (u UsageRecorder) AfterSuccess(ctx context.Context, q contractx.Query, resp contractx.Response) error {
	if u.Writer == nil || resp.Intent != contractx.IntentAgentic {
		return nil
	}
	now := time.Now
	if u.now != nil {
		now = u.now
	}

	var tools []string
	seen := map[contractx.ToolID]bool{}
	for _, c := range resp.Contributions {
		for _, t := range c.Tools {
			if !seen[t] {
				seen[t] = true
				tools = append(tools, string(t))
			}
		}
	}

	rec := &pgstore.UsageRecord{
		UserID:    q.UserID,
		SessionID: q.SessionID,
		Operation: "query",
		Agents:    agentNames(resp.Agents),
		Tools:     tools,
		LatencyMs: resp.Latency.Milliseconds(),
		CreatedAt: now().UTC(),
	}
	if err := u.Writer.RecordUsage(ctx, rec); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

func agentNames(in []contractx.AgentName) []string {
	out := make([]string, len(in))
	for i, a := range in {
		out[i] = string(a)
	}
	return out
}

func toolNames(in []contractx.ToolID) []string {
	out := make([]string, len(in))
	for i, t := range in {
		out[i] = string(t)
	}
	return out
}
