package telemetry

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	qstashx "github.com/tanpawarit/vizta/pkg/qstash"
)

// Publisher enqueues a JSON payload for asynchronous delivery.
type Publisher interface {
	Publish(ctx context.Context, payload any) (qstashx.PublishResult, error)
}

// QStashSink forwards events to a webhook through QStash.
type QStashSink struct {
	Publisher Publisher
}

func (s QStashSink) Emit(ctx context.Context, ev contractx.TelemetryEvent) error {
	if s.Publisher == nil {
		return nil
	}
	if _, err := s.Publisher.Publish(ctx, ev); err != nil {
		return fmt.Errorf("publish telemetry event %s: %w", ev.ID, err)
	}
	return nil
}
