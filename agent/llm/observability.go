package llm

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

const tracerName = "vizta.llm"

var (
	chatCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vizta",
			Subsystem: "chat",
			Name:      "call_duration_seconds",
			Help:      "Duration of chat model calls in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "status"},
	)

	chatCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vizta",
			Subsystem: "chat",
			Name:      "calls_total",
			Help:      "Total number of chat model calls.",
		},
		[]string{"provider", "status"},
	)
)

// traced wraps a provider call with a span and the chat metrics.
func traced(
	ctx context.Context,
	provider string,
	model string,
	messages []contractx.ChatMessage,
	call func(ctx context.Context) (string, error),
) (string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "llm."+provider+".Chat",
		trace.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("model", model),
			attribute.Int("message_count", len(messages)),
		),
	)
	defer span.End()

	start := time.Now()
	out, err := call(ctx)
	elapsed := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	chatCallDuration.WithLabelValues(provider, status).Observe(elapsed.Seconds())
	chatCallsTotal.WithLabelValues(provider, status).Inc()

	return out, err
}
