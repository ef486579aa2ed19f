package orchestrator

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smithcommajoseph/async-transport/pkg/domain"
	"github.com/smithcommajoseph/async-transport/pkg/ports"
	"github.com/smithcommajoseph/async-transport/pkg/transport"
)

// stepPublisher publishes a step.settled event for each settled operation
type stepPublisher struct {
	eventBus     ports.EventBus
	invocationID string
	logger       *zap.Logger

	settled atomic.Int64
}

func (p *stepPublisher) OperationSettled(ctx context.Context, strategy transport.Strategy, index int, outcome transport.Outcome, duration time.Duration) {
	data := map[string]any{
		"index":       index,
		"strategy":    string(strategy),
		"failed":      outcome.Err != nil,
		"duration_ms": duration.Milliseconds(),
	}
	if outcome.Err != nil {
		data["error"] = outcome.Err.Error()
	}

	publishEvent(ctx, p.eventBus, p.logger, domain.TopicSteps, domain.EventTypeStepSettled, p.invocationID, data)
	p.settled.Add(1)
}

// Settled returns the number of step.settled events published
func (p *stepPublisher) Settled() int {
	if p == nil {
		return 0
	}
	return int(p.settled.Load())
}

// InvocationCompleted is a no-op; the manager publishes completion once the
// result is persisted.
func (p *stepPublisher) InvocationCompleted(context.Context, transport.Strategy, *transport.Result, time.Duration) {
}

// publishEvent publishes an event, logging failures. Publishing outlives
// ctx cancellation.
func publishEvent(ctx context.Context, bus ports.EventBus, logger *zap.Logger, topic string, eventType domain.EventType, invocationID string, data map[string]any) {
	event := domain.Event{
		ID:           uuid.New().String(),
		Type:         eventType,
		InvocationID: invocationID,
		Timestamp:    time.Now(),
		Data:         data,
	}

	if err := bus.Publish(context.WithoutCancel(ctx), topic, event); err != nil {
		logger.Error("failed to publish event",
			zap.String("invocation_id", invocationID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}
