// Package ports declares the interfaces the orchestrator depends on.
// Implementations live under pkg/adapters.
package ports

import (
	"context"
	"errors"

	"github.com/smithcommajoseph/async-transport/pkg/domain"
	"github.com/smithcommajoseph/async-transport/pkg/transport"
)

// ErrNotFound is returned by stores for unknown IDs.
var ErrNotFound = errors.New("not found")

// EventHandler handles a single event.
type EventHandler func(ctx context.Context, event domain.Event) error

// EventBus publishes events to topics. A subscription lasts until its
// context is cancelled.
type EventBus interface {
	Publish(ctx context.Context, topic string, event domain.Event) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Close() error
}

// InvocationStore persists invocations.
type InvocationStore interface {
	Save(ctx context.Context, inv *domain.Invocation) error
	Get(ctx context.Context, id string) (*domain.Invocation, error)
	List(ctx context.Context) ([]*domain.Invocation, error)
	Delete(ctx context.Context, id string) error
}

// MetricsCollector records service metrics. It also observes the
// operations of each invocation.
type MetricsCollector interface {
	transport.Observer
	RecordInvocationSubmitted(strategy transport.Strategy, async bool)
	RecordWorkerPoolStatus(idle, busy, stopped int)
	RecordQueueDepth(depth int)
}

// CompletionRequest is a single-turn LLM request.
type CompletionRequest struct {
	Model     string
	Prompt    string
	MaxTokens int
}

// LLMClient generates completions.
type LLMClient interface {
	Complete(ctx context.Context, req *CompletionRequest) (string, error)
}

// FetchRequest is a single HTTP request.
type FetchRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Fetcher performs HTTP requests and decodes their responses.
type Fetcher interface {
	Fetch(ctx context.Context, req *FetchRequest) (any, error)
}

// Job is a unit of background work.
type Job func(ctx context.Context)

// Dispatcher runs jobs in the background.
type Dispatcher interface {
	Dispatch(job Job) error
}
