package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smithcommajoseph/async-transport/pkg/domain"
	"github.com/smithcommajoseph/async-transport/pkg/ports"
	"github.com/smithcommajoseph/async-transport/pkg/transport"
)

var (
	// ErrAsyncUnavailable is returned for async batches when no dispatcher
	// is configured.
	ErrAsyncUnavailable = errors.New("async execution is not available")
	// ErrNotRunning is returned when cancelling an invocation that is not
	// in flight on this instance.
	ErrNotRunning = errors.New("invocation is not running")
	// ErrNotStarted is recorded for queued invocations whose context ended
	// before a worker picked them up.
	ErrNotStarted = errors.New("invocation cancelled before start")
)

// Manager coordinates invocations
type Manager struct {
	eventBus   ports.EventBus
	store      ports.InvocationStore
	metrics    ports.MetricsCollector
	validator  *Validator
	builder    *StepBuilder
	dispatcher ports.Dispatcher
	logger     *zap.Logger

	// Track active executions
	executions sync.Map // map[string]context.CancelFunc

	// Configuration
	defaultStrategy   transport.Strategy
	invocationTimeout time.Duration
}

// NewManager creates a new orchestrator manager. dispatcher may be nil, in
// which case async batches are rejected.
func NewManager(
	eventBus ports.EventBus,
	store ports.InvocationStore,
	metrics ports.MetricsCollector,
	validator *Validator,
	builder *StepBuilder,
	dispatcher ports.Dispatcher,
	logger *zap.Logger,
	defaultStrategy transport.Strategy,
	invocationTimeout time.Duration,
) *Manager {
	return &Manager{
		eventBus:          eventBus,
		store:             store,
		metrics:           metrics,
		validator:         validator,
		builder:           builder,
		dispatcher:        dispatcher,
		logger:            logger,
		defaultStrategy:   defaultStrategy,
		invocationTimeout: invocationTimeout,
	}
}

// Submit validates a batch and runs it. Synchronous batches return the
// completed invocation; async batches return as soon as the run is queued.
func (m *Manager) Submit(ctx context.Context, req *domain.BatchRequest) (*domain.Invocation, error) {
	if err := m.validator.Validate(req); err != nil {
		m.logger.Warn("batch validation failed", zap.Error(err))
		return nil, err
	}
	if req.Async && m.dispatcher == nil {
		return nil, ErrAsyncUnavailable
	}

	inv := &domain.Invocation{
		ID:          uuid.New().String(),
		Strategy:    m.resolveStrategy(req.Strategy),
		Status:      domain.InvocationStatusSubmitted,
		Steps:       req.Steps,
		SubmittedAt: time.Now(),
	}

	if err := m.store.Save(ctx, inv); err != nil {
		m.logger.Error("failed to save invocation",
			zap.String("invocation_id", inv.ID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to save invocation: %w", err)
	}

	publishEvent(ctx, m.eventBus, m.logger, domain.TopicInvocations, domain.EventTypeInvocationSubmitted, inv.ID, map[string]any{
		"strategy": string(inv.Strategy),
		"steps":    len(inv.Steps),
		"async":    req.Async,
	})
	m.metrics.RecordInvocationSubmitted(inv.Strategy, req.Async)

	m.logger.Info("invocation submitted",
		zap.String("invocation_id", inv.ID),
		zap.String("strategy", string(inv.Strategy)),
		zap.Int("steps", len(inv.Steps)),
		zap.Bool("async", req.Async))

	if req.Async {
		return m.dispatch(ctx, inv)
	}

	execCtx, cancel := context.WithTimeout(ctx, m.invocationTimeout)
	defer cancel()
	m.executions.Store(inv.ID, cancel)
	defer m.executions.Delete(inv.ID)

	m.execute(execCtx, inv)
	return inv, nil
}

// dispatch hands the run to the dispatcher and returns a snapshot of the
// submitted invocation
func (m *Manager) dispatch(ctx context.Context, inv *domain.Invocation) (*domain.Invocation, error) {
	submitted := *inv

	execCtx, cancel := context.WithTimeout(context.Background(), m.invocationTimeout)
	m.executions.Store(inv.ID, cancel)

	err := m.dispatcher.Dispatch(func(workerCtx context.Context) {
		stop := context.AfterFunc(workerCtx, cancel)
		defer stop()
		defer cancel()
		defer m.executions.Delete(inv.ID)

		if err := execCtx.Err(); err != nil {
			m.finish(execCtx, inv, nil, fmt.Errorf("%w: %w", ErrNotStarted, err), 0)
			return
		}
		m.execute(execCtx, inv)
	})
	if err != nil {
		cancel()
		m.executions.Delete(inv.ID)

		m.logger.Error("failed to dispatch invocation",
			zap.String("invocation_id", inv.ID),
			zap.Error(err))
		m.finish(ctx, inv, nil, fmt.Errorf("dispatch failed: %w", err), 0)
		return nil, fmt.Errorf("failed to dispatch invocation: %w", err)
	}

	return &submitted, nil
}

// execute runs the invocation's steps and records the result
func (m *Manager) execute(ctx context.Context, inv *domain.Invocation) {
	logger := m.logger.With(zap.String("invocation_id", inv.ID))

	startedAt := time.Now()
	inv.Status = domain.InvocationStatusRunning
	inv.StartedAt = &startedAt
	if err := m.store.Save(context.WithoutCancel(ctx), inv); err != nil {
		logger.Error("failed to save running invocation", zap.Error(err))
	}

	items, err := m.builder.Build(ctx, inv.Steps)
	if err != nil {
		m.finish(ctx, inv, nil, err, 0)
		return
	}

	steps := &stepPublisher{
		eventBus:     m.eventBus,
		invocationID: inv.ID,
		logger:       logger,
	}
	res, err := transport.Invoke(ctx, items,
		transport.WithStrategy(inv.Strategy),
		transport.WithLogger(logger),
		transport.WithObserver(m.metrics),
		transport.WithObserver(steps),
	)
	m.finish(ctx, inv, res, err, steps.Settled())
}

// finish stores the terminal state and publishes the completion event.
// settled is the number of step.settled events published for the run.
func (m *Manager) finish(ctx context.Context, inv *domain.Invocation, res *transport.Result, runErr error, settled int) {
	ctx = context.WithoutCancel(ctx)

	completedAt := time.Now()
	inv.CompletedAt = &completedAt
	inv.Result = res
	if runErr != nil {
		inv.Status = domain.InvocationStatusFailed
		inv.Error = runErr.Error()
	} else {
		inv.Status = domain.InvocationStatusCompleted
	}

	if err := m.store.Save(ctx, inv); err != nil {
		m.logger.Error("failed to save completed invocation",
			zap.String("invocation_id", inv.ID),
			zap.Error(err))
	}

	data := map[string]any{
		"status":                string(inv.Status),
		domain.DataStepsSettled: settled,
	}
	if res != nil {
		data["has_errors"] = res.HasErrors
	}
	if runErr != nil {
		data["error"] = runErr.Error()
	}
	publishEvent(ctx, m.eventBus, m.logger, domain.TopicInvocations, domain.EventTypeInvocationCompleted, inv.ID, data)

	fields := []zap.Field{
		zap.String("invocation_id", inv.ID),
		zap.String("status", string(inv.Status)),
		zap.Duration("duration", completedAt.Sub(inv.SubmittedAt)),
	}
	if runErr != nil {
		m.logger.Error("invocation failed", append(fields, zap.Error(runErr))...)
		return
	}
	m.logger.Info("invocation completed", append(fields, zap.Bool("has_errors", res.HasErrors))...)
}

// resolveStrategy applies the default strategy and the lenient fallback
func (m *Manager) resolveStrategy(requested string) transport.Strategy {
	if requested == "" {
		return m.defaultStrategy
	}

	strategy := transport.ParseStrategy(requested)
	if string(strategy) != requested {
		m.logger.Warn("unknown strategy, running as parallel",
			zap.String("requested", requested))
	}
	return strategy
}

// Get retrieves an invocation
func (m *Manager) Get(ctx context.Context, id string) (*domain.Invocation, error) {
	inv, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get invocation: %w", err)
	}
	return inv, nil
}

// List returns all stored invocations
func (m *Manager) List(ctx context.Context) ([]*domain.Invocation, error) {
	invocations, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list invocations: %w", err)
	}
	return invocations, nil
}

// Cancel cancels an in-flight invocation. Its operations observe the
// cancelled context and settle as failures.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	value, ok := m.executions.Load(id)
	if !ok {
		if _, err := m.store.Get(ctx, id); err != nil {
			return fmt.Errorf("failed to get invocation: %w", err)
		}
		return ErrNotRunning
	}

	value.(context.CancelFunc)()
	m.logger.Info("invocation cancelled", zap.String("invocation_id", id))
	return nil
}

// Shutdown cancels the context of every active invocation
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("shutting down orchestrator manager")

	m.executions.Range(func(key, value interface{}) bool {
		cancel := value.(context.CancelFunc)
		cancel()
		return true
	})

	m.logger.Info("orchestrator manager shut down complete")
	return nil
}
