package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/smithcommajoseph/async-transport/pkg/ports"
)

var (
	// ErrQueueFull is returned by Dispatch when the job queue is at capacity
	ErrQueueFull = errors.New("worker queue is full")
	// ErrPoolClosed is returned by Dispatch after Shutdown
	ErrPoolClosed = errors.New("worker pool is closed")
)

// Pool manages a pool of worker goroutines draining a bounded job queue
type Pool struct {
	size    int
	metrics ports.MetricsCollector
	logger  *zap.Logger
	health  *HealthMonitor

	jobs    chan ports.Job
	workers []*worker
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// worker represents a single worker goroutine
type worker struct {
	id      string
	pool    *Pool
	status WorkerStatus
	mu     sync.RWMutex
}

// WorkerStatus represents worker status
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusBusy    WorkerStatus = "busy"
	WorkerStatusStopped WorkerStatus = "stopped"
)

// NewPool creates a new worker pool
func NewPool(
	size int,
	queueSize int,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	healthCheckInterval time.Duration,
) *Pool {
	if size < 1 {
		size = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		size:    size,
		metrics: metrics,
		logger:  logger,
		jobs:    make(chan ports.Job, queueSize),
		workers: make([]*worker, size),
		ctx:     ctx,
		cancel:  cancel,
	}

	pool.health = NewHealthMonitor(pool, healthCheckInterval, logger)

	return pool
}

// Start starts the worker pool
func (p *Pool) Start() error {
	p.logger.Info("starting worker pool",
		zap.Int("size", p.size),
		zap.Int("queue_size", cap(p.jobs)))

	for i := 0; i < p.size; i++ {
		w := &worker{
			id:     fmt.Sprintf("worker-%d", i),
			pool:   p,
			status: WorkerStatusIdle,
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(p.ctx)
	}

	p.health.Start()

	p.logger.Info("worker pool started", zap.Int("workers", p.size))
	return nil
}

// Dispatch queues a job. It never blocks: a full queue is reported as
// ErrQueueFull.
func (p *Pool) Dispatch(job ports.Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobs <- job:
		p.metrics.RecordQueueDepth(len(p.jobs))
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueDepth returns the number of queued jobs
func (p *Pool) QueueDepth() int {
	return len(p.jobs)
}

// Health returns the pool's health monitor
func (p *Pool) Health() *HealthMonitor {
	return p.health
}

// Shutdown stops accepting jobs, cancels running ones and waits for the
// workers to exit. Jobs still queued then run with the cancelled context so
// they can record their outcome.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.logger.Info("shutting down worker pool")

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.health.Stop()

	// Cancel context to signal workers to stop
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		p.drain()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

// drain runs the jobs left in the queue with the pool's cancelled context
func (p *Pool) drain() {
	var drained int
	for {
		select {
		case job := <-p.jobs:
			drained++
			p.runJob(p.ctx, job)
		default:
			if drained > 0 {
				p.logger.Info("drained queued jobs", zap.Int("count", drained))
				p.metrics.RecordQueueDepth(0)
			}
			return
		}
	}
}

// runJob runs a job, recovering panics
func (p *Pool) runJob(ctx context.Context, job ports.Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked", zap.Any("panic", r))
		}
	}()

	job(ctx)
}

// GetStatus returns the status of all workers
func (p *Pool) GetStatus() map[string]WorkerStatus {
	status := make(map[string]WorkerStatus)
	for _, w := range p.workers {
		if w == nil {
			continue
		}
		w.mu.RLock()
		status[w.id] = w.status
		w.mu.RUnlock()
	}
	return status
}

// run is the main worker loop
func (w *worker) run(ctx context.Context) {
	defer w.pool.wg.Done()

	w.pool.logger.Debug("worker started", zap.String("worker_id", w.id))

	for {
		select {
		case <-ctx.Done():
			w.setStatus(WorkerStatusStopped)
			w.pool.logger.Debug("worker stopped", zap.String("worker_id", w.id))
			return
		case job := <-w.pool.jobs:
			w.pool.metrics.RecordQueueDepth(len(w.pool.jobs))
			w.execute(ctx, job)
		}
	}
}

// execute runs a single job, marking the worker busy while it runs
func (w *worker) execute(ctx context.Context, job ports.Job) {
	w.setStatus(WorkerStatusBusy)
	defer w.setStatus(WorkerStatusIdle)

	startTime := time.Now()
	w.pool.runJob(ctx, job)

	w.pool.logger.Debug("job completed",
		zap.String("worker_id", w.id),
		zap.Duration("duration", time.Since(startTime)))
}

func (w *worker) setStatus(status WorkerStatus) {
	w.mu.Lock()
	w.status = status
	w.mu.Unlock()
}
