package prometheus

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/smithcommajoseph/async-transport/pkg/transport"
)

// Collector implements MetricsCollector using Prometheus. It registers on its
// own registry so several collectors can coexist in one process.
type Collector struct {
	registry *prometheus.Registry

	invocationsSubmitted *prometheus.CounterVec
	invocationsCompleted *prometheus.CounterVec
	invocationDuration   *prometheus.HistogramVec
	operations           *prometheus.CounterVec
	operationDuration    *prometheus.HistogramVec
	workerPoolIdle       prometheus.Gauge
	workerPoolBusy       prometheus.Gauge
	workerPoolStopped    prometheus.Gauge
	queueDepth           prometheus.Gauge
}

// NewCollector creates a new Prometheus metrics collector
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		invocationsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atransport_invocations_submitted_total",
				Help: "Total number of invocations submitted",
			},
			[]string{"strategy", "mode"},
		),
		invocationsCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atransport_invocations_completed_total",
				Help: "Total number of invocations completed",
			},
			[]string{"strategy", "has_errors"},
		),
		invocationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "atransport_invocation_duration_seconds",
				Help:    "Invocation duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"strategy"},
		),
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atransport_operations_total",
				Help: "Total number of settled operations",
			},
			[]string{"strategy", "outcome"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "atransport_operation_duration_seconds",
				Help:    "Operation duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"strategy"},
		),
		workerPoolIdle: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "atransport_worker_pool_idle",
				Help: "Number of idle workers",
			},
		),
		workerPoolBusy: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "atransport_worker_pool_busy",
				Help: "Number of busy workers",
			},
		),
		workerPoolStopped: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "atransport_worker_pool_stopped",
				Help: "Number of stopped workers",
			},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "atransport_queue_depth",
				Help: "Number of invocations waiting for a worker",
			},
		),
	}
}

// Registry returns the registry the metrics are registered on
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordInvocationSubmitted counts a submitted invocation
func (c *Collector) RecordInvocationSubmitted(strategy transport.Strategy, async bool) {
	mode := "sync"
	if async {
		mode = "async"
	}
	c.invocationsSubmitted.WithLabelValues(string(strategy), mode).Inc()
}

// OperationSettled records one operation outcome
func (c *Collector) OperationSettled(_ context.Context, strategy transport.Strategy, _ int, outcome transport.Outcome, duration time.Duration) {
	label := "success"
	if outcome.Err != nil {
		label = "failure"
	}
	c.operations.WithLabelValues(string(strategy), label).Inc()
	c.operationDuration.WithLabelValues(string(strategy)).Observe(duration.Seconds())
}

// InvocationCompleted records a completed invocation
func (c *Collector) InvocationCompleted(_ context.Context, strategy transport.Strategy, result *transport.Result, duration time.Duration) {
	c.invocationsCompleted.WithLabelValues(string(strategy), strconv.FormatBool(result.HasErrors)).Inc()
	c.invocationDuration.WithLabelValues(string(strategy)).Observe(duration.Seconds())
}

// RecordWorkerPoolStatus records worker pool status
func (c *Collector) RecordWorkerPoolStatus(idle, busy, stopped int) {
	c.workerPoolIdle.Set(float64(idle))
	c.workerPoolBusy.Set(float64(busy))
	c.workerPoolStopped.Set(float64(stopped))
}

// RecordQueueDepth records the number of queued invocations
func (c *Collector) RecordQueueDepth(depth int) {
	c.queueDepth.Set(float64(depth))
}
