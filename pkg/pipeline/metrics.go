package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/wehubfusion/textprep/pkg/step"
)

// Metrics is a snapshot of one pipeline's counters.
type Metrics struct {
	TotalItemsProcessed int64
	TotalErrors         int64
	TotalSkipped        int64
	TotalBatches        int64
	ProcessingTimeNs    int64
	ConcurrentWorkers   int
}

// MetricsCollector receives pipeline events.
type MetricsCollector interface {
	// RecordProcessed records an item that went through the whole chain.
	RecordProcessed(durationNs int64)
	// RecordError records a step failure. The item itself is still processed.
	RecordError()
	// RecordSkipped records a malformed record dropped by the loader.
	RecordSkipped()
	// RecordBatch records an emitted batch.
	RecordBatch()
	SetWorkers(workers int)
	GetMetrics() Metrics
	Reset()
}

// DefaultMetricsCollector is a thread-safe MetricsCollector.
type DefaultMetricsCollector struct {
	processed        atomic.Int64
	errors           atomic.Int64
	skipped          atomic.Int64
	batches          atomic.Int64
	totalProcessTime atomic.Int64
	workers          int
	mu               sync.RWMutex
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *DefaultMetricsCollector {
	return &DefaultMetricsCollector{workers: 1}
}

func (m *DefaultMetricsCollector) RecordProcessed(durationNs int64) {
	m.processed.Add(1)
	m.totalProcessTime.Add(durationNs)
}

func (m *DefaultMetricsCollector) RecordError() {
	m.errors.Add(1)
}

func (m *DefaultMetricsCollector) RecordSkipped() {
	m.skipped.Add(1)
}

func (m *DefaultMetricsCollector) RecordBatch() {
	m.batches.Add(1)
}

// SetWorkers sets the number of workers of the current run.
func (m *DefaultMetricsCollector) SetWorkers(workers int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers = workers
}

// GetMetrics returns the current metrics.
func (m *DefaultMetricsCollector) GetMetrics() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Metrics{
		TotalItemsProcessed: m.processed.Load(),
		TotalErrors:         m.errors.Load(),
		TotalSkipped:        m.skipped.Load(),
		TotalBatches:        m.batches.Load(),
		ProcessingTimeNs:    m.totalProcessTime.Load(),
		ConcurrentWorkers:   m.workers,
	}
}

// Reset resets all counters.
func (m *DefaultMetricsCollector) Reset() {
	m.processed.Store(0)
	m.errors.Store(0)
	m.skipped.Store(0)
	m.batches.Store(0)
	m.totalProcessTime.Store(0)
}

// AverageProcessingTime returns the average chain time per item.
func (m *DefaultMetricsCollector) AverageProcessingTime() time.Duration {
	processed := m.processed.Load()
	if processed == 0 {
		return 0
	}
	return time.Duration(m.totalProcessTime.Load() / processed)
}

var _ MetricsCollector = (*DefaultMetricsCollector)(nil)

// NoOpMetricsCollector discards every event.
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordProcessed(int64) {}
func (NoOpMetricsCollector) RecordError()          {}
func (NoOpMetricsCollector) RecordSkipped()        {}
func (NoOpMetricsCollector) RecordBatch()          {}
func (NoOpMetricsCollector) SetWorkers(int)        {}
func (NoOpMetricsCollector) GetMetrics() Metrics   { return Metrics{} }
func (NoOpMetricsCollector) Reset()                {}

var _ MetricsCollector = NoOpMetricsCollector{}

// countingReporter counts step failures before forwarding them.
type countingReporter struct {
	next    step.Reporter
	metrics MetricsCollector
}

func (r countingReporter) Report(err error, tags map[string]string) {
	r.metrics.RecordError()
	r.next.Report(err, tags)
}
