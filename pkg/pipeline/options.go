package pipeline

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wehubfusion/textprep/pkg/step"
)

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	tracer   trace.Tracer
	workers  int
	metrics  MetricsCollector
	reporter step.Reporter
}

func defaultOptions() options {
	return options{
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("textprep/pipeline"),
		workers:  1,
		metrics:  NoOpMetricsCollector{},
		reporter: step.NoOpReporter{},
	}
}

// validate applies defaults for unset or out-of-range values.
func (o *options) validate() {
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer("textprep/pipeline")
	}
	if o.workers <= 0 {
		o.workers = 1
	}
	if o.metrics == nil {
		o.metrics = NoOpMetricsCollector{}
	}
	if o.reporter == nil {
		o.reporter = step.NoOpReporter{}
	}
}

// WithLogger sets the base logger. Every step gets a named child of it.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracer sets the tracer used for run, item and step spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithWorkers sets the worker count for ProcessConcurrent. Default: 1.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m MetricsCollector) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithReporter sets where step and loader failures are reported.
func WithReporter(r step.Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}
