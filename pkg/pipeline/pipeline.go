// Package pipeline runs validated text-normalization pipelines.
//
// A Pipeline is built once from a config.PipelineConfig. ProcessData pulls
// items from the loader in order and emits them in batches; ProcessConcurrent
// fans the same items out to a fixed number of workers, each with its own
// copy of the step chain, and returns them unordered; ProcessItem runs the
// chain over one value from a single_item loader.
//
// A Pipeline runs one operation at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wehubfusion/textprep/pkg/config"
	"github.com/wehubfusion/textprep/pkg/item"
	"github.com/wehubfusion/textprep/pkg/registry"
	"github.com/wehubfusion/textprep/pkg/step"
)

// State is the position of the sequential executor.
type State int32

const (
	StateIdle State = iota
	StateDraining
	StateBatching
	StateFlushing
	StateDrained
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDraining:
		return "draining"
	case StateBatching:
		return "batching"
	case StateFlushing:
		return "flushing"
	case StateDrained:
		return "drained"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// maxBatchPrealloc caps the capacity reserved for a batch up front; larger
// batches grow as items arrive.
const maxBatchPrealloc = 1024

// Pipeline is a materialized pipeline: a loader and an ordered step chain.
type Pipeline struct {
	cfg       *config.PipelineConfig
	opts      options
	runID     string
	logger    *zap.Logger
	runLogger *zap.Logger
	loader    step.Loader
	chain     *chain
	batchSize int
	state     atomic.Int32
}

// New resolves every component of cfg. Construction errors belong to the
// config.ErrConfig family; nothing is read from any source.
func New(cfg *config.PipelineConfig, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: pipeline config is nil", config.ErrMissingSection)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.validate()

	runID := uuid.NewString()
	runLogger := o.logger.With(zap.String("run_id", runID))
	logger := atLevel(runLogger.Named("pipeline"), cfg.LogLevel())

	p := &Pipeline{
		cfg:       cfg,
		opts:      o,
		runID:     runID,
		logger:    logger,
		runLogger: runLogger,
		batchSize: cfg.BatchSize(),
	}

	components, err := p.registry(runLogger).Build(cfg)
	if err != nil {
		logger.Error("failed to build pipeline", zap.Error(err))
		return nil, err
	}
	p.loader = components.Loader
	p.chain = p.newChain(components.Steps, logger)

	logger.Info("pipeline built",
		zap.String("loader", p.loader.Type()),
		zap.String("tokenizer", components.Tokenizer.Type()),
		zap.Int("steps", len(components.Steps)),
		zap.Int("batch_size", p.batchSize))
	return p, nil
}

// atLevel raises the threshold of logger to level. A level below the
// logger's own is ignored.
func atLevel(logger *zap.Logger, level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil || !logger.Core().Enabled(lvl) {
		return logger
	}
	return logger.WithOptions(zap.IncreaseLevel(lvl))
}

func (p *Pipeline) registry(logger *zap.Logger) *registry.Registry {
	return registry.New(step.Deps{
		Logger:   logger,
		Reporter: countingReporter{next: p.opts.reporter, metrics: p.opts.metrics},
	})
}

func (p *Pipeline) newChain(steps []step.Transformer, logger *zap.Logger) *chain {
	return &chain{
		steps:    steps,
		logger:   logger,
		tracer:   p.opts.tracer,
		metrics:  p.opts.metrics,
		reporter: countingReporter{next: p.opts.reporter, metrics: p.opts.metrics},
	}
}

// RunID identifies this pipeline in logs and spans.
func (p *Pipeline) RunID() string {
	return p.runID
}

// State returns the sequential executor's current state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Metrics returns a snapshot of the configured collector.
func (p *Pipeline) Metrics() Metrics {
	return p.opts.metrics.GetMetrics()
}

func (p *Pipeline) setState(s State) {
	p.state.Store(int32(s))
}

// checkRun rejects modes the loader cannot serve.
func (p *Pipeline) checkRun(mode string, src interface{}) error {
	if p.loader.Type() == config.LoaderSingleItem {
		return &IncompatibleModeError{Loader: p.loader.Type(), Mode: mode}
	}
	if src == nil && p.loader.Type() != config.LoaderCSV {
		return fmt.Errorf("%w: loader %s needs a source", ErrNilSource, p.loader.Type())
	}
	return nil
}

// skipMalformed logs a record the loader could not shape. It reports
// whether err was such a record.
func (p *Pipeline) skipMalformed(err error) bool {
	if !errors.Is(err, item.ErrMalformedItem) {
		return false
	}
	p.logger.Warn("skipping malformed record", zap.Error(err))
	p.opts.metrics.RecordSkipped()
	return true
}

// abort ends a run on a loader error. Cancellation by the caller is logged
// but not reported.
func (p *Pipeline) abort(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		p.logger.Info("run cancelled", zap.Error(err))
		return
	}
	p.logger.Error("loader failed, aborting run", zap.Error(err))
	p.opts.reporter.Report(err, map[string]string{"loader": p.loader.Type(), "run_id": p.runID})
}

// ProcessData runs the chain over every item from src and yields batches of
// the configured size, in input order. The last batch may be shorter. A
// loader failure is yielded once and ends the sequence.
func (p *Pipeline) ProcessData(ctx context.Context, src interface{}) iter.Seq2[[]*item.Item, error] {
	return func(yield func([]*item.Item, error) bool) {
		if err := p.checkRun("batch", src); err != nil {
			yield(nil, err)
			return
		}

		ctx, span := p.opts.tracer.Start(ctx, "pipeline.ProcessData",
			trace.WithAttributes(
				attribute.String("pipeline.run_id", p.runID),
				attribute.String("pipeline.loader", p.loader.Type()),
				attribute.Int("pipeline.batch_size", p.batchSize),
			))
		defer span.End()

		p.setState(StateDraining)
		defer p.setState(StateDrained)

		count := 0
		batchCap := min(p.batchSize, maxBatchPrealloc)
		batch := make([]*item.Item, 0, batchCap)
		flush := func() bool {
			p.setState(StateFlushing)
			p.opts.metrics.RecordBatch()
			p.logger.Debug("emitting batch", zap.Int("size", len(batch)))
			out := batch
			batch = make([]*item.Item, 0, batchCap)
			return yield(out, nil)
		}

		for it, err := range p.loader.Items(ctx, src) {
			if err != nil {
				if p.skipMalformed(err) {
					continue
				}
				p.abort(span, err)
				yield(nil, err)
				return
			}

			p.setState(StateBatching)
			batch = append(batch, p.chain.run(ctx, it))
			count++
			if len(batch) == p.batchSize && !flush() {
				return
			}
		}
		if len(batch) > 0 && !flush() {
			return
		}

		span.SetAttributes(attribute.Int("pipeline.items", count))
		p.logger.Info("run complete", zap.Int("items", count))
	}
}

// ProcessItem runs the chain over the single item built from v. It requires
// a single_item loader.
func (p *Pipeline) ProcessItem(ctx context.Context, v interface{}) (*item.Item, error) {
	if p.loader.Type() != config.LoaderSingleItem {
		return nil, &IncompatibleModeError{Loader: p.loader.Type(), Mode: "item"}
	}

	ctx, span := p.opts.tracer.Start(ctx, "pipeline.ProcessItem",
		trace.WithAttributes(attribute.String("pipeline.run_id", p.runID)))
	defer span.End()

	for it, err := range p.loader.Items(ctx, v) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if errors.Is(err, item.ErrMalformedItem) {
				p.opts.metrics.RecordSkipped()
			}
			p.logger.Error("failed to load item", zap.Error(err))
			return nil, err
		}
		return p.chain.run(ctx, it), nil
	}
	return nil, fmt.Errorf("%w: loader produced no item", item.ErrMalformedItem)
}
