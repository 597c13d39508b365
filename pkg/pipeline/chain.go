package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wehubfusion/textprep/pkg/item"
	"github.com/wehubfusion/textprep/pkg/step"
)

// chain threads items through an ordered list of steps. A chain is owned by
// one goroutine at a time.
type chain struct {
	steps    []step.Transformer
	logger   *zap.Logger
	tracer   trace.Tracer
	metrics  MetricsCollector
	reporter step.Reporter
}

// run applies every step to it in order. An item whose data becomes empty
// skips the rest of the chain.
func (c *chain) run(ctx context.Context, it *item.Item) *item.Item {
	ctx, span := c.tracer.Start(ctx, "pipeline.processItem",
		trace.WithAttributes(attribute.String("item.id", it.ID)))
	defer span.End()

	start := time.Now()
	for i, s := range c.steps {
		if it.IsEmpty() {
			c.logger.Debug("item data is empty, skipping remaining steps",
				zap.String("item_id", it.ID),
				zap.Int("skipped_steps", len(c.steps)-i))
			span.SetAttributes(attribute.Bool("item.short_circuit", true))
			break
		}
		it = c.apply(ctx, s, it)
	}
	c.metrics.RecordProcessed(time.Since(start).Nanoseconds())
	return it
}

// apply runs one step. A panicking step is treated like a step that failed:
// the item it was given is passed on.
func (c *chain) apply(ctx context.Context, s step.Transformer, it *item.Item) (out *item.Item) {
	_, span := c.tracer.Start(ctx, "step."+s.Type(),
		trace.WithAttributes(
			attribute.String("step.name", s.Name()),
			attribute.String("step.type", s.Type()),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := &step.StepRuntimeError{StepType: s.Type(), ItemID: it.ID, Err: fmt.Errorf("panic: %v", r)}
			c.logger.Error("step panicked",
				zap.String("step", s.Type()),
				zap.String("item_id", it.ID),
				zap.Error(err))
			c.reporter.Report(err, map[string]string{"step": s.Type(), "item_id": it.ID})
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			out = it
		}
	}()

	out = s.Process(it)
	if out == nil {
		out = it
	}
	return out
}
