package pipeline

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wehubfusion/textprep/pkg/item"
)

// ProcessConcurrent runs the chain over every item from src on the
// configured number of workers and returns the results in completion order.
//
// Each worker owns a chain built from the same config, so steps are never
// shared between goroutines. The driver enqueues every loaded item, joins on
// the ingress queue, then drains exactly as many results as it enqueued.
// Cancelling ctx releases the join and stops the workers.
func (p *Pipeline) ProcessConcurrent(ctx context.Context, src interface{}) ([]*item.Item, error) {
	if err := p.checkRun("concurrent", src); err != nil {
		return nil, err
	}

	workers := p.opts.workers
	p.opts.metrics.SetWorkers(workers)

	ctx, span := p.opts.tracer.Start(ctx, "pipeline.ProcessConcurrent",
		trace.WithAttributes(
			attribute.String("pipeline.run_id", p.runID),
			attribute.String("pipeline.loader", p.loader.Type()),
			attribute.Int("pipeline.workers", workers),
		))
	defer span.End()

	chains := make([]*chain, workers)
	for i := range chains {
		logger := p.runLogger.With(zap.Int("worker_id", i))
		_, steps, err := p.registry(logger).BuildChain(p.cfg)
		if err != nil {
			return nil, fmt.Errorf("worker %d: %w", i, err)
		}
		chains[i] = p.newChain(steps, p.logger.With(zap.Int("worker_id", i)))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ingress := newQueue[*item.Item]()
	egress := newQueue[*item.Item]()

	g, gctx := errgroup.WithContext(runCtx)
	for i, c := range chains {
		g.Go(func() error {
			p.worker(gctx, i, c, ingress, egress)
			return nil
		})
	}
	p.logger.Debug("worker pool started", zap.Int("workers", workers))

	enqueued := 0
	var runErr error
	for it, err := range p.loader.Items(runCtx, src) {
		if err != nil {
			if p.skipMalformed(err) {
				continue
			}
			p.abort(span, err)
			runErr = err
			break
		}
		ingress.Put(it)
		enqueued++
	}

	if runErr == nil {
		runErr = ingress.Join(runCtx)
	}
	if runErr != nil {
		cancel()
	}
	ingress.Close()
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return nil, runErr
	}

	results := make([]*item.Item, 0, enqueued)
	for len(results) < enqueued {
		it, ok := egress.Get(ctx)
		if !ok {
			return nil, fmt.Errorf("drained %d of %d results: %w", len(results), enqueued, ctx.Err())
		}
		egress.TaskDone()
		results = append(results, it)
	}

	span.SetAttributes(attribute.Int("pipeline.items", enqueued))
	p.logger.Info("concurrent run complete", zap.Int("items", enqueued), zap.Int("workers", workers))
	return results, nil
}

// worker takes items until the ingress queue is closed and empty or ctx is
// done. Completion is acknowledged even if the chain panics.
func (p *Pipeline) worker(ctx context.Context, id int, c *chain, ingress, egress *queue[*item.Item]) {
	p.logger.Debug("worker started", zap.Int("worker_id", id))
	defer p.logger.Debug("worker stopped", zap.Int("worker_id", id))

	for {
		it, ok := ingress.Get(ctx)
		if !ok {
			return
		}
		func() {
			defer ingress.TaskDone()
			egress.Put(c.run(ctx, it))
		}()
	}
}
