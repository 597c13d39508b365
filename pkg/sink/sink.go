// Package sink delivers processed batches to their destination.
package sink

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wehubfusion/textprep/pkg/concurrency"
	"github.com/wehubfusion/textprep/pkg/item"
)

// Sink receives the batches of a run. Close flushes anything buffered.
type Sink interface {
	Write(ctx context.Context, batch []*item.Item) error
	Close(ctx context.Context) error
}

// Multi writes every batch to each sink in turn.
type Multi []Sink

func (m Multi) Write(ctx context.Context, batch []*item.Item) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Guarded stops writing to a sink that keeps failing.
type Guarded struct {
	name    string
	next    Sink
	breaker *concurrency.CircuitBreaker
	logger  *zap.Logger
}

// NewGuarded wraps next with breaker.
func NewGuarded(name string, next Sink, breaker *concurrency.CircuitBreaker, logger *zap.Logger) *Guarded {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guarded{name: name, next: next, breaker: breaker, logger: logger}
}

func (g *Guarded) Write(ctx context.Context, batch []*item.Item) error {
	err := g.breaker.Do(func() error { return g.next.Write(ctx, batch) })
	if errors.Is(err, concurrency.ErrCircuitOpen) {
		g.logger.Warn("sink circuit open, dropping batch", zap.String("sink", g.name), zap.Int("size", len(batch)))
	}
	if err != nil {
		return fmt.Errorf("sink %s: %w", g.name, err)
	}
	return nil
}

func (g *Guarded) Close(ctx context.Context) error {
	return g.next.Close(ctx)
}

var (
	_ Sink = Multi(nil)
	_ Sink = (*Guarded)(nil)
)
