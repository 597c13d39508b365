// Package loaders implements the data loaders that feed a pipeline.
package loaders

import (
	"context"
	"fmt"
	"iter"
	"reflect"

	"go.uber.org/zap"

	"github.com/wehubfusion/textprep/pkg/config"
	"github.com/wehubfusion/textprep/pkg/item"
	"github.com/wehubfusion/textprep/pkg/step"
)

// base carries what every loader needs to shape records into items.
type base struct {
	step.BaseStep
	buildOpts []item.BuildOption
}

func newBase(cfg config.LoaderConfig, deps step.Deps) base {
	b := base{BaseStep: step.NewNamedBase(config.SectionLoader, cfg.Type, cfg.LogLevel, deps)}
	if cfg.Columns != nil && len(cfg.Columns.AdditionalColumns) > 0 {
		b.buildOpts = append(b.buildOpts, item.WithAdditionalKeys(cfg.Columns.AdditionalColumns...))
	}
	if cfg.PreserveOriginal {
		b.buildOpts = append(b.buildOpts, item.WithPreserveOriginal(true))
	}
	return b
}

func (b *base) build(raw interface{}) (*item.Item, error) {
	return item.Build(raw, b.buildOpts...)
}

func (b *base) loaderError(err error) error {
	return &step.LoaderError{Loader: b.Type(), Err: err}
}

// List yields one item per element of an in-memory slice.
type List struct {
	base
}

// NewList creates the list loader.
func NewList(cfg config.LoaderConfig, deps step.Deps) (step.Loader, error) {
	return &List{base: newBase(cfg, deps)}, nil
}

// Items implements step.Loader. source must be a slice; each element is a
// scalar or a record with a data field.
func (l *List) Items(ctx context.Context, source interface{}) iter.Seq2[*item.Item, error] {
	return func(yield func(*item.Item, error) bool) {
		v := reflect.ValueOf(source)
		if source == nil || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
			l.Logger().Error("bad data type passed to list loader", zap.String("type", fmt.Sprintf("%T", source)))
			yield(nil, l.loaderError(fmt.Errorf("source must be a list, got %T", source)))
			return
		}

		l.Logger().Debug("loading items from list", zap.Int("count", v.Len()))
		for i := 0; i < v.Len(); i++ {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			it, err := l.build(v.Index(i).Interface())
			if err != nil {
				err = fmt.Errorf("list element %d: %w", i, err)
			}
			if !yield(it, err) {
				return
			}
		}
	}
}

// SingleItem yields exactly one item built from a scalar or a record.
type SingleItem struct {
	base
}

// NewSingleItem creates the single_item loader.
func NewSingleItem(cfg config.LoaderConfig, deps step.Deps) (step.Loader, error) {
	return &SingleItem{base: newBase(cfg, deps)}, nil
}

// Items implements step.Loader.
func (l *SingleItem) Items(ctx context.Context, source interface{}) iter.Seq2[*item.Item, error] {
	return func(yield func(*item.Item, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(nil, err)
			return
		}
		yield(l.build(source))
	}
}

var (
	_ step.Loader = (*List)(nil)
	_ step.Loader = (*SingleItem)(nil)
)
