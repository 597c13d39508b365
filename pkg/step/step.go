// Package step defines the contracts every pipeline unit implements.
//
// A pipeline is built from one Loader, one shared Tokenizer and an ordered
// list of Transformers. All of them are constructed by the registry from a
// validated config fragment; construction is the only place configuration
// errors are raised.
package step

import (
	"context"
	"iter"

	"go.uber.org/zap"

	"github.com/wehubfusion/textprep/pkg/item"
)

// Step is the identity shared by every pipeline unit.
type Step interface {
	// Name returns the section name, e.g. "normalize_text".
	Name() string

	// Type returns the step type, e.g. "lowercase".
	Type() string
}

// Transformer rewrites one item.
//
// Process must not panic or fail for a structurally valid item. Internal
// failures are logged as a StepRuntimeError and the item is returned
// unchanged.
type Transformer interface {
	Step
	Process(it *item.Item) *item.Item
}

// Loader produces the initial item sequence from a source.
//
// The sequence is lazy and can be ranged over once. Records that cannot be
// shaped into an item are yielded as errors wrapping item.ErrMalformedItem;
// callers log and skip them. Any other error is a LoaderError and aborts
// the run.
type Loader interface {
	Step
	Items(ctx context.Context, source interface{}) iter.Seq2[*item.Item, error]
}

// Tokenizer splits text into tokens for steps that work on words.
type Tokenizer interface {
	Step
	Tokenize(text string) []string
}

// Reporter receives step and loader failures for out-of-band reporting.
type Reporter interface {
	Report(err error, tags map[string]string)
}

// Deps are the collaborators injected into every step constructor.
type Deps struct {
	Logger    *zap.Logger
	Tokenizer Tokenizer
	Reporter  Reporter
}

// WithDefaults returns d with a no-op logger and reporter filled in.
func (d Deps) WithDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Reporter == nil {
		d.Reporter = NoOpReporter{}
	}
	return d
}

// NoOpReporter discards every report.
type NoOpReporter struct{}

func (NoOpReporter) Report(error, map[string]string) {}

var _ Reporter = NoOpReporter{}
