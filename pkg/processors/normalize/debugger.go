package normalize

import (
	"go.uber.org/zap"

	"github.com/wehubfusion/textprep/pkg/config"
	"github.com/wehubfusion/textprep/pkg/item"
	"github.com/wehubfusion/textprep/pkg/step"
)

// Debugger logs the item as it passes and never changes it.
type Debugger struct {
	step.BaseStep
}

// NewDebugger creates the debugger_step step.
func NewDebugger(cfg config.StepConfig, deps step.Deps) (step.Transformer, error) {
	return &Debugger{BaseStep: step.NewBaseStep(cfg, deps)}, nil
}

// Process implements step.Transformer.
func (s *Debugger) Process(it *item.Item) *item.Item {
	s.Logger().Warn("debugger step",
		zap.String("item_id", it.ID),
		zap.Any("data", it.Data),
		zap.Any("tags", it.Tags),
	)
	return it
}
