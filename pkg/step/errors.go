package step

import (
	"fmt"

	"github.com/wehubfusion/textprep/pkg/config"
)

// ErrInvalidStepConfig is returned by constructors for options they cannot
// use. It belongs to the config.ErrConfig family.
var ErrInvalidStepConfig = fmt.Errorf("%w: invalid step options", config.ErrConfig)

// StepRuntimeError describes a failure inside a transformation. It is logged
// and reported, never returned to the caller of the pipeline.
type StepRuntimeError struct {
	StepType string
	ItemID   string
	Err      error
}

func (e *StepRuntimeError) Error() string {
	return fmt.Sprintf("step %s failed on item %s: %v", e.StepType, e.ItemID, e.Err)
}

func (e *StepRuntimeError) Unwrap() error { return e.Err }

// LoaderError describes a source that cannot be read. It aborts the run.
type LoaderError struct {
	Loader string
	Err    error
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("loader %s: %v", e.Loader, e.Err)
}

func (e *LoaderError) Unwrap() error { return e.Err }

// NewConstructionError wraps a constructor failure for stepType.
func NewConstructionError(stepType, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidStepConfig, stepType, fmt.Sprintf(format, args...))
}
