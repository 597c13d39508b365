package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompatibleMode is returned when a run mode cannot drive the
	// configured loader, e.g. batching a single_item loader.
	ErrIncompatibleMode = errors.New("incompatible run mode")

	// ErrNilSource is returned when a run is started without a source and
	// the loader cannot supply one itself.
	ErrNilSource = errors.New("source is nil")
)

// IncompatibleModeError names the loader and the mode that was refused.
type IncompatibleModeError struct {
	Loader string
	Mode   string
}

func (e *IncompatibleModeError) Error() string {
	return fmt.Sprintf("%v: loader %s cannot run in %s mode", ErrIncompatibleMode, e.Loader, e.Mode)
}

func (e *IncompatibleModeError) Unwrap() error { return ErrIncompatibleMode }
