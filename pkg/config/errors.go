package config

import (
	"errors"
	"fmt"
)

// ErrConfig is the root of every configuration error. Any error returned by
// Validate satisfies errors.Is(err, ErrConfig).
var ErrConfig = errors.New("invalid pipeline configuration")

// Configuration error kinds.
var (
	// ErrMissingSection is returned when a required section or key is absent.
	ErrMissingSection = fmt.Errorf("%w: missing section", ErrConfig)

	// ErrUnknownLoaderType is returned when the loader type is not in the closed loader set.
	ErrUnknownLoaderType = fmt.Errorf("%w: unknown loader type", ErrConfig)

	// ErrUnknownTokenizerType is returned when the tokenizer type is not in the closed tokenizer set.
	ErrUnknownTokenizerType = fmt.Errorf("%w: unknown tokenizer type", ErrConfig)

	// ErrUnknownStepType is returned when a step declares an unknown (name, type) pair.
	ErrUnknownStepType = fmt.Errorf("%w: unknown step type", ErrConfig)

	// ErrInvalidOption is returned for malformed option values.
	ErrInvalidOption = fmt.Errorf("%w: invalid option", ErrConfig)

	// ErrStepOrder is returned when a step runs after a step it must precede.
	ErrStepOrder = fmt.Errorf("%w: step order violation", ErrConfig)

	// ErrMissingPrerequisite is returned when a step's prerequisite has not run yet.
	ErrMissingPrerequisite = fmt.Errorf("%w: missing prerequisite step", ErrConfig)
)

// ConfigError describes a rejected field of the pipeline configuration.
type ConfigError struct {
	Section string
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: config error [%s]: %s", e.Section, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: config error: %s", e.Section, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a ConfigError wrapping kind.
func NewConfigError(section, field, message string, kind error) *ConfigError {
	return &ConfigError{Section: section, Field: field, Message: message, Err: kind}
}

// StepOrderError is returned when Step appears after Conflicting although
// Step must run before it.
type StepOrderError struct {
	Index       int
	Step        string
	Conflicting string
}

func (e *StepOrderError) Error() string {
	return fmt.Sprintf("steps[%d]: the %s step can not run after the %s step", e.Index, e.Step, e.Conflicting)
}

func (e *StepOrderError) Unwrap() error { return ErrStepOrder }

// MissingPrerequisiteError is returned when Step requires Prerequisite to
// have already run.
type MissingPrerequisiteError struct {
	Index        int
	Step         string
	Prerequisite string
}

func (e *MissingPrerequisiteError) Error() string {
	return fmt.Sprintf("steps[%d]: the %s step requires the %s step to run before it", e.Index, e.Step, e.Prerequisite)
}

func (e *MissingPrerequisiteError) Unwrap() error { return ErrMissingPrerequisite }
