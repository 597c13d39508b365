package step

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wehubfusion/textprep/pkg/config"
	"github.com/wehubfusion/textprep/pkg/item"
)

// BaseStep provides the identity, options and logging shared by steps.
// Embed it in step implementations.
type BaseStep struct {
	name     string
	stepType string
	options  map[string]interface{}
	logger   *zap.Logger
	reporter Reporter
}

// NewBaseStep creates a base step for a validated step config.
func NewBaseStep(cfg config.StepConfig, deps Deps) BaseStep {
	deps = deps.WithDefaults()
	options := cfg.Options
	if options == nil {
		options = make(map[string]interface{})
	}
	return BaseStep{
		name:     cfg.Name,
		stepType: cfg.Type,
		options:  options,
		logger:   LevelLogger(deps.Logger, cfg.Type, cfg.LogLevel),
		reporter: deps.Reporter,
	}
}

// NewNamedBase creates a base step for loaders and tokenizers, which carry
// no options of their own.
func NewNamedBase(name, stepType, level string, deps Deps) BaseStep {
	return NewBaseStep(config.StepConfig{Name: name, Type: stepType, LogLevel: level}, deps)
}

// LevelLogger returns a child of base named after the step that drops
// entries below level. A level the base logger cannot honour is ignored.
func LevelLogger(base *zap.Logger, stepType, level string) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	logger := base.Named(stepType).With(zap.String("step", stepType))
	if level == "" {
		return logger
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return logger
	}
	// IncreaseLevel may only raise the threshold of the existing core.
	if logger.Core().Enabled(lvl) {
		logger = logger.WithOptions(zap.IncreaseLevel(lvl))
	}
	return logger
}

// Name returns the section name.
func (b *BaseStep) Name() string {
	return b.name
}

// Type returns the step type.
func (b *BaseStep) Type() string {
	return b.stepType
}

// Logger returns the step's logger.
func (b *BaseStep) Logger() *zap.Logger {
	return b.logger
}

// Options returns the step's option map.
func (b *BaseStep) Options() map[string]interface{} {
	return b.options
}

// Fail logs err as a StepRuntimeError for it and returns it unchanged.
func (b *BaseStep) Fail(it *item.Item, err error) *item.Item {
	var id string
	if it != nil {
		id = it.ID
	}
	runtimeErr := &StepRuntimeError{StepType: b.stepType, ItemID: id, Err: err}
	b.logger.Error("step failed, item left unchanged",
		zap.String("item_id", id),
		zap.Error(runtimeErr),
	)
	b.reporter.Report(runtimeErr, map[string]string{"step": b.stepType, "item_id": id})
	return it
}

// GetOption returns an option value by key.
func (b *BaseStep) GetOption(key string) interface{} {
	return b.options[key]
}

// HasOption checks if an option key exists.
func (b *BaseStep) HasOption(key string) bool {
	_, ok := b.options[key]
	return ok
}

// GetOptionString returns an option value as string.
func (b *BaseStep) GetOptionString(key string) string {
	if v, ok := b.options[key].(string); ok {
		return v
	}
	return ""
}

// GetOptionStringWithDefault returns an option value as string with default.
func (b *BaseStep) GetOptionStringWithDefault(key, defaultVal string) string {
	if v, ok := b.options[key].(string); ok && v != "" {
		return v
	}
	return defaultVal
}

// GetOptionBool returns an option value as bool.
func (b *BaseStep) GetOptionBool(key string) bool {
	if v, ok := b.options[key].(bool); ok {
		return v
	}
	return false
}

// GetOptionIntWithDefault returns an option value as int with default.
func (b *BaseStep) GetOptionIntWithDefault(key string, defaultVal int) int {
	switch v := b.options[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case int64:
		return int(v)
	case int32:
		return int(v)
	}
	return defaultVal
}

// GetOptionStringSlice returns an option value as string slice.
func (b *BaseStep) GetOptionStringSlice(key string) ([]string, error) {
	v, ok := b.options[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := config.StringList(v)
	if !ok {
		return nil, NewConstructionError(b.stepType, "option %s must be a list of strings, got %T", key, v)
	}
	return list, nil
}

func (b *BaseStep) String() string {
	return fmt.Sprintf("%s/%s", b.name, b.stepType)
}
