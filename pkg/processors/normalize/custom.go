package normalize

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/wehubfusion/textprep/pkg/config"
	"github.com/wehubfusion/textprep/pkg/item"
	"github.com/wehubfusion/textprep/pkg/step"
)

const defaultScriptTimeout = 1000 * time.Millisecond

// ErrScriptTimeout is returned when a custom script runs past its timeout.
var ErrScriptTimeout = errors.New("custom script timed out")

// blockedGlobals are removed from every custom script runtime.
var blockedGlobals = []string{
	"require",
	"module",
	"exports",
	"global",
	"Buffer",
	"setImmediate",
	"clearImmediate",
}

// CustomNormalize runs a user supplied JavaScript function on each item.
//
// The script must define process(item). item has id, data and tags fields.
// The function returns either the new data (a string or an array of
// strings) or an object with data and optionally tags.
type CustomNormalize struct {
	step.BaseStep
	vm      *goja.Runtime
	process goja.Callable
	timeout time.Duration

	afterFunc func(time.Duration, func()) *time.Timer
}

// NewCustomNormalize compiles the script option into a dedicated runtime.
func NewCustomNormalize(cfg config.StepConfig, deps step.Deps) (step.Transformer, error) {
	s := &CustomNormalize{BaseStep: step.NewBaseStep(cfg, deps), afterFunc: time.AfterFunc}

	script := s.GetOptionString("script")
	if script == "" {
		return nil, step.NewConstructionError(cfg.Type, "the script option is required")
	}
	timeoutMs := s.GetOptionIntWithDefault("timeout_ms", int(defaultScriptTimeout/time.Millisecond))
	if timeoutMs <= 0 {
		return nil, step.NewConstructionError(cfg.Type, "timeout_ms must be positive, got %d", timeoutMs)
	}
	s.timeout = time.Duration(timeoutMs) * time.Millisecond

	s.vm = goja.New()
	for _, name := range blockedGlobals {
		if err := s.vm.Set(name, goja.Undefined()); err != nil {
			return nil, fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}

	if err := s.guard(func() error {
		_, err := s.vm.RunString(script)
		return err
	}); err != nil {
		return nil, step.NewConstructionError(cfg.Type, "script failed to load: %v", err)
	}

	fn, ok := goja.AssertFunction(s.vm.Get("process"))
	if !ok {
		return nil, step.NewConstructionError(cfg.Type, "script does not define a process function")
	}
	s.process = fn
	return s, nil
}

// Process implements step.Transformer.
func (s *CustomNormalize) Process(it *item.Item) *item.Item {
	// The script sees a copy so a failing call cannot leave partial edits.
	snapshot := it.Clone()
	input := map[string]interface{}{
		"id":   snapshot.ID,
		"data": snapshot.Data,
		"tags": snapshot.Tags,
	}

	var result goja.Value
	err := s.guard(func() error {
		var callErr error
		result, callErr = s.process(goja.Undefined(), s.vm.ToValue(input))
		return callErr
	})
	if err != nil {
		return s.Fail(it, err)
	}

	data, tags, err := exportResult(result)
	if err != nil {
		return s.Fail(it, err)
	}
	it.Data = data
	if tags != nil {
		it.Tags = tags
	}
	return it
}

// guard runs fn with the runtime's interrupt armed for the step timeout.
// Once guard returns, a late timer callback cannot interrupt the runtime.
func (s *CustomNormalize) guard(fn func() error) error {
	var mu sync.Mutex
	done := false
	timer := s.afterFunc(s.timeout, func() {
		mu.Lock()
		defer mu.Unlock()
		if !done {
			s.vm.Interrupt(ErrScriptTimeout)
		}
	})
	defer func() {
		mu.Lock()
		done = true
		mu.Unlock()
		timer.Stop()
		s.vm.ClearInterrupt()
	}()

	err := fn()
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fmt.Errorf("%w after %s", ErrScriptTimeout, s.timeout)
	}
	return err
}

func exportResult(v goja.Value) (interface{}, map[string]interface{}, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil, errors.New("process returned no value")
	}
	switch out := v.Export().(type) {
	case string:
		return out, nil, nil
	case []interface{}:
		tokens, ok := config.StringList(out)
		if !ok {
			return nil, nil, errors.New("process returned a non-string array element")
		}
		return tokens, nil, nil
	case map[string]interface{}:
		raw, ok := out["data"]
		if !ok {
			return nil, nil, errors.New("process returned an object without data")
		}
		var data interface{}
		switch d := raw.(type) {
		case string:
			data = d
		case []interface{}:
			tokens, ok := config.StringList(d)
			if !ok {
				return nil, nil, errors.New("process returned a non-string data element")
			}
			data = tokens
		case []string:
			data = d
		default:
			return nil, nil, fmt.Errorf("process returned data of type %T", raw)
		}
		tags, _ := out["tags"].(map[string]interface{})
		return data, tags, nil
	default:
		return nil, nil, fmt.Errorf("process returned %T", out)
	}
}
