package step

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wehubfusion/textprep/pkg/config"
	"github.com/wehubfusion/textprep/pkg/item"
)

type recordingReporter struct {
	errs []error
	tags []map[string]string
}

func (r *recordingReporter) Report(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}

type fieldsTokenizer struct{}

func (fieldsTokenizer) Name() string                   { return config.SectionTokenizer }
func (fieldsTokenizer) Type() string                   { return "fields" }
func (fieldsTokenizer) Tokenize(text string) []string { return strings.Fields(text) }

func TestBaseStepOptions(t *testing.T) {
	b := NewBaseStep(config.StepConfig{
		Name: config.SectionSteps,
		Type: config.StepRemoveStopwords,
		Options: map[string]interface{}{
			"list":       "custom",
			"words":      []interface{}{"a", "the"},
			"save_urls":  true,
			"timeout_ms": float64(250),
			"bad_words":  []interface{}{1},
		},
	}, Deps{})

	assert.Equal(t, config.SectionSteps, b.Name())
	assert.Equal(t, config.StepRemoveStopwords, b.Type())
	assert.Equal(t, "custom", b.GetOptionString("list"))
	assert.Equal(t, "fallback", b.GetOptionStringWithDefault("missing", "fallback"))
	assert.True(t, b.GetOptionBool("save_urls"))
	assert.False(t, b.GetOptionBool("list"))
	assert.Equal(t, 250, b.GetOptionIntWithDefault("timeout_ms", 1000))
	assert.Equal(t, 1000, b.GetOptionIntWithDefault("missing", 1000))
	assert.True(t, b.HasOption("words"))

	words, err := b.GetOptionStringSlice("words")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "the"}, words)

	missing, err := b.GetOptionStringSlice("missing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = b.GetOptionStringSlice("bad_words")
	assert.ErrorIs(t, err, ErrInvalidStepConfig)
	assert.ErrorIs(t, err, config.ErrConfig)
}

func TestBaseStepFail(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	reporter := &recordingReporter{}
	b := NewBaseStep(config.StepConfig{Name: config.SectionSteps, Type: config.StepLemmatizer},
		Deps{Logger: zap.New(core), Reporter: reporter})

	it := &item.Item{ID: "item-1", Data: "unchanged"}
	got := b.Fail(it, errors.New("boom"))

	assert.Same(t, it, got)
	assert.Equal(t, "unchanged", got.Data)

	entries := logs.FilterMessage("step failed, item left unchanged").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "lemmatizer", entries[0].LoggerName)
	assert.Equal(t, "item-1", entries[0].ContextMap()["item_id"])

	require.Len(t, reporter.errs, 1)
	var runtimeErr *StepRuntimeError
	require.True(t, errors.As(reporter.errs[0], &runtimeErr))
	assert.Equal(t, config.StepLemmatizer, runtimeErr.StepType)
	assert.Equal(t, "item-1", runtimeErr.ItemID)
	assert.Equal(t, "item-1", reporter.tags[0]["item_id"])
}

func TestLevelLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	warnOnly := LevelLogger(base, "lowercase", "warn")
	warnOnly.Info("hidden")
	warnOnly.Warn("shown")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)
	assert.Equal(t, "lowercase", logs.All()[0].ContextMap()["step"])

	infoCore, infoLogs := observer.New(zapcore.InfoLevel)
	lowered := LevelLogger(zap.New(infoCore), "debugger_step", "debug")
	lowered.Debug("dropped by the base core")
	lowered.Info("kept")
	assert.Equal(t, 1, infoLogs.Len())

	assert.NotNil(t, LevelLogger(nil, "lowercase", "info"))
}

func TestMapText(t *testing.T) {
	upper := func(s string) (string, error) { return strings.ToUpper(s), nil }
	drop := func(s string) (string, error) {
		if s == "x" {
			return "", nil
		}
		return s, nil
	}

	got, err := MapText(&item.Item{Data: "abc"}, upper)
	require.NoError(t, err)
	assert.Equal(t, "ABC", got)

	got, err = MapText(&item.Item{Data: []string{"a", "x", "b"}}, drop)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	_, err = MapText(&item.Item{Data: 42}, upper)
	assert.ErrorIs(t, err, ErrUnsupportedData)

	failing := func(string) (string, error) { return "", errors.New("nope") }
	it := &item.Item{Data: "keep"}
	_, err = MapText(it, failing)
	assert.Error(t, err)
	assert.Equal(t, "keep", it.Data)
}

func TestMapTokens(t *testing.T) {
	reverse := func(tokens []string) []string {
		for i, j := 0, len(tokens)-1; i < j; i, j = i+1, j-1 {
			tokens[i], tokens[j] = tokens[j], tokens[i]
		}
		return tokens
	}

	got, err := MapTokens(&item.Item{Data: "one  two three"}, fieldsTokenizer{}, reverse)
	require.NoError(t, err)
	assert.Equal(t, "three two one", got)

	got, err = MapTokens(&item.Item{Data: "one two"}, nil, reverse)
	require.NoError(t, err)
	assert.Equal(t, "two one", got)

	tokens := []string{"a", "b"}
	it := &item.Item{Data: tokens}
	got, err = MapTokens(it, fieldsTokenizer{}, reverse)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, got)
	assert.Equal(t, []string{"a", "b"}, it.Data, "input tokens must not be modified")

	_, err = MapTokens(&item.Item{Data: 1.5}, nil, reverse)
	assert.ErrorIs(t, err, ErrUnsupportedData)
}
