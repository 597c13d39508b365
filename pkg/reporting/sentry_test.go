package reporting

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wehubfusion/textprep/pkg/step"
)

type captured struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (c *captured) beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func newReporter(t *testing.T) (*SentryReporter, *captured) {
	t.Helper()
	c := &captured{}
	r, err := NewSentryReporter(SentryConfig{Environment: "test", BeforeSend: c.beforeSend})
	require.NoError(t, err)
	return r, c
}

func TestReportStepFailure(t *testing.T) {
	r, c := newReporter(t)

	err := &step.StepRuntimeError{StepType: "lemmatizer", ItemID: "item-1", Err: errors.New("bad token")}
	r.Report(err, map[string]string{"step": "lemmatizer", "item_id": "item-1"})
	r.Flush(time.Second)

	require.Len(t, c.events, 1)
	ev := c.events[0]
	assert.Equal(t, sentry.LevelWarning, ev.Level)
	assert.Equal(t, "lemmatizer", ev.Tags["step"])
	assert.Equal(t, "item-1", ev.Tags["item_id"])
	assert.Equal(t, "test", ev.Environment)
}

func TestReportLoaderFailure(t *testing.T) {
	r, c := newReporter(t)

	r.Report(&step.LoaderError{Loader: "csv", Err: errors.New("no such file")}, map[string]string{"loader": "csv"})
	r.Report(nil, nil)

	require.Len(t, c.events, 1)
	assert.Equal(t, sentry.LevelError, c.events[0].Level)
	assert.Equal(t, "csv", c.events[0].Tags["loader"])
}

func TestBadDSN(t *testing.T) {
	_, err := NewSentryReporter(SentryConfig{DSN: "not a dsn"})
	assert.Error(t, err)
}
