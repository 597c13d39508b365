package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("textprep")
	assert.Equal(t, "textprep", cfg.ServiceName)
	assert.Equal(t, "127.0.0.1:4318", cfg.OTLPEndpoint)
	assert.Equal(t, 1.0, cfg.SampleRatio)
}

func TestSetupTracing(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := SetupTracing(context.Background(), DefaultConfig("textprep-test"), nil)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NotSame(t, prev, otel.GetTracerProvider())

	// Nothing was recorded, so shutdown has nothing to export.
	assert.NoError(t, ShutdownTracing(shutdown, nil))
}

func TestShutdownTracingError(t *testing.T) {
	boom := errors.New("boom")
	err := ShutdownTracing(func(context.Context) error { return boom }, nil)
	assert.ErrorIs(t, err, boom)
}
