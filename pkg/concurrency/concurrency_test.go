package concurrency

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv(EnvWorkers, "6")
	t.Setenv(EnvMode, "Concurrent")

	cfg := LoadConfig()
	assert.Equal(t, 6, cfg.Workers)
	assert.Equal(t, ModeConcurrent, cfg.Mode)
	assert.Equal(t, ConfigSourceEnvVar, cfg.Source)
}

func TestLoadConfigMultiplier(t *testing.T) {
	t.Setenv(EnvWorkers, "")
	t.Setenv(EnvWorkerMultiplier, "3")

	cfg := LoadConfig()
	assert.Equal(t, runtime.GOMAXPROCS(0)*3, cfg.Workers)
	assert.Equal(t, ModeSequential, cfg.Mode)
}

func TestLoadConfigAutoDetect(t *testing.T) {
	t.Setenv(EnvWorkers, "not-a-number")
	t.Setenv(EnvWorkerMultiplier, "")
	t.Setenv(EnvMode, "sideways")
	t.Setenv("KUBERNETES_SERVICE_HOST", "10.0.0.1")

	cfg := LoadConfig()
	assert.True(t, cfg.IsKubernetes)
	assert.Equal(t, ConfigSourceAutoDetect, cfg.Source)
	assert.Equal(t, cfg.EffectiveCPUs, cfg.Workers)
	assert.Equal(t, ModeSequential, cfg.Mode)
}

func TestConfigOverrides(t *testing.T) {
	cfg := Config{Workers: 2, Mode: ModeSequential}
	cfg = cfg.WithWorkers(0)
	assert.Equal(t, 2, cfg.Workers)

	cfg = cfg.WithWorkers(9).WithMode(ModeConcurrent)
	assert.Equal(t, 9, cfg.Workers)
	assert.Equal(t, ConfigSourceFlag, cfg.Source)
	assert.Equal(t, ModeConcurrent, cfg.Mode)
	assert.Contains(t, cfg.String(), "Workers: 9")
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeSequential, m)

	m, err = ParseMode(" CONCURRENT ")
	require.NoError(t, err)
	assert.Equal(t, ModeConcurrent, m)

	_, err = ParseMode("parallel")
	assert.Error(t, err)
}

func TestCircuitBreaker(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	boom := errors.New("boom")
	fail := func() error { return boom }
	ok := func() error { return nil }

	assert.ErrorIs(t, cb.Do(fail), boom)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Do(fail), boom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Do(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(time.Minute)
	assert.ErrorIs(t, cb.Do(fail), boom)
	assert.Equal(t, StateOpen, cb.State(), "a failed probe reopens")

	now = now.Add(time.Minute)
	require.NoError(t, cb.Do(ok))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())

	cb.Do(fail)
	cb.Do(fail)
	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerHalfOpenAllowsOneProbe(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := NewCircuitBreaker(1, time.Minute)
	cb.now = func() time.Time { return now }

	assert.Error(t, cb.Do(func() error { return errors.New("down") }))
	require.Equal(t, StateOpen, cb.State())

	now = now.Add(time.Minute)
	var concurrent error
	err := cb.Do(func() error {
		assert.Equal(t, StateHalfOpen, cb.State())
		concurrent = cb.Do(func() error { return nil })
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, concurrent, ErrCircuitOpen)
	assert.Equal(t, StateClosed, cb.State())

	require.NoError(t, cb.Do(func() error { return nil }))
}
