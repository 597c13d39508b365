// Package concurrency resolves how many workers a run uses and in which mode.
package concurrency

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Mode selects the executor of a run.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeConcurrent Mode = "concurrent"
)

// ParseMode parses a mode name. The empty string is sequential.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeSequential:
		return ModeSequential, nil
	case ModeConcurrent:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q (want %s or %s)", s, ModeSequential, ModeConcurrent)
}

// ConfigSource indicates where the worker count came from.
type ConfigSource string

const (
	ConfigSourceEnvVar     ConfigSource = "environment_variable"
	ConfigSourceAutoDetect ConfigSource = "auto_detect"
	ConfigSourceFlag       ConfigSource = "flag"
)

// Environment variables read by LoadConfig.
const (
	EnvWorkers          = "TEXTPREP_WORKERS"
	EnvWorkerMultiplier = "TEXTPREP_WORKER_MULTIPLIER"
	EnvMode             = "TEXTPREP_MODE"
)

// Config holds the process-level concurrency settings.
type Config struct {
	Workers       int
	Mode          Mode
	Source        ConfigSource
	IsKubernetes  bool
	EffectiveCPUs int
}

// LoadConfig reads the configuration with priority: env vars > auto-detection.
func LoadConfig() *Config {
	config := &Config{
		IsKubernetes:  isKubernetes(),
		EffectiveCPUs: runtime.GOMAXPROCS(0),
	}

	if workers := getEnvInt(EnvWorkers, 0); workers > 0 {
		config.Workers = workers
		config.Source = ConfigSourceEnvVar
	} else if multiplier := getEnvInt(EnvWorkerMultiplier, 0); multiplier > 0 {
		config.Workers = config.EffectiveCPUs * multiplier
		config.Source = ConfigSourceEnvVar
	} else {
		config.Workers = defaultWorkers(config.IsKubernetes, config.EffectiveCPUs)
		config.Source = ConfigSourceAutoDetect
	}

	mode, err := ParseMode(os.Getenv(EnvMode))
	if err != nil {
		mode = ModeSequential
	}
	config.Mode = mode

	config.Validate()
	return config
}

// Validate applies minimums.
func (c *Config) Validate() {
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.Mode == "" {
		c.Mode = ModeSequential
	}
}

// WithWorkers overrides the worker count.
func (c Config) WithWorkers(n int) Config {
	if n > 0 {
		c.Workers = n
		c.Source = ConfigSourceFlag
	}
	return c
}

// WithMode overrides the mode.
func (c Config) WithMode(m Mode) Config {
	c.Mode = m
	return c
}

func isKubernetes() bool {
	return os.Getenv("KUBERNETES_SERVICE_HOST") != ""
}

// defaultWorkers is conservative inside a container, where CPU quota is
// shared with sidecars.
func defaultWorkers(isK8s bool, cpus int) int {
	if isK8s {
		return cpus
	}
	return cpus * 2
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{Workers: %d, Mode: %s, IsK8s: %t, CPUs: %d, Source: %s}",
		c.Workers, c.Mode, c.IsKubernetes, c.EffectiveCPUs, c.Source)
}
