// Command dfusim hosts the bootloader package against simulated hardware:
// a fixed-latency fake flash driver, an in-memory transport feeding raw
// frames, and a millisecond clock driven by the process loop itself. It
// exists to exercise the core the way a board-level integration test would,
// without any physical flash or USB/UART transport.
package main

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LogFormat controls the structured logger's output encoding.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var validLogFormats = map[LogFormat]struct{}{
	LogFormatJSON: {},
	LogFormatText: {},
}

// FlashConfig configures the simulated flash driver.
type FlashConfig struct {
	// WriteLatency is how long a simulated page program takes to complete,
	// observed across Poll calls rather than blocking BeginWrite.
	WriteLatency time.Duration `yaml:"write_latency"`
	// FailAfterWrites forces the Nth write (1-indexed) to complete with an
	// error, for exercising the ERROR transition. 0 disables injection.
	FailAfterWrites int `yaml:"fail_after_writes"`
}

// DebugConfig controls the optional runtime chart / stats HTTP server.
type DebugConfig struct {
	// Enabled controls whether the debug HTTP server is started.
	Enabled bool `yaml:"enabled"`
	// Address is the listen address in "host:port" form.
	Address string `yaml:"address"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Defaults to "info".
	Level string `yaml:"level"`
	// Format is "json" or "text". Defaults to "json".
	Format LogFormat `yaml:"format"`
}

// Config is the root configuration for the dfusim harness.
type Config struct {
	// TickIntervalMs is how often ProcessCycle is invoked, in milliseconds.
	TickIntervalMs int `yaml:"tick_interval_ms"`

	Flash   FlashConfig   `yaml:"flash"`
	Debug   DebugConfig   `yaml:"debug"`
	Logging LoggingConfig `yaml:"logging"`
}

// applyDefaults fills in omitted fields with simulator-friendly values.
func applyDefaults(cfg *Config) {
	if cfg.TickIntervalMs == 0 {
		cfg.TickIntervalMs = 10
	}
	if cfg.Flash.WriteLatency == 0 {
		cfg.Flash.WriteLatency = 2 * time.Millisecond
	}
	if cfg.Debug.Address == "" {
		cfg.Debug.Address = "127.0.0.1:6060"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatJSON
	}
}

// Validate checks cfg for semantic errors, returning all of them at once.
func Validate(cfg *Config) []error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if cfg.TickIntervalMs <= 0 {
		add("tick_interval_ms must be positive")
	}
	if cfg.Flash.WriteLatency < 0 {
		add("flash.write_latency must be >= 0")
	}
	if cfg.Flash.FailAfterWrites < 0 {
		add("flash.fail_after_writes must be >= 0 (0 disables injection)")
	}
	if cfg.Debug.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Debug.Address); err != nil {
			add("debug.address %q is not a valid host:port address: %v", cfg.Debug.Address, err)
		}
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		add("logging.level %q is invalid; must be one of debug, info, warn, error", cfg.Logging.Level)
	}
	if _, ok := validLogFormats[cfg.Logging.Format]; !ok {
		add("logging.format %q is invalid; must be one of json, text", cfg.Logging.Format)
	}

	return errs
}

// ParseFile reads, defaults, and validates the YAML config at path.
func ParseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes, applies defaults, and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	applyDefaults(&cfg)

	if errs := Validate(&cfg); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid configuration:\n  - %s", strings.Join(msgs, "\n  - "))
	}

	return &cfg, nil
}
