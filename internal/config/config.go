// Package config reads the benchmark configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/shivanshkc/esbench/pkg/bench"
)

// Environment variables read by Load.
const (
	EnvStream           = "TEST_STREAM"
	EnvConnectionString = "EVENTSTORE_CONNECTION_STRING"
	EnvLogLevel         = "LOGLEVEL"
	EnvParams           = "TEST_PARAMS"
	EnvEventType        = "EVENT_TYPE"
	EnvFailFast         = "FAIL_FAST"
)

// Defaults for every setting.
const (
	DefaultStream           = "my_sample_stream"
	DefaultConnectionString = "esdb://localhost"
	DefaultLogLevel         = "info"
	DefaultParams           = "50x100x100,50x100x1000"
	DefaultEventType        = "SampleEvent"
)

// Config is the benchmark configuration, read from the environment and an
// optional env file. Command line flags override it.
type Config struct {
	Stream           string
	ConnectionString string
	LogLevel         string
	// Params is the list of parameter sets, see bench.ParseParams.
	Params    string
	EventType string
	FailFast  bool
}

// Load reads the configuration from the environment. Variables from envFile
// are loaded first but never override the real environment. A missing
// envFile is not an error.
//
// The returned Config is not validated yet, so that callers can apply their
// own overrides before calling Validate.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load env file %q: %w", envFile, err)
		}
	}

	failFast, err := envBool(EnvFailFast, false)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Stream:           env(EnvStream, DefaultStream),
		ConnectionString: env(EnvConnectionString, DefaultConnectionString),
		LogLevel:         strings.ToLower(env(EnvLogLevel, DefaultLogLevel)),
		Params:           env(EnvParams, DefaultParams),
		EventType:        env(EnvEventType, DefaultEventType),
		FailFast:         failFast,
	}, nil
}

// Validate checks every setting once, before anything is published.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Stream) == "" {
		return errors.New("stream name is required")
	}
	if strings.TrimSpace(c.ConnectionString) == "" {
		return errors.New("connection string is required")
	}
	if strings.TrimSpace(c.EventType) == "" {
		return errors.New("event type is required")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	if _, err := c.TestParams(); err != nil {
		return err
	}
	return nil
}

// TestParams parses the configured parameter sets.
func (c Config) TestParams() ([]bench.BatchParameters, error) {
	return bench.ParseParams(c.Params)
}

// Policy returns the failure policy of parallel runs.
func (c Config) Policy() bench.Policy {
	if c.FailFast {
		return bench.FailFast
	}
	return bench.CollectAll
}

func env(key, def string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return def
}

func envBool(key string, def bool) (bool, error) {
	value := env(key, "")
	if value == "" {
		return def, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return parsed, nil
}
