// Package runtimeconfig loads module-level tunables — retry budgets, the
// event-loop pool size, HTTP timeouts — the same way the teacher's
// internal/config package loads application configuration: viper, with
// SetDefault blocks, an "AWSCORE_"-prefixed environment override, and a
// Validate() method on the root struct. The AWS-specific environment
// variables (AWS_ACCESS_KEY_ID and friends, spec.md §6) are read directly
// by aws/credentials, not through this package, since their names don't
// nest under one app prefix.
package runtimeconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RuntimeConfig holds the orchestrator's operational tunables.
type RuntimeConfig struct {
	Retry     RetryConfig     `mapstructure:"retry"`
	EventLoop EventLoopConfig `mapstructure:"event_loop"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// RetryConfig configures the default retry.JitterPolicy an awsclient.Client
// builds when the caller doesn't supply its own.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// EventLoopConfig configures the internal/eventloop.Group an awsclient.Client
// builds when the caller doesn't inject one.
type EventLoopConfig struct {
	WorkerCount int `mapstructure:"worker_count"`
}

// HTTPConfig configures the default HTTP transport.
type HTTPConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
}

// MetricsConfig toggles and addresses the Prometheus registry.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configPath (if non-empty) or the default search path
// (./config.yaml, ./configs/config.yaml), layering AWSCORE_-prefixed
// environment overrides on top, and validates the result.
func Load(configPath string) (*RuntimeConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AWSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading runtime config file: %w", err)
		}
	}

	var cfg RuntimeConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling runtime config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid runtime config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("retry.max_attempts", 4)
	v.SetDefault("retry.base_delay", time.Second)
	v.SetDefault("retry.max_delay", 16*time.Second)

	v.SetDefault("event_loop.worker_count", 4)

	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.max_idle_conns_per_host", 10)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate checks the configuration for out-of-range values.
func (c *RuntimeConfig) Validate() error {
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.BaseDelay <= 0 {
		return fmt.Errorf("retry.base_delay must be positive")
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("retry.max_delay must be at least retry.base_delay")
	}
	if c.EventLoop.WorkerCount < 1 {
		return fmt.Errorf("event_loop.worker_count must be at least 1")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive")
	}
	return nil
}

// MustLoad is Load, panicking on error; used at process startup where
// there is no sensible recovery.
func MustLoad(configPath string) *RuntimeConfig {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	return cfg
}
