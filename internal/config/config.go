// Package config loads engine settings from file, environment, and
// defaults through viper. Precedence: explicit overrides > environment
// (OMNISTOR_ prefix) > config file > defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/omnistor/omnistor/internal/observability"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// OMNISTOR_SERVER_PORT.
const EnvPrefix = "OMNISTOR"

// Config is the full engine configuration.
type Config struct {
	Server   ServerConfig             `mapstructure:"server"`
	Logging  observability.Config     `mapstructure:"logging"`
	Retry    RetryConfig              `mapstructure:"retry"`
	Transfer TransferConfig           `mapstructure:"transfer"`
	Backends map[string]BackendConfig `mapstructure:"backends"`

	// DefaultBackend names the backend profile used when a command does
	// not select one.
	DefaultBackend string `mapstructure:"default_backend"`
}

// ServerConfig tunes the HTTP API server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RetryConfig tunes the retry/backoff policy for backend calls.
type RetryConfig struct {
	MaxAttempts       int           `mapstructure:"max_attempts"`
	InitialDelay      time.Duration `mapstructure:"initial_delay"`
	MaxDelay          time.Duration `mapstructure:"max_delay"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`
}

// TransferConfig tunes bulk transfer behavior.
type TransferConfig struct {
	// RateLimit caps backend requests per second during recursive
	// operations. Zero means unlimited.
	RateLimit float64 `mapstructure:"rate_limit"`
}

// BackendConfig is one named backend profile.
type BackendConfig struct {
	// Type selects the provider implementation: "s3" or "file".
	Type string `mapstructure:"type"`

	// S3 fields.
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	Profile         string `mapstructure:"profile"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`

	// File fields.
	BaseDir string `mapstructure:"base_dir"`
}

// Load reads configuration. path selects an explicit config file; empty
// searches ./omnistor.yaml and ~/.config/omnistor/omnistor.yaml, and a
// missing file is not an error (defaults plus environment apply).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("omnistor")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/omnistor")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	for name, b := range c.Backends {
		switch b.Type {
		case "s3":
			if b.Bucket == "" {
				return fmt.Errorf("config: backend %q: bucket is required for type s3", name)
			}
		case "file":
			if b.BaseDir == "" {
				return fmt.Errorf("config: backend %q: base_dir is required for type file", name)
			}
		default:
			return fmt.Errorf("config: backend %q: unknown type %q", name, b.Type)
		}
	}
	if c.DefaultBackend != "" {
		if _, ok := c.Backends[c.DefaultBackend]; !ok {
			return fmt.Errorf("config: default_backend %q is not defined", c.DefaultBackend)
		}
	}
	return nil
}

// Backend resolves a backend profile by name, falling back to the
// configured default.
func (c *Config) Backend(name string) (BackendConfig, error) {
	if name == "" {
		name = c.DefaultBackend
	}
	if name == "" {
		return BackendConfig{}, fmt.Errorf("config: no backend selected and no default_backend configured")
	}
	b, ok := c.Backends[name]
	if !ok {
		return BackendConfig{}, fmt.Errorf("config: backend %q is not defined", name)
	}
	return b, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_delay", 200*time.Millisecond)
	v.SetDefault("retry.max_delay", 5*time.Second)
	v.SetDefault("retry.backoff_multiplier", 2.0)

	v.SetDefault("transfer.rate_limit", 0.0)
}
