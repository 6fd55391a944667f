// Package config holds the server configuration and its loading rules.
//
// Values are resolved in this order, later sources winning: built-in
// defaults, an optional YAML file, MCP_* environment variables, and
// command-line flags that were explicitly set.
package config

import (
	"time"
)

// Config is the full server configuration
type Config struct {
	// Server information reported by initialize
	Name    string `yaml:"name" env:"NAME" validate:"required"`
	Version string `yaml:"version" env:"VERSION" validate:"required"`

	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" validate:"oneof=text json"`

	// RequestTimeout bounds a single handler invocation
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" validate:"gt=0"`
	// ReleaseGrace is how long a timed-out handler gets to return before
	// the timeout response is written anyway
	ReleaseGrace    time.Duration `yaml:"release_grace" env:"RELEASE_GRACE" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`

	MaxConcurrency  int `yaml:"max_concurrency" env:"MAX_CONCURRENCY" validate:"min=1,max=4096"`
	MaxMessageBytes int `yaml:"max_message_bytes" env:"MAX_MESSAGE_BYTES" validate:"min=1024"`

	// MetricsAddr enables the Prometheus endpoint when set, e.g. "127.0.0.1:9464"
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR" validate:"omitempty,hostname_port"`

	Tracing TracingConfig `yaml:"tracing" envPrefix:"TRACING_"`
	SQLite  SQLiteConfig  `yaml:"sqlite" envPrefix:"SQLITE_"`
}

// TracingConfig selects the span exporter
type TracingConfig struct {
	Exporter   string  `yaml:"exporter" env:"EXPORTER" validate:"oneof=none otlp-grpc otlp-http"`
	Endpoint   string  `yaml:"endpoint" env:"ENDPOINT" validate:"required_unless=Exporter none"`
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE" validate:"gte=0,lte=1"`
	Insecure   bool    `yaml:"insecure" env:"INSECURE"`
}

// SQLiteConfig constrains the sqlite-query tool
type SQLiteConfig struct {
	// BaseDir, when set, is the only directory database files may live in
	BaseDir string `yaml:"base_dir" env:"BASE_DIR"`
}

const (
	DefaultName            = "example-servers/everything"
	DefaultVersion         = "1.0.0"
	DefaultRequestTimeout  = 30 * time.Second
	DefaultReleaseGrace    = 2 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMaxConcurrency  = 16
	DefaultMaxMessageBytes = 4 << 20
)

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Name:            DefaultName,
		Version:         DefaultVersion,
		LogLevel:        "info",
		LogFormat:       "text",
		RequestTimeout:  DefaultRequestTimeout,
		ReleaseGrace:    DefaultReleaseGrace,
		ShutdownTimeout: DefaultShutdownTimeout,
		MaxConcurrency:  DefaultMaxConcurrency,
		MaxMessageBytes: DefaultMaxMessageBytes,
		Tracing: TracingConfig{
			Exporter:   "none",
			SampleRate: 1,
		},
	}
}

// Error describes an invalid configuration value
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
