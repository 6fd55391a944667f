package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

const flagConfig = "config"

type flagBinding struct {
	name  string
	apply func(c *Config, fs *pflag.FlagSet, name string) error
}

var flagBindings = []flagBinding{
	{"name", stringFlag(func(c *Config) *string { return &c.Name })},
	{"log-level", stringFlag(func(c *Config) *string { return &c.LogLevel })},
	{"log-format", stringFlag(func(c *Config) *string { return &c.LogFormat })},
	{"request-timeout", durationFlag(func(c *Config) *time.Duration { return &c.RequestTimeout })},
	{"shutdown-timeout", durationFlag(func(c *Config) *time.Duration { return &c.ShutdownTimeout })},
	{"max-concurrency", func(c *Config, fs *pflag.FlagSet, name string) (err error) {
		c.MaxConcurrency, err = fs.GetInt(name)
		return err
	}},
	{"metrics-addr", stringFlag(func(c *Config) *string { return &c.MetricsAddr })},
	{"tracing-exporter", stringFlag(func(c *Config) *string { return &c.Tracing.Exporter })},
	{"tracing-endpoint", stringFlag(func(c *Config) *string { return &c.Tracing.Endpoint })},
	{"sqlite-base-dir", stringFlag(func(c *Config) *string { return &c.SQLite.BaseDir })},
}

func stringFlag(field func(*Config) *string) func(*Config, *pflag.FlagSet, string) error {
	return func(c *Config, fs *pflag.FlagSet, name string) error {
		v, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*field(c) = v
		return nil
	}
}

func durationFlag(field func(*Config) *time.Duration) func(*Config, *pflag.FlagSet, string) error {
	return func(c *Config, fs *pflag.FlagSet, name string) error {
		v, err := fs.GetDuration(name)
		if err != nil {
			return err
		}
		*field(c) = v
		return nil
	}
}

// RegisterFlags adds the configuration flags to fs. Their defaults are the
// built-in defaults; Load only applies the ones the user actually set.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(flagConfig, "", "path to a YAML config file")
	fs.String("name", d.Name, "server name reported to clients")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.String("log-format", d.LogFormat, "log format (text, json)")
	fs.Duration("request-timeout", d.RequestTimeout, "time budget for one request")
	fs.Duration("shutdown-timeout", d.ShutdownTimeout, "time allowed to drain in-flight requests on exit")
	fs.Int("max-concurrency", d.MaxConcurrency, "maximum requests handled at once")
	fs.String("metrics-addr", d.MetricsAddr, "serve Prometheus metrics on this address")
	fs.String("tracing-exporter", d.Tracing.Exporter, "span exporter (none, otlp-grpc, otlp-http)")
	fs.String("tracing-endpoint", d.Tracing.Endpoint, "OTLP collector endpoint")
	fs.String("sqlite-base-dir", d.SQLite.BaseDir, "restrict sqlite-query to databases under this directory")
}

func (c *Config) applyFlags(fs *pflag.FlagSet) error {
	for _, b := range flagBindings {
		f := fs.Lookup(b.name)
		if f == nil || !f.Changed {
			continue
		}
		if err := b.apply(c, fs, b.name); err != nil {
			return fmt.Errorf("flag --%s: %w", b.name, err)
		}
	}
	return nil
}
