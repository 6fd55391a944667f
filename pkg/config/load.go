package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the loader reads
const EnvPrefix = "MCP_"

// Options controls where Load reads from
type Options struct {
	// Path of a YAML file. Empty means no file unless the config flag is set.
	Path string
	// Environment replaces the process environment when non-nil
	Environment map[string]string
	// Flags registered with RegisterFlags. Only flags that were set apply.
	Flags *pflag.FlagSet
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load resolves the configuration from all sources and validates it
func Load(opts Options) (*Config, error) {
	cfg := Default()

	path := opts.Path
	if opts.Flags != nil {
		if f := opts.Flags.Lookup(flagConfig); f != nil && f.Changed {
			path = f.Value.String()
		}
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	envOpts := env.Options{Prefix: EnvPrefix}
	if opts.Environment != nil {
		envOpts.Environment = opts.Environment
	}
	if err := env.ParseWithOptions(cfg, envOpts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if opts.Flags != nil {
		if err := cfg.applyFlags(opts.Flags); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file not found: %s", path)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks every field, returning the first problem as *Error
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("config validation failed: %w", err)
	}
	fe := fieldErrs[0]
	return &Error{Field: fieldPath(fe.Namespace()), Message: describe(fe)}
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "value is required"
	case "required_unless":
		return "value is required unless " + strings.Replace(fe.Param(), " ", " is ", 1)
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fmt.Sprint(fe.Value()))
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	case "hostname_port":
		return fmt.Sprintf("must be host:port, got %q", fmt.Sprint(fe.Value()))
	default:
		return "failed " + fe.Tag() + " check"
	}
}
