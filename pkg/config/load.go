package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ATRIUM_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration and applies defaults. Unknown keys
// are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. An empty path starts from the defaults.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path == "" {
		cfg = Default()
	} else {
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, rerr)
		}
		if cfg, err = Parse(data); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg, os.Getenv); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Malformed values are reported rather than ignored.
func applyEnvOverrides(cfg *Config, getenv func(string) string) error {
	o := &overrider{getenv: getenv}

	// Server overrides
	o.str("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	o.duration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	o.duration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	o.duration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	o.duration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	o.integer("SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes)
	o.integer("SERVER_MAX_CONCURRENT_EXPORTS", &cfg.Server.MaxConcurrentExports)

	// Export overrides
	o.str("EXPORT_DISK", &cfg.Export.Disk)
	o.str("EXPORT_DIR", &cfg.Export.Dir)
	o.str("EXPORT_FORMAT", &cfg.Export.Format)
	o.str("EXPORT_DELIMITER", &cfg.Export.Delimiter)
	o.boolean("EXPORT_QUEUE", &cfg.Export.Queue)
	if val := getenv(EnvPrefix + "EXPORT_NOTIFY_USERS"); val != "" {
		cfg.Export.NotifyUsers = splitList(val)
	}

	// Queue overrides
	o.str("QUEUE_BACKEND", &cfg.Queue.Backend)
	o.str("QUEUE_SQLITE_PATH", &cfg.Queue.SQLite.Path)
	o.integer("QUEUE_CONCURRENCY", &cfg.Queue.Concurrency)
	o.integer("QUEUE_MAX_ATTEMPTS", &cfg.Queue.MaxAttempts)
	o.duration("QUEUE_TASK_TIMEOUT", &cfg.Queue.TaskTimeout)

	// Datasource and resources overrides
	o.str("DATASOURCE_PATH", &cfg.Datasource.Path)
	o.str("RESOURCES_PATH", &cfg.Resources.Path)
	o.boolean("RESOURCES_WATCH", &cfg.Resources.Watch)

	// Retention overrides
	o.boolean("RETENTION_ENABLED", &cfg.Retention.Enabled)
	o.integer("RETENTION_DAYS", &cfg.Retention.Days)
	o.str("RETENTION_SCHEDULE", &cfg.Retention.Schedule)

	// Telemetry overrides
	o.str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	o.str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	o.optionalBool("TELEMETRY_LOGGING_REDACT_PII", &cfg.Telemetry.Logging.RedactPII)
	o.optionalBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	o.str("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	o.boolean("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	o.str("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	o.str("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	o.float("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)

	if len(o.errs) > 0 {
		return ValidationError{Errors: o.errs}
	}
	return nil
}

// overrider reads ATRIUM_ prefixed variables into configuration fields.
type overrider struct {
	getenv func(string) string
	errs   []FieldError
}

func (o *overrider) lookup(name string) (string, bool) {
	val := o.getenv(EnvPrefix + name)
	return val, val != ""
}

func (o *overrider) fail(name, format string, args ...any) {
	o.errs = append(o.errs, FieldError{Field: EnvPrefix + name, Message: fmt.Sprintf(format, args...)})
}

func (o *overrider) str(name string, dst *string) {
	if val, ok := o.lookup(name); ok {
		*dst = val
	}
}

func (o *overrider) duration(name string, dst *time.Duration) {
	if val, ok := o.lookup(name); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			o.fail(name, "invalid duration %q", val)
			return
		}
		*dst = d
	}
}

func (o *overrider) integer(name string, dst *int) {
	if val, ok := o.lookup(name); ok {
		i, err := strconv.Atoi(val)
		if err != nil {
			o.fail(name, "invalid integer %q", val)
			return
		}
		*dst = i
	}
}

func (o *overrider) float(name string, dst *float64) {
	if val, ok := o.lookup(name); ok {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			o.fail(name, "invalid number %q", val)
			return
		}
		*dst = f
	}
}

func (o *overrider) boolean(name string, dst *bool) {
	if val, ok := o.lookup(name); ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			o.fail(name, "invalid boolean %q", val)
			return
		}
		*dst = b
	}
}

func (o *overrider) optionalBool(name string, dst **bool) {
	if val, ok := o.lookup(name); ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			o.fail(name, "invalid boolean %q", val)
			return
		}
		*dst = &b
	}
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
