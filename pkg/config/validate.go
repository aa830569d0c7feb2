package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateExport(&cfg.Export, cfg.Storage.Disks)...)
	errs = append(errs, validateQueue(&cfg.Queue)...)
	errs = append(errs, validateDatasource(&cfg.Datasource)...)
	errs = append(errs, validateRetention(&cfg.Retention)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}

	for field, d := range map[string]int64{
		"server.read_timeout":     int64(cfg.ReadTimeout),
		"server.write_timeout":    int64(cfg.WriteTimeout),
		"server.idle_timeout":     int64(cfg.IdleTimeout),
		"server.shutdown_timeout": int64(cfg.ShutdownTimeout),
	} {
		if d < 0 {
			errs = append(errs, FieldError{Field: field, Message: "timeout must be positive"})
		}
	}

	if cfg.MaxHeaderBytes < 0 || cfg.MaxHeaderBytes > 10*1024*1024 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be between 0 and 10MB",
		})
	}

	if cfg.MaxConcurrentExports == 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_concurrent_exports",
			Message: "must be positive, or negative to disable the limit",
		})
	}

	return sortFieldErrors(errs)
}

func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	for name, disk := range cfg.Disks {
		if disk.Root == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("storage.disks.%s.root", name),
				Message: "disk root is required",
			})
		}
		if disk.URL != "" {
			if _, err := url.Parse(disk.URL); err != nil {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("storage.disks.%s.url", name),
					Message: fmt.Sprintf("invalid URL: %v", err),
				})
			}
		}
	}

	return sortFieldErrors(errs)
}

func validateExport(cfg *ExportConfig, disks map[string]DiskConfig) []FieldError {
	var errs []FieldError

	if _, ok := disks[cfg.Disk]; !ok {
		errs = append(errs, FieldError{
			Field:   "export.disk",
			Message: fmt.Sprintf("unknown disk %q", cfg.Disk),
		})
	}

	if cfg.Format != "xlsx" && cfg.Format != "csv" {
		errs = append(errs, FieldError{
			Field:   "export.format",
			Message: fmt.Sprintf("invalid format %q: must be 'xlsx' or 'csv'", cfg.Format),
		})
	}

	if utf8.RuneCountInString(cfg.Delimiter) != 1 || strings.ContainsAny(cfg.Delimiter, "\"\r\n") {
		errs = append(errs, FieldError{
			Field:   "export.delimiter",
			Message: fmt.Sprintf("invalid delimiter %q: must be a single character", cfg.Delimiter),
		})
	}

	if strings.Contains(cfg.Dir, "..") {
		errs = append(errs, FieldError{
			Field:   "export.dir",
			Message: "directory cannot contain '..'",
		})
	}

	return errs
}

func validateQueue(cfg *QueueConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "queue.sqlite.path",
				Message: "path is required for the sqlite backend",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "queue.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}

	if cfg.Concurrency < 1 {
		errs = append(errs, FieldError{Field: "queue.concurrency", Message: "concurrency must be at least 1"})
	}
	if cfg.MaxAttempts < 1 {
		errs = append(errs, FieldError{Field: "queue.max_attempts", Message: "max attempts must be at least 1"})
	}
	if cfg.PollInterval < 0 || cfg.RetryDelay < 0 || cfg.TaskTimeout < 0 {
		errs = append(errs, FieldError{Field: "queue", Message: "intervals must be positive"})
	}

	return errs
}

func validateDatasource(cfg *DatasourceConfig) []FieldError {
	var errs []FieldError

	if cfg.Path == "" {
		errs = append(errs, FieldError{Field: "datasource.path", Message: "path is required"})
	}
	if cfg.MaxOpenConns < 1 {
		errs = append(errs, FieldError{Field: "datasource.max_open_conns", Message: "must be at least 1"})
	}

	return errs
}

func validateRetention(cfg *RetentionConfig) []FieldError {
	var errs []FieldError

	if cfg.Days < 1 {
		errs = append(errs, FieldError{
			Field:   "retention.days",
			Message: "retention days must be at least 1",
		})
	}

	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "retention.schedule",
			Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Schedule, err),
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if Bool(cfg.Metrics.Enabled, true) && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with '/'",
		})
	}

	for field, p := range map[string]string{
		"telemetry.health.liveness_path":  cfg.Health.LivenessPath,
		"telemetry.health.readiness_path": cfg.Health.ReadinessPath,
	} {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, FieldError{Field: field, Message: "path must start with '/'"})
		}
	}

	switch cfg.Tracing.Sampler {
	case "always", "never":
	case "ratio":
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sample_ratio",
				Message: fmt.Sprintf("sample ratio must be between 0.0 and 1.0, got %g", cfg.Tracing.SampleRatio),
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "endpoint is required when tracing is enabled",
		})
	}

	return sortFieldErrors(errs)
}

// sortFieldErrors orders errors by field.
func sortFieldErrors(errs []FieldError) []FieldError {
	slices.SortStableFunc(errs, func(a, b FieldError) int {
		return strings.Compare(a.Field, b.Field)
	})
	return errs
}
