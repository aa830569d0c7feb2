package panel

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a resource, field or handler that is declared
// in a way that can never work. It is raised at resolution or construction
// time and is never retried.
type ConfigurationError struct {
	Component string // Component that rejected the configuration ("showwhen", "filters", ...)
	Message   string // Human readable description
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Component == "" {
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
	return fmt.Sprintf("configuration error [component=%s]: %s", e.Component, e.Message)
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(component, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{
		Component: component,
		Message:   fmt.Sprintf(format, args...),
	}
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// WriterErrorKind classifies writer failures.
type WriterErrorKind string

const (
	// WriterOpen means the target file could not be opened.
	WriterOpen WriterErrorKind = "open"
	// WriterUnsupported means a value type cannot be written.
	WriterUnsupported WriterErrorKind = "unsupported"
	// WriterIO is any other failure while writing or flushing.
	WriterIO WriterErrorKind = "io"
)

// WriterError represents a failure of the tabular file writer.
type WriterError struct {
	Kind   WriterErrorKind // Failure class
	Format string          // "csv" or "xlsx"
	Path   string          // Destination path
	Rows   int             // Rows written before the failure
	Cause  error           // Underlying error
}

// Error implements the error interface.
func (e *WriterError) Error() string {
	return fmt.Sprintf("writer error [kind=%s, format=%s, rows=%d, path=%s]: %v",
		e.Kind, e.Format, e.Rows, e.Path, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *WriterError) Unwrap() error {
	return e.Cause
}

// NewWriterError creates a new WriterError.
func NewWriterError(kind WriterErrorKind, format, path string, rows int, cause error) *WriterError {
	return &WriterError{
		Kind:   kind,
		Format: format,
		Path:   path,
		Rows:   rows,
		Cause:  cause,
	}
}
