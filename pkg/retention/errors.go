package retention

import "fmt"

// RetentionError represents an error during retention enforcement.
type RetentionError struct {
	RetentionDays int    // Configured retention period
	Phase         string // "files" or "tasks"
	Cause         error  // Underlying error
}

// Error implements the error interface.
func (e *RetentionError) Error() string {
	return fmt.Sprintf("retention error [phase=%s, retention_days=%d]: %v", e.Phase, e.RetentionDays, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a new RetentionError.
func NewRetentionError(retentionDays int, phase string, cause error) *RetentionError {
	return &RetentionError{
		RetentionDays: retentionDays,
		Phase:         phase,
		Cause:         cause,
	}
}
