// Package apperrors defines application-level error types.
package apperrors

import (
	"fmt"
)

// ValidationError indicates the catalog document failed structural validation.
type ValidationError struct {
	Field   string   // Field that failed validation
	Message string   // Error message
	Details []string // Additional details
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s: %s (%d issues)", e.Field, e.Message, len(e.Details))
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string, details ...string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Details: details,
	}
}

// ConfigurationError indicates a catalog, template or setup issue.
type ConfigurationError struct {
	Cause   error
	Aspect  string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error (%s): %s: %v", e.Aspect, e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error (%s): %s", e.Aspect, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(aspect, message string, cause error) *ConfigurationError {
	return &ConfigurationError{
		Aspect:  aspect,
		Message: message,
		Cause:   cause,
	}
}

// StagingError indicates the rendered file was written but could not be staged.
// The file is left in place.
type StagingError struct {
	Cause error
	Path  string
}

func (e *StagingError) Error() string {
	return fmt.Sprintf("wrote %s but failed to stage it: %v", e.Path, e.Cause)
}

func (e *StagingError) Unwrap() error {
	return e.Cause
}

// NewStagingError creates a new staging error.
func NewStagingError(path string, cause error) *StagingError {
	return &StagingError{
		Path:  path,
		Cause: cause,
	}
}
