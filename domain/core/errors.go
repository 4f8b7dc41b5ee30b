package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound              = errors.New("resource not found")
	ErrSessionNotFound       = fmt.Errorf("%w: session", ErrNotFound)
	ErrColumnNotFound        = fmt.Errorf("%w: column", ErrNotFound)
	ErrVisualizationNotFound = fmt.Errorf("%w: visualization", ErrNotFound)

	// ErrNoSession is returned when an operation needs an uploaded dataset and none exists.
	ErrNoSession = errors.New("no active session: upload a dataset first")

	// ErrSessionReplaced is returned when a result arrives for a session that
	// has since been replaced by a new upload.
	ErrSessionReplaced = errors.New("session was replaced by a newer upload")

	// Validation errors
	ErrInvalidFileType  = errors.New("file must be a CSV")
	ErrEmptyFile        = errors.New("file is empty")
	ErrFileTooLarge     = errors.New("file exceeds the upload size limit")
	ErrEmptyTarget      = errors.New("target variable is required")
	ErrNonNumericTarget = errors.New("target variable must be numeric")
	ErrInvalidContract  = errors.New("invalid response contract")

	// Analysis errors
	ErrInsufficientData    = errors.New("insufficient data for analysis")
	ErrNoVisualizations    = errors.New("no visualizations available yet")
	ErrNoCleanedData       = errors.New("no cleaned data available")
	ErrMalformedCSV        = errors.New("malformed CSV")
	ErrUnknownDownloadKind = errors.New("unknown download type")
)

// NewNotFoundError builds a not-found error for a resource and id.
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewValidationError builds a field-level validation error.
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidContract, field, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidFileType) ||
		errors.Is(err, ErrEmptyFile) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrEmptyTarget) ||
		errors.Is(err, ErrNonNumericTarget) ||
		errors.Is(err, ErrMalformedCSV) ||
		errors.Is(err, ErrUnknownDownloadKind)
}
