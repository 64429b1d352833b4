package errors

import (
	stderrors "errors"
	"fmt"
)

// SearchError is the structured error type for sitesearch.
// It provides rich context for error handling, logging, and operator presentation.
type SearchError struct {
	// Code is the unique error code (e.g., "ERR_103_FIELD_CONFIG_INVALID").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the operator.
	Suggestion string
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SearchError) Unwrap() error {
	return e.Cause
}

// Is matches another SearchError by code, so errors.Is(err, ErrCycle) works
// against any error carrying the same code.
func (e *SearchError) Is(target error) bool {
	if t, ok := target.(*SearchError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *SearchError) WithDetail(key, value string) *SearchError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the operator.
func (e *SearchError) WithSuggestion(suggestion string) *SearchError {
	e.Suggestion = suggestion
	return e
}

// New creates a new SearchError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *SearchError {
	return &SearchError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a SearchError from an existing error.
func Wrap(code string, err error) *SearchError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a field or class configuration error.
// Config errors are fatal to the class they describe and must reach the operator.
func ConfigError(message string, cause error) *SearchError {
	return New(ErrCodeFieldConfigInvalid, message, cause)
}

// CommitError creates an IndexCommitFailure: the engine rejected a write.
func CommitError(message string, cause error) *SearchError {
	return New(ErrCodeCommitFailed, message, cause)
}

// NotFoundError creates an error for a record that no longer exists in the source store.
func NotFoundError(message string, cause error) *SearchError {
	return New(ErrCodeRecordNotFound, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *SearchError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error, or any error in its chain, is a retryable SearchError.
func IsRetryable(err error) bool {
	var se *SearchError
	if stderrors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var se *SearchError
	if stderrors.As(err, &se) {
		return se.Severity == SeverityFatal
	}
	return false
}

// IsConfig reports whether err is a configuration error of any config code.
func IsConfig(err error) bool {
	return GetCategory(err) == CategoryConfig
}

// GetCode extracts the error code from a SearchError in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var se *SearchError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category from a SearchError in the chain.
func GetCategory(err error) Category {
	var se *SearchError
	if stderrors.As(err, &se) {
		return se.Category
	}
	return ""
}
