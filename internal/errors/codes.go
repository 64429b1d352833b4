// Package errors provides structured error handling for sitesearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (files, index directory, locks)
//   - 4XX: Validation errors (records, relation paths)
//   - 5XX: Internal and engine errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates engine and unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound     = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid      = "ERR_102_CONFIG_INVALID"
	ErrCodeFieldConfigInvalid = "ERR_103_FIELD_CONFIG_INVALID"
	ErrCodeReservedField      = "ERR_104_RESERVED_FIELD"

	// IO errors (200-299)
	ErrCodeFileNotFound = "ERR_201_FILE_NOT_FOUND"
	ErrCodeDiskFull     = "ERR_203_DISK_FULL"
	ErrCodeCorruptIndex = "ERR_205_CORRUPT_INDEX"
	ErrCodeIndexLocked  = "ERR_207_INDEX_LOCKED"

	// Validation errors (400-499)
	ErrCodeInvalidInput   = "ERR_401_INVALID_INPUT"
	ErrCodeRelationCycle  = "ERR_407_RELATION_CYCLE"
	ErrCodeRecordNotFound = "ERR_408_RECORD_NOT_FOUND"
	ErrCodeNotSearchable  = "ERR_409_NOT_SEARCHABLE"

	// Internal errors (500-599)
	ErrCodeInternal         = "ERR_501_INTERNAL"
	ErrCodeSearchFailed     = "ERR_503_SEARCH_FAILED"
	ErrCodeIndexFailed      = "ERR_505_INDEX_FAILED"
	ErrCodeCommitFailed     = "ERR_506_COMMIT_FAILED"
	ErrCodeExtractionFailed = "ERR_507_EXTRACTION_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Numeric portion, e.g. "103" from "ERR_103_FIELD_CONFIG_INVALID"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex, ErrCodeDiskFull:
		return SeverityFatal
	case ErrCodeExtractionFailed, ErrCodeRelationCycle:
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// Commit failures are retried by the reindex job; a lock held by another
// reindex may be released shortly.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeCommitFailed, ErrCodeIndexLocked:
		return true
	default:
		return false
	}
}
