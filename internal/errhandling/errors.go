// Package errhandling provides error types and classification utilities.
// This file defines error categories, classification functions, and helper
// utilities for consistent error handling across the asteroids runtime.
package errhandling

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/seulgie/asteroid-data-processor/internal/database"
	"github.com/seulgie/asteroid-data-processor/internal/query"
)

// ErrorCategory represents the type/category of an error.
// Categories help determine the appropriate error handling strategy.
type ErrorCategory string

// Error categories for classification.
const (
	// CategoryConfiguration represents configuration errors (invalid
	// operators, expressions, scripts, or query options).
	// Configuration errors are fatal and reported before any data is read.
	CategoryConfiguration ErrorCategory = "configuration"

	// CategoryParse represents syntax errors in query files or datasets
	// (malformed YAML/JSON, broken CSV rows).
	// Parse errors are fatal - the input is malformed.
	CategoryParse ErrorCategory = "parse"

	// CategoryValidation represents schema validation errors in query files.
	// Validation errors are fatal - the file does not match the schema.
	CategoryValidation ErrorCategory = "validation"

	// CategoryIO represents file system errors (open, read, write failures).
	// IO errors are fatal - output may be incomplete or missing.
	CategoryIO ErrorCategory = "io"

	// CategoryNotFound represents missing resources (dataset files,
	// unknown designations or names).
	// Not found errors are fatal - the resource doesn't exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryData represents malformed values inside an otherwise
	// readable dataset (bad numbers, bad dates).
	// Data errors are recoverable - the offending record can be skipped.
	CategoryData ErrorCategory = "data"

	// CategoryUnknown represents unclassified errors.
	// Unknown errors abort execution by default.
	CategoryUnknown ErrorCategory = "unknown"
)

// ClassifiedError wraps an error with classification metadata.
// It provides category, recoverability status, and contextual information.
type ClassifiedError struct {
	// Category is the error classification category.
	Category ErrorCategory

	// Recoverable indicates whether execution can continue past the error
	// (e.g. by skipping a malformed record) or must abort.
	Recoverable bool

	// Path is the file path associated with the error ("" if none).
	Path string

	// Message is a human-readable error message.
	Message string

	// OriginalErr is the underlying error that was classified.
	OriginalErr error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s error (%s): %s", e.Category, e.Path, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Category, e.Message)
}

// Unwrap returns the original error for use with errors.Is and errors.As.
func (e *ClassifiedError) Unwrap() error {
	return e.OriginalErr
}

// ClassifyFileError classifies a file system error for the given path.
// It returns a ClassifiedError with appropriate category.
//
// Classification rules:
//   - fs.ErrNotExist: NotFound (the file is missing)
//   - fs.ErrPermission: IO (the file exists but cannot be accessed)
//   - fs.ErrClosed, other *fs.PathError: IO
//   - Unknown: CategoryUnknown
func ClassifyFileError(err error, path string) *ClassifiedError {
	if err == nil {
		return &ClassifiedError{
			Category: CategoryUnknown,
			Message:  "nil error",
		}
	}

	if errors.Is(err, fs.ErrNotExist) {
		return &ClassifiedError{
			Category:    CategoryNotFound,
			Recoverable: false,
			Path:        path,
			Message:     "file does not exist",
			OriginalErr: err,
		}
	}

	if errors.Is(err, fs.ErrPermission) {
		return &ClassifiedError{
			Category:    CategoryIO,
			Recoverable: false,
			Path:        path,
			Message:     "permission denied",
			OriginalErr: err,
		}
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return &ClassifiedError{
			Category:    CategoryIO,
			Recoverable: false,
			Path:        path,
			Message:     fmt.Sprintf("file error: %s", pathErr.Op),
			OriginalErr: err,
		}
	}

	return &ClassifiedError{
		Category:    CategoryUnknown,
		Recoverable: false,
		Path:        path,
		Message:     err.Error(),
		OriginalErr: err,
	}
}

// ClassifyParseError classifies an error produced while decoding a dataset
// or query file. It returns a ClassifiedError with appropriate category
// and recoverability.
//
// Classification rules:
//   - *csv.ParseError: Parse (broken row structure, not recoverable)
//   - *json.SyntaxError: Parse (malformed JSON, not recoverable)
//   - *json.UnmarshalTypeError: Parse (wrong shape, not recoverable)
//   - *strconv.NumError: Data (bad numeric value, recoverable)
//   - *time.ParseError: Data (bad date value, recoverable)
//   - Unknown: CategoryUnknown
func ClassifyParseError(err error) *ClassifiedError {
	if err == nil {
		return &ClassifiedError{
			Category: CategoryUnknown,
			Message:  "nil error",
		}
	}

	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ClassifiedError{
			Category:    CategoryParse,
			Recoverable: false,
			Message:     fmt.Sprintf("CSV parse error at line %d", csvErr.Line),
			OriginalErr: err,
		}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &ClassifiedError{
			Category:    CategoryParse,
			Recoverable: false,
			Message:     fmt.Sprintf("JSON syntax error at offset %d", syntaxErr.Offset),
			OriginalErr: err,
		}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &ClassifiedError{
			Category:    CategoryParse,
			Recoverable: false,
			Message:     fmt.Sprintf("JSON type error: %s is not %s", typeErr.Value, typeErr.Type),
			OriginalErr: err,
		}
	}

	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return &ClassifiedError{
			Category:    CategoryData,
			Recoverable: true,
			Message:     fmt.Sprintf("invalid number %q", numErr.Num),
			OriginalErr: err,
		}
	}

	var timeErr *time.ParseError
	if errors.As(err, &timeErr) {
		return &ClassifiedError{
			Category:    CategoryData,
			Recoverable: true,
			Message:     fmt.Sprintf("invalid date %q", timeErr.Value),
			OriginalErr: err,
		}
	}

	return &ClassifiedError{
		Category:    CategoryUnknown,
		Recoverable: false,
		Message:     err.Error(),
		OriginalErr: err,
	}
}

// ClassifyError classifies any error into a ClassifiedError.
// It handles already classified errors, configuration errors, file system
// errors, and decode errors. Unknown (unclassified) errors abort by default.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return &ClassifiedError{
			Category: CategoryUnknown,
			Message:  "nil error",
		}
	}

	// Check if already classified
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	// Configuration errors carry their own code and message
	var confErr *query.ConfigurationError
	if errors.As(err, &confErr) {
		return &ClassifiedError{
			Category:    CategoryConfiguration,
			Recoverable: false,
			Message:     confErr.Message,
			OriginalErr: err,
		}
	}

	// Lookup misses from the database
	if errors.Is(err, database.ErrNotFound) {
		return &ClassifiedError{
			Category:    CategoryNotFound,
			Recoverable: false,
			Message:     err.Error(),
			OriginalErr: err,
		}
	}

	// Check for context errors (canceled or timed out executions)
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClassifiedError{
			Category:    CategoryUnknown,
			Recoverable: false,
			Message:     "execution timed out",
			OriginalErr: err,
		}
	}

	if errors.Is(err, context.Canceled) {
		return &ClassifiedError{
			Category:    CategoryUnknown,
			Recoverable: false,
			Message:     "execution canceled",
			OriginalErr: err,
		}
	}

	// Check for file system errors
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return ClassifyFileError(err, pathErr.Path)
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return ClassifyFileError(err, "")
	}

	// Check for decode errors
	var csvErr *csv.ParseError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var numErr *strconv.NumError
	var timeErr *time.ParseError

	if errors.As(err, &csvErr) || errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr) || errors.As(err, &numErr) ||
		errors.As(err, &timeErr) {
		return ClassifyParseError(err)
	}

	return &ClassifiedError{
		Category:    CategoryUnknown,
		Recoverable: false,
		Message:     err.Error(),
		OriginalErr: err,
	}
}

// IsRecoverable returns true if execution can continue past the error.
// Nil errors return false.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}

	// Check for classified error
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Recoverable
	}

	// Classify and check
	classifiedErr := ClassifyError(err)
	return classifiedErr.Recoverable
}

// IsFatal returns true if the error must abort execution.
// Fatal categories: Configuration, Parse, Validation, IO, NotFound.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	category := GetErrorCategory(err)

	switch category {
	case CategoryConfiguration, CategoryParse, CategoryValidation, CategoryIO, CategoryNotFound:
		return true
	case CategoryUnknown:
		return !IsRecoverable(err)
	default:
		return false
	}
}

// GetErrorCategory returns the error category for a given error.
// Unclassified errors are classified first; nil returns CategoryUnknown.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Category
	}

	return ClassifyError(err).Category
}

// NewConfigurationError creates a ClassifiedError for configuration errors.
func NewConfigurationError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryConfiguration,
		Recoverable: false,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewParseError creates a ClassifiedError for parse errors.
func NewParseError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryParse,
		Recoverable: false,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewValidationError creates a ClassifiedError for validation errors.
func NewValidationError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryValidation,
		Recoverable: false,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewIOError creates a ClassifiedError for file system errors.
func NewIOError(path, message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryIO,
		Recoverable: false,
		Path:        path,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewNotFoundError creates a ClassifiedError for missing resources.
func NewNotFoundError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryNotFound,
		Recoverable: false,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewDataError creates a ClassifiedError for malformed record values.
func NewDataError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryData,
		Recoverable: true,
		Message:     message,
		OriginalErr: originalErr,
	}
}
