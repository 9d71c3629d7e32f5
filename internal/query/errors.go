// Package query implements the composable filter engine for
// close-approach records: attribute filters, criteria-to-filter
// construction, and the lazy apply/limit stream combinators.
package query

import (
	"errors"
	"fmt"
)

// Error codes for filter construction failures.
const (
	ErrCodeInvalidOperator   = "INVALID_OPERATOR"
	ErrCodeInvalidValue      = "INVALID_VALUE"
	ErrCodeInvalidExpression = "INVALID_EXPRESSION"
	ErrCodeInvalidScript     = "INVALID_SCRIPT"
)

// Common errors for filter construction.
var (
	// ErrInvalidOperator is returned when an operator is not one of the
	// five supported comparators.
	ErrInvalidOperator = errors.New("unsupported comparison operator")
	// ErrEmptyExpression is returned when an expression filter is built
	// from an empty or whitespace-only source.
	ErrEmptyExpression = errors.New("expression cannot be empty")
	// ErrInvalidExpression is returned when the expression syntax is invalid.
	ErrInvalidExpression = errors.New("invalid expression syntax")
	// ErrInvalidScript is returned when a script predicate cannot be loaded
	// or does not define a matches function.
	ErrInvalidScript = errors.New("invalid script")
)

// ConfigurationError reports an invalid filter construction: an
// unsupported operator, a malformed reference value, or an expression
// or script that does not compile. It is always detected before any
// query runs.
type ConfigurationError struct {
	// Code is the error code for programmatic handling.
	Code string
	// Message is the human-readable error message.
	Message string
	// Err is the underlying cause, if any.
	Err error
	// Details contains additional context (filter kind, offending value).
	Details map[string]interface{}
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/errors.As chains.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// newOperatorError builds the ConfigurationError for an unsupported
// operator on the named filter kind.
func newOperatorError(kind string, op Operator) *ConfigurationError {
	return &ConfigurationError{
		Code:    ErrCodeInvalidOperator,
		Message: fmt.Sprintf("%s filter: unsupported operator %q (supported: =, <, >, <=, >=)", kind, string(op)),
		Err:     ErrInvalidOperator,
		Details: map[string]interface{}{
			"kind":     kind,
			"operator": string(op),
		},
	}
}
