// Package domain defines shared error types for the grid core.
package domain

import "fmt"

// ValidationError indicates a configuration-time programmer error: an unsafe
// identifier, a computed column without a SQL mapping, or a column definition
// with no derivable identifier. These surface immediately and never degrade.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// QueryError indicates a recoverable engine failure. It carries the offending
// statement for diagnosis.
type QueryError struct {
	Statement string
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v (statement: %s)", e.Err, e.Statement)
}

func (e *QueryError) Unwrap() error { return e.Err }

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrQuery creates a QueryError wrapping an engine failure.
func ErrQuery(statement string, err error) *QueryError {
	return &QueryError{Statement: statement, Err: err}
}
