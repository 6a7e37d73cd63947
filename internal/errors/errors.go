// Package errors carries the CLI's exit-code taxonomy.
package errors

import "fmt"

// Process exit codes.
const (
	ExitCompilationFailed = 1
	ExitInvalidArgument   = 2
	ExitNoInstallation    = 3
)

// ExitError pairs a failure with the process exit code it should produce.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

func NewExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}
