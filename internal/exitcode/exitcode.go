// Package exitcode defines the process exit codes of elia.
package exitcode

import "errors"

const (
	Success      = 0
	Error        = 1
	UserDeclined = 2
	Cancelled    = 130 // 128 + SIGINT
)

// ExitError is an error that carries a specific exit code
type ExitError struct {
	Code    int
	Message string
}

func (e ExitError) Error() string {
	return e.Message
}

// Declined reports that the user answered no to a confirmation.
func Declined(msg string) ExitError { return ExitError{Code: UserDeclined, Message: msg} }

// Cancel reports an interrupted command.
func Cancel() ExitError { return ExitError{Code: Cancelled, Message: "cancelled"} }

// Code returns the exit code for err.
func Code(err error) int {
	if err == nil {
		return Success
	}
	var exitErr ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return Error
}
