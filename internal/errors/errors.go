// Package errors provides structured error handling for the changeset CLI.
// It classifies the typed errors of the engine packages and attaches
// actionable remediation guidance for display.
package errors

import "fmt"

// ErrorCategory represents the type of error that occurred.
type ErrorCategory int

const (
	// Argument errors are caused by invalid or missing command arguments.
	Argument ErrorCategory = iota
	// Configuration errors are caused by invalid configuration files or values.
	Configuration
	// Workspace errors come from package manifests and the dependency graph.
	Workspace
	// Changeset errors come from pending changeset files.
	Changeset
	// Verification errors mean the change set is not covered by changesets.
	Verification
	// Release errors stop a release before anything is written.
	Release
	// Runtime errors occur during command execution.
	Runtime
)

// String returns a human-readable name for the error category.
func (c ErrorCategory) String() string {
	switch c {
	case Argument:
		return "Argument Error"
	case Configuration:
		return "Configuration Error"
	case Workspace:
		return "Workspace Error"
	case Changeset:
		return "Changeset Error"
	case Verification:
		return "Verification Failed"
	case Release:
		return "Release Error"
	case Runtime:
		return "Runtime Error"
	default:
		return "Error"
	}
}

// CLIError is a structured error with category and remediation guidance.
type CLIError struct {
	// Kind is the classified failure.
	Kind Kind
	// Category is the type of error (Argument, Configuration, etc.)
	Category ErrorCategory
	// Message is a human-readable description of what went wrong.
	Message string
	// Remediation is a list of actionable steps to resolve the error.
	Remediation []string
	// Usage shows the correct command syntax (optional, for argument errors).
	Usage string
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewArgumentError creates a new argument error with the given message and remediation steps.
func NewArgumentError(message string, remediation ...string) *CLIError {
	return &CLIError{
		Kind:        KindInvalidArgument,
		Category:    Argument,
		Message:     message,
		Remediation: remediation,
	}
}

// NewArgumentErrorWithUsage creates a new argument error that includes correct usage syntax.
func NewArgumentErrorWithUsage(message, usage string, remediation ...string) *CLIError {
	return &CLIError{
		Kind:        KindInvalidArgument,
		Category:    Argument,
		Message:     message,
		Usage:       usage,
		Remediation: remediation,
	}
}

// NewConfigError wraps a configuration loading failure.
func NewConfigError(err error, remediation ...string) *CLIError {
	if err == nil {
		return nil
	}
	return &CLIError{
		Kind:        KindConfig,
		Category:    Configuration,
		Message:     err.Error(),
		Remediation: remediation,
		Err:         err,
	}
}

// WrapWithMessage wraps an error with a custom message, keeping its classification.
func WrapWithMessage(err error, message string) *CLIError {
	if err == nil {
		return nil
	}
	wrapped := *Present(err)
	wrapped.Message = fmt.Sprintf("%s: %s", message, wrapped.Message)
	return &wrapped
}

// AsCLIError attempts to convert an error to a CLIError.
// Returns nil if the error is not a CLIError.
func AsCLIError(err error) *CLIError {
	cliErr, ok := err.(*CLIError)
	if ok {
		return cliErr
	}
	return nil
}
