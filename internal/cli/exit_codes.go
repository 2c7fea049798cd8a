package cli

import (
	clierrors "github.com/ariel-frischer/changeset/internal/errors"
)

// Exit codes for the changeset CLI
// These codes support programmatic composition and CI/CD integration
const (
	// ExitSuccess indicates successful command execution
	ExitSuccess = 0

	// ExitVerificationFailed indicates uncovered packages or deleted changesets
	ExitVerificationFailed = 1

	// ExitInternalError indicates the tool failed for any other reason
	ExitInternalError = 2

	// ExitInvalidArguments indicates invalid command arguments
	ExitInvalidArguments = 3

	// ExitConfigError indicates invalid or unreadable configuration
	ExitConfigError = 4
)

// ExitCode maps err to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	switch clierrors.Classify(err) {
	case clierrors.KindCoverageFailure, clierrors.KindDeletedChangesets:
		return ExitVerificationFailed
	case clierrors.KindInvalidArgument, clierrors.KindRevisionNotFound:
		return ExitInvalidArguments
	case clierrors.KindConfig:
		return ExitConfigError
	default:
		return ExitInternalError
	}
}
