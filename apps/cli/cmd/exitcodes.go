package cmd

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/hncheck/packages/core/runner"
	"github.com/abdul-hamid-achik/hncheck/packages/hnapi"
)

// Exit codes for hncheck CLI
const (
	// ExitSuccess indicates every scenario passed
	ExitSuccess = 0

	// ExitContractFailure indicates a contract violation or an errored scenario
	ExitContractFailure = 1

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates the upstream could not be reached or answered non-2xx
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// ExitError carries the process exit code for err.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: code, Err: err}
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: ExitUsageError, Err: fmt.Errorf(format, args...)}
}

// exitCode maps an error returned by a command to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var fetchErr *hnapi.FetchFailure
	if errors.As(err, &fetchErr) {
		return ExitNetworkError
	}
	return ExitContractFailure
}

// resultCode maps a finished run to an exit code. A run whose only problems
// are fetch failures is a network error; any violation is a contract failure.
func resultCode(result *runner.RunResult) int {
	if result.OK() {
		return ExitSuccess
	}
	if result.Failed > 0 {
		return ExitContractFailure
	}
	for _, r := range result.Results {
		if r.Status != runner.StatusErrored {
			continue
		}
		var fetchErr *hnapi.FetchFailure
		if !errors.As(r.Error, &fetchErr) {
			return ExitContractFailure
		}
	}
	return ExitNetworkError
}
