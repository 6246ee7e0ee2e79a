package execshell

import (
	"errors"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

const unknownExitCodeConstant = -1

// exitStatusFromWait converts the result of waiting on a child into an ExitStatus.
// Errors other than a non-zero exit are returned alongside an unknown status.
func exitStatusFromWait(waitError error) (ExitStatus, error) {
	if waitError == nil {
		return ExitStatus{}, nil
	}

	var exitError *exec.ExitError
	if !errors.As(waitError, &exitError) {
		return ExitStatus{Code: unknownExitCodeConstant}, waitError
	}

	status := ExitStatus{Code: exitError.ExitCode()}
	if waitStatus, isWaitStatus := exitError.Sys().(syscall.WaitStatus); isWaitStatus && waitStatus.Signaled() {
		status.Signal = unix.SignalName(waitStatus.Signal())
	}
	return status, nil
}

// evaluateCompletion classifies a finished child. Diagnostics only travel with failures.
func evaluateCompletion(command ShellCommand, result completionResult) error {
	if result.waitError != nil {
		return ExecutionFailedError{
			Command:     command,
			Status:      result.status,
			Diagnostics: result.diagnostics,
			Cause:       result.waitError,
		}
	}

	if result.status.Success() {
		return nil
	}

	return ExecutionFailedError{
		Command:     command,
		Status:      result.status,
		Diagnostics: result.diagnostics,
		Cause:       result.drainError,
	}
}
