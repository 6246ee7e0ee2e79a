package execshell

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	loggerNotConfiguredMessageConstant    = "execshell: logger not configured"
	launcherNotConfiguredMessageConstant  = "execshell: process launcher not configured"
	emptyCommandMessageConstant           = "execshell: command is empty"
	incompleteProcessMessageConstant      = "execshell: launched process lacks an identifier, error stream or waiter"
	launchErrorTemplateConstant           = "unable to launch command \"%s\": %v"
	timeoutErrorTemplateConstant          = "command \"%s\" did not finish within %s"
	timeoutCancelledErrorTemplateConstant = "command \"%s\" was terminated: %v"
	executionFailedTemplateConstant       = "command \"%s\" failed with exit status %s"
	executionFailedDiagnosticsTemplate    = "%s\n%s"
	executionFailedCauseTemplateConstant  = "%s: %v"
)

var (
	// ErrLoggerNotConfigured indicates that a nil logger was supplied.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrLauncherNotConfigured indicates that a nil process launcher was supplied.
	ErrLauncherNotConfigured = errors.New(launcherNotConfiguredMessageConstant)
	// ErrEmptyCommand indicates that neither a shell line nor arguments were supplied.
	ErrEmptyCommand = errors.New(emptyCommandMessageConstant)
	// ErrIncompleteProcess indicates that a ProcessLauncher returned a process the engine cannot supervise.
	ErrIncompleteProcess = errors.New(incompleteProcessMessageConstant)
)

// LaunchError reports that the operating system could not create the child process.
type LaunchError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the launch failure.
func (launchError LaunchError) Error() string {
	return fmt.Sprintf(launchErrorTemplateConstant, launchError.Command.String(), launchError.Cause)
}

// Unwrap exposes the underlying spawn error.
func (launchError LaunchError) Unwrap() error {
	return launchError.Cause
}

// TimeoutError reports that the deadline expired and the child was killed.
type TimeoutError struct {
	Command ShellCommand
	Timeout time.Duration
	Cause   error
}

// Error describes the timeout. Invocations ended by anything other than the deadline are reported as terminated.
func (timeoutError TimeoutError) Error() string {
	if timeoutError.Cause != nil && !errors.Is(timeoutError.Cause, context.DeadlineExceeded) {
		return fmt.Sprintf(timeoutCancelledErrorTemplateConstant, timeoutError.Command.String(), timeoutError.Cause)
	}
	return fmt.Sprintf(timeoutErrorTemplateConstant, timeoutError.Command.String(), timeoutError.Timeout)
}

// Unwrap exposes the context error that ended the invocation.
func (timeoutError TimeoutError) Unwrap() error {
	return timeoutError.Cause
}

// ExecutionFailedError reports a child that ran to completion with a non-success status.
type ExecutionFailedError struct {
	Command     ShellCommand
	Status      ExitStatus
	Diagnostics string
	Cause       error
}

// Error includes the command, the exit status and the captured diagnostics.
func (failedError ExecutionFailedError) Error() string {
	message := fmt.Sprintf(executionFailedTemplateConstant, failedError.Command.String(), failedError.Status.String())
	if failedError.Cause != nil {
		message = fmt.Sprintf(executionFailedCauseTemplateConstant, message, failedError.Cause)
	}
	if len(failedError.Diagnostics) == 0 {
		return message
	}
	return fmt.Sprintf(executionFailedDiagnosticsTemplate, message, failedError.Diagnostics)
}

// Unwrap exposes the wait error, if any.
func (failedError ExecutionFailedError) Unwrap() error {
	return failedError.Cause
}
