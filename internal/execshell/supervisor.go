package execshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

const interruptPipeErrorTemplateConstant = "unable to create interrupt pipe: %w"

// invocation is the mutable state of one Execute call. It is never shared between calls.
type invocation struct {
	identifier      string
	command         ShellCommand
	process         *LaunchedProcess
	interruptReader *os.File
	interruptWriter *os.File

	stateMutex sync.Mutex
	reaped     bool
	killOnce   sync.Once
	killError  error
}

// completionResult is what the drain-and-wait work hands back to the supervisor.
type completionResult struct {
	status      ExitStatus
	waitError   error
	drainError  error
	diagnostics string
}

func newInvocation(identifier string, command ShellCommand, process *LaunchedProcess) (*invocation, error) {
	interruptReader, interruptWriter, pipeError := os.Pipe()
	if pipeError != nil {
		return nil, fmt.Errorf(interruptPipeErrorTemplateConstant, pipeError)
	}
	return &invocation{
		identifier:      identifier,
		command:         command,
		process:         process,
		interruptReader: interruptReader,
		interruptWriter: interruptWriter,
	}, nil
}

func (current *invocation) markReaped() {
	current.stateMutex.Lock()
	current.reaped = true
	current.stateMutex.Unlock()
}

// terminate sends SIGKILL to the child's process group at most once, and never after the child was reaped.
func (current *invocation) terminate() error {
	current.killOnce.Do(func() {
		current.stateMutex.Lock()
		defer current.stateMutex.Unlock()
		if current.reaped {
			return
		}
		current.killError = killProcessGroup(current.process.ProcessIdentifier)
	})
	return current.killError
}

// abort wakes the drain loop so the in-flight work stops reading.
func (current *invocation) abort() {
	closeQuietly(current.interruptWriter)
}

func (current *invocation) release() {
	current.process.releaseStreams()
	closeQuietly(current.interruptWriter)
	closeQuietly(current.interruptReader)
}

func killProcessGroup(processIdentifier int) error {
	killError := unix.Kill(-processIdentifier, unix.SIGKILL)
	if errors.Is(killError, unix.ESRCH) {
		killError = unix.Kill(processIdentifier, unix.SIGKILL)
	}
	if errors.Is(killError, unix.ESRCH) {
		return nil
	}
	return killError
}

// runToCompletion drains the error stream until end-of-stream, then reaps the child.
func (engine *Engine) runToCompletion(current *invocation) completionResult {
	var diagnostics bytes.Buffer

	drainError := engine.drainDiagnostics(current, &diagnostics)
	if drainError != nil && !errors.Is(drainError, errDrainInterrupted) {
		closeQuietly(current.process.StandardError)
	}

	status, waitError := current.process.wait()
	current.markReaped()

	return completionResult{
		status:      status,
		waitError:   waitError,
		drainError:  drainError,
		diagnostics: diagnostics.String(),
	}
}

func (engine *Engine) drainDiagnostics(current *invocation, diagnostics *bytes.Buffer) error {
	errorDescriptor, errorDescriptorError := nonblockingDescriptor(current.process.StandardError)
	if errorDescriptorError != nil {
		return errorDescriptorError
	}
	interruptDescriptor, interruptDescriptorError := nonblockingDescriptor(current.interruptReader)
	if interruptDescriptorError != nil {
		return interruptDescriptorError
	}

	streams := []monitoredStream{{descriptor: errorDescriptor, sink: diagnostics}}
	return newDrainLoop(engine.pollInterval).run(streams, interruptDescriptor)
}

// supervise runs the work concurrently with the optional deadline. When the deadline wins the child
// is killed, the drain is aborted, the child is reaped and a TimeoutError is returned.
func (engine *Engine) supervise(executionContext context.Context, current *invocation, options ExecutionOptions) (completionResult, error) {
	deadlineContext := executionContext
	cancelDeadline := context.CancelFunc(func() {})
	if options.Timeout > 0 {
		deadlineContext, cancelDeadline = context.WithTimeout(executionContext, options.Timeout)
	}
	defer cancelDeadline()

	completion := make(chan completionResult, 1)
	go func() {
		completion <- engine.runToCompletion(current)
	}()

	select {
	case result := <-completion:
		return result, nil
	case <-deadlineContext.Done():
	}

	select {
	case result := <-completion:
		return result, nil
	default:
	}

	killError := current.terminate()
	current.abort()
	abandonedResult := <-completion

	timeoutCause := deadlineContext.Err()
	if killError != nil {
		timeoutCause = errors.Join(timeoutCause, killError)
	}

	return abandonedResult, TimeoutError{
		Command: current.command,
		Timeout: options.Timeout,
		Cause:   timeoutCause,
	}
}
