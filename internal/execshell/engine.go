package execshell

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	commandStartingMessageConstant     = "command starting"
	commandCompletedMessageConstant    = "command completed"
	commandFailedMessageConstant       = "command failed"
	commandTimedOutMessageConstant     = "command timed out"
	commandLaunchFailedMessageConstant = "command launch failed"
	logFieldInvocationIDConstant       = "invocation_id"
	logFieldCommandConstant            = "command"
	logFieldProcessIDConstant          = "process_id"
	logFieldTimeoutConstant            = "timeout"
	logFieldExitStatusConstant         = "exit_status"
	logFieldDurationConstant           = "duration"
	logFieldDiagnosticBytesConstant    = "diagnostic_bytes"
	logFieldDrainErrorConstant         = "drain_error"
)

// CommandExecutor runs a command to completion under the supplied options.
type CommandExecutor interface {
	Execute(executionContext context.Context, command ShellCommand, options ExecutionOptions) error
}

// EngineOption customizes an Engine.
type EngineOption func(engine *Engine)

// WithObserver registers a lifecycle observer.
func WithObserver(observer CommandEventObserver) EngineOption {
	return func(engine *Engine) {
		if observer != nil {
			engine.observer = observer
		}
	}
}

// WithMetrics records invocation outcomes on the supplied metrics.
func WithMetrics(metrics *Metrics) EngineOption {
	return func(engine *Engine) {
		engine.metrics = metrics
	}
}

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(pollInterval time.Duration) EngineOption {
	return func(engine *Engine) {
		if pollInterval > 0 {
			engine.pollInterval = pollInterval
		}
	}
}

// Engine launches commands, drains their error stream and enforces deadlines.
type Engine struct {
	logger       *zap.Logger
	launcher     ProcessLauncher
	observer     CommandEventObserver
	metrics      *Metrics
	pollInterval time.Duration
}

// NewEngine validates collaborators and constructs an Engine.
func NewEngine(logger *zap.Logger, launcher ProcessLauncher, options ...EngineOption) (*Engine, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if launcher == nil {
		return nil, ErrLauncherNotConfigured
	}

	engine := &Engine{
		logger:       logger,
		launcher:     launcher,
		observer:     noopCommandEventObserver{},
		pollInterval: DefaultPollInterval,
	}
	for _, option := range options {
		if option != nil {
			option(engine)
		}
	}

	return engine, nil
}

// Execute runs the command and returns nil on a zero exit status. Failures are LaunchError, TimeoutError or ExecutionFailedError.
func (engine *Engine) Execute(executionContext context.Context, command ShellCommand, options ExecutionOptions) error {
	if executionContext == nil {
		executionContext = context.Background()
	}

	invocationIdentifier := ulid.Make().String()
	startTime := time.Now()

	engine.observer.CommandStarted(command)
	engine.logger.Info(
		commandStartingMessageConstant,
		zap.String(logFieldInvocationIDConstant, invocationIdentifier),
		zap.String(logFieldCommandConstant, command.String()),
		zap.Duration(logFieldTimeoutConstant, options.Timeout),
	)

	process, launchError := engine.launcher.Launch(command)
	if launchError != nil {
		return engine.reportLaunchFailure(invocationIdentifier, command, startTime, launchError)
	}
	if !process.supervisable() {
		if process != nil {
			process.releaseStreams()
		}
		return engine.reportLaunchFailure(invocationIdentifier, command, startTime, ErrIncompleteProcess)
	}
	process.closeUnusedStreams()

	current, invocationError := newInvocation(invocationIdentifier, command, process)
	if invocationError != nil {
		if killError := killProcessGroup(process.ProcessIdentifier); killError == nil {
			_, _ = process.wait()
		}
		process.releaseStreams()
		return engine.reportLaunchFailure(invocationIdentifier, command, startTime, invocationError)
	}
	defer current.release()

	result, supervisionError := engine.supervise(executionContext, current, options)
	duration := time.Since(startTime)

	if supervisionError != nil {
		engine.logger.Error(
			commandTimedOutMessageConstant,
			zap.String(logFieldInvocationIDConstant, invocationIdentifier),
			zap.String(logFieldCommandConstant, command.String()),
			zap.Int(logFieldProcessIDConstant, process.ProcessIdentifier),
			zap.Duration(logFieldTimeoutConstant, options.Timeout),
			zap.Duration(logFieldDurationConstant, duration),
			zap.Error(supervisionError),
		)
		engine.metrics.observe(OutcomeTimedOut, duration, len(result.diagnostics))
		engine.observer.CommandExecutionFailed(command, supervisionError)
		return supervisionError
	}

	outcome := ExecutionOutcome{
		InvocationID:      invocationIdentifier,
		ProcessIdentifier: process.ProcessIdentifier,
		Status:            result.status,
		Duration:          duration,
		DiagnosticBytes:   len(result.diagnostics),
	}

	evaluationError := evaluateCompletion(command, result)
	if evaluationError != nil {
		engine.logger.Warn(
			commandFailedMessageConstant,
			zap.String(logFieldInvocationIDConstant, invocationIdentifier),
			zap.String(logFieldCommandConstant, command.String()),
			zap.Int(logFieldProcessIDConstant, process.ProcessIdentifier),
			zap.String(logFieldExitStatusConstant, result.status.String()),
			zap.Duration(logFieldDurationConstant, duration),
			zap.Int(logFieldDiagnosticBytesConstant, outcome.DiagnosticBytes),
		)
		engine.metrics.observe(OutcomeFailed, duration, outcome.DiagnosticBytes)
		engine.observer.CommandCompleted(command, outcome)
		return evaluationError
	}

	completionFields := []zap.Field{
		zap.String(logFieldInvocationIDConstant, invocationIdentifier),
		zap.String(logFieldCommandConstant, command.String()),
		zap.Int(logFieldProcessIDConstant, process.ProcessIdentifier),
		zap.Duration(logFieldDurationConstant, duration),
	}
	if result.drainError != nil {
		completionFields = append(completionFields, zap.NamedError(logFieldDrainErrorConstant, result.drainError))
	}
	engine.logger.Info(commandCompletedMessageConstant, completionFields...)
	engine.metrics.observe(OutcomeSucceeded, duration, outcome.DiagnosticBytes)
	engine.observer.CommandCompleted(command, outcome)

	return nil
}

func (engine *Engine) reportLaunchFailure(invocationIdentifier string, command ShellCommand, startTime time.Time, cause error) error {
	failure := LaunchError{Command: command, Cause: cause}
	duration := time.Since(startTime)

	engine.logger.Error(
		commandLaunchFailedMessageConstant,
		zap.String(logFieldInvocationIDConstant, invocationIdentifier),
		zap.String(logFieldCommandConstant, command.String()),
		zap.Error(cause),
	)
	engine.metrics.observe(OutcomeLaunchFailed, duration, 0)
	engine.observer.CommandExecutionFailed(command, failure)

	return failure
}
