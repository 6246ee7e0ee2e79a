package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/derive/internal/execshell"
	pathutils "github.com/temirov/derive/internal/utils/path"
)

const (
	execCommandUseConstant                   = "exec [flags] -- COMMAND [ARGUMENT...]"
	execCommandShortDescriptionConstant      = "Run one external command under the execution engine"
	execCommandLongDescriptionConstant       = "exec runs a single command to completion, draining its error stream and enforcing the timeout. A single argument is interpreted by /bin/sh; several arguments run directly as an argument vector."
	execTimeoutFlagNameConstant              = "timeout"
	execTimeoutFlagDescriptionConstant       = "Wall-clock budget for the command (0 disables); defaults to execution.timeout"
	execDirectoryFlagNameConstant            = "dir"
	execDirectoryFlagDescriptionConstant     = "Working directory for the command"
	execEnvironmentFlagNameConstant          = "env"
	execEnvironmentFlagDescriptionConstant   = "Additional KEY=VALUE environment entry (repeatable)"
	execEnvironmentEntrySeparatorConstant    = "="
	execNegativeTimeoutMessageConstant       = "timeout must not be negative"
	execEnvironmentEntryErrorTemplate        = "invalid environment entry %q: expected KEY=VALUE"
	execDirectoryResolutionErrorTemplate     = "unable to resolve working directory: %w"
	execExecutorUnavailableErrorTemplate     = "unable to create command executor: %w"
	execTimeoutConfigurationTemplateConstant = "invalid execution timeout %s: %w"
)

var errNegativeExecutionTimeout = errors.New(execNegativeTimeoutMessageConstant)

// ExecutionConfiguration holds defaults for the exec command.
type ExecutionConfiguration struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type execCommandBuilder struct {
	LoggerProvider        func() *zap.Logger
	ConfigurationProvider func() ExecutionConfiguration
	ExecutorProvider      func(logger *zap.Logger) (execshell.CommandExecutor, error)
	HomeExpander          *pathutils.HomeExpander
}

func (builder *execCommandBuilder) Build() (*cobra.Command, error) {
	execCommand := &cobra.Command{
		Use:   execCommandUseConstant,
		Short: execCommandShortDescriptionConstant,
		Long:  execCommandLongDescriptionConstant,
		Args:  cobra.MinimumNArgs(1),
		RunE:  builder.run,
	}

	execCommand.Flags().SetInterspersed(false)
	execCommand.Flags().Duration(execTimeoutFlagNameConstant, 0, execTimeoutFlagDescriptionConstant)
	execCommand.Flags().String(execDirectoryFlagNameConstant, "", execDirectoryFlagDescriptionConstant)
	execCommand.Flags().StringArray(execEnvironmentFlagNameConstant, nil, execEnvironmentFlagDescriptionConstant)

	return execCommand, nil
}

func (builder *execCommandBuilder) run(command *cobra.Command, arguments []string) error {
	timeout, timeoutError := builder.resolveTimeout(command)
	if timeoutError != nil {
		return timeoutError
	}

	shellCommand, commandError := builder.buildShellCommand(command, arguments)
	if commandError != nil {
		return commandError
	}

	logger := zap.NewNop()
	if builder.LoggerProvider != nil {
		if providedLogger := builder.LoggerProvider(); providedLogger != nil {
			logger = providedLogger
		}
	}

	executor, executorError := builder.resolveExecutor(logger)
	if executorError != nil {
		return fmt.Errorf(execExecutorUnavailableErrorTemplate, executorError)
	}

	return executor.Execute(command.Context(), shellCommand, execshell.ExecutionOptions{Timeout: timeout})
}

func (builder *execCommandBuilder) resolveExecutor(logger *zap.Logger) (execshell.CommandExecutor, error) {
	if builder.ExecutorProvider == nil {
		return execshell.NewEngine(logger, execshell.NewOSProcessLauncher())
	}
	return builder.ExecutorProvider(logger)
}

func (builder *execCommandBuilder) resolveTimeout(command *cobra.Command) (time.Duration, error) {
	var timeout time.Duration
	if builder.ConfigurationProvider != nil {
		timeout = builder.ConfigurationProvider().Timeout
	}
	if command.Flags().Changed(execTimeoutFlagNameConstant) {
		timeout, _ = command.Flags().GetDuration(execTimeoutFlagNameConstant)
	}
	if timeout < 0 {
		return 0, fmt.Errorf(execTimeoutConfigurationTemplateConstant, timeout, errNegativeExecutionTimeout)
	}
	return timeout, nil
}

func (builder *execCommandBuilder) buildShellCommand(command *cobra.Command, arguments []string) (execshell.ShellCommand, error) {
	var shellCommand execshell.ShellCommand
	if len(arguments) == 1 {
		shellCommand = execshell.NewShellCommand(arguments[0])
	} else {
		shellCommand = execshell.NewArgumentCommand(arguments...)
	}

	directory, _ := command.Flags().GetString(execDirectoryFlagNameConstant)
	resolvedDirectory, resolveError := builder.HomeExpander.Resolve(directory)
	if resolveError != nil {
		return execshell.ShellCommand{}, fmt.Errorf(execDirectoryResolutionErrorTemplate, resolveError)
	}
	shellCommand.WorkingDirectory = resolvedDirectory

	environmentEntries, _ := command.Flags().GetStringArray(execEnvironmentFlagNameConstant)
	for _, entry := range environmentEntries {
		key, value, found := strings.Cut(entry, execEnvironmentEntrySeparatorConstant)
		if !found || len(strings.TrimSpace(key)) == 0 {
			return execshell.ShellCommand{}, fmt.Errorf(execEnvironmentEntryErrorTemplate, entry)
		}
		if shellCommand.EnvironmentVariables == nil {
			shellCommand.EnvironmentVariables = make(map[string]string, len(environmentEntries))
		}
		shellCommand.EnvironmentVariables[key] = value
	}

	return shellCommand, nil
}
