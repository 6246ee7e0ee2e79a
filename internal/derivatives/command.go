package derivatives

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/derive/internal/execshell"
	"github.com/temirov/derive/internal/utils/flags"
	pathutils "github.com/temirov/derive/internal/utils/path"
)

const (
	encodeCommandUseConstant               = "encode [flags] SOURCE..."
	encodeCommandShortDescriptionConstant  = "Create configured derivatives of media files"
	encodeCommandLongDescriptionConstant   = "encode runs every configured directive against each source file, storing each derivative in the output directory. Sources may be doublestar patterns such as media/**/*.mov."
	directivesFlagNameConstant             = "directives"
	directivesFlagDescriptionConstant      = "YAML file with the directives to run instead of the configured ones"
	outputDirectoryFlagNameConstant        = "output-dir"
	outputDirectoryFlagDescriptionConstant = "Directory receiving the derivatives"
	temporaryDirectoryFlagNameConstant     = "temp-dir"
	temporaryDirectoryFlagDescription      = "Directory for intermediate encoder output"
	timeoutFlagNameConstant                = "timeout"
	timeoutFlagDescriptionConstant         = "Wall-clock budget per encoder invocation (0 disables)"
	dryRunFlagNameConstant                 = "dry-run"
	dryRunFlagDescriptionConstant          = "Print encoder commands without running them"
	resultOutputTemplateConstant           = "%s\t%s\t%s\n"
	configurationInvalidTemplateConstant   = "invalid encode configuration: %w"
	commandExecutionErrorTemplateConstant  = "encode failed: %w"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current encode configuration.
type ConfigurationProvider func() Configuration

// ExecutorProvider builds the command executor used for encoder invocations.
type ExecutorProvider func(logger *zap.Logger) (execshell.CommandExecutor, error)

// CommandBuilder assembles the encode command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	ExecutorProvider      ExecutorProvider
	HomeExpander          *pathutils.HomeExpander
}

// Build constructs the encode command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	encodeCommand := &cobra.Command{
		Use:   encodeCommandUseConstant,
		Short: encodeCommandShortDescriptionConstant,
		Long:  encodeCommandLongDescriptionConstant,
		Args:  cobra.MinimumNArgs(1),
		RunE:  builder.run,
	}

	encodeCommand.Flags().String(directivesFlagNameConstant, "", directivesFlagDescriptionConstant)
	encodeCommand.Flags().String(outputDirectoryFlagNameConstant, "", outputDirectoryFlagDescriptionConstant)
	encodeCommand.Flags().String(temporaryDirectoryFlagNameConstant, "", temporaryDirectoryFlagDescription)
	encodeCommand.Flags().Duration(timeoutFlagNameConstant, 0, timeoutFlagDescriptionConstant)
	flags.AddToggleFlag(encodeCommand.Flags(), nil, dryRunFlagNameConstant, "", false, dryRunFlagDescriptionConstant)

	return encodeCommand, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := builder.resolveLogger()

	settings, settingsError := builder.resolveSettings(command)
	if settingsError != nil {
		return settingsError
	}

	sources, sourcesError := ExpandSources(arguments)
	if sourcesError != nil {
		return sourcesError
	}

	executor, executorError := builder.resolveExecutor(logger)
	if executorError != nil {
		return executorError
	}

	outputService, outputError := NewDirectoryOutputService(logger, settings.outputDirectory)
	if outputError != nil {
		return outputError
	}

	processor, processorError := NewProcessor(logger, executor, outputService, settings.processor)
	if processorError != nil {
		return processorError
	}

	for _, source := range sources {
		results, processError := processor.Process(command.Context(), source)
		builder.report(command, results)
		if processError != nil {
			return fmt.Errorf(commandExecutionErrorTemplateConstant, processError)
		}
	}

	return nil
}

type resolvedSettings struct {
	processor       ProcessorSettings
	outputDirectory string
}

func (builder *CommandBuilder) resolveSettings(command *cobra.Command) (resolvedSettings, error) {
	configuration := DefaultConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}

	commandFlags := command.Flags()
	if commandFlags.Changed(outputDirectoryFlagNameConstant) {
		configuration.OutputDirectory, _ = commandFlags.GetString(outputDirectoryFlagNameConstant)
	}
	if commandFlags.Changed(temporaryDirectoryFlagNameConstant) {
		configuration.TempDirectory, _ = commandFlags.GetString(temporaryDirectoryFlagNameConstant)
	}
	if commandFlags.Changed(timeoutFlagNameConstant) {
		configuration.Timeout, _ = commandFlags.GetDuration(timeoutFlagNameConstant)
	}

	directivesFilePath, _ := commandFlags.GetString(directivesFlagNameConstant)
	if len(strings.TrimSpace(directivesFilePath)) > 0 {
		fileDirectives, loadError := LoadDirectivesFile(builder.HomeExpander.Expand(strings.TrimSpace(directivesFilePath)))
		if loadError != nil {
			return resolvedSettings{}, loadError
		}
		configuration.Directives = fileDirectives
	}

	sanitized, sanitizeError := configuration.Sanitize(builder.HomeExpander)
	if sanitizeError != nil {
		return resolvedSettings{}, sanitizeError
	}
	if validationError := sanitized.Validate(); validationError != nil {
		return resolvedSettings{}, fmt.Errorf(configurationInvalidTemplateConstant, validationError)
	}

	directives, directivesError := ParseDirectives(sanitized.Directives)
	if directivesError != nil {
		return resolvedSettings{}, directivesError
	}

	dryRun, _ := commandFlags.GetBool(dryRunFlagNameConstant)

	return resolvedSettings{
		processor: ProcessorSettings{
			Directives:      directives,
			Formats:         sanitized.Formats,
			CommandTemplate: sanitized.CommandTemplate,
			TempDirectory:   sanitized.TempDirectory,
			Timeout:         sanitized.Timeout,
			DryRun:          dryRun,
		},
		outputDirectory: sanitized.OutputDirectory,
	}, nil
}

func (builder *CommandBuilder) report(command *cobra.Command, results []DerivativeResult) {
	output := command.OutOrStdout()
	for _, result := range results {
		if result.DryRun {
			fmt.Fprintf(output, resultOutputTemplateConstant, result.Directive.Name, result.Destination, result.Command)
			continue
		}
		fmt.Fprintf(output, resultOutputTemplateConstant, result.Directive.Name, result.MimeType, result.StoredPath)
	}
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveExecutor(logger *zap.Logger) (execshell.CommandExecutor, error) {
	if builder.ExecutorProvider == nil {
		return execshell.NewEngine(logger, execshell.NewOSProcessLauncher())
	}
	return builder.ExecutorProvider(logger)
}
