package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/derive/internal/derivatives"
	"github.com/temirov/derive/internal/execshell"
	"github.com/temirov/derive/internal/ui"
	"github.com/temirov/derive/internal/utils"
	"github.com/temirov/derive/internal/utils/flags"
	pathutils "github.com/temirov/derive/internal/utils/path"
)

const (
	applicationNameConstant                 = "derive"
	applicationShortDescriptionConstant     = "Run external encoders and create media derivatives"
	applicationLongDescriptionConstant      = "derive supervises external commands with bounded wall-clock time and full error-stream capture, and uses them to create configured derivatives of media files."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format."
	environmentPrefixConstant               = "DERIVE"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationDirectoryNameConstant      = "derive"
	defaultConfigurationSearchPathConstant  = "."
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	metricsWriteErrorTemplateConstant       = "unable to write metrics: %w"
	metricsWrittenMessageConstant           = "metrics written"
	logFieldMetricsFileConstant             = "metrics_file"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common    ApplicationCommonConfiguration `mapstructure:"common"`
	Execution ExecutionConfiguration         `mapstructure:"execution"`
	Encode    derivatives.Configuration      `mapstructure:"encode"`
}

// ApplicationCommonConfiguration stores settings shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
	MetricsFile string `mapstructure:"metrics_file"`
}

// Application wires the Cobra root command, configuration loader, structured logger and engine metrics.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         *utils.LoggerFactory
	logger                *zap.Logger
	metrics               *execshell.Metrics
	homeExpander          *pathutils.HomeExpander
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	configurationFilePath string
	logLevelFlagValue     string
	logFormatFlagValue    string
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		configurationSearchPaths(),
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       utils.NewLoggerFactory(),
		logger:              zap.NewNop(),
		metrics:             execshell.NewMetrics(),
		homeExpander:        pathutils.NewHomeExpander(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().Var(
		flags.NewChoiceValue(&application.logLevelFlagValue, string(utils.LogLevelInfo), utils.SupportedLogLevels()),
		logLevelFlagNameConstant,
		flags.FormatChoiceUsage(string(utils.LogLevelInfo), utils.SupportedLogLevels(), logLevelFlagUsageConstant),
	)
	cobraCommand.PersistentFlags().Var(
		flags.NewChoiceValue(&application.logFormatFlagValue, string(utils.LogFormatStructured), utils.SupportedLogFormats()),
		logFormatFlagNameConstant,
		flags.FormatChoiceUsage(string(utils.LogFormatStructured), utils.SupportedLogFormats(), logFormatFlagUsageConstant),
	)

	execBuilder := execCommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: func() ExecutionConfiguration {
			return application.configuration.Execution
		},
		ExecutorProvider: application.newExecutor,
		HomeExpander:     application.homeExpander,
	}
	execCommand, execBuildError := execBuilder.Build()
	if execBuildError == nil {
		cobraCommand.AddCommand(execCommand)
	}

	encodeBuilder := derivatives.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: func() derivatives.Configuration {
			return application.configuration.Encode
		},
		ExecutorProvider: application.newExecutor,
		HomeExpander:     application.homeExpander,
	}
	encodeCommand, encodeBuildError := encodeBuilder.Build()
	if encodeBuildError == nil {
		cobraCommand.AddCommand(encodeCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the command hierarchy against the process arguments.
func (application *Application) Execute() error {
	return application.ExecuteWithArguments(os.Args[1:])
}

// ExecuteWithArguments runs the command hierarchy, then exports metrics and flushes the logger.
func (application *Application) ExecuteWithArguments(arguments []string) error {
	application.rootCommand.SetArgs(application.normalizeArguments(arguments))
	executionError := application.rootCommand.Execute()

	if metricsError := application.writeMetrics(); metricsError != nil {
		executionError = errors.Join(executionError, metricsError)
	}
	if syncError := application.flushLogger(); syncError != nil {
		return errors.Join(executionError, fmt.Errorf(loggerSyncErrorTemplateConstant, syncError))
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func configurationSearchPaths() []string {
	searchPaths := []string{defaultConfigurationSearchPathConstant}
	if userConfigurationDirectory, directoryError := os.UserConfigDir(); directoryError == nil {
		searchPaths = append(searchPaths, filepath.Join(userConfigurationDirectory, configurationDirectoryNameConstant))
	}
	return searchPaths
}

// normalizeArguments rewrites detached toggle values for the command the arguments resolve to.
func (application *Application) normalizeArguments(arguments []string) []string {
	normalized := append([]string{}, arguments...)
	targetCommand, _, findError := application.rootCommand.Find(arguments)
	if findError != nil || targetCommand == nil {
		return normalized
	}
	return append(normalized[:0], flags.NormalizeToggleArguments(targetCommand.Flags(), arguments)...)
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(
		strings.TrimSpace(application.homeExpander.Expand(application.configurationFilePath)),
		nil,
		&application.configuration,
	)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	logLevel, levelError := utils.ParseLogLevel(application.configuration.Common.LogLevel)
	if levelError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, levelError)
	}
	logFormat, formatError := utils.ParseLogFormat(application.configuration.Common.LogFormat)
	if formatError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, formatError)
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(logLevel, logFormat)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}
	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, string(logLevel)),
		zap.String(configurationLogFormatFieldConstant, string(logFormat)),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	return nil
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

// newExecutor builds an engine sharing the application metrics. Console logging adds the human-readable observer.
func (application *Application) newExecutor(logger *zap.Logger) (execshell.CommandExecutor, error) {
	engineOptions := []execshell.EngineOption{execshell.WithMetrics(application.metrics)}
	if application.humanReadableLoggingEnabled() {
		engineOptions = append(engineOptions, execshell.WithObserver(ui.NewConsoleCommandEventLogger(logger)))
	}
	return execshell.NewEngine(logger, execshell.NewOSProcessLauncher(), engineOptions...)
}

func (application *Application) writeMetrics() error {
	metricsFile, resolveError := application.homeExpander.Resolve(application.configuration.Common.MetricsFile)
	if resolveError != nil {
		return fmt.Errorf(metricsWriteErrorTemplateConstant, resolveError)
	}
	if len(metricsFile) == 0 {
		return nil
	}

	if writeError := application.metrics.WriteTextfile(metricsFile); writeError != nil {
		return fmt.Errorf(metricsWriteErrorTemplateConstant, writeError)
	}
	application.logger.Debug(metricsWrittenMessageConstant, zap.String(logFieldMetricsFileConstant, metricsFile))
	return nil
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}
	if rootCommand := command.Root(); rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet != nil && flagSet.Changed(flagName) {
			return true
		}
	}
	return false
}
