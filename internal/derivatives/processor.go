package derivatives

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/derive/internal/execshell"
)

const (
	temporaryFilePatternTemplateConstant = "derivative*.%s"
	dryRunOutputNameTemplateConstant     = "derivative.%s"
	temporaryFileErrorTemplateConstant   = "unable to create temporary file: %w"
	derivativeOpenErrorTemplateConstant  = "unable to open encoded file: %w"
	derivativePlannedMessageConstant     = "derivative planned"
	derivativeEncodedMessageConstant     = "derivative encoded"
	logFieldDirectiveConstant            = "directive"
	logFieldFormatConstant               = "format"
	logFieldCommandConstant              = "command"
	logFieldDurationConstant             = "duration"
)

// ProcessorSettings carries the resolved encode settings.
type ProcessorSettings struct {
	Directives      []Directive
	Formats         map[string]FormatConfiguration
	CommandTemplate string
	TempDirectory   string
	Timeout         time.Duration
	DryRun          bool
}

// DerivativeResult reports one processed directive.
type DerivativeResult struct {
	Directive   Directive
	Destination string
	Command     string
	StoredPath  string
	MimeType    string
	DryRun      bool
}

// Processor creates the configured derivatives of source files.
type Processor struct {
	logger        *zap.Logger
	executor      execshell.CommandExecutor
	outputService OutputFileService
	renderer      *CommandRenderer
	settings      ProcessorSettings
}

// NewProcessor validates collaborators and parses the command template.
func NewProcessor(logger *zap.Logger, executor execshell.CommandExecutor, outputService OutputFileService, settings ProcessorSettings) (*Processor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if outputService == nil {
		return nil, ErrOutputServiceNotConfigured
	}
	if len(settings.Directives) == 0 {
		return nil, ErrNoDirectives
	}

	renderer, rendererError := NewCommandRenderer(settings.CommandTemplate)
	if rendererError != nil {
		return nil, rendererError
	}
	if len(settings.TempDirectory) == 0 {
		settings.TempDirectory = os.TempDir()
	}

	return &Processor{
		logger:        logger,
		executor:      executor,
		outputService: outputService,
		renderer:      renderer,
		settings:      settings,
	}, nil
}

// Process runs every directive against source in order and stops at the first failure, which is an EncodeError.
// Results for the directives completed before the failure are still returned.
func (processor *Processor) Process(executionContext context.Context, source string) ([]DerivativeResult, error) {
	if executionContext == nil {
		executionContext = context.Background()
	}

	results := make([]DerivativeResult, 0, len(processor.settings.Directives))
	for _, directive := range processor.settings.Directives {
		if contextError := executionContext.Err(); contextError != nil {
			return results, EncodeError{Source: source, Directive: directive, Cause: contextError}
		}

		result, encodeError := processor.encode(executionContext, source, directive)
		if encodeError != nil {
			return results, EncodeError{Source: source, Directive: directive, Cause: encodeError}
		}
		results = append(results, result)
	}
	return results, nil
}

func (processor *Processor) encode(executionContext context.Context, source string, directive Directive) (DerivativeResult, error) {
	result := DerivativeResult{
		Directive:   directive,
		Destination: directive.Destination(source),
		MimeType:    MimeTypeForFormat(directive.Format, processor.settings.Formats),
		DryRun:      processor.settings.DryRun,
	}

	if processor.settings.DryRun {
		outputPath := filepath.Join(processor.settings.TempDirectory, fmt.Sprintf(dryRunOutputNameTemplateConstant, directive.Format))
		command, renderError := processor.render(source, outputPath, directive)
		if renderError != nil {
			return DerivativeResult{}, renderError
		}
		result.Command = command
		processor.logger.Info(
			derivativePlannedMessageConstant,
			zap.String(logFieldSourceConstant, source),
			zap.String(logFieldDirectiveConstant, directive.Name),
			zap.String(logFieldCommandConstant, command),
		)
		return result, nil
	}

	temporaryFile, temporaryError := os.CreateTemp(processor.settings.TempDirectory, fmt.Sprintf(temporaryFilePatternTemplateConstant, directive.Format))
	if temporaryError != nil {
		return DerivativeResult{}, fmt.Errorf(temporaryFileErrorTemplateConstant, temporaryError)
	}
	temporaryPath := temporaryFile.Name()
	_ = temporaryFile.Close()
	defer os.Remove(temporaryPath)

	command, renderError := processor.render(source, temporaryPath, directive)
	if renderError != nil {
		return DerivativeResult{}, renderError
	}
	result.Command = command

	startTime := time.Now()
	executionError := processor.executor.Execute(executionContext, execshell.NewShellCommand(command), execshell.ExecutionOptions{Timeout: processor.settings.Timeout})
	if executionError != nil {
		return DerivativeResult{}, executionError
	}
	processor.logger.Debug(
		derivativeEncodedMessageConstant,
		zap.String(logFieldSourceConstant, source),
		zap.String(logFieldDirectiveConstant, directive.Name),
		zap.String(logFieldFormatConstant, directive.Format),
		zap.Duration(logFieldDurationConstant, time.Since(startTime)),
	)

	encodedFile, openError := os.Open(temporaryPath)
	if openError != nil {
		return DerivativeResult{}, fmt.Errorf(derivativeOpenErrorTemplateConstant, openError)
	}
	defer encodedFile.Close()

	storedPath, storeError := processor.outputService.Store(
		executionContext,
		source,
		DerivativeFile{File: encodedFile, MimeType: result.MimeType, Format: directive.Format},
		result.Destination,
	)
	if storeError != nil {
		return DerivativeResult{}, storeError
	}
	result.StoredPath = storedPath

	return result, nil
}

func (processor *Processor) render(source string, outputPath string, directive Directive) (string, error) {
	options := processor.settings.Formats[directive.Format].Options
	return processor.renderer.Render(CommandTemplateData{
		Source:       source,
		Output:       outputPath,
		Format:       directive.Format,
		Options:      options,
		OptionFields: strings.Fields(options),
		Directive:    directive,
	})
}
