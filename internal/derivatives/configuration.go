package derivatives

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hay-kot/criterio"

	pathutils "github.com/temirov/derive/internal/utils/path"
)

const (
	// DefaultOutputDirectory is where derivatives land when no directory is configured.
	DefaultOutputDirectory = "derivatives"
	// DefaultCommandTemplate invokes ffmpeg with the per-format options.
	DefaultCommandTemplate = "ffmpeg -y -i {{ shq .Source }} {{ .Options }} {{ shq .Output }}"

	temporaryDirectoryFieldConstant  = "temp_directory"
	outputDirectoryFieldConstant     = "output_directory"
	commandTemplateFieldConstant     = "command_template"
	timeoutFieldConstant             = "timeout"
	formatsFieldTemplateConstant     = "formats[%q]"
	directivesFieldConstant          = "directives"
	requiredValueMessageConstant     = "value is required"
	negativeTimeoutMessageConstant   = "must not be negative"
	invalidFormatNameMessageConstant = "format name must not be empty"
	notDirectoryTemplateConstant     = "%s is not a directory"
	sampleSourceConstant             = "/media/source.mov"
	sampleOutputConstant             = "/tmp/derivative.mp4"
	sampleFormatConstant             = "mp4"
	sampleDirectiveNameConstant      = "sample"
)

// FormatConfiguration holds per-format encoder options and an optional media type override.
type FormatConfiguration struct {
	Options  string `mapstructure:"options"`
	MimeType string `mapstructure:"mime_type"`
}

// Configuration describes the encode section of the configuration file.
type Configuration struct {
	TempDirectory   string                         `mapstructure:"temp_directory"`
	OutputDirectory string                         `mapstructure:"output_directory"`
	CommandTemplate string                         `mapstructure:"command_template"`
	Timeout         time.Duration                  `mapstructure:"timeout"`
	Formats         map[string]FormatConfiguration `mapstructure:"formats"`
	Directives      any                            `mapstructure:"directives"`
}

// DefaultConfiguration returns the baseline encode configuration.
func DefaultConfiguration() Configuration {
	return Configuration{
		OutputDirectory: DefaultOutputDirectory,
		CommandTemplate: DefaultCommandTemplate,
		Formats:         map[string]FormatConfiguration{},
	}
}

// Sanitize trims values, fills defaults, normalizes format keys and resolves directories to absolute paths.
func (configuration Configuration) Sanitize(expander *pathutils.HomeExpander) (Configuration, error) {
	sanitized := configuration
	sanitized.CommandTemplate = strings.TrimSpace(configuration.CommandTemplate)
	if len(sanitized.CommandTemplate) == 0 {
		sanitized.CommandTemplate = DefaultCommandTemplate
	}

	outputDirectory := strings.TrimSpace(configuration.OutputDirectory)
	if len(outputDirectory) == 0 {
		outputDirectory = DefaultOutputDirectory
	}
	resolvedOutput, outputError := expander.Resolve(outputDirectory)
	if outputError != nil {
		return Configuration{}, outputError
	}
	sanitized.OutputDirectory = resolvedOutput

	temporaryDirectory := strings.TrimSpace(configuration.TempDirectory)
	if len(temporaryDirectory) == 0 {
		temporaryDirectory = os.TempDir()
	}
	resolvedTemporary, temporaryError := expander.Resolve(temporaryDirectory)
	if temporaryError != nil {
		return Configuration{}, temporaryError
	}
	sanitized.TempDirectory = resolvedTemporary

	sanitized.Formats = make(map[string]FormatConfiguration, len(configuration.Formats))
	for formatName, formatConfiguration := range configuration.Formats {
		sanitized.Formats[NormalizeFormat(formatName)] = FormatConfiguration{
			Options:  strings.TrimSpace(formatConfiguration.Options),
			MimeType: strings.TrimSpace(formatConfiguration.MimeType),
		}
	}

	return sanitized, nil
}

// Validate checks every field and reports all problems at once as criterio field errors.
func (configuration Configuration) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run(temporaryDirectoryFieldConstant, configuration.TempDirectory, isDirectoryOrNotExist),
		criterio.Run(outputDirectoryFieldConstant, configuration.OutputDirectory, isDirectoryOrNotExist),
		criterio.Run(commandTemplateFieldConstant, configuration.CommandTemplate, validateCommandTemplate),
		criterio.Run(timeoutFieldConstant, configuration.Timeout, validateTimeout),
		configuration.validateFormats(),
		criterio.Run(directivesFieldConstant, configuration.Directives, validateDirectives),
	)
}

func (configuration Configuration) validateFormats() error {
	var errs criterio.FieldErrorsBuilder
	for formatName := range configuration.Formats {
		if len(NormalizeFormat(formatName)) == 0 {
			errs = errs.Append(fmt.Sprintf(formatsFieldTemplateConstant, formatName), errors.New(invalidFormatNameMessageConstant))
		}
	}
	return errs.ToError()
}

func isDirectoryOrNotExist(directoryPath string) error {
	if len(directoryPath) == 0 {
		return errors.New(requiredValueMessageConstant)
	}
	info, statError := os.Stat(directoryPath)
	if errors.Is(statError, os.ErrNotExist) {
		return nil
	}
	if statError != nil {
		return statError
	}
	if !info.IsDir() {
		return fmt.Errorf(notDirectoryTemplateConstant, directoryPath)
	}
	return nil
}

// validateCommandTemplate parses the template and renders it against sample data, catching unknown fields early.
func validateCommandTemplate(templateText string) error {
	if len(strings.TrimSpace(templateText)) == 0 {
		return errors.New(requiredValueMessageConstant)
	}
	renderer, parseError := NewCommandRenderer(templateText)
	if parseError != nil {
		return parseError
	}
	_, renderError := renderer.Render(CommandTemplateData{
		Source:    sampleSourceConstant,
		Output:    sampleOutputConstant,
		Format:    sampleFormatConstant,
		Directive: Directive{Name: sampleDirectiveNameConstant, Format: sampleFormatConstant},
	})
	return renderError
}

func validateTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return errors.New(negativeTimeoutMessageConstant)
	}
	return nil
}

func validateDirectives(raw any) error {
	_, parseError := ParseDirectives(raw)
	return parseError
}
