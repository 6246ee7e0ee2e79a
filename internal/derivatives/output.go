package derivatives

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	outputDirectoryPermissionsConstant  = 0o755
	stagingFilePatternConstant          = ".derive-*"
	invalidDestinationTemplateConstant  = "invalid destination %q"
	outputDirectoryCreateErrorTemplate  = "unable to create output directory %s: %w"
	outputStageErrorTemplateConstant    = "unable to stage derivative in %s: %w"
	outputCopyErrorTemplateConstant     = "unable to write derivative %s: %w"
	outputRewindErrorTemplateConstant   = "unable to rewind derivative: %w"
	outputPublishErrorTemplateConstant  = "unable to publish derivative %s: %w"
	derivativeStoredMessageConstant     = "derivative stored"
	logFieldSourceConstant              = "source"
	logFieldDestinationConstant         = "destination"
	logFieldStoredPathConstant          = "path"
	logFieldMimeTypeConstant            = "mime_type"
	logFieldBytesConstant               = "bytes"
	emptyOutputDirectoryMessageConstant = "output directory must be provided"
)

// DerivativeFile is an encoded file together with the media type it should be stored as.
type DerivativeFile struct {
	File     *os.File
	MimeType string
	Format   string
}

// OutputFileService persists a derivative of source under destination and reports where it was stored.
type OutputFileService interface {
	Store(executionContext context.Context, source string, derivative DerivativeFile, destination string) (string, error)
}

// DirectoryOutputService stores derivatives as files in a single directory.
type DirectoryOutputService struct {
	logger    *zap.Logger
	directory string
}

// NewDirectoryOutputService constructs a service writing into directory, which is created on first use.
func NewDirectoryOutputService(logger *zap.Logger, directory string) (*DirectoryOutputService, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if len(strings.TrimSpace(directory)) == 0 {
		return nil, errors.New(emptyOutputDirectoryMessageConstant)
	}
	return &DirectoryOutputService{logger: logger, directory: directory}, nil
}

// Store copies the derivative to <directory>/<destination>.<format>; a destination that already
// carries an extension is used verbatim. The file appears atomically.
func (service *DirectoryOutputService) Store(executionContext context.Context, source string, derivative DerivativeFile, destination string) (string, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return "", contextError
	}

	fileName, nameError := derivativeFileName(destination, derivative.Format)
	if nameError != nil {
		return "", nameError
	}

	if mkdirError := os.MkdirAll(service.directory, outputDirectoryPermissionsConstant); mkdirError != nil {
		return "", fmt.Errorf(outputDirectoryCreateErrorTemplate, service.directory, mkdirError)
	}

	if _, seekError := derivative.File.Seek(0, io.SeekStart); seekError != nil {
		return "", fmt.Errorf(outputRewindErrorTemplateConstant, seekError)
	}

	stagingFile, stagingError := os.CreateTemp(service.directory, stagingFilePatternConstant)
	if stagingError != nil {
		return "", fmt.Errorf(outputStageErrorTemplateConstant, service.directory, stagingError)
	}
	stagingPath := stagingFile.Name()
	defer os.Remove(stagingPath)

	targetPath := filepath.Join(service.directory, fileName)
	copiedBytes, copyError := io.Copy(stagingFile, derivative.File)
	closeError := stagingFile.Close()
	if copyError == nil {
		copyError = closeError
	}
	if copyError != nil {
		return "", fmt.Errorf(outputCopyErrorTemplateConstant, targetPath, copyError)
	}

	if renameError := os.Rename(stagingPath, targetPath); renameError != nil {
		return "", fmt.Errorf(outputPublishErrorTemplateConstant, targetPath, renameError)
	}

	service.logger.Info(
		derivativeStoredMessageConstant,
		zap.String(logFieldSourceConstant, source),
		zap.String(logFieldDestinationConstant, destination),
		zap.String(logFieldStoredPathConstant, targetPath),
		zap.String(logFieldMimeTypeConstant, derivative.MimeType),
		zap.Int64(logFieldBytesConstant, copiedBytes),
	)

	return targetPath, nil
}

func derivativeFileName(destination string, format string) (string, error) {
	trimmedDestination := strings.TrimSpace(destination)
	if len(trimmedDestination) == 0 || trimmedDestination != filepath.Base(trimmedDestination) || strings.HasPrefix(trimmedDestination, ".") {
		return "", fmt.Errorf(invalidDestinationTemplateConstant, destination)
	}
	if len(filepath.Ext(trimmedDestination)) > 0 || len(format) == 0 {
		return trimmedDestination, nil
	}
	return trimmedDestination + formatExtensionPrefixConstant + format, nil
}
