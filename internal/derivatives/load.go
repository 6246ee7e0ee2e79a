package derivatives

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	directivesDocumentKeyConstant              = "directives"
	directivesPathRequiredMessageConstant      = "directives file path must be provided"
	directivesFileReadErrorTemplateConstant    = "failed to read directives file: %w"
	directivesFileParseErrorTemplateConstant   = "failed to parse directives file %s: %w"
	directivesFileContentErrorTemplateConstant = "invalid directives file %s: %w"
)

// LoadDirectivesFile reads directives from a YAML document. The document may hold a top-level
// "directives" key or be the directive list or map itself.
func LoadDirectivesFile(filePath string) ([]Directive, error) {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return nil, errors.New(directivesPathRequiredMessageConstant)
	}

	contentBytes, readError := os.ReadFile(trimmedPath)
	if readError != nil {
		return nil, fmt.Errorf(directivesFileReadErrorTemplateConstant, readError)
	}

	var document any
	if unmarshalError := yaml.Unmarshal(contentBytes, &document); unmarshalError != nil {
		return nil, fmt.Errorf(directivesFileParseErrorTemplateConstant, trimmedPath, unmarshalError)
	}

	if wrapper, isMap := document.(map[string]any); isMap {
		if nested, hasDirectives := wrapper[directivesDocumentKeyConstant]; hasDirectives {
			document = nested
		}
	}

	directives, parseError := ParseDirectives(document)
	if parseError != nil {
		return nil, fmt.Errorf(directivesFileContentErrorTemplateConstant, trimmedPath, parseError)
	}
	return directives, nil
}
