package derivatives

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

const (
	directiveNameRequiredReasonConstant   = "name is required"
	directiveFormatRequiredReasonConstant = "format is required"
	directiveDuplicateReasonConstant      = "directive is declared more than once"
	directiveDecodeReasonTemplateConstant = "unable to decode: %v"
	directiveUnsupportedTypeTemplate      = "directives must be a list or a name-keyed map, got %T"
	formatExtensionPrefixConstant         = "."
	outputFileIdentifierTemplateConstant  = "%s_%s"
)

// Directive describes one derivative: its name, the target format and an optional destination identifier.
type Directive struct {
	Name       string `mapstructure:"name" yaml:"name"`
	Format     string `mapstructure:"format" yaml:"format"`
	Datastream string `mapstructure:"datastream" yaml:"datastream"`
}

// Destination returns the identifier the derivative is stored under.
func (directive Directive) Destination(source string) string {
	if len(directive.Datastream) > 0 {
		return directive.Datastream
	}
	return OutputFileID(source, directive.Name)
}

// OutputFileID derives a default destination from the source file stem and the directive name.
func OutputFileID(source string, directiveName string) string {
	baseName := filepath.Base(source)
	stem := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	return fmt.Sprintf(outputFileIdentifierTemplateConstant, stem, directiveName)
}

// ParseDirectives accepts either a list of directive maps or a map keyed by directive name.
// Map entries are returned in name order. A nil input yields no directives.
func ParseDirectives(raw any) ([]Directive, error) {
	var directives []Directive

	switch typed := raw.(type) {
	case nil:
		return nil, nil
	case []Directive:
		directives = append(directives, typed...)
	case []any, []map[string]any:
		decodeError := decodeDirective(typed, &directives)
		if decodeError != nil {
			return nil, DirectiveError{Reason: fmt.Sprintf(directiveDecodeReasonTemplateConstant, decodeError)}
		}
	case map[string]any:
		names := make([]string, 0, len(typed))
		for name := range typed {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			var directive Directive
			if typed[name] != nil {
				if decodeError := decodeDirective(typed[name], &directive); decodeError != nil {
					return nil, DirectiveError{Name: name, Reason: fmt.Sprintf(directiveDecodeReasonTemplateConstant, decodeError)}
				}
			}
			directive.Name = name
			directives = append(directives, directive)
		}
	default:
		return nil, fmt.Errorf(directiveUnsupportedTypeTemplate, raw)
	}

	return normalizeDirectives(directives)
}

func decodeDirective(input any, output any) error {
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if decoderError != nil {
		return decoderError
	}
	return decoder.Decode(input)
}

func normalizeDirectives(directives []Directive) ([]Directive, error) {
	seenNames := make(map[string]struct{}, len(directives))
	normalized := make([]Directive, 0, len(directives))

	for index, directive := range directives {
		directive.Name = strings.TrimSpace(directive.Name)
		directive.Format = NormalizeFormat(directive.Format)
		directive.Datastream = strings.TrimSpace(directive.Datastream)

		if len(directive.Name) == 0 {
			return nil, DirectiveError{Index: index, Reason: directiveNameRequiredReasonConstant}
		}
		if len(directive.Format) == 0 {
			return nil, DirectiveError{Name: directive.Name, Index: index, Reason: directiveFormatRequiredReasonConstant}
		}
		if _, duplicate := seenNames[directive.Name]; duplicate {
			return nil, DirectiveError{Name: directive.Name, Index: index, Reason: directiveDuplicateReasonConstant}
		}
		seenNames[directive.Name] = struct{}{}
		normalized = append(normalized, directive)
	}

	return normalized, nil
}

// NormalizeFormat lower-cases a format and strips a leading dot, so ".MP4" and "mp4" are equivalent.
func NormalizeFormat(format string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), formatExtensionPrefixConstant))
}
