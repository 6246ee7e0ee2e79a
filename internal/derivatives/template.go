package derivatives

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

const (
	commandTemplateNameConstant          = "command"
	missingKeyOptionConstant             = "missingkey=error"
	templateParseErrorTemplateConstant   = "parse command template: %w"
	templateExecuteErrorTemplateConstant = "render command template: %w"
	emptyShellQuoteConstant              = "''"
	singleQuoteConstant                  = "'"
	escapedSingleQuoteConstant           = `'\''`
)

// CommandTemplateData is the data available to the command template. OptionFields is Options split on whitespace.
type CommandTemplateData struct {
	Source       string
	Output       string
	Format       string
	Options      string
	OptionFields []string
	Directive    Directive
}

var commandTemplateFunctions = template.FuncMap{
	"shq":  shellQuote,
	"join": strings.Join,
}

// shellQuote wraps value in single quotes, escaping embedded single quotes.
func shellQuote(value string) string {
	if len(value) == 0 {
		return emptyShellQuoteConstant
	}
	return singleQuoteConstant + strings.ReplaceAll(value, singleQuoteConstant, escapedSingleQuoteConstant) + singleQuoteConstant
}

// CommandRenderer renders encoder command lines. Referencing an unknown field is an error.
type CommandRenderer struct {
	template *template.Template
}

// NewCommandRenderer parses the command template once.
func NewCommandRenderer(templateText string) (*CommandRenderer, error) {
	parsedTemplate, parseError := template.New(commandTemplateNameConstant).
		Funcs(commandTemplateFunctions).
		Option(missingKeyOptionConstant).
		Parse(templateText)
	if parseError != nil {
		return nil, fmt.Errorf(templateParseErrorTemplateConstant, parseError)
	}
	return &CommandRenderer{template: parsedTemplate}, nil
}

// Render produces a single shell line with surrounding whitespace removed.
func (renderer *CommandRenderer) Render(data CommandTemplateData) (string, error) {
	var rendered bytes.Buffer
	if executeError := renderer.template.Execute(&rendered, data); executeError != nil {
		return "", fmt.Errorf(templateExecuteErrorTemplateConstant, executeError)
	}
	return strings.TrimSpace(rendered.String()), nil
}
