package derivatives

import (
	"errors"
	"fmt"
)

const (
	loggerNotConfiguredMessageConstant        = "derivatives: logger not configured"
	executorNotConfiguredMessageConstant      = "derivatives: command executor not configured"
	outputServiceNotConfiguredMessageConstant = "derivatives: output file service not configured"
	noDirectivesMessageConstant               = "derivatives: no directives configured"
	directiveErrorTemplateConstant            = "invalid directive %q: %s"
	anonymousDirectiveErrorTemplateConstant   = "invalid directive #%d: %s"
	encodeErrorTemplateConstant               = "unable to create %q derivative of %s: %v"
)

var (
	// ErrLoggerNotConfigured indicates that a nil logger was supplied.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrExecutorNotConfigured indicates that a nil command executor was supplied.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
	// ErrOutputServiceNotConfigured indicates that a nil output file service was supplied.
	ErrOutputServiceNotConfigured = errors.New(outputServiceNotConfiguredMessageConstant)
	// ErrNoDirectives indicates that there is nothing to encode.
	ErrNoDirectives = errors.New(noDirectivesMessageConstant)
)

// DirectiveError reports a malformed directive.
type DirectiveError struct {
	Name   string
	Index  int
	Reason string
}

// Error names the directive, or its position when it has no name.
func (directiveError DirectiveError) Error() string {
	if len(directiveError.Name) == 0 {
		return fmt.Sprintf(anonymousDirectiveErrorTemplateConstant, directiveError.Index, directiveError.Reason)
	}
	return fmt.Sprintf(directiveErrorTemplateConstant, directiveError.Name, directiveError.Reason)
}

// EncodeError reports the directive and source whose derivative could not be produced.
type EncodeError struct {
	Source    string
	Directive Directive
	Cause     error
}

// Error describes the failed derivative.
func (encodeError EncodeError) Error() string {
	return fmt.Sprintf(encodeErrorTemplateConstant, encodeError.Directive.Name, encodeError.Source, encodeError.Cause)
}

// Unwrap exposes the underlying failure, typically an execshell error.
func (encodeError EncodeError) Unwrap() error {
	return encodeError.Cause
}
