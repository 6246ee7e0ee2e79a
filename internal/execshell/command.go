package execshell

import (
	"fmt"
	"strings"
	"time"
)

const (
	shellExecutableConstant           = "/bin/sh"
	shellCommandFlagConstant          = "-c"
	commandArgumentsSeparatorConstant = " "
	exitCodeLabelTemplateConstant     = "%d"
	signalLabelTemplateConstant       = "signal %s"
)

// ShellCommand describes an opaque command. Line runs through /bin/sh -c; when Line is empty Arguments is executed directly.
type ShellCommand struct {
	Line                 string
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
}

// NewShellCommand builds a command executed through the shell.
func NewShellCommand(line string) ShellCommand {
	return ShellCommand{Line: line}
}

// NewArgumentCommand builds a command executed without a shell.
func NewArgumentCommand(arguments ...string) ShellCommand {
	return ShellCommand{Arguments: append([]string{}, arguments...)}
}

// String renders the command the way it was supplied.
func (command ShellCommand) String() string {
	if len(command.Line) > 0 {
		return command.Line
	}
	return strings.Join(command.Arguments, commandArgumentsSeparatorConstant)
}

func (command ShellCommand) argv() []string {
	if len(command.Line) > 0 {
		return []string{shellExecutableConstant, shellCommandFlagConstant, command.Line}
	}
	return append([]string{}, command.Arguments...)
}

// ExecutionOptions carries per-invocation settings. A zero Timeout disables the deadline.
type ExecutionOptions struct {
	Timeout time.Duration
}

// ExitStatus is the terminal status of a reaped child.
type ExitStatus struct {
	Code   int
	Signal string
}

// Success reports whether the child exited normally with status zero.
func (status ExitStatus) Success() bool {
	return status.Code == 0 && len(status.Signal) == 0
}

// String renders the numeric code, or the terminating signal when there is one.
func (status ExitStatus) String() string {
	if len(status.Signal) > 0 {
		return fmt.Sprintf(signalLabelTemplateConstant, status.Signal)
	}
	return fmt.Sprintf(exitCodeLabelTemplateConstant, status.Code)
}

// ExecutionOutcome summarizes a finished invocation for observers.
type ExecutionOutcome struct {
	InvocationID      string
	ProcessIdentifier int
	Status            ExitStatus
	Duration          time.Duration
	DiagnosticBytes   int
}
