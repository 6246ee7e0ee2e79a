package execshell

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
)

const (
	environmentAssignmentSeparatorConstant = "="
	environmentAssignmentTemplateConstant  = "%s%s%s"
	pipeCreationErrorTemplateConstant      = "unable to create %s pipe: %w"
	standardInputStreamNameConstant        = "stdin"
	standardOutputStreamNameConstant       = "stdout"
	standardErrorStreamNameConstant        = "stderr"
)

// ProcessLauncher starts a child process for a command.
type ProcessLauncher interface {
	Launch(command ShellCommand) (*LaunchedProcess, error)
}

// LaunchedProcess holds the parent's ends of the child's standard streams and its identifier.
// Wait blocks until the child exits and reaps it; a non-zero exit is reported as *exec.ExitError.
// The child should lead its own process group, since a timeout kills the group.
type LaunchedProcess struct {
	ProcessIdentifier int
	StandardInput     io.WriteCloser
	StandardOutput    io.ReadCloser
	StandardError     *os.File
	Wait              func() error
}

// OSProcessLauncher starts commands using os/exec in a dedicated process group.
type OSProcessLauncher struct{}

// NewOSProcessLauncher constructs a launcher backed by os/exec.
func NewOSProcessLauncher() *OSProcessLauncher {
	return &OSProcessLauncher{}
}

// Launch starts the command with all three standard streams attached to pipes.
func (launcher *OSProcessLauncher) Launch(command ShellCommand) (*LaunchedProcess, error) {
	commandVector := command.argv()
	if len(commandVector) == 0 || len(commandVector[0]) == 0 {
		return nil, ErrEmptyCommand
	}

	executable := exec.Command(commandVector[0], commandVector[1:]...)
	executable.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if len(command.WorkingDirectory) > 0 {
		executable.Dir = command.WorkingDirectory
	}

	if len(command.EnvironmentVariables) > 0 {
		mergedEnvironment := append([]string{}, os.Environ()...)
		for environmentKey, environmentValue := range command.EnvironmentVariables {
			mergedEnvironment = append(mergedEnvironment, fmt.Sprintf(environmentAssignmentTemplateConstant, environmentKey, environmentAssignmentSeparatorConstant, environmentValue))
		}
		executable.Env = mergedEnvironment
	}

	streams, pipeError := openChildStreams()
	if pipeError != nil {
		return nil, pipeError
	}

	executable.Stdin = streams.inputReader
	executable.Stdout = streams.outputWriter
	executable.Stderr = streams.errorWriter

	if startError := executable.Start(); startError != nil {
		streams.closeParentEnds()
		streams.closeChildEnds()
		return nil, startError
	}

	streams.closeChildEnds()

	return &LaunchedProcess{
		ProcessIdentifier: executable.Process.Pid,
		StandardInput:     streams.inputWriter,
		StandardOutput:    streams.outputReader,
		StandardError:     streams.errorReader,
		Wait:              executable.Wait,
	}, nil
}

// closeUnusedStreams closes the handles the engine never uses: nothing is written to the child and its output is ignored.
func (process *LaunchedProcess) closeUnusedStreams() {
	closeQuietly(process.StandardInput)
	closeQuietly(process.StandardOutput)
}

func (process *LaunchedProcess) releaseStreams() {
	process.closeUnusedStreams()
	closeQuietly(process.StandardError)
}

// supervisable reports whether the engine can drain, kill and reap the process.
func (process *LaunchedProcess) supervisable() bool {
	return process != nil && process.ProcessIdentifier > 0 && process.StandardError != nil && process.Wait != nil
}

func (process *LaunchedProcess) wait() (ExitStatus, error) {
	return exitStatusFromWait(process.Wait())
}

type childStreams struct {
	inputReader  *os.File
	inputWriter  *os.File
	outputReader *os.File
	outputWriter *os.File
	errorReader  *os.File
	errorWriter  *os.File
}

func openChildStreams() (*childStreams, error) {
	streams := &childStreams{}

	var pipeError error
	streams.inputReader, streams.inputWriter, pipeError = os.Pipe()
	if pipeError != nil {
		return nil, fmt.Errorf(pipeCreationErrorTemplateConstant, standardInputStreamNameConstant, pipeError)
	}

	streams.outputReader, streams.outputWriter, pipeError = os.Pipe()
	if pipeError != nil {
		streams.closeParentEnds()
		streams.closeChildEnds()
		return nil, fmt.Errorf(pipeCreationErrorTemplateConstant, standardOutputStreamNameConstant, pipeError)
	}

	streams.errorReader, streams.errorWriter, pipeError = os.Pipe()
	if pipeError != nil {
		streams.closeParentEnds()
		streams.closeChildEnds()
		return nil, fmt.Errorf(pipeCreationErrorTemplateConstant, standardErrorStreamNameConstant, pipeError)
	}

	return streams, nil
}

// closeChildEnds drops the parent's copies of the descriptors inherited by the child so end-of-stream is observable.
func (streams *childStreams) closeChildEnds() {
	closeQuietly(streams.inputReader)
	closeQuietly(streams.outputWriter)
	closeQuietly(streams.errorWriter)
}

func (streams *childStreams) closeParentEnds() {
	closeQuietly(streams.inputWriter)
	closeQuietly(streams.outputReader)
	closeQuietly(streams.errorReader)
}

func closeQuietly(closer io.Closer) {
	if closer == nil {
		return
	}
	_ = closer.Close()
}
