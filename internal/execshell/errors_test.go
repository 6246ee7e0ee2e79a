package execshell

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestErrorMessages(testInstance *testing.T) {
	command := NewArgumentCommand("ffmpeg", "-i", "input.mov", "output.mp4")
	quotedCommand := NewShellCommand(`printf 'first\nsecond\n' "x" 1>&2; exit 2`)
	spawnError := errors.New("no such file or directory")

	testCases := []struct {
		name            string
		failure         error
		expectedMessage string
	}{
		{
			name:            "launch",
			failure:         LaunchError{Command: command, Cause: spawnError},
			expectedMessage: `unable to launch command "ffmpeg -i input.mov output.mp4": no such file or directory`,
		},
		{
			name:            "timeout",
			failure:         TimeoutError{Command: command, Timeout: 30 * time.Second, Cause: context.DeadlineExceeded},
			expectedMessage: `command "ffmpeg -i input.mov output.mp4" did not finish within 30s`,
		},
		{
			name:            "cancelled",
			failure:         TimeoutError{Command: command, Cause: context.Canceled},
			expectedMessage: `command "ffmpeg -i input.mov output.mp4" was terminated: context canceled`,
		},
		{
			name:            "failed_without_diagnostics",
			failure:         ExecutionFailedError{Command: command, Status: ExitStatus{Code: 1}},
			expectedMessage: `command "ffmpeg -i input.mov output.mp4" failed with exit status 1`,
		},
		{
			name:            "failed_with_diagnostics",
			failure:         ExecutionFailedError{Command: command, Status: ExitStatus{Code: 1}, Diagnostics: "Invalid data found\n"},
			expectedMessage: "command \"ffmpeg -i input.mov output.mp4\" failed with exit status 1\nInvalid data found\n",
		},
		{
			name:            "failed_by_signal",
			failure:         ExecutionFailedError{Command: command, Status: ExitStatus{Code: -1, Signal: "SIGKILL"}},
			expectedMessage: `command "ffmpeg -i input.mov output.mp4" failed with exit status signal SIGKILL`,
		},
		{
			name:            "failed_with_cause",
			failure:         ExecutionFailedError{Command: command, Status: ExitStatus{Code: 2}, Cause: spawnError},
			expectedMessage: `command "ffmpeg -i input.mov output.mp4" failed with exit status 2: no such file or directory`,
		},
		{
			name:            "cancelled_within_deadline",
			failure:         TimeoutError{Command: command, Timeout: time.Second, Cause: context.Canceled},
			expectedMessage: `command "ffmpeg -i input.mov output.mp4" was terminated: context canceled`,
		},
		{
			name:            "failed_quoted_shell_line",
			failure:         ExecutionFailedError{Command: quotedCommand, Status: ExitStatus{Code: 2}, Diagnostics: "first\nsecond\n"},
			expectedMessage: "command \"printf 'first\\nsecond\\n' \"x\" 1>&2; exit 2\" failed with exit status 2\nfirst\nsecond\n",
		},
		{
			name:            "launch_quoted_shell_line",
			failure:         LaunchError{Command: quotedCommand, Cause: spawnError},
			expectedMessage: `unable to launch command "printf 'first\nsecond\n' "x" 1>&2; exit 2": no such file or directory`,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedMessage, testCase.failure.Error())
		})
	}
}

func TestErrorsUnwrapCause(testInstance *testing.T) {
	cause := errors.New("cause")
	command := NewShellCommand("true")

	require.ErrorIs(testInstance, LaunchError{Command: command, Cause: cause}, cause)
	require.ErrorIs(testInstance, TimeoutError{Command: command, Cause: cause}, cause)
	require.ErrorIs(testInstance, ExecutionFailedError{Command: command, Cause: cause}, cause)
	require.NoError(testInstance, ExecutionFailedError{Command: command}.Unwrap())
}

func TestShellCommandRendering(testInstance *testing.T) {
	require.Equal(testInstance, []string{shellExecutableConstant, shellCommandFlagConstant, "echo hi"}, NewShellCommand("echo hi").argv())
	require.Equal(testInstance, []string{"ls", "-l"}, NewArgumentCommand("ls", "-l").argv())
	require.Equal(testInstance, "ls -l", NewArgumentCommand("ls", "-l").String())
	require.Empty(testInstance, ShellCommand{}.argv())
	require.True(testInstance, ExitStatus{}.Success())
	require.False(testInstance, ExitStatus{Signal: "SIGTERM"}.Success())
}
