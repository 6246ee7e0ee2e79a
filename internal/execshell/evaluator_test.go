package execshell

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExitStatusFromWait(testInstance *testing.T) {
	testCases := []struct {
		name           string
		shellLine      string
		expectedStatus ExitStatus
	}{
		{name: "success", shellLine: "exit 0", expectedStatus: ExitStatus{Code: 0}},
		{name: "exit_code", shellLine: "exit 7", expectedStatus: ExitStatus{Code: 7}},
		{name: "killed", shellLine: "kill -KILL $$", expectedStatus: ExitStatus{Code: -1, Signal: "SIGKILL"}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			waitError := exec.Command(shellExecutableConstant, shellCommandFlagConstant, testCase.shellLine).Run()
			status, statusError := exitStatusFromWait(waitError)
			require.NoError(testInstance, statusError)
			require.Equal(testInstance, testCase.expectedStatus, status)
		})
	}

	testInstance.Run("unrelated_error", func(testInstance *testing.T) {
		unrelatedError := errors.New("wait already called")
		status, statusError := exitStatusFromWait(unrelatedError)
		require.ErrorIs(testInstance, statusError, unrelatedError)
		require.Equal(testInstance, unknownExitCodeConstant, status.Code)
		require.False(testInstance, status.Success())
	})
}

func TestEvaluateCompletion(testInstance *testing.T) {
	command := NewShellCommand("convert input output")
	drainError := errors.New("read failed")
	waitError := errors.New("wait failed")

	testCases := []struct {
		name          string
		result        completionResult
		expectSuccess bool
		expectedCause error
	}{
		{
			name:          "success_ignores_diagnostics",
			result:        completionResult{status: ExitStatus{}, diagnostics: "noise"},
			expectSuccess: true,
		},
		{
			name:          "success_ignores_drain_error",
			result:        completionResult{status: ExitStatus{}, drainError: drainError},
			expectSuccess: true,
		},
		{
			name:   "non_zero_exit",
			result: completionResult{status: ExitStatus{Code: 2}, diagnostics: "bad input\n"},
		},
		{
			name:          "non_zero_exit_with_drain_error",
			result:        completionResult{status: ExitStatus{Code: 2}, drainError: drainError},
			expectedCause: drainError,
		},
		{
			name:          "wait_error",
			result:        completionResult{status: ExitStatus{Code: unknownExitCodeConstant}, waitError: waitError},
			expectedCause: waitError,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			evaluationError := evaluateCompletion(command, testCase.result)
			if testCase.expectSuccess {
				require.NoError(testInstance, evaluationError)
				return
			}

			var failedError ExecutionFailedError
			require.ErrorAs(testInstance, evaluationError, &failedError)
			require.Equal(testInstance, testCase.result.status, failedError.Status)
			require.Equal(testInstance, testCase.result.diagnostics, failedError.Diagnostics)
			if testCase.expectedCause != nil {
				require.ErrorIs(testInstance, evaluationError, testCase.expectedCause)
			}
		})
	}
}
