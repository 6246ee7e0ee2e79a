package flags

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestAddToggleFlagParsesValues(t *testing.T) {
	testCases := []struct {
		name              string
		arguments         []string
		expectedValue     bool
		expectedChanged   bool
		expectedPositions []string
	}{
		{name: "DefaultFalse", arguments: []string{}, expectedValue: false, expectedChanged: false},
		{name: "ImplicitTrue", arguments: []string{"--dry-run"}, expectedValue: true, expectedChanged: true},
		{name: "ExplicitYes", arguments: []string{"--dry-run", "yes"}, expectedValue: true, expectedChanged: true},
		{name: "ExplicitTrueUppercase", arguments: []string{"--dry-run", "TRUE"}, expectedValue: true, expectedChanged: true},
		{name: "ExplicitNo", arguments: []string{"--dry-run", "no"}, expectedValue: false, expectedChanged: true},
		{name: "AttachedOff", arguments: []string{"--dry-run=off"}, expectedValue: false, expectedChanged: true},
		{
			name:              "PositionalAfterToggleKept",
			arguments:         []string{"--dry-run", "movie.mov"},
			expectedValue:     true,
			expectedChanged:   true,
			expectedPositions: []string{"movie.mov"},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			command := &cobra.Command{}

			var toggleValue bool
			AddToggleFlag(command.Flags(), &toggleValue, "dry-run", "", false, "Preview commands")

			normalizedArguments := NormalizeToggleArguments(command.Flags(), testCase.arguments)
			require.NoError(t, command.ParseFlags(normalizedArguments))

			require.Equal(t, testCase.expectedValue, toggleValue)
			require.Equal(t, testCase.expectedChanged, command.Flags().Lookup("dry-run").Changed)
			if testCase.expectedPositions != nil {
				require.Equal(t, testCase.expectedPositions, command.Flags().Args())
			}
		})
	}
}

func TestAddToggleFlagRejectsInvalidValues(t *testing.T) {
	command := &cobra.Command{}

	var toggleValue bool
	AddToggleFlag(command.Flags(), &toggleValue, "dry-run", "", false, "Preview commands")

	parseError := command.ParseFlags([]string{"--dry-run=maybe"})
	require.Error(t, parseError)
	require.False(t, toggleValue)
	require.False(t, command.Flags().Lookup("dry-run").Changed)
}

func TestNormalizeToggleArgumentsHandlesShorthand(t *testing.T) {
	command := &cobra.Command{}

	var toggleValue bool
	AddToggleFlag(command.Flags(), &toggleValue, "dry-run", "n", true, "Preview commands")
	require.True(t, toggleValue)

	normalizedArguments := NormalizeToggleArguments(command.Flags(), []string{"-n", "no"})
	require.Equal(t, []string{"-n=no"}, normalizedArguments)
	require.NoError(t, command.ParseFlags(normalizedArguments))
	require.False(t, toggleValue)
}

func TestNormalizeToggleArgumentsStopsAtTerminator(t *testing.T) {
	command := &cobra.Command{}
	AddToggleFlag(command.Flags(), nil, "dry-run", "", false, "")
	command.Flags().String("timeout", "", "")

	normalizedArguments := NormalizeToggleArguments(command.Flags(), []string{"--timeout", "yes", "--", "--dry-run", "no"})
	require.Equal(t, []string{"--timeout", "yes", "--", "--dry-run", "no"}, normalizedArguments)
	require.Equal(t, "`<yes|NO>`", command.Flags().Lookup("dry-run").Usage)
}
