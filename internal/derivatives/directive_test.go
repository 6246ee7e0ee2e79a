package derivatives_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/derive/internal/derivatives"
)

func TestParseDirectives(testInstance *testing.T) {
	testCases := []struct {
		name               string
		raw                any
		expectedDirectives []derivatives.Directive
	}{
		{
			name: "list_of_maps",
			raw: []any{
				map[string]any{"name": "mp4", "format": "MP4"},
				map[string]any{"name": "thumbnail", "format": ".jpg", "datastream": "thumb"},
			},
			expectedDirectives: []derivatives.Directive{
				{Name: "mp4", Format: "mp4"},
				{Name: "thumbnail", Format: "jpg", Datastream: "thumb"},
			},
		},
		{
			name: "name_keyed_map_sorted",
			raw: map[string]any{
				"webm": map[string]any{"format": "webm"},
				"mp3":  map[string]any{"format": "mp3", "datastream": "access"},
			},
			expectedDirectives: []derivatives.Directive{
				{Name: "mp3", Format: "mp3", Datastream: "access"},
				{Name: "webm", Format: "webm"},
			},
		},
		{
			name:               "typed_directives",
			raw:                []derivatives.Directive{{Name: " ogg ", Format: " OGG "}},
			expectedDirectives: []derivatives.Directive{{Name: "ogg", Format: "ogg"}},
		},
		{
			name:               "nil",
			raw:                nil,
			expectedDirectives: nil,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			directives, parseError := derivatives.ParseDirectives(testCase.raw)
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedDirectives, directives)
		})
	}
}

func TestParseDirectivesRejectsInvalidInput(testInstance *testing.T) {
	testCases := []struct {
		name              string
		raw               any
		expectedName      string
		expectedInMessage string
	}{
		{
			name:              "missing_format_in_map",
			raw:               map[string]any{"mp4": map[string]any{"datastream": "access"}},
			expectedName:      "mp4",
			expectedInMessage: `invalid directive "mp4": format is required`,
		},
		{
			name:              "missing_format_without_options",
			raw:               map[string]any{"mp4": nil},
			expectedName:      "mp4",
			expectedInMessage: "format is required",
		},
		{
			name:              "missing_name_in_list",
			raw:               []any{map[string]any{"format": "mp4"}},
			expectedInMessage: "invalid directive #0: name is required",
		},
		{
			name:              "duplicate_name",
			raw:               []any{map[string]any{"name": "a", "format": "mp4"}, map[string]any{"name": "a", "format": "webm"}},
			expectedName:      "a",
			expectedInMessage: "declared more than once",
		},
		{
			name:              "unknown_key",
			raw:               []any{map[string]any{"name": "a", "format": "mp4", "codec": "h264"}},
			expectedInMessage: "codec",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			_, parseError := derivatives.ParseDirectives(testCase.raw)

			var directiveError derivatives.DirectiveError
			require.ErrorAs(testInstance, parseError, &directiveError)
			require.Equal(testInstance, testCase.expectedName, directiveError.Name)
			require.Contains(testInstance, parseError.Error(), testCase.expectedInMessage)
		})
	}

	_, unsupportedError := derivatives.ParseDirectives("mp4")
	require.Error(testInstance, unsupportedError)
}

func TestDirectiveDestination(testInstance *testing.T) {
	require.Equal(testInstance, "interview_mp4", derivatives.Directive{Name: "mp4"}.Destination("/media/raw/interview.mov"))
	require.Equal(testInstance, "access", derivatives.Directive{Name: "mp4", Datastream: "access"}.Destination("/media/raw/interview.mov"))
	require.Equal(testInstance, "archive.tar_thumb", derivatives.OutputFileID("archive.tar.gz", "thumb"))
}
