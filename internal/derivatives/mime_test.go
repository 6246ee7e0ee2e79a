package derivatives_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/derive/internal/derivatives"
)

func TestMimeTypeForFormat(testInstance *testing.T) {
	formats := map[string]derivatives.FormatConfiguration{
		"mp4":  {MimeType: "video/mp4"},
		"webm": {Options: "-c:v libvpx"},
	}

	testCases := []struct {
		name     string
		format   string
		expected string
	}{
		{name: "configured", format: "mp4", expected: "video/mp4"},
		{name: "configured_with_dot", format: ".MP4", expected: "video/mp4"},
		{name: "extension_table", format: "png", expected: "image/png"},
		{name: "unknown", format: "derivx", expected: derivatives.DefaultMimeType},
		{name: "empty", format: "", expected: derivatives.DefaultMimeType},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, derivatives.MimeTypeForFormat(testCase.format, formats))
		})
	}
}
