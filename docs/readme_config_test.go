package docs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/temirov/derive/internal/derivatives"
)

const (
	readmeFileNameConstant            = "README.md"
	yamlFenceStartConstant            = "```yaml"
	yamlFenceEndConstant              = "```"
	configHeaderMarkerConstant        = "# config.yaml"
	directivesHeaderMarkerConstant    = "# directives.yaml"
	readmeSnippetTemporaryPattern     = "readme-directives-*.yaml"
	parentDirectoryReferenceConstant  = ".."
	missingHeaderMessageTemplate      = "README example missing header marker %s"
	missingStartFenceMessageConstant  = "README example missing yaml fence start"
	missingEndFenceMessageConstant    = "README example missing yaml fence end"
	unconfiguredFormatMessageTemplate = "directive %s uses unconfigured format %s"
)

type readmeApplicationConfiguration struct {
	Encode struct {
		Formats    map[string]any `yaml:"formats"`
		Directives any            `yaml:"directives"`
	} `yaml:"encode"`
}

func readReadme(testInstance *testing.T) string {
	testInstance.Helper()
	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)

	contentBytes, readError := os.ReadFile(filepath.Join(workingDirectory, parentDirectoryReferenceConstant, readmeFileNameConstant))
	require.NoError(testInstance, readError)
	return string(contentBytes)
}

func extractSnippet(testInstance *testing.T, contentText string, headerMarker string) string {
	testInstance.Helper()
	headerIndex := strings.Index(contentText, headerMarker)
	require.NotEqualf(testInstance, -1, headerIndex, missingHeaderMessageTemplate, headerMarker)

	fenceStartIndex := strings.LastIndex(contentText[:headerIndex], yamlFenceStartConstant)
	require.NotEqual(testInstance, -1, fenceStartIndex, missingStartFenceMessageConstant)

	fenceEndRelativeIndex := strings.Index(contentText[headerIndex:], yamlFenceEndConstant)
	require.NotEqual(testInstance, -1, fenceEndRelativeIndex, missingEndFenceMessageConstant)

	return strings.TrimSpace(contentText[fenceStartIndex+len(yamlFenceStartConstant) : headerIndex+fenceEndRelativeIndex])
}

func TestReadmeConfigurationParses(testInstance *testing.T) {
	snippetContent := extractSnippet(testInstance, readReadme(testInstance), configHeaderMarkerConstant)

	var applicationConfiguration readmeApplicationConfiguration
	require.NoError(testInstance, yaml.Unmarshal([]byte(snippetContent), &applicationConfiguration))

	directives, parseError := derivatives.ParseDirectives(applicationConfiguration.Encode.Directives)
	require.NoError(testInstance, parseError)
	require.NotEmpty(testInstance, directives)

	for _, directive := range directives {
		_, configured := applicationConfiguration.Encode.Formats[directive.Format]
		require.Truef(testInstance, configured, unconfiguredFormatMessageTemplate, directive.Name, directive.Format)
	}
}

func TestReadmeDirectivesFileLoads(testInstance *testing.T) {
	snippetContent := extractSnippet(testInstance, readReadme(testInstance), directivesHeaderMarkerConstant)

	tempFile, tempFileError := os.CreateTemp(testInstance.TempDir(), readmeSnippetTemporaryPattern)
	require.NoError(testInstance, tempFileError)
	_, writeError := tempFile.WriteString(snippetContent)
	require.NoError(testInstance, writeError)
	require.NoError(testInstance, tempFile.Close())

	directives, loadError := derivatives.LoadDirectivesFile(tempFile.Name())
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, []derivatives.Directive{
		{Name: "mp3", Format: "mp3"},
		{Name: "webm", Format: "webm", Datastream: "preview"},
	}, directives)
}
