package derivatives_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/derive/internal/derivatives"
)

func createSourceTree(testInstance *testing.T) string {
	testInstance.Helper()
	rootDirectory := testInstance.TempDir()
	for _, relativePath := range []string{"a.mov", "b.wav", "nested/c.mov", "nested/deeper/d.mov"} {
		absolutePath := filepath.Join(rootDirectory, relativePath)
		require.NoError(testInstance, os.MkdirAll(filepath.Dir(absolutePath), 0o755))
		require.NoError(testInstance, os.WriteFile(absolutePath, []byte(relativePath), 0o600))
	}
	require.NoError(testInstance, os.MkdirAll(filepath.Join(rootDirectory, "folder.mov"), 0o755))
	return rootDirectory
}

func TestExpandSources(testInstance *testing.T) {
	rootDirectory := createSourceTree(testInstance)

	testCases := []struct {
		name     string
		patterns []string
		expected []string
	}{
		{
			name:     "literal",
			patterns: []string{filepath.Join(rootDirectory, "b.wav")},
			expected: []string{filepath.Join(rootDirectory, "b.wav")},
		},
		{
			name:     "single_level_glob",
			patterns: []string{filepath.Join(rootDirectory, "*.mov")},
			expected: []string{filepath.Join(rootDirectory, "a.mov")},
		},
		{
			name:     "recursive_glob_skips_directories",
			patterns: []string{filepath.Join(rootDirectory, "**", "*.mov")},
			expected: []string{
				filepath.Join(rootDirectory, "a.mov"),
				filepath.Join(rootDirectory, "nested", "c.mov"),
				filepath.Join(rootDirectory, "nested", "deeper", "d.mov"),
			},
		},
		{
			name:     "duplicates_removed",
			patterns: []string{filepath.Join(rootDirectory, "a.mov"), filepath.Join(rootDirectory, "{a,b}.*"), ""},
			expected: []string{filepath.Join(rootDirectory, "a.mov"), filepath.Join(rootDirectory, "b.wav")},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			sources, expandError := derivatives.ExpandSources(testCase.patterns)
			require.NoError(testInstance, expandError)
			require.Equal(testInstance, testCase.expected, sources)
		})
	}
}

func TestExpandSourcesErrors(testInstance *testing.T) {
	rootDirectory := createSourceTree(testInstance)

	for _, pattern := range []string{
		filepath.Join(rootDirectory, "missing.mov"),
		filepath.Join(rootDirectory, "nested"),
		filepath.Join(rootDirectory, "**", "*.flac"),
		filepath.Join(rootDirectory, "[unterminated"),
	} {
		_, expandError := derivatives.ExpandSources([]string{pattern})
		require.Error(testInstance, expandError, pattern)
	}
}
