package derivatives

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	globMetaCharactersConstant        = "*?[{"
	globFailureTemplateConstant       = "invalid source pattern %q: %w"
	globNoMatchesTemplateConstant     = "source pattern %q matched no files"
	sourceMissingTemplateConstant     = "source %s: %w"
	sourceIsDirectoryTemplateConstant = "source %s is a directory"
)

// ExpandSources resolves literal paths and doublestar patterns such as "media/**/*.mov" into an ordered,
// de-duplicated file list. Literal paths must name existing files; patterns must match at least one file.
func ExpandSources(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var sources []string

	appendSource := func(source string) {
		if _, duplicate := seen[source]; duplicate {
			return
		}
		seen[source] = struct{}{}
		sources = append(sources, source)
	}

	for _, pattern := range patterns {
		trimmedPattern := strings.TrimSpace(pattern)
		if len(trimmedPattern) == 0 {
			continue
		}

		if !strings.ContainsAny(trimmedPattern, globMetaCharactersConstant) {
			info, statError := os.Stat(trimmedPattern)
			if statError != nil {
				return nil, fmt.Errorf(sourceMissingTemplateConstant, trimmedPattern, statError)
			}
			if info.IsDir() {
				return nil, fmt.Errorf(sourceIsDirectoryTemplateConstant, trimmedPattern)
			}
			appendSource(trimmedPattern)
			continue
		}

		matches, globError := doublestar.FilepathGlob(trimmedPattern, doublestar.WithFilesOnly())
		if globError != nil {
			return nil, fmt.Errorf(globFailureTemplateConstant, trimmedPattern, globError)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf(globNoMatchesTemplateConstant, trimmedPattern)
		}
		sort.Strings(matches)
		for _, match := range matches {
			appendSource(match)
		}
	}

	return sources, nil
}
