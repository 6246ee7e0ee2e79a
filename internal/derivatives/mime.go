package derivatives

import (
	"mime"
	"strings"
)

// DefaultMimeType is reported when neither configuration nor the extension table knows a format.
const DefaultMimeType = "application/octet-stream"

// MimeTypeForFormat resolves the media type of a derivative format: the configured value first,
// then the platform extension table.
func MimeTypeForFormat(format string, formats map[string]FormatConfiguration) string {
	normalizedFormat := NormalizeFormat(format)
	if configured, exists := formats[normalizedFormat]; exists && len(strings.TrimSpace(configured.MimeType)) > 0 {
		return strings.TrimSpace(configured.MimeType)
	}
	if len(normalizedFormat) == 0 {
		return DefaultMimeType
	}
	if detected := mime.TypeByExtension(formatExtensionPrefixConstant + normalizedFormat); len(detected) > 0 {
		return detected
	}
	return DefaultMimeType
}
