package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// ValidateObjectName validates a boundary/label/port name from a manifest.
// Names end up in artifact filenames and log output, so the rules are
// intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
func ValidateObjectName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidManifest, "object name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidManifest, "object name too long (max 128 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidManifest, "object name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"/",    // Path separator
		"\\",   // Backslash (Windows path)
		"\x00", // Null byte
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidManifest, "object name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateManifestPath validates a manifest path supplied on the CLI or API.
// The file must carry one of the supported manifest extensions.
func ValidateManifestPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidManifest, "manifest path cannot be empty")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".toml":
		return nil
	}
	return New(ErrCodeInvalidManifest, "unsupported manifest extension: %s (want .json or .toml)", filepath.Ext(path))
}
