package errors

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxNameLength bounds page and stencil names used as file names.
const maxNameLength = 255

// ValidatePageName validates a generated page or stencil name before it is
// used to build an output path.
//
// Validation rules:
//   - Name cannot be empty or all whitespace
//   - Maximum length of 255 bytes
//   - No control characters
//   - No path separators or traversal sequences
func ValidatePageName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidName, "page name cannot be empty")
	}

	if len(name) > maxNameLength {
		return New(ErrCodeInvalidName, "page name too long (max %d bytes)", maxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "page name contains invalid control characters")
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidName, "page name cannot contain path separators")
	}

	if name == "." || name == ".." {
		return New(ErrCodeInvalidName, "page name cannot be %q", name)
	}

	return nil
}

// SanitizeFileName turns a page name into a safe base file name by replacing
// path separators, control characters and characters rejected by common
// file systems with '_'. An empty result becomes "page".
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsControl(r), strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" || s == "." || s == ".." {
		return "page"
	}
	if len(s) > maxNameLength {
		s = s[:maxNameLength]
		for !utf8.ValidString(s) {
			s = s[:len(s)-1]
		}
	}
	return s
}
