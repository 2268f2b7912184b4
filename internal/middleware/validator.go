package middleware

import (
	"path/filepath"
	"regexp"
	"strings"
)

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// UploadExtension returns the lowercase extension of an uploaded file name,
// or "" when the name has none or it contains anything but letters and
// digits. Only the extension of client-supplied names ever reaches disk.
func UploadExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(SanitizeString(filename)))
	if !extPattern.MatchString(ext) {
		return ""
	}
	return ext
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}
