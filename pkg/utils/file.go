package utils

import (
	"strings"
)

var playableExtensions = []string{".mp4", ".webm", ".ogg"}

// FileURL resolves a module file path against the uploads base URL.
// Absolute http(s) URLs are returned unchanged.
func FileURL(uploadsBase, filePath string) string {
	if filePath == "" {
		return ""
	}
	lower := strings.ToLower(filePath)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return filePath
	}
	return strings.TrimRight(uploadsBase, "/") + "/" + strings.TrimLeft(filePath, "/")
}

// IsPlayable reports whether the file is a video the browser can play inline.
func IsPlayable(filePath string) bool {
	lower := strings.ToLower(filePath)
	for _, ext := range playableExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
