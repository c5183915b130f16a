package services

import (
	"fmt"
	"strings"
)

func extensionForContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	case "image/svg+xml":
		return ".svg", nil
	default:
		return "", fmt.Errorf("unsupported logo content type %q", contentType)
	}
}

func isBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}
