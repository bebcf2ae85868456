// internal/utils/media_utils.go
package utils

import (
	"path"
	"strings"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// IsImage проверяет, является ли MIME-тип поддерживаемым изображением.
func IsImage(mimeType string) bool {
	_, ok := imageExtensions[normalizeMime(mimeType)]
	return ok
}

// ImageExtension возвращает расширение файла для MIME-типа изображения.
func ImageExtension(mimeType string) string {
	return imageExtensions[normalizeMime(mimeType)]
}

// ExtractFilenameFromURL извлекает имя файла из полного или относительного URL.
// Например, из "/api/media/file.jpg" вернет "file.jpg".
func ExtractFilenameFromURL(url string) string {
	if strings.Contains(url, "/") {
		return path.Base(url)
	}
	return url
}

func normalizeMime(mimeType string) string {
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
