package intake

import (
	"net/http"
	"strings"
)

const octetStream = "application/octet-stream"

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
	"image/webp": ".webp",
}

// DetectMediaType sniffs the image format from its magic bytes. Anything that is not one
// of the formats the translation page accepts is reported as application/octet-stream.
func DetectMediaType(data []byte) string {
	sniffed := http.DetectContentType(data)
	mediaType, _, _ := strings.Cut(sniffed, ";")
	if _, ok := imageExtensions[mediaType]; ok {
		return mediaType
	}
	return octetStream
}

// ExtensionFor returns the file extension for a media type, defaulting to .png.
func ExtensionFor(mediaType string) string {
	mediaType, _, _ = strings.Cut(strings.ToLower(strings.TrimSpace(mediaType)), ";")
	if ext, ok := imageExtensions[mediaType]; ok {
		return ext
	}
	return ".png"
}
