// Package intake normalizes the two accepted image inputs (a multipart upload or a
// base64 string) into a models.ImagePayload.
package intake

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/Belphemur/ImageTranslate/internal/apperrors"
	"github.com/Belphemur/ImageTranslate/internal/models"
)

// FromParts accepts the raw form fields of a translate request. Exactly one of file and
// imageBase64 must be provided.
func FromParts(file *multipart.FileHeader, imageBase64 string) (models.ImagePayload, error) {
	hasFile := file != nil
	hasBase64 := strings.TrimSpace(imageBase64) != ""

	if hasFile == hasBase64 {
		return models.ImagePayload{}, apperrors.NewInvalidInputError("image", "provide exactly one of file or image_base64")
	}

	if hasBase64 {
		return FromBase64(imageBase64, "")
	}
	return FromUpload(file)
}

// FromUpload reads a multipart file into memory.
func FromUpload(file *multipart.FileHeader) (models.ImagePayload, error) {
	f, err := file.Open()
	if err != nil {
		return models.ImagePayload{}, apperrors.NewInvalidInputError("file", fmt.Sprintf("cannot open upload: %v", err))
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return models.ImagePayload{}, apperrors.NewInvalidInputError("file", fmt.Sprintf("cannot read upload: %v", err))
	}

	return newPayload("file", data, file.Header.Get("Content-Type"), file.Filename)
}

// FromFile reads an image from disk, keeping its base name for the output filename.
func FromFile(path string) (models.ImagePayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.ImagePayload{}, apperrors.NewInvalidInputError("file", fmt.Sprintf("cannot read %s: %v", path, err))
	}
	return newPayload("file", data, "", filepath.Base(path))
}

// FromBase64 decodes a base64 string (optionally a data URL) into a payload.
func FromBase64(value, filename string) (models.ImagePayload, error) {
	data, declared, err := NormalizeBase64(value)
	if err != nil {
		return models.ImagePayload{}, err
	}
	return newPayload("image_base64", data, declared, filename)
}

func newPayload(field string, data []byte, declared, filename string) (models.ImagePayload, error) {
	if len(data) == 0 {
		return models.ImagePayload{}, apperrors.NewInvalidInputError(field, "image is empty")
	}

	mediaType := DetectMediaType(data)
	if mediaType == octetStream {
		if !strings.HasPrefix(declared, "image/") {
			return models.ImagePayload{}, apperrors.NewInvalidInputError(field, "unsupported image type")
		}
		mediaType = declared
	}

	return models.ImagePayload{
		Data:      data,
		MediaType: mediaType,
		Filename:  filename,
	}, nil
}

// NormalizeBase64 decodes value after stripping an optional data URL header, all
// whitespace and restoring missing padding. The media type declared by a data URL is
// returned alongside the bytes.
func NormalizeBase64(value string) ([]byte, string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, "", apperrors.NewInvalidInputError("image_base64", "base64 input is empty")
	}

	var declared string
	if strings.HasPrefix(value, "data:") {
		header, payload, found := strings.Cut(value, ",")
		if !found {
			return nil, "", apperrors.NewInvalidInputError("image_base64", "invalid data URL")
		}
		declared, _, _ = strings.Cut(strings.TrimPrefix(header, "data:"), ";")
		value = payload
	}

	value = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, value)

	if missing := len(value) % 4; missing != 0 {
		value += strings.Repeat("=", 4-missing)
	}

	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		// Browsers and some clients emit the URL-safe alphabet.
		var urlErr error
		data, urlErr = base64.URLEncoding.DecodeString(value)
		if urlErr != nil {
			return nil, "", apperrors.NewInvalidInputError("image_base64", "not valid base64")
		}
	}
	if len(data) == 0 {
		return nil, "", apperrors.NewInvalidInputError("image_base64", "decoded image is empty")
	}

	return data, declared, nil
}
