// Package langcode validates the language codes passed to the translation page.
package langcode

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/Belphemur/ImageTranslate/internal/apperrors"
)

// Auto lets the translation page detect the source language.
const Auto = "auto"

// Validate checks code for the given request field. An empty code yields fallback.
// "auto" is only accepted when allowAuto is set (source language).
// The code is returned as sent, because the page uses its own spellings
// (zh-CN, iw, jw) that a canonicalizing round-trip would change.
func Validate(field, code, fallback string, allowAuto bool) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return fallback, nil
	}
	if strings.EqualFold(code, Auto) {
		if !allowAuto {
			return "", apperrors.NewInvalidInputError(field, "auto is only valid for the source language")
		}
		return Auto, nil
	}
	if len(code) > 12 {
		return "", apperrors.NewInvalidInputError(field, "language code is too long")
	}

	tag, err := language.Parse(code)
	if err != nil {
		return "", apperrors.NewInvalidInputError(field, "unknown language code "+code)
	}
	// An explicit base language is required; "und" only yields an inferred one.
	if _, conf := tag.Base(); conf != language.Exact {
		return "", apperrors.NewInvalidInputError(field, "unknown language code "+code)
	}
	return code, nil
}
