package services

import (
	"context"

	"github.com/Belphemur/ImageTranslate/internal/models"
)

// ImageTranslator defines the interface for translating the text inside an image
type ImageTranslator interface {
	// Translate returns the image with its text rendered in the target language
	Translate(ctx context.Context, req models.TranslationRequest) (*models.TranslationResult, error)
}
