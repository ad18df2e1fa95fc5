package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Belphemur/ImageTranslate/internal/apperrors"
	"github.com/Belphemur/ImageTranslate/internal/browser"
	"github.com/Belphemur/ImageTranslate/internal/cache"
	"github.com/Belphemur/ImageTranslate/internal/config"
	"github.com/Belphemur/ImageTranslate/internal/intake"
	"github.com/Belphemur/ImageTranslate/internal/metrics"
	"github.com/Belphemur/ImageTranslate/internal/models"
)

// DefaultImageTranslator serves translations from the result cache when possible and
// from a browser session otherwise
type DefaultImageTranslator struct {
	engine browser.Translator
	cache  *cache.ResultCache
}

// NewImageTranslator creates a translator backed by engine. results may be nil to disable caching.
func NewImageTranslator(engine browser.Translator, results *cache.ResultCache) ImageTranslator {
	return &DefaultImageTranslator{
		engine: engine,
		cache:  results,
	}
}

// Translate runs one translation and names the output after the uploaded file
func (t *DefaultImageTranslator) Translate(ctx context.Context, req models.TranslationRequest) (result *models.TranslationResult, err error) {
	logger := config.GetLogger()
	start := time.Now()
	status := "success"

	defer func() {
		if err != nil {
			status = statusLabel(err)
		}
		metrics.TranslationsTotal.WithLabelValues(status).Inc()
		metrics.TranslationDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}()

	if len(req.Image.Data) == 0 {
		return nil, apperrors.NewInvalidInputError("image", "image is empty")
	}

	if cached, ok := t.cache.Get(ctx, req); ok {
		status = "cache_hit"
		cached.Filename = intake.OutputFilename(req.Image.Filename, cached.Data)
		logger.Info().
			Str("source_lang", req.SourceLang).
			Str("target_lang", req.TargetLang).
			Int("size", len(cached.Data)).
			Msg("Serving translation from cache")
		return cached, nil
	}

	logger.Info().
		Str("source_lang", req.SourceLang).
		Str("target_lang", req.TargetLang).
		Str("media_type", req.Image.MediaType).
		Int("size", len(req.Image.Data)).
		Bool("tor", req.Tor).
		Dur("timeout", req.Timeout).
		Msg("Translating image")

	result, err = t.engine.Translate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to translate image: %w", err)
	}

	result.Filename = intake.OutputFilename(req.Image.Filename, result.Data)
	t.cache.Put(ctx, req, result)

	return result, nil
}

// statusLabel maps an error to the status label of the translation metrics
func statusLabel(err error) string {
	switch {
	case errors.Is(err, &apperrors.ErrInvalidInput{}):
		return "invalid_input"
	case errors.Is(err, &apperrors.ErrNoTextDetected{}):
		return "no_text"
	case errors.Is(err, &apperrors.ErrTimeout{}):
		return "timeout"
	case errors.Is(err, &apperrors.ErrUpstreamUI{}):
		return "upstream_ui"
	case errors.Is(err, &apperrors.ErrUnavailable{}):
		return "unavailable"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}
