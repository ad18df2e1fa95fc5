package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Belphemur/ImageTranslate/internal/apperrors"
	"github.com/Belphemur/ImageTranslate/internal/config"
	"github.com/Belphemur/ImageTranslate/internal/telemetry"
)

// statusClientClosedRequest is logged when the caller went away before the result was ready.
const statusClientClosedRequest = 499

// errorResponse maps err to an HTTP status, an error code and the message shown to the client.
func errorResponse(err error, debug bool) (int, string, string) {
	var (
		invalid     *apperrors.ErrInvalidInput
		noText      *apperrors.ErrNoTextDetected
		timeout     *apperrors.ErrTimeout
		upstream    *apperrors.ErrUpstreamUI
		unavailable *apperrors.ErrUnavailable
		tooLarge    *http.MaxBytesError
	)

	status, code := http.StatusInternalServerError, "internal_error"
	message := "internal server error"

	switch {
	case errors.As(err, &invalid):
		status, code, message = http.StatusBadRequest, "invalid_input", invalid.Error()
	case errors.As(err, &tooLarge):
		status, code, message = http.StatusRequestEntityTooLarge, "payload_too_large", "request body is too large"
	case errors.As(err, &noText):
		status, code, message = http.StatusUnprocessableEntity, "no_text_detected", noText.Message
	case errors.As(err, &timeout):
		status, code, message = http.StatusGatewayTimeout, "timeout", timeout.Error()
	case errors.As(err, &upstream):
		status, code, message = http.StatusBadGateway, "upstream_ui_error", "the translation page did not behave as expected"
	case errors.As(err, &unavailable):
		status, code, message = http.StatusServiceUnavailable, "unavailable", unavailable.Error()
	case errors.Is(err, context.Canceled):
		status, code, message = statusClientClosedRequest, "cancelled", "request cancelled"
	}

	if debug {
		message = err.Error()
	}
	return status, code, message
}

// respondError writes the JSON error body for err and reports unexpected failures.
func respondError(c *gin.Context, err error, debug bool) {
	status, code, message := errorResponse(err, debug)

	logger := config.GetLogger()
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).
		Str("request_id", c.GetString(requestIDKey)).
		Int("status", status).
		Str("code", code).
		Msg("Translation request failed")

	if status == http.StatusInternalServerError {
		telemetry.CaptureRequestError(c.Request, err, map[string]string{
			"request_id": c.GetString(requestIDKey),
			"route":      c.FullPath(),
		})
	}

	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   code,
		"message": message,
	})
}
