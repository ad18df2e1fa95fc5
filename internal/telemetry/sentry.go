package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Belphemur/ImageTranslate/internal/config"
)

var enabled atomic.Bool

// Init configures Sentry when a DSN is set. It reports whether error reporting is on.
func Init(cfg *config.Config, release string) (bool, error) {
	if cfg.Sentry.DSN == "" {
		return false, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      cfg.Sentry.Environment,
		Release:          release,
		AttachStacktrace: true,
	})
	if err != nil {
		return false, fmt.Errorf("failed to initialize sentry: %w", err)
	}

	enabled.Store(true)
	logger := config.GetLogger()
	logger.Info().Str("environment", cfg.Sentry.Environment).Msg("Sentry error reporting enabled")
	return true, nil
}

// Enabled reports whether Init turned error reporting on.
func Enabled() bool {
	return enabled.Load()
}

// CaptureError reports err with tags. The hub attached to ctx is used when there is one.
func CaptureError(ctx context.Context, err error, tags map[string]string) {
	if err == nil || !enabled.Load() {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}

// CaptureRequestError reports err together with the HTTP request that caused it.
func CaptureRequestError(r *http.Request, err error, tags map[string]string) {
	if err == nil || !enabled.Load() {
		return
	}

	hub := sentry.CurrentHub().Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(r)
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}

// Flush waits up to timeout for queued events to be sent.
func Flush(timeout time.Duration) {
	if !enabled.Load() {
		return
	}
	if !sentry.Flush(timeout) {
		logger := config.GetLogger()
		logger.Warn().Dur("timeout", timeout).Msg("Some Sentry events were not sent before shutdown")
	}
}
