package browser

import (
	"time"

	"github.com/Belphemur/ImageTranslate/internal/apperrors"
	"github.com/Belphemur/ImageTranslate/internal/models"
)

const (
	// resultStableFor is how long the last large image must keep the same src before it
	// is taken as the result when nothing labels it as translated.
	resultStableFor = 1500 * time.Millisecond
	// errorGrace is how long an error message must stay on the page, with no result
	// appearing, before the translation is given up.
	errorGrace = 3 * time.Second
)

// readiness decides from successive page observations when the translated image is shown.
type readiness struct {
	lastSrc     string
	stableSince time.Time
	lastError   string
	errorSince  time.Time
}

// observe records one poll. It returns the result src once ready, or an
// ErrNoTextDetected when the page has kept reporting an error.
// largeImages are the srcs of loaded images bigger than a thumbnail, in document order.
func (r *readiness) observe(now time.Time, state *models.PageState, largeImages []string) (string, error) {
	if state != nil && state.TranslatedImageSrc != "" {
		return state.TranslatedImageSrc, nil
	}

	var last string
	if len(largeImages) > 0 {
		last = largeImages[len(largeImages)-1]
	}

	if state != nil && state.HasDownloadButton && last != "" {
		return last, nil
	}

	if state != nil && state.ErrorMessage != "" {
		if state.ErrorMessage != r.lastError || r.errorSince.IsZero() {
			r.lastError = state.ErrorMessage
			r.errorSince = now
		} else if now.Sub(r.errorSince) >= errorGrace {
			return "", apperrors.NewNoTextDetectedError(r.lastError)
		}
		// Whatever image is on screen is the untranslated preview.
		r.lastSrc = ""
		return "", nil
	}
	r.errorSince = time.Time{}

	if last == "" {
		r.lastSrc = ""
		r.stableSince = time.Time{}
		return "", nil
	}
	if last != r.lastSrc {
		r.lastSrc = last
		r.stableSince = now
		return "", nil
	}
	if now.Sub(r.stableSince) >= resultStableFor {
		return last, nil
	}
	return "", nil
}

// lastErrorMessage returns the most recent error message seen on the page.
func (r *readiness) lastErrorMessage() string {
	return r.lastError
}
