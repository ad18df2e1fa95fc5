package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/Belphemur/ImageTranslate/internal/apperrors"
	"github.com/Belphemur/ImageTranslate/internal/client"
	"github.com/Belphemur/ImageTranslate/internal/config"
	"github.com/Belphemur/ImageTranslate/internal/intake"
	"github.com/Belphemur/ImageTranslate/internal/models"
	"github.com/Belphemur/ImageTranslate/internal/parser"
)

const (
	pollInterval    = 500 * time.Millisecond
	imagesTabWait   = 5 * time.Second
	fileInputWait   = 15 * time.Second
	snapshotScript  = `document.documentElement ? document.documentElement.outerHTML : ""`
	locationTimeout = 5 * time.Second
)

// largeImagesScript lists loaded images larger than an icon, in document order.
const largeImagesScript = `Array.from(document.images)
	.filter(img => img.src && img.naturalWidth > 50 && img.naturalHeight > 50)
	.map(img => img.currentSrc || img.src)`

// clickFirstScript clicks the first visible element matching one of the candidates.
const clickFirstScript = `((candidates) => {
	for (const c of candidates) {
		for (const el of document.querySelectorAll(c.selector)) {
			const label = ((el.innerText || el.textContent || '') + ' ' + (el.getAttribute('aria-label') || '')).toLowerCase();
			if (c.text && !label.includes(c.text.toLowerCase())) continue;
			const rect = el.getBoundingClientRect();
			if (rect.width === 0 && rect.height === 0) continue;
			el.click();
			return true;
		}
	}
	return false;
})(%s)`

// markInputScript tags the file input at the given index with the upload marker.
const markInputScript = `((index, marker) => {
	document.querySelectorAll('[' + marker + ']').forEach(el => el.removeAttribute(marker));
	const inputs = document.querySelectorAll(%s);
	if (index < 0 || index >= inputs.length) return false;
	inputs[index].setAttribute(marker, '1');
	return true;
})(%d, %s)`

// blobToDataURLScript reads a blob: URL inside the page, where it is valid.
const blobToDataURLScript = `(async (url) => {
	const response = await fetch(url);
	const blob = await response.blob();
	return await new Promise((resolve, reject) => {
		const reader = new FileReader();
		reader.onload = () => resolve(reader.result);
		reader.onerror = () => reject(reader.error);
		reader.readAsDataURL(blob);
	});
})(%s)`

// chromeSession is a Session backed by a dedicated Chrome process driven over the
// DevTools protocol.
type chromeSession struct {
	opts        LaunchOptions
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	parser      *parser.PageParser
	images      client.ImageClient
	logger      zerolog.Logger
}

// NewChromeSession launches Chrome and opens a blank tab. It is the production SessionFactory.
func NewChromeSession(ctx context.Context, opts LaunchOptions) (Session, error) {
	logger := config.GetLogger().With().Str("component", "browser").Logger()

	// The browser outlives the request deadline long enough to take an error screenshot;
	// Close tears it down.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocatorOptions(opts)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) { logger.Debug().Msgf(format, args...) }),
		chromedp.WithErrorf(func(format string, args ...any) { logger.Warn().Msgf(format, args...) }),
	)

	s := &chromeSession{
		opts:        opts,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		parser:      parser.NewPageParser(),
		images:      client.NewImageClient(opts.ProxyServer, 0, opts.UserAgent),
		logger:      logger,
	}

	// The first Run starts the browser and must not carry a deadline, so it is
	// bounded from the outside instead.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(tabCtx) }()

	select {
	case err := <-started:
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
	case <-ctx.Done():
		_ = s.Close()
		<-started
		return nil, ctx.Err()
	}

	logger.Debug().Str("proxy", opts.ProxyServer).Bool("headless", opts.Headless).Msg("Browser started")
	return s, nil
}

// run executes actions on the tab, bounded by ctx.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}

func (s *chromeSession) snapshot(ctx context.Context) (*models.PageState, error) {
	var html string
	if err := s.run(ctx, chromedp.Evaluate(snapshotScript, &html)); err != nil {
		return nil, err
	}
	return s.parser.ParseHtml(strings.NewReader(html))
}

func (s *chromeSession) clickFirst(ctx context.Context, candidates []parser.Candidate) (bool, error) {
	encoded, err := json.Marshal(candidates)
	if err != nil {
		return false, err
	}
	var clicked bool
	if err := s.run(ctx, chromedp.Evaluate(fmt.Sprintf(clickFirstScript, encoded), &clicked)); err != nil {
		return false, err
	}
	return clicked, nil
}

// Open navigates to the translation page, dismisses the consent dialog and switches to
// image mode.
func (s *chromeSession) Open(ctx context.Context, sourceLang, targetLang string) error {
	target := translateURL(s.opts.TranslateURL, sourceLang, targetLang)
	s.logger.Debug().Str("url", target).Msg("Opening translation page")

	if err := s.run(ctx, chromedp.Navigate(target)); err != nil {
		return s.uiError(ctx, "navigation", err)
	}
	if err := s.opts.Delay.Wait(ctx); err != nil {
		return err
	}

	state, err := s.snapshot(ctx)
	if err != nil {
		return s.uiError(ctx, "reading page", err)
	}
	if state.HasConsentDialog {
		if err := s.dismissConsent(ctx, target); err != nil {
			return err
		}
	}

	return s.ensureImagesTab(ctx)
}

// dismissConsent accepts the cookie dialog. Accepting may redirect to the default
// text mode, in which case the image page is loaded again.
func (s *chromeSession) dismissConsent(ctx context.Context, target string) error {
	clicked, err := s.clickFirst(ctx, parser.ConsentButtons)
	if err != nil {
		return s.uiError(ctx, "consent dialog", err)
	}
	if !clicked {
		s.logger.Debug().Msg("Consent dialog detected but no accept button matched")
		return nil
	}
	if err := s.opts.Delay.Wait(ctx); err != nil {
		return err
	}

	locCtx, cancel := context.WithTimeout(ctx, locationTimeout)
	defer cancel()
	var location string
	if err := s.run(locCtx, chromedp.Location(&location)); err != nil || !onImagesPage(location) {
		s.logger.Debug().Str("location", location).Msg("Reloading image translation page after consent")
		if err := s.run(ctx, chromedp.Navigate(target)); err != nil {
			return s.uiError(ctx, "navigation", err)
		}
	}
	return nil
}

func (s *chromeSession) ensureImagesTab(ctx context.Context) error {
	state, err := s.snapshot(ctx)
	if err != nil {
		return s.uiError(ctx, "reading page", err)
	}
	if state.OnImagesTab() {
		return nil
	}

	if _, err := s.clickFirst(ctx, parser.ImagesTab); err != nil {
		return s.uiError(ctx, "images tab", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, imagesTabWait)
	defer cancel()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return apperrors.NewUpstreamUIError("images tab", errors.New("no image upload input appeared"))
		case <-ticker.C:
			state, err := s.snapshot(waitCtx)
			if err != nil {
				continue
			}
			if state.OnImagesTab() {
				return nil
			}
		}
	}
}

// Upload picks the file input that accepts images and sets the file on it.
func (s *chromeSession) Upload(ctx context.Context, path string) error {
	waitCtx, cancel := context.WithTimeout(ctx, fileInputWait)
	defer cancel()
	if err := s.run(waitCtx, chromedp.WaitReady(parser.FileInputSelector, chromedp.ByQuery)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return s.uiError(ctx, "file input", err)
	}

	state, err := s.snapshot(ctx)
	if err != nil {
		return s.uiError(ctx, "reading page", err)
	}
	index := state.BestFileInput()
	if index < 0 {
		return apperrors.NewUpstreamUIError("file input", errors.New("no file input found"))
	}

	selectorJSON, _ := json.Marshal(parser.FileInputSelector)
	markerJSON, _ := json.Marshal(parser.UploadMarker)
	var marked bool
	if err := s.run(ctx, chromedp.Evaluate(fmt.Sprintf(markInputScript, selectorJSON, index, markerJSON), &marked)); err != nil {
		return s.uiError(ctx, "file input", err)
	}
	if !marked {
		return apperrors.NewUpstreamUIError("file input", fmt.Errorf("file input %d disappeared", index))
	}

	marker := fmt.Sprintf("[%s]", parser.UploadMarker)
	if err := s.run(ctx, chromedp.SetUploadFiles(marker, []string{path}, chromedp.ByQuery)); err != nil {
		return s.uiError(ctx, "upload", err)
	}
	s.logger.Debug().Int("input", index).Msg("Image uploaded")

	return s.opts.Delay.Wait(ctx)
}

// WaitForResult polls the page until the translated image shows up. When ctx ends while
// the page was reporting an error, that error is returned instead of the context error.
func (s *chromeSession) WaitForResult(ctx context.Context) (string, error) {
	var ready readiness
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if msg := ready.lastErrorMessage(); msg != "" {
				return "", apperrors.NewNoTextDetectedError(msg)
			}
			return "", ctx.Err()
		case <-ticker.C:
		}

		state, err := s.snapshot(ctx)
		if err != nil {
			s.logger.Debug().Err(err).Msg("Page snapshot failed, retrying")
			continue
		}

		var large []string
		if err := s.run(ctx, chromedp.Evaluate(largeImagesScript, &large)); err != nil {
			s.logger.Debug().Err(err).Msg("Image probe failed, retrying")
			large = nil
		}

		src, err := ready.observe(time.Now(), state, large)
		if err != nil {
			return "", err
		}
		if src != "" {
			s.logger.Debug().Str("src", truncate(src, 80)).Msg("Translated image ready")
			return src, nil
		}
	}
}

// Extract loads the bytes of the image at src.
func (s *chromeSession) Extract(ctx context.Context, src string) ([]byte, error) {
	switch {
	case strings.HasPrefix(src, "data:"):
		data, _, err := intake.NormalizeBase64(src)
		if err != nil {
			return nil, fmt.Errorf("failed to decode data URL: %w", err)
		}
		return data, nil
	case strings.HasPrefix(src, "blob:"):
		urlJSON, _ := json.Marshal(src)
		var dataURL string
		err := s.run(ctx, chromedp.Evaluate(fmt.Sprintf(blobToDataURLScript, urlJSON), &dataURL,
			func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
				return p.WithAwaitPromise(true)
			}))
		if err != nil {
			return nil, fmt.Errorf("failed to read blob: %w", err)
		}
		data, _, err := intake.NormalizeBase64(dataURL)
		if err != nil {
			return nil, fmt.Errorf("failed to decode blob: %w", err)
		}
		return data, nil
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		data, _, err := s.images.Fetch(ctx, src)
		return data, err
	default:
		return nil, apperrors.NewUpstreamUIError("extracting result", fmt.Errorf("unsupported image source %q", truncate(src, 40)))
	}
}

// Screenshot captures the full page as PNG.
func (s *chromeSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close stops the tab and the browser process.
func (s *chromeSession) Close() error {
	s.tabCancel()
	s.allocCancel()
	return nil
}

// uiError reports err as a page structure problem unless ctx has already ended.
// Deadlines of step-local waits derived from ctx count as page problems.
func (s *chromeSession) uiError(ctx context.Context, step string, err error) error {
	if ctx.Err() != nil {
		return err
	}
	return apperrors.NewUpstreamUIError(step, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
