package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"

	"github.com/Belphemur/ImageTranslate/internal/apperrors"
	"github.com/Belphemur/ImageTranslate/internal/config"
	"github.com/Belphemur/ImageTranslate/internal/intake"
	"github.com/Belphemur/ImageTranslate/internal/metrics"
	"github.com/Belphemur/ImageTranslate/internal/models"
)

const screenshotTimeout = 10 * time.Second

// Translator turns a translation request into a translated image.
type Translator interface {
	Translate(ctx context.Context, req models.TranslationRequest) (*models.TranslationResult, error)
}

// DriverOptions configure a Driver.
type DriverOptions struct {
	Launch           LaunchOptions
	WorkDir          string
	PoolSize         int
	PoolWait         time.Duration
	FailureThreshold int
	OpenTimeout      time.Duration
	DefaultTimeout   time.Duration
}

// DriverOptionsFromConfig reads the driver settings from cfg.
func DriverOptionsFromConfig(cfg *config.Config) DriverOptions {
	return DriverOptions{
		Launch:           LaunchOptionsFromConfig(cfg),
		WorkDir:          cfg.Browser.WorkDir,
		PoolSize:         cfg.Browser.PoolSize,
		PoolWait:         config.ParseDuration("browser.pool_wait", cfg.Browser.PoolWait, 30*time.Second),
		FailureThreshold: cfg.Breaker.FailureThreshold,
		OpenTimeout:      config.ParseDuration("breaker.open_timeout", cfg.Breaker.OpenTimeout, time.Minute),
		DefaultTimeout:   cfg.DefaultTimeout(),
	}
}

// Driver runs translations in fresh browser sessions. It bounds the number of concurrent
// sessions and stops opening sessions while the translation page keeps failing.
type Driver struct {
	factory        SessionFactory
	launch         LaunchOptions
	workDir        string
	defaultTimeout time.Duration
	poolWait       time.Duration
	pool           *semaphore.Weighted
	breaker        *gobreaker.CircuitBreaker
	logger         zerolog.Logger

	mu        sync.Mutex
	listeners []func(open bool)
}

// NewDriver creates a Driver launching sessions with factory.
func NewDriver(factory SessionFactory, opts DriverOptions) *Driver {
	if opts.PoolSize <= 0 {
		opts.PoolSize = 1
	}
	if opts.PoolWait <= 0 {
		opts.PoolWait = 30 * time.Second
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = time.Minute
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = models.DefaultTimeoutMs * time.Millisecond
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}

	d := &Driver{
		factory:        factory,
		launch:         opts.Launch,
		workDir:        opts.WorkDir,
		defaultTimeout: opts.DefaultTimeout,
		poolWait:       opts.PoolWait,
		pool:           semaphore.NewWeighted(int64(opts.PoolSize)),
		logger:         config.GetLogger().With().Str("component", "driver").Logger(),
	}

	threshold := uint32(opts.FailureThreshold)
	d.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "translate-page",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return !d.countsAsFailure(err)
		},
		OnStateChange: d.onStateChange,
	})
	metrics.UpstreamBreakerState.Set(0)

	return d
}

// OnBreakerChange registers fn to be called whenever the circuit opens or closes.
func (d *Driver) OnBreakerChange(fn func(open bool)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

// BreakerOpen reports whether new translations are currently refused.
func (d *Driver) BreakerOpen() bool {
	return d.breaker.State() == gobreaker.StateOpen
}

func (d *Driver) onStateChange(name string, from, to gobreaker.State) {
	d.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")

	switch to {
	case gobreaker.StateClosed:
		metrics.UpstreamBreakerState.Set(0)
	case gobreaker.StateHalfOpen:
		metrics.UpstreamBreakerState.Set(1)
	case gobreaker.StateOpen:
		metrics.UpstreamBreakerState.Set(2)
	}

	d.mu.Lock()
	listeners := append([]func(bool){}, d.listeners...)
	d.mu.Unlock()
	for _, fn := range listeners {
		fn(to == gobreaker.StateOpen)
	}
}

// countsAsFailure reports whether err says something about the health of the
// translation page. Bad input, cancelled requests and a full pool do not, and neither
// does a timeout on a budget shorter than the default one.
func (d *Driver) countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, &apperrors.ErrUpstreamUI{}) {
		return true
	}
	var timeoutErr *apperrors.ErrTimeout
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout >= d.defaultTimeout
}

// Translate runs req in a new browser session and returns the translated image.
func (d *Driver) Translate(ctx context.Context, req models.TranslationRequest) (*models.TranslationResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = d.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := d.acquire(ctx); err != nil {
		return nil, err
	}
	defer d.pool.Release(1)

	result, err := d.breaker.Execute(func() (interface{}, error) {
		return d.runSession(ctx, req, timeout)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.NewUnavailableError("translation page is failing, circuit open", err)
		}
		return nil, err
	}
	return result.(*models.TranslationResult), nil
}

// acquire waits for a free session slot for at most the pool wait, and never longer
// than the request budget in ctx.
func (d *Driver) acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, d.poolWait)
	defer cancel()

	if err := d.pool.Acquire(waitCtx, 1); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		return apperrors.NewUnavailableError("all browser sessions are busy", err)
	}
	return nil
}

func (d *Driver) runSession(ctx context.Context, req models.TranslationRequest, timeout time.Duration) (result *models.TranslationResult, err error) {
	logger := d.logger.With().
		Str("source_lang", req.SourceLang).
		Str("target_lang", req.TargetLang).
		Bool("proxied", req.Proxy != "").
		Logger()

	start := time.Now()
	metrics.BrowserSessionsActive.Inc()
	defer func() {
		metrics.BrowserSessionsActive.Dec()
		metrics.BrowserSessionDuration.WithLabelValues(sessionOutcome(err)).Observe(time.Since(start).Seconds())
	}()

	path, err := d.writeTempImage(req.Image)
	if err != nil {
		return nil, err
	}
	defer func() {
		if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
			logger.Warn().Err(removeErr).Str("path", path).Msg("Failed to remove temporary image")
		}
	}()

	opts := d.launch
	opts.ProxyServer = req.Proxy

	session, err := d.factory(ctx, opts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, d.timeoutOrCancel(ctx, "launching browser", timeout, err)
		}
		return nil, apperrors.NewUnavailableError("browser could not be started", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.Warn().Err(closeErr).Msg("Failed to close browser session")
		}
	}()

	stage := "opening translation page"
	fail := func(err error) (*models.TranslationResult, error) {
		return nil, d.classify(ctx, session, stage, timeout, err)
	}

	if err := session.Open(ctx, req.SourceLang, req.TargetLang); err != nil {
		return fail(err)
	}

	stage = "uploading image"
	if err := session.Upload(ctx, path); err != nil {
		return fail(err)
	}

	stage = "waiting for translation"
	src, err := session.WaitForResult(ctx)
	if err != nil {
		return fail(err)
	}

	stage = "extracting result"
	data, err := session.Extract(ctx, src)
	if err != nil {
		return fail(err)
	}
	if len(data) == 0 {
		return fail(apperrors.NewUpstreamUIError(stage, errors.New("translated image is empty")))
	}
	mediaType := intake.DetectMediaType(data)
	if !strings.HasPrefix(mediaType, "image/") {
		return fail(apperrors.NewUpstreamUIError(stage, fmt.Errorf("result is %s, not an image", mediaType)))
	}

	logger.Info().
		Int("bytes", len(data)).
		Str("media_type", mediaType).
		Dur("elapsed", time.Since(start)).
		Msg("Translation completed")

	return &models.TranslationResult{Data: data, MediaType: mediaType}, nil
}

// classify turns a session error into the error taxonomy and attaches a screenshot of
// the page when the page itself is to blame.
func (d *Driver) classify(ctx context.Context, session Session, stage string, timeout time.Duration, err error) error {
	var noText *apperrors.ErrNoTextDetected
	if errors.As(err, &noText) {
		noText.Screenshot = d.saveScreenshot(ctx, session, "detect_text")
		return noText
	}

	// Only the request's own deadline is a timeout. A step-local wait that expired
	// inside the budget falls through to the UI error below.
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			shot := d.saveScreenshot(ctx, session, "timeout")
			d.logger.Warn().Str("stage", stage).Str("screenshot", shot).Msg("Translation timed out")
		}
		return d.timeoutOrCancel(ctx, stage, timeout, err)
	}

	var uiErr *apperrors.ErrUpstreamUI
	if !errors.As(err, &uiErr) {
		uiErr = apperrors.NewUpstreamUIError(stage, err)
	}
	uiErr.Screenshot = d.saveScreenshot(ctx, session, "ui")
	return uiErr
}

func (d *Driver) timeoutOrCancel(ctx context.Context, stage string, timeout time.Duration, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("translation cancelled while %s: %w", stage, ctx.Err())
	}
	return apperrors.NewTimeoutError(stage, timeout, err)
}

// saveScreenshot stores a full page screenshot in the work directory and returns its
// path, or "" when none could be taken.
func (d *Driver) saveScreenshot(ctx context.Context, session Session, label string) string {
	shotCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), screenshotTimeout)
	defer cancel()

	png, err := session.Screenshot(shotCtx)
	if err != nil || len(png) == 0 {
		d.logger.Debug().Err(err).Msg("Could not capture error screenshot")
		return ""
	}

	name := fmt.Sprintf("error_%s_%s.png", label, time.Now().Format("20060102_150405.000"))
	path := filepath.Join(d.workDir, name)
	if err := os.MkdirAll(d.workDir, 0o755); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to create work directory")
		return ""
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		d.logger.Warn().Err(err).Str("path", path).Msg("Failed to save error screenshot")
		return ""
	}
	return path
}

// writeTempImage stores the upload in the work directory, where the browser can read it.
func (d *Driver) writeTempImage(image models.ImagePayload) (string, error) {
	if err := os.MkdirAll(d.workDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create work directory: %w", err)
	}
	name := "gt_image_" + uuid.NewString() + intake.ExtensionFor(image.MediaType)
	path := filepath.Join(d.workDir, name)
	if err := os.WriteFile(path, image.Data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write temporary image: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

func sessionOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, &apperrors.ErrNoTextDetected{}):
		return "no_text"
	case errors.Is(err, &apperrors.ErrTimeout{}):
		return "timeout"
	case errors.Is(err, &apperrors.ErrUpstreamUI{}):
		return "upstream_ui"
	case errors.Is(err, &apperrors.ErrUnavailable{}):
		return "unavailable"
	default:
		return "error"
	}
}
