package browser

import (
	"context"
	"time"

	"github.com/Belphemur/ImageTranslate/internal/config"
)

// Session drives one fresh browser context through a single translation.
// A session is used by exactly one request and closed afterwards.
type Session interface {
	// Open loads the image translation page for the given language pair.
	Open(ctx context.Context, sourceLang, targetLang string) error
	// Upload hands the image file at path to the page.
	Upload(ctx context.Context, path string) error
	// WaitForResult blocks until a translated image is shown and returns its src.
	WaitForResult(ctx context.Context) (string, error)
	// Extract returns the bytes behind an image src (data:, blob: or http(s) URL).
	Extract(ctx context.Context, src string) ([]byte, error)
	// Screenshot captures the whole page as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// SessionFactory launches a new Session.
type SessionFactory func(ctx context.Context, opts LaunchOptions) (Session, error)

// LaunchOptions control how a browser session is started.
type LaunchOptions struct {
	Headless     bool
	ExecPath     string
	ProxyServer  string
	UserAgent    string
	Locale       string
	TranslateURL string
	Delay        Delay
}

// LaunchOptionsFromConfig builds the launch options shared by every session.
// The proxy is per request and left empty.
func LaunchOptionsFromConfig(cfg *config.Config) LaunchOptions {
	return LaunchOptions{
		Headless:     cfg.Browser.Headless,
		ExecPath:     cfg.Browser.ExecPath,
		UserAgent:    cfg.Browser.UserAgent,
		Locale:       cfg.Browser.Locale,
		TranslateURL: cfg.Browser.TranslateURL,
		Delay: NewDelay(
			time.Duration(cfg.Browser.NaturalDelayMin*float64(time.Second)),
			time.Duration(cfg.Browser.NaturalDelayMax*float64(time.Second)),
		),
	}
}
