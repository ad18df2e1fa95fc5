package browser

import (
	"net/url"
	"strings"

	"github.com/chromedp/chromedp"
)

// allocatorOptions returns the Chrome command line for a session.
func allocatorOptions(opts LaunchOptions) []chromedp.ExecAllocatorOption {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-webgl", true),
		chromedp.Flag("use-gl", "angle"),
		chromedp.WindowSize(1366, 900),
	)
	if opts.Locale != "" {
		allocOpts = append(allocOpts, chromedp.Flag("lang", opts.Locale))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.ProxyServer != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(chromeProxyServer(opts.ProxyServer)))
	}
	return allocOpts
}

// chromeProxyServer converts a proxy URL to the form accepted by --proxy-server.
// Chrome always resolves host names through a SOCKS5 proxy and does not know the
// socks5h scheme, nor does it accept credentials on the command line.
func chromeProxyServer(proxyURL string) string {
	u, err := url.Parse(proxyURL)
	if err != nil || u.Host == "" {
		return proxyURL
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "socks5h" {
		scheme = "socks5"
	}
	return scheme + "://" + u.Host
}

// translateURL builds the image translation page URL for a language pair.
func translateURL(base, sourceLang, targetLang string) string {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		u = &url.URL{Scheme: "https", Host: "translate.google.com", Path: "/"}
	}
	q := u.Query()
	q.Set("sl", sourceLang)
	q.Set("tl", targetLang)
	q.Set("op", "images")
	u.RawQuery = q.Encode()
	return u.String()
}

// onImagesPage reports whether location still carries the image translation mode.
func onImagesPage(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return u.Query().Get("op") == "images"
}
